package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

// mockFileIO serves inputs from memory and records outputs.
type mockFileIO struct {
	files    map[string][]byte
	written  map[string][]byte
	readErr  error
	writeErr error
}

func newMockFileIO(files map[string]string) *mockFileIO {
	m := &mockFileIO{files: map[string][]byte{}, written: map[string][]byte{}}
	for k, v := range files {
		m.files[k] = []byte(v)
	}
	return m
}

func (m *mockFileIO) ReadInput(_ context.Context, path string, stdin io.Reader) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if isStdio(path) {
		return io.ReadAll(stdin)
	}
	data, ok := m.files[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return data, nil
}

func (m *mockFileIO) WriteOutputAtomic(_ context.Context, path string, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written[path] = append([]byte(nil), data...)
	return nil
}

// runRoot executes the rv root command with args against fio.
func runRoot(t *testing.T, fio FileIO, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := newRootCmd(fio)
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestMockFileIO_MissingFile(t *testing.T) {
	_, err := newMockFileIO(nil).ReadInput(context.Background(), "nope.json", nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadInput error = %v, want ErrNotExist", err)
	}
}
