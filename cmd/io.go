package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileIO handles reading inputs and writing outputs for the rv commands.
type FileIO interface {
	// ReadInput reads path, or stdin when path is "" or "-".
	ReadInput(ctx context.Context, path string, stdin io.Reader) ([]byte, error)
	WriteOutputAtomic(ctx context.Context, path string, data []byte) error
}

// fileIO implements FileIO using OS file I/O.
type fileIO struct{}

func newDefaultFileIO() *fileIO {
	return &fileIO{}
}

func (f *fileIO) ReadInput(_ context.Context, path string, stdin io.Reader) ([]byte, error) {
	if isStdio(path) {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// WriteOutputAtomic writes data next to path and renames it into place.
func (f *fileIO) WriteOutputAtomic(_ context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rv-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func isStdio(path string) bool {
	return path == "" || path == "-"
}

// inputPath returns the single optional positional argument, defaulting to stdin.
func inputPath(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
