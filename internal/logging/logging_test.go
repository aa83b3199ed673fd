package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/eykd/redvelvet-go/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_AutoIsJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "info", logging.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("converted", "blocks", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1:\n%s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "converted" || rec["blocks"] != float64(3) {
		t.Errorf("record = %v", rec)
	}
	if _, ok := rec["time"].(string); !ok {
		t.Errorf("time = %v, want a string", rec["time"])
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "debug", logging.FormatText)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("scan", "path", "post.json")
	if got := buf.String(); !strings.Contains(got, "msg=scan") || !strings.Contains(got, "path=post.json") {
		t.Errorf("text output = %q", got)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := logging.New(&bytes.Buffer{}, "loud", logging.FormatText); err == nil {
		t.Error("New with bad level succeeded")
	}
	if _, err := logging.New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("New with bad format succeeded")
	}
}

func TestIsTerminal_NonFile(t *testing.T) {
	if logging.IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true")
	}
}

func TestRunID(t *testing.T) {
	ctx := context.Background()
	if got := logging.RunID(ctx); got != "" {
		t.Errorf("RunID(empty) = %q", got)
	}
	ctx = logging.WithRunID(ctx, "abc")
	if got := logging.RunID(ctx); got != "abc" {
		t.Errorf("RunID = %q, want abc", got)
	}

	var buf bytes.Buffer
	logger, err := logging.New(&buf, "info", logging.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	prev := slog.Default()
	slog.SetDefault(logger)
	t.Cleanup(func() { slog.SetDefault(prev) })

	logging.FromContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), `"run_id":"abc"`) {
		t.Errorf("log output = %q, want run_id", buf.String())
	}
}
