package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"cashplan/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf})

	logger.WithComponent(ComponentImport).Info("Statement previewed", NewFields().
		WithWorkspace("ws1").
		WithConfidence(map[core.MatchConfidence]int{core.ConfidenceHigh: 2}).
		WithError(errors.New("boom")).
		ToSlice()...)
	logger.Debug("hidden")

	out := buf.String()
	for _, want := range []string{"component=import", "workspace_id=ws1", "matched_high=2", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug entry logged at info level")
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	logger := New(cfg).WithComponent(ComponentLineItems).
		WithFields(NewFields().WithOperation(OpSave).WithWorkspace("ws1"))

	logger.Info("Line item saved", "created", true)
	logger.Info("Line item saved", "created", false)

	out := buf.String()
	if n := strings.Count(out, "workspace_id=ws1"); n != 2 {
		t.Errorf("workspace field logged %d times, want 2: %q", n, out)
	}
	for _, want := range []string{"component=line_items", "operation=save", "created=true", "created=false"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
