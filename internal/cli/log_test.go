package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("drawn") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("drawn") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("drawn") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgressStep(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel), 2)

	p.step(4)
	if buf.Len() != 0 {
		t.Errorf("logged after one batch: %q", buf.String())
	}
	p.step(3)
	out := buf.String()
	if !strings.Contains(out, "batches=2") || !strings.Contains(out, "blends=7") {
		t.Errorf("progress line = %q, want batches=2 blends=7", out)
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel), 0)
	p.step(5)
	p.done("Generated batches")

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Errorf("want a single line with every=0, got %q", out)
	}
	if !strings.Contains(out, "Generated batches") || !strings.Contains(out, "blends/s") {
		t.Errorf("done line = %q", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("want log.Default() without an attached logger")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	got := loggerFromContext(withLogger(context.Background(), custom))
	if got != custom {
		t.Fatal("loggerFromContext did not return the attached logger")
	}
	got.Info("drawn")
	if buf.Len() == 0 {
		t.Error("attached logger should write to its buffer")
	}
}
