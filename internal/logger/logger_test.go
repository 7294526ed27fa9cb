package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/emberdating/ember-backend/internal/config"
)

// captureOutput redirects stdout to a buffer during f()
func captureOutput(t *testing.T, f func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	_ = r.Close()

	return buf.String()
}

func TestLogger_TextFormat(t *testing.T) {
	out := captureOutput(t, func() {
		InitFromConfig(&config.Config{
			Log: config.LogConfig{
				Level:     "debug",
				Format:    "text",
				Component: "test",
				Source:    false,
			},
		})
		Info("hello ember", "key", "value")
	})

	if !strings.Contains(out, "hello ember") {
		t.Errorf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected structured field, got: %s", out)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	out := captureOutput(t, func() {
		InitFromConfig(&config.Config{
			Log: config.LogConfig{
				Level:     "info",
				Format:    "json",
				Component: "json_test",
			},
		})
		Info("json log", "foo", "bar")
	})

	if !strings.Contains(out, `"msg":"json log"`) {
		t.Errorf("expected JSON message, got: %s", out)
	}
	if !strings.Contains(out, `"component":"json_test"`) {
		t.Errorf("expected component in JSON, got: %s", out)
	}
	if !strings.Contains(out, `"foo":"bar"`) {
		t.Errorf("expected structured field in JSON, got: %s", out)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	out := captureOutput(t, func() {
		InitFromConfig(&config.Config{
			Log: config.LogConfig{
				Level:  "error",
				Format: "text",
			},
		})
		Info("should not appear")
		Error("should appear")
	})

	if strings.Contains(out, "should not appear") {
		t.Errorf("info log should not appear, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error log should appear, got: %s", out)
	}
}

func TestLogger_WithAddsFields(t *testing.T) {
	out := captureOutput(t, func() {
		Init(&Config{Level: "info", Format: FormatText})
		log := With("request_id", "abc123")
		log.Info("scoped message")
	})

	if !strings.Contains(out, "request_id=abc123") {
		t.Errorf("expected bound attribute, got: %s", out)
	}
	if !strings.Contains(out, "scoped message") {
		t.Errorf("expected message, got: %s", out)
	}
}
