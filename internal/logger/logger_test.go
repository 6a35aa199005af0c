package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlogBridge(t *testing.T) {
	var buf bytes.Buffer
	log := Slog(NewWithWriter(&buf, "info", false, false))

	log.Debug("dropped")
	log.With("plugin", "audit").WithGroup("entry").Warn("entry added",
		"delta_minutes", 15,
		"served45", false,
		"error", errors.New("boom"),
	)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), buf.String())
	}

	var got map[string]any
	if err := json.Unmarshal(lines[0], &got); err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"level":               "warn",
		"message":             "entry added",
		"plugin":              "audit",
		"entry.delta_minutes": float64(15),
		"entry.served45":      false,
		"entry.error":         "boom",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestSlogEnabled(t *testing.T) {
	h := Slog(NewWithWriter(&bytes.Buffer{}, "warn", false, false)).Handler()
	if h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(t.Context(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
