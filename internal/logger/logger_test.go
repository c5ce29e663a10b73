package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"none", LevelNone},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestContextRequestLoggerFallsBackToDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ContextRequestLogger(req.Context()) != slog.Default() {
		t.Error("expected the default logger outside a request")
	}

	// must not panic without RequestLogging
	ContextWithLogAttrs(req.Context(), slog.String("kid", "x"))
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := middleware.RequestID(RequestLogging(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ContextRequestLogger(r.Context()).Info("handling")
		ContextWithLogAttrs(r.Context(), slog.String("kid", "dGVzdGtpZA"))
		w.WriteHeader(http.StatusTeapot)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cert/dGVzdGtpZA", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var handling, completed map[string]any
	if err := json.Unmarshal(lines[0], &handling); err != nil {
		t.Fatalf("could not parse log line: %v", err)
	}
	if err := json.Unmarshal(lines[1], &completed); err != nil {
		t.Fatalf("could not parse log line: %v", err)
	}

	if handling["request_id"] == "" || handling["request_id"] != completed["request_id"] {
		t.Errorf("request id missing or not shared: %v / %v", handling["request_id"], completed["request_id"])
	}
	if completed["msg"] != "request completed" {
		t.Errorf("got message %v, want request completed", completed["msg"])
	}
	if completed["status"] != float64(http.StatusTeapot) {
		t.Errorf("got status %v, want %d", completed["status"], http.StatusTeapot)
	}
	if completed["kid"] != "dGVzdGtpZA" {
		t.Errorf("handler attributes not added to the final log line: %v", completed)
	}
	if completed["path"] != "/cert/dGVzdGtpZA" {
		t.Errorf("got path %v", completed["path"])
	}
}
