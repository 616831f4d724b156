package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// capture points the global logger at a buffer for the duration of f.
func capture(t *testing.T, level Level, format Format, f func()) string {
	t.Helper()
	var buf bytes.Buffer
	InitLoggerTo(&buf, level, format)
	defer InitLogger(LevelInfo, FormatText)
	f()
	return buf.String()
}

func decode(t *testing.T, line string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestInitLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   Level
		logFunc func()
		want    bool
	}{
		{"debug shown at debug", LevelDebug, func() { Debug("m") }, true},
		{"debug hidden at info", LevelInfo, func() { Debug("m") }, false},
		{"info hidden at warn", LevelWarn, func() { Info("m") }, false},
		{"warn shown at warn", LevelWarn, func() { Warn("m") }, true},
		{"warn hidden at error", LevelError, func() { Warn("m") }, false},
		{"error shown at error", LevelError, func() { Error("m") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := capture(t, tt.level, FormatJSON, tt.logFunc)
			if got := out != ""; got != tt.want {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.want, out)
			}
		})
	}
}

func TestTimestampFormat(t *testing.T) {
	out := capture(t, LevelInfo, FormatJSON, func() { Info("stamp") })
	m := decode(t, strings.TrimSpace(out))
	ts, ok := m["time"].(string)
	if !ok {
		t.Fatalf("missing time field in %v", m)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("time %q is not RFC3339: %v", ts, err)
	}
}

func TestTextFormat(t *testing.T) {
	out := capture(t, LevelInfo, FormatText, func() { Info("hello", "k", "v") })
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "k=v") {
		t.Errorf("text output = %q", out)
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	levels := map[string]Level{"debug": LevelDebug, "WARN": LevelWarn, "warning": LevelWarn, "error": LevelError, "": LevelInfo, "loud": LevelInfo}
	for in, want := range levels {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if ParseFormat("JSON") != FormatJSON || ParseFormat("text") != FormatText || ParseFormat("") != FormatText {
		t.Error("ParseFormat mismatch")
	}
}

func TestContextValues(t *testing.T) {
	ctx := WithBatchID(context.Background(), "b-1")
	ctx = WithRequestID(ctx, "r-1")
	if GetBatchID(ctx) != "b-1" || GetRequestID(ctx) != "r-1" {
		t.Fatal("context values not stored")
	}
	if GetBatchID(context.Background()) != "" {
		t.Error("empty context should have no batch id")
	}

	out := capture(t, LevelInfo, FormatJSON, func() { InfoContext(ctx, "tagged") })
	m := decode(t, strings.TrimSpace(out))
	if m["batch_id"] != "b-1" || m["request_id"] != "r-1" {
		t.Errorf("context fields missing: %v", m)
	}
}

func TestDomainHelpers(t *testing.T) {
	ctx := WithBatchID(context.Background(), "b-2")
	tests := []struct {
		name string
		call func()
		msg  string
		keys []string
	}{
		{"batch started", func() { BatchStarted(ctx, "xhtml", 10, 4) }, "batch_started", []string{"backend", "entries", "workers", "batch_id"}},
		{"batch finished", func() { BatchFinished(ctx, 9, 1, false, time.Second) }, "batch_finished", []string{"rendered", "failed", "cancelled", "duration_ms"}},
		{"entry failed", func() { EntryFailed(ctx, 3, 42, errors.New("boom")) }, "entry_failed", []string{"index", "handle", "error"}},
		{"config problem", func() { ConfigProblem("Main Entry > Gloss", "LexEntry", errors.New("no field")) }, "config_problem", []string{"node", "class", "error"}},
		{"websocket", func() { WebSocketEvent("client_connected", 2) }, "websocket_event", []string{"event", "client_count"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := capture(t, LevelDebug, FormatJSON, tt.call)
			m := decode(t, strings.TrimSpace(out))
			if m["msg"] != tt.msg {
				t.Errorf("msg = %v, want %s", m["msg"], tt.msg)
			}
			for _, k := range tt.keys {
				if _, ok := m[k]; !ok {
					t.Errorf("missing key %q in %v", k, m)
				}
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("request id not in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	var out string
	out = capture(t, LevelInfo, FormatJSON, func() {
		req := httptest.NewRequest(http.MethodGet, "/progress", nil)
		req.Header.Set("X-Request-ID", "given")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Header().Get("X-Request-ID") != "given" {
			t.Errorf("X-Request-ID = %q, want given", rec.Header().Get("X-Request-ID"))
		}
	})
	m := decode(t, strings.TrimSpace(out))
	if m["msg"] != "http_request" || m["status_code"] != float64(http.StatusTeapot) || m["request_id"] != "given" {
		t.Errorf("unexpected log line %v", m)
	}
}
