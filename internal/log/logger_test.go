package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentTracker, Handler: slog.NewTextHandler(&buf, nil)})
	l.Info("mounted", FieldUserID, "u1")

	out := buf.String()
	if !strings.Contains(out, "component=tracker") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentHTTP, Handler: slog.NewTextHandler(&buf, nil)})

	var got *Logger
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != l {
		t.Fatal("expected logger from context to be the injected one")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger for empty context")
	}
}

func TestLogFieldsBuilder(t *testing.T) {
	f := NewFields().WithUser("u1").WithSkill("s1", "Guitar", "Music").WithError(nil)
	if f[FieldUserID] != "u1" || f[FieldSkillID] != "s1" || f[FieldSkillName] != "Guitar" {
		t.Fatalf("unexpected fields: %v", f)
	}
	if _, ok := f[FieldError]; ok {
		t.Fatal("nil error must not add a field")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatal("ToSlice must produce key/value pairs")
	}
}
