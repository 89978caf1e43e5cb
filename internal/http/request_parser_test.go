package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParseMonthParams(t *testing.T) {
	tests := []struct {
		name   string
		query  url.Values
		want   MonthParams
		wantOK bool
	}{
		{"valid", url.Values{"year": {"2024"}, "month": {"6"}}, MonthParams{Year: 2024, Month: time.June}, true},
		{"trimmed", url.Values{"year": {" 2025 "}, "month": {" 12 "}}, MonthParams{Year: 2025, Month: time.December}, true},
		{"missing month", url.Values{"year": {"2024"}}, MonthParams{}, false},
		{"missing year", url.Values{"month": {"3"}}, MonthParams{}, false},
		{"month out of range", url.Values{"year": {"2024"}, "month": {"13"}}, MonthParams{}, false},
		{"month zero", url.Values{"year": {"2024"}, "month": {"0"}}, MonthParams{}, false},
		{"not a number", url.Values{"year": {"abc"}, "month": {"xyz"}}, MonthParams{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMonthParams(tt.query)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseMonthParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDelta(t *testing.T) {
	tests := []struct {
		value  string
		want   int
		wantOK bool
	}{
		{"1", 1, true},
		{"-1", -1, true},
		{"12", 12, true},
		{"", 0, false},
		{"abc", 0, false},
		{"5000", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ParseDelta(url.Values{"delta": {tt.value}})
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseDelta(%q) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	body := "name=+Guitar+&category=Music&target_hours=1.5&color=bg-sky-400&notes=line1%0Aline2+"
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	d := p.SkillDraft()
	if d.Name != "Guitar" || d.Category != "Music" || d.TargetHours != "1.5" || d.Color != "bg-sky-400" {
		t.Errorf("SkillDraft() = %+v", d)
	}
	if got := p.GetRaw("notes"); got != "line1\nline2 " {
		t.Errorf("GetRaw(notes) = %q", got)
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"date":"2024-06-01","hours":2,"notes":"scales"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	d := p.EntryDraft()
	if d.Date != "2024-06-01" || d.Hours != "2" || d.Notes != "scales" {
		t.Errorf("EntryDraft() = %+v", d)
	}
	if got := p.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err == nil {
		t.Fatal("Parse() error = nil, want error")
	}
	// A second call reports the same error.
	if err := p.Parse(); err == nil {
		t.Fatal("second Parse() error = nil, want error")
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := p.Get("name"); got != "" {
		t.Errorf("Get(name) = %q, want empty", got)
	}
}

func TestRequestBodyParser_OversizedBody(t *testing.T) {
	body := "date=2024-06-01&hours=1&notes=" + strings.Repeat("a", maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	err := p.Parse()
	if err == nil {
		t.Fatal("Parse() error = nil, want error for oversized body")
	}
	if got := p.GetRaw("notes"); got != "" {
		t.Errorf("GetRaw(notes) = %d bytes, want nothing from a truncated body", len(got))
	}

	rr := httptest.NewRecorder()
	parseErrorResponse(err).Write(rr)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestRequestBodyParser_AtLimit(t *testing.T) {
	prefix := "date=2024-06-01&hours=1&notes="
	body := prefix + strings.Repeat("a", maxBodyBytes-len(prefix))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := len(p.GetRaw("notes")); got != maxBodyBytes-len(prefix) {
		t.Errorf("notes length = %d, want %d", got, maxBodyBytes-len(prefix))
	}
}

func TestParseErrorResponse_BadRequest(t *testing.T) {
	rr := httptest.NewRecorder()
	parseErrorResponse(errors.New("decode json body: unexpected EOF")).Write(rr)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"tab\tand\nnewline", "tab\tand\nnewline"},
		{"null\x00byte", "nullbyte"},
		{"bell\x07", "bell"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsConfirmed(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"/skills/1?confirmed=true", true},
		{"/skills/1?confirmed=1", true},
		{"/skills/1?confirmed=false", false},
		{"/skills/1", false},
		{"/skills/1?confirmed=yes", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodDelete, tt.target, nil)
		if got := isConfirmed(req); got != tt.want {
			t.Errorf("isConfirmed(%s) = %v, want %v", tt.target, got, tt.want)
		}
	}
}
