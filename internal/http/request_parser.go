package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"skillchisel/internal/tracker"
)

const maxBodyBytes = 64 << 10

type MonthParams struct {
	Year  int
	Month time.Month
}

// ParseMonthParams reads year and month from the query. ok is false unless
// both are present and in range.
func ParseMonthParams(query url.Values) (params MonthParams, ok bool) {
	y, yerr := queryInt(query, "year")
	m, merr := queryInt(query, "month")
	if yerr != nil || merr != nil || y < 1 || y > 9999 || m < 1 || m > 12 {
		return MonthParams{}, false
	}
	return MonthParams{Year: y, Month: time.Month(m)}, true
}

// ParseDelta reads a month offset such as "-1", bounded to a century either
// way.
func ParseDelta(query url.Values) (int, bool) {
	d, err := queryInt(query, "delta")
	if err != nil || d < -1200 || d > 1200 {
		return 0, false
	}
	return d, true
}

func queryInt(query url.Values, key string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(query.Get(key)))
}

// RequestBodyParser reads a form or JSON body once and exposes its fields
// as strings. JSON scalars are converted so both encodings read the same.
type RequestBodyParser struct {
	contentType string
	body        []byte
	readErr     error

	values url.Values
	done   bool
	err    error
}

// NewRequestBodyParser reads at most maxBodyBytes of the body. A larger body
// makes Parse fail with *http.MaxBytesError rather than decode a prefix.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.readErr = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body. The first result is returned on every later call.
func (p *RequestBodyParser) Parse() error {
	if !p.done {
		p.done = true
		p.values, p.err = p.decode()
	}
	return p.err
}

func (p *RequestBodyParser) decode() (url.Values, error) {
	switch {
	case p.readErr != nil:
		return nil, fmt.Errorf("read body: %w", p.readErr)
	case len(p.body) == 0:
		return url.Values{}, nil
	case strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{':
		var fields map[string]any
		if err := json.Unmarshal(p.body, &fields); err != nil {
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		values := make(url.Values, len(fields))
		for k, v := range fields {
			values.Set(k, scalarString(v))
		}
		return values, nil
	default:
		return url.ParseQuery(string(p.body))
	}
}

// Get returns the trimmed field with control characters removed.
func (p *RequestBodyParser) Get(key string) string {
	return strings.TrimSpace(p.GetRaw(key))
}

// GetRaw is Get without trimming, for notes and passwords.
func (p *RequestBodyParser) GetRaw(key string) string {
	if p.values == nil {
		return ""
	}
	return sanitizeInput(p.values.Get(key))
}

func (p *RequestBodyParser) SkillDraft() tracker.SkillDraft {
	return tracker.SkillDraft{
		Name:        p.Get("name"),
		Category:    p.Get("category"),
		TargetHours: p.Get("target_hours"),
		Color:       p.Get("color"),
	}
}

func (p *RequestBodyParser) EntryDraft() tracker.EntryDraft {
	return tracker.EntryDraft{
		Date:  p.Get("date"),
		Hours: p.Get("hours"),
		Notes: p.GetRaw("notes"),
	}
}

// parseErrorResponse maps a Parse failure to 413 for oversized bodies and
// 400 otherwise.
func parseErrorResponse(err error) *HTMXResponseBuilder {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrorResponse(http.StatusRequestEntityTooLarge, "Request too large")
	}
	return BadRequestError("Invalid request format")
}

// scalarString renders a decoded JSON scalar; objects and arrays read as "".
func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and line breaks.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// isConfirmed reports whether a destructive request carries confirmed=true,
// which the page only adds after the hx-confirm prompt.
func isConfirmed(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("confirmed"))
	return err == nil && v
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
