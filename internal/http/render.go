package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"skillchisel/internal/core"
	applog "skillchisel/internal/log"
	"skillchisel/internal/signin"
	"skillchisel/internal/tracker"
)

// weekdayInitials heads the Sunday-first calendar grid.
var weekdayInitials = []string{"S", "M", "T", "W", "T", "F", "S"}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"hours":    core.FormatHours,
		"percent":  func(p float64) string { return strconv.FormatFloat(p, 'f', 0, 64) + "%" },
		"target":   func(h float64) string { return strconv.FormatFloat(h, 'f', -1, 64) + "h" },
		"weekdays": func() []string { return weekdayInitials },
		"tabLabel": func(t tracker.Tab) string { return t.Label() },
		"prevMonth": func(year int, month time.Month) monthRef {
			return shiftMonth(year, month, -1)
		},
		"nextMonth": func(year int, month time.Month) monthRef {
			return shiftMonth(year, month, 1)
		},
	}
}

// monthRef is a calendar month as query parameters.
type monthRef struct {
	Year  int
	Month int
}

func shiftMonth(year int, month time.Month, delta int) monthRef {
	t := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return monthRef{Year: t.Year(), Month: int(t.Month())}
}

// signinPage is the data of the sign-in templates. OOB marks a partial
// response whose heading and controls are swapped out of band.
type signinPage struct {
	Form       signin.Form
	Federation bool
	OOB        bool
}

// loadingPage is the data of the loading template.
type loadingPage struct {
	PollSeconds int
}

func (s *Server) signinData(f signin.Form) signinPage {
	return signinPage{Form: f, Federation: s.identity.FederationEnabled()}
}

// renderTemplate executes name into a buffer so a failing template never
// leaves a half-written response.
func (s *Server) renderTemplate(ctx context.Context, name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(ctx, "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.LogFields{"template": name})
		return nil, err
	}
	return buf.Bytes(), nil
}

// render writes template name through b, which may already carry a status,
// triggers and cookies. A nil builder starts a fresh 200 response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	html, err := s.renderTemplate(r.Context(), name, data)
	if err != nil {
		InternalServerError("Something went wrong, please reload the page").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyRendered(html).Write(w)
}
