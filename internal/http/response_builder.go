package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Client-side events announced through HX-Trigger.
const (
	EventSkillCreated = "skill:created"
	EventEntryAdded   = "entry:added"
	EventSkillDeleted = "skill:deleted"
	EventModalClosed  = "modal:closed"
)

const htmlContentType = "text/html; charset=utf-8"

// HTMXResponseBuilder collects status, headers, cookies, HX-Trigger events
// and body for one response and writes them in the order net/http needs.
type HTMXResponseBuilder struct {
	status   int
	header   http.Header
	cookies  []*http.Cookie
	triggers map[string]any
	body     []byte
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{status: http.StatusOK, header: http.Header{}}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

func (b *HTMXResponseBuilder) Cookie(c *http.Cookie) *HTMXResponseBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// Redirect makes htmx navigate the whole page to url.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

// Trigger adds event to HX-Trigger with detail as its payload. A nil detail
// is sent as an empty object.
func (b *HTMXResponseBuilder) Trigger(event string, detail any) *HTMXResponseBuilder {
	if b.triggers == nil {
		b.triggers = make(map[string]any)
	}
	if detail == nil {
		detail = struct{}{}
	}
	b.triggers[event] = detail
	return b
}

func (b *HTMXResponseBuilder) TriggerSkillCreated() *HTMXResponseBuilder {
	return b.Trigger(EventSkillCreated, nil)
}

func (b *HTMXResponseBuilder) TriggerEntryAdded(skillID string) *HTMXResponseBuilder {
	return b.Trigger(EventEntryAdded, map[string]string{"skill": skillID})
}

func (b *HTMXResponseBuilder) TriggerSkillDeleted(skillID string) *HTMXResponseBuilder {
	return b.Trigger(EventSkillDeleted, map[string]string{"skill": skillID})
}

func (b *HTMXResponseBuilder) TriggerModalClosed() *HTMXResponseBuilder {
	return b.Trigger(EventModalClosed, nil)
}

func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = []byte(content)
	return b
}

// BodyRendered sets an executed template as the HTML body.
func (b *HTMXResponseBuilder) BodyRendered(html []byte) *HTMXResponseBuilder {
	b.header.Set("Content-Type", htmlContentType)
	b.body = html
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}
	if len(b.triggers) > 0 {
		if payload, err := json.Marshal(b.triggers); err == nil {
			h.Set("HX-Trigger", string(payload))
		}
	}

	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is an escaped error fragment with the given status.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		BodyRendered([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// UnauthorizedError sends htmx back to the session gate.
func UnauthorizedError() *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "Your session has ended").Redirect("/")
}
