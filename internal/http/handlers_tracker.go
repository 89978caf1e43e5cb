package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"skillchisel/internal/tracker"
)

// formData is a tracker model with the validation message of a rejected
// form submission.
type formData struct {
	tracker.Model
	Error string
}

// handleTab switches the active section and re-renders the tracker body.
// Without a tab parameter it only re-renders, which is how live updates
// refresh the page.
func (s *Server) handleTab(w http.ResponseWriter, r *http.Request, c *client, v *tracker.View) {
	if tab := r.URL.Query().Get("tab"); tab != "" {
		v.SetTab(tracker.ParseTab(tab))
	}
	s.render(w, r, nil, "tracker_main", v.Model())
}

// handleCalendar moves the displayed month by delta or to year/month.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, c *client, v *tracker.View) {
	q := r.URL.Query()
	if delta, ok := ParseDelta(q); ok {
		v.NavigateMonth(delta)
	} else if m, ok := ParseMonthParams(q); ok {
		v.ShowMonth(m.Year, m.Month)
	}
	s.render(w, r, nil, "calendar", v.Model())
}

// handleSkillForm opens or, with close=1, closes the add-skill dialog.
func (s *Server) handleSkillForm(w http.ResponseWriter, r *http.Request, c *client, v *tracker.View) {
	if r.URL.Query().Get("close") != "" {
		v.CloseAddSkill()
	} else {
		v.OpenAddSkill()
	}
	s.render(w, r, nil, "skill_form", formData{Model: v.Model()})
}

// handleEntryForm opens the add-entry dialog for a skill or closes it.
func (s *Server) handleEntryForm(w http.ResponseWriter, r *http.Request, c *client, v *tracker.View) {
	q := r.URL.Query()
	if q.Get("close") != "" {
		v.CloseAddEntry()
	} else if !v.OpenAddEntry(q.Get("skill")) {
		NotFoundError("Skill not found").Write(w)
		return
	}
	s.render(w, r, nil, "entry_form", formData{Model: v.Model()})
}

// handleCreateSkill submits the add-skill form. An incomplete draft keeps the
// dialog open with a hint; otherwise the dialog closes at once and the new
// card arrives through the live query.
func (s *Server) handleCreateSkill(w http.ResponseWriter, r *http.Request, c *client, v *tracker.View) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		parseErrorResponse(err).Write(w)
		return
	}

	v.UpdateSkillDraft(p.SkillDraft())
	res := v.CreateSkill(r.Context())
	if errors.Is(res.Err, tracker.ErrSkillDraftIncomplete) {
		s.render(w, r, nil, "skill_form", formData{Model: v.Model(), Error: "Please enter a skill name and a category."})
		return
	}

	b := NewHTMXResponse().TriggerModalClosed()
	if res.OK {
		atomic.AddInt64(&s.appMetrics.skillsCreated, 1)
		b.TriggerSkillCreated()
	}
	s.render(w, r, b, "skill_form", formData{Model: v.Model()})
}

// handleAddEntry appends the add-entry draft to the skill in the path.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request, c *client, v *tracker.View) {
	skillID := r.PathValue("id")

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		parseErrorResponse(err).Write(w)
		return
	}
	if !v.OpenAddEntry(skillID) {
		NotFoundError("Skill not found").Write(w)
		return
	}

	v.UpdateEntryDraft(p.EntryDraft())
	res := v.AddEntry(r.Context())
	if errors.Is(res.Err, tracker.ErrEntryDraftIncomplete) {
		s.render(w, r, nil, "entry_form", formData{Model: v.Model(), Error: "Please enter the hours practiced and a note."})
		return
	}

	b := NewHTMXResponse().TriggerModalClosed()
	if res.OK {
		atomic.AddInt64(&s.appMetrics.entriesAdded, 1)
		b.TriggerEntryAdded(skillID)
	}
	s.render(w, r, b, "entry_form", formData{Model: v.Model()})
}

// handleDeleteSkill deletes a skill after the browser confirmation. Store
// failures are logged by the view and not shown.
func (s *Server) handleDeleteSkill(w http.ResponseWriter, r *http.Request, c *client, v *tracker.View) {
	skillID := r.PathValue("id")
	res := v.DeleteSkill(r.Context(), skillID, isConfirmed(r))

	b := NewHTMXResponse().Status(http.StatusOK)
	if res.OK {
		atomic.AddInt64(&s.appMetrics.skillsDeleted, 1)
		b.TriggerSkillDeleted(skillID)
	}
	b.Write(w)
}
