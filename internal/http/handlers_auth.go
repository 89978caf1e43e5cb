package http

import (
	"net/http"
	"sync/atomic"

	"skillchisel/internal/identity"
	applog "skillchisel/internal/log"
	"skillchisel/internal/middleware/trace"
	"skillchisel/internal/signin"
)

// handleSignIn submits the sign-in form in its current mode. Failures
// re-render only the status region so the typed drafts stay in the page.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	c := s.attach(w, r)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentIdentity)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		parseErrorResponse(err).Write(w)
		return
	}

	f := c.signinForm()
	f.Email = p.Get("email")
	f.Password = p.GetRaw("password")
	if mode := p.Get("mode"); mode != "" {
		f.Mode = signin.ParseMode(mode)
	}

	op := applog.OpSignIn
	if f.Mode == signin.ModeRegister {
		op = applog.OpRegister
	}

	token, err := f.Submit(r.Context(), s.identity, c.id)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.signInFailures, 1)
		logger.InfoContext(r.Context(), "Sign-in rejected",
			applog.FieldClientID, c.id, applog.FieldOperation, op, applog.FieldError, err)
		c.saveForm(f)
		s.renderSigninStatus(w, r, nil, f)
		return
	}

	atomic.AddInt64(&s.appMetrics.signIns, 1)
	logger.InfoContext(r.Context(), "Signed in",
		applog.FieldClientID, c.id, applog.FieldOperation, op)
	NewHTMXResponse().
		Cookie(s.newSessionCookie(token)).
		Redirect("/").
		Write(w)
}

// handleSignInLimited answers sign-in attempts over the rate limit with the
// provider's too-many-requests error.
func (s *Server) handleSignInLimited(w http.ResponseWriter, r *http.Request) {
	c := s.attach(w, r)
	atomic.AddInt64(&s.appMetrics.signInFailures, 1)
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Sign-in rate limit exceeded",
		applog.FieldClientID, c.id, applog.FieldClientIP, s.securityDetector.ExtractClientIP(r))

	f := c.signinForm()
	f.Fail(identity.ErrTooManyRequests)
	c.saveForm(f)

	// htmx only swaps 2xx responses, so the partial keeps status 200.
	b := NewHTMXResponse().Header("Retry-After", "60")
	if isHTMX(r) {
		s.renderSigninStatus(w, r, b, f)
		return
	}
	s.render(w, r, b.Status(http.StatusTooManyRequests), "signin_page", s.signinData(f))
}

// handleToggleMode flips between sign-in and registration. The posted drafts
// are kept.
func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	c := s.attach(w, r)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		parseErrorResponse(err).Write(w)
		return
	}

	f := c.signinForm()
	if email := p.Get("email"); email != "" {
		f.Email = email
	}
	if password := p.GetRaw("password"); password != "" {
		f.Password = password
	}
	f.ToggleMode()
	c.saveForm(f)

	s.renderSigninStatus(w, r, nil, f)
}

// handleGoogleStart redirects to the federated provider's consent page.
func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	c := s.attach(w, r)

	url, err := s.identity.FederatedAuthURL(c.id)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Federated sign-in unavailable",
			applog.FieldClientID, c.id, applog.FieldError, err)
		f := c.signinForm()
		f.Fail(err)
		c.saveForm(f)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// handleGoogleCallback completes the code exchange and returns to the gate,
// which shows the tracker on success or the sign-in error otherwise.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	c := s.attach(w, r)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentIdentity)
	q := r.URL.Query()

	f := c.signinForm()
	token, err := f.Federated(r.Context(), s.identity, c.id, q.Get("state"), q.Get("code"), q.Get("error"))
	if err != nil {
		atomic.AddInt64(&s.appMetrics.signInFailures, 1)
		logger.InfoContext(r.Context(), "Federated sign-in failed",
			applog.FieldClientID, c.id, applog.FieldOperation, applog.OpFederated, applog.FieldError, err)
		c.saveForm(f)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	atomic.AddInt64(&s.appMetrics.signIns, 1)
	logger.InfoContext(r.Context(), "Signed in",
		applog.FieldClientID, c.id, applog.FieldOperation, applog.OpFederated, applog.FieldProvider, "google")
	http.SetCookie(w, s.newSessionCookie(token))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSignOut ends the session; the gate flips every page of this client
// back to the sign-in view.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	c := s.attach(w, r)

	token := ""
	if ck, err := r.Cookie(sessionCookie); err == nil {
		token = ck.Value
	}
	if err := s.identity.SignOut(r.Context(), c.id, token); err != nil {
		fields := applog.NewFields().
			WithRequestID(trace.GetRequestID(r.Context())).
			WithClientIP(s.securityDetector.ExtractClientIP(r))
		fields[applog.FieldClientID] = c.id
		s.events.LogError(r.Context(), "Sign-out failed", err, applog.ComponentIdentity, applog.OpSignOut, fields)
	}

	if isHTMX(r) {
		NewHTMXResponse().
			Cookie(s.clearSessionCookie()).
			Redirect("/").
			Write(w)
		return
	}
	http.SetCookie(w, s.clearSessionCookie())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) renderSigninStatus(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, f signin.Form) {
	data := s.signinData(f)
	data.OOB = true
	s.render(w, r, b, "signin_status", data)
}
