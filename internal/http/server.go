package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"skillchisel/internal/cache"
	"skillchisel/internal/core"
	"skillchisel/internal/gate"
	"skillchisel/internal/livequery"
	applog "skillchisel/internal/log"
	"skillchisel/internal/middleware/ratelimit"
	"skillchisel/internal/middleware/security"
	"skillchisel/internal/middleware/trace"
	"skillchisel/internal/signin"
	"skillchisel/internal/tracker"
	appweb "skillchisel/web"
)

const (
	clientCookie   = "skillchisel_client"
	sessionCookie  = "skillchisel_session"
	timezoneCookie = "tz"

	heartbeatInterval = 25 * time.Second
)

// IdentityProvider is the identity surface the HTTP layer needs: session
// notifications for the gate, the sign-in calls and session restore.
type IdentityProvider interface {
	gate.Notifier
	signin.Authenticator
	Restore(ctx context.Context, clientID, token string) error
	FederationEnabled() bool
	FederatedAuthURL(clientID string) (string, error)
	SignOut(ctx context.Context, clientID, token string) error
}

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server to its collaborators.
type Options struct {
	Addr     string
	Identity IdentityProvider
	Skills   tracker.Repository
	Store    Pinger
	Hub      *livequery.Hub
	Logger   *applog.Logger

	Location        *time.Location
	ViewIdleTTL     time.Duration
	MaxViews        int
	SessionTTL      time.Duration
	SignInRateLimit int
	SecureCookies   bool

	// Now overrides time.Now for views; nil uses the wall clock.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	identity  IdentityProvider
	skills    tracker.Repository
	store     Pinger
	hub       *livequery.Hub
	logger    *applog.Logger
	base      *applog.Logger
	events    *applog.StructuredLogger

	location      *time.Location
	sessionTTL    time.Duration
	secureCookies bool
	now           func() time.Time

	clients *cache.LRUCache[*client]

	securityDetector  *security.Detector
	securityHeaders   *security.HeadersMiddleware
	traceMiddleware   *trace.Middleware
	signInRateLimiter *ratelimit.Limiter

	appMetrics *appMetrics

	shutdownOnce sync.Once
}

// appMetrics holds application-specific counters
type appMetrics struct {
	skillsCreated  int64
	entriesAdded   int64
	skillsDeleted  int64
	signIns        int64
	signInFailures int64
	sseStreams     int64
	uptime         time.Time
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ViewIdleTTL <= 0 {
		opts.ViewIdleTTL = 30 * time.Minute
	}
	if opts.MaxViews <= 0 {
		opts.MaxViews = 1000
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		identity:      opts.Identity,
		skills:        opts.Skills,
		store:         opts.Store,
		hub:           opts.Hub,
		logger:        logger,
		base:          opts.Logger,
		events:        applog.NewStructuredLogger(opts.Logger),
		location:      opts.Location,
		sessionTTL:    opts.SessionTTL,
		secureCookies: opts.SecureCookies,
		now:           opts.Now,
		appMetrics:    &appMetrics{uptime: time.Now()},
	}
	s.clients = cache.NewLRUCache[*client](opts.MaxViews, opts.ViewIdleTTL,
		cache.WithSlidingTTL[*client](),
		cache.WithOnEvict(func(_ string, c *client) { c.close() }),
	)

	s.securityDetector = security.NewDetector(opts.Logger)
	s.securityHeaders = security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, opts.Logger)
	s.signInRateLimiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerWindow: opts.SignInRateLimit,
		Window:            time.Minute,
	})

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	page := func(h http.HandlerFunc) http.Handler { return security.NoStoreMiddleware(h) }
	limited := s.signInRateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleSignInLimited)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /{$}", page(s.handleIndex))
	mux.Handle("POST /auth/signin", limited(page(s.handleSignIn)))
	mux.Handle("POST /auth/mode", page(s.handleToggleMode))
	mux.Handle("GET /auth/google", page(s.handleGoogleStart))
	mux.Handle("GET /auth/google/callback", limited(page(s.handleGoogleCallback)))
	mux.Handle("POST /auth/signout", page(s.handleSignOut))

	mux.Handle("GET /ui/tab", page(s.withTracker(s.handleTab)))
	mux.Handle("GET /ui/calendar", page(s.withTracker(s.handleCalendar)))
	mux.Handle("GET /ui/forms/skill", page(s.withTracker(s.handleSkillForm)))
	mux.Handle("GET /ui/forms/entry", page(s.withTracker(s.handleEntryForm)))
	mux.Handle("POST /skills", page(s.withTracker(s.handleCreateSkill)))
	mux.Handle("POST /skills/{id}/entries", page(s.withTracker(s.handleAddEntry)))
	mux.Handle("DELETE /skills/{id}", page(s.withTracker(s.handleDeleteSkill)))

	mux.Handle("GET /events", page(s.handleEvents))

	var handler http.Handler = mux
	handler = s.securityDetector.Middleware(handler)
	handler = s.securityHeaders.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

// Caches returns the registries that need periodic expiry sweeps.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.clients, s.signInRateLimiter}
}

// Shutdown stops accepting requests, then unmounts every client so live
// queries and SSE streams end.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.clients.Clear()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) newView(sess core.Session, loc *time.Location, onUpdate func()) *tracker.View {
	return tracker.NewView(s.skills, sess,
		tracker.WithClock(s.now),
		tracker.WithLocation(loc),
		tracker.WithLogger(s.base.Slog()),
		tracker.WithOnUpdate(onUpdate),
	)
}

// attach resolves the browser's client, creating it and the device cookie on
// first contact, and restores its session from the session cookie.
func (s *Server) attach(w http.ResponseWriter, r *http.Request) *client {
	id := ""
	if ck, err := r.Cookie(clientCookie); err == nil {
		if parsed, err := uuid.Parse(ck.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     clientCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}

	c, existed := s.clients.GetOrSet(id, func() *client { return newClient(s, id) })
	if !existed {
		c.gate.Mount()
	}
	c.setLocation(s.requestLocation(r))

	token := ""
	if ck, err := r.Cookie(sessionCookie); err == nil {
		token = ck.Value
	}
	if err := s.identity.Restore(r.Context(), id, token); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Session restore failed",
			applog.FieldClientID, id, applog.FieldError, err)
	}
	return c
}

// requestLocation reads the IANA zone the page script stores in a cookie.
func (s *Server) requestLocation(r *http.Request) *time.Location {
	ck, err := r.Cookie(timezoneCookie)
	if err != nil || ck.Value == "" {
		return nil
	}
	loc, err := time.LoadLocation(ck.Value)
	if err != nil {
		return nil
	}
	return loc
}

func (s *Server) newSessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) clearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// trackerHandler serves a signed-in client.
type trackerHandler func(w http.ResponseWriter, r *http.Request, c *client, v *tracker.View)

// withTracker rejects requests from clients without a tracker view; htmx is
// sent back to the gate.
func (s *Server) withTracker(next trackerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := s.attach(w, r)
		v, err := c.trackerView()
		if err != nil {
			applog.FromContext(r.Context()).DebugContext(r.Context(), "Tracker request without session",
				applog.FieldClientID, c.id, applog.FieldPath, r.URL.Path, applog.FieldError, err)
			if isHTMX(r) {
				UnauthorizedError().Write(w)
				return
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next(w, r, c, v)
	}
}

func (s *Server) countStream(delta int64) int64 {
	return atomic.AddInt64(&s.appMetrics.sseStreams, delta)
}
