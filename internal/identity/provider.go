// Package identity authenticates users and tells interested parties when the
// signed-in session of a browser client changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"skillchisel/internal/cache"
	"skillchisel/internal/core"
	applog "skillchisel/internal/log"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	defaultMaxClients = 10000
	federatedStateTTL = 10 * time.Minute
	tokenIssuer       = "skillchisel"
)

// Store persists accounts and issued sessions.
type Store interface {
	CreateAccount(ctx context.Context, a core.Account) error
	AccountByEmail(ctx context.Context, email string) (core.Account, error)
	AccountByGoogleSubject(ctx context.Context, subject string) (core.Account, error)
	LinkGoogleSubject(ctx context.Context, accountID, subject string) error
	CreateSession(ctx context.Context, s core.SessionRecord) error
	SessionByID(ctx context.Context, id string) (core.SessionRecord, error)
	RevokeSession(ctx context.Context, id string) error
}

// SessionListener receives the client's session after every change; nil
// means signed out.
type SessionListener func(*core.Session)

type clientState struct {
	session *core.Session
	version uint64
}

// listener delivers one client's sessions in version order. A delivery
// older than the last one it passed on is dropped, so a late initial
// snapshot never overwrites a newer change.
type listener struct {
	fn SessionListener

	mu   sync.Mutex
	last uint64
}

func (l *listener) deliver(version uint64, sess *core.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if version <= l.last {
		return
	}
	l.last = version
	l.fn(sess)
}

// Provider is the identity provider. Each browser client is identified by an
// opaque client id; the provider remembers the last known session per client
// and notifies listeners registered for that client when it changes.
type Provider struct {
	store      Store
	signer     *TokenSigner
	federation Federation
	logger     *slog.Logger
	now        func() time.Time
	sessionTTL time.Duration
	bcryptCost int

	clients *cache.LRUCache[clientState]
	states  *cache.LRUCache[string]

	mu        sync.Mutex
	nextID    int
	version   uint64
	listeners map[string]map[int]*listener
}

// Option configures a Provider.
type Option func(*Provider)

func WithFederation(f Federation) Option { return func(p *Provider) { p.federation = f } }

func WithLogger(l *slog.Logger) Option { return func(p *Provider) { p.logger = l } }

func WithClock(now func() time.Time) Option { return func(p *Provider) { p.now = now } }

func WithSessionTTL(d time.Duration) Option { return func(p *Provider) { p.sessionTTL = d } }

// WithBcryptCost lowers the hashing cost, for tests.
func WithBcryptCost(cost int) Option { return func(p *Provider) { p.bcryptCost = cost } }

func NewProvider(store Store, secret []byte, opts ...Option) *Provider {
	p := &Provider{
		store:      store,
		signer:     NewTokenSigner(secret, tokenIssuer),
		logger:     slog.Default(),
		now:        time.Now,
		sessionTTL: defaultSessionTTL,
		bcryptCost: bcrypt.DefaultCost,
		listeners:  make(map[string]map[int]*listener),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(applog.FieldComponent, applog.ComponentIdentity)
	p.clients = cache.NewLRUCache[clientState](defaultMaxClients, p.sessionTTL,
		cache.WithSlidingTTL[clientState](), cache.WithClock[clientState](p.now))
	p.states = cache.NewLRUCache[string](defaultMaxClients, federatedStateTTL,
		cache.WithClock[string](p.now))
	return p
}

// Caches returns the provider's internal caches for periodic cleanup.
func (p *Provider) Caches() []cache.Cleaner {
	return []cache.Cleaner{p.clients, p.states}
}

// OnSessionChange registers fn for clientID. When the client's session is
// already known fn is called with it before OnSessionChange returns, unless
// a newer change has reached fn first. Calls to fn never overlap and never
// go back to an older session. The returned function deregisters fn; a
// notification already being delivered may still arrive, so listeners must
// tolerate a late call.
func (p *Provider) OnSessionChange(clientID string, fn SessionListener) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	if p.listeners[clientID] == nil {
		p.listeners[clientID] = make(map[int]*listener)
	}
	l := &listener{fn: fn}
	p.listeners[clientID][id] = l
	st, known := p.clients.Get(clientID)
	p.mu.Unlock()

	if known {
		l.deliver(st.version, copySession(st.session))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.listeners[clientID], id)
			if len(p.listeners[clientID]) == 0 {
				delete(p.listeners, clientID)
			}
		})
	}
}

// Restore establishes the client's session from its stored token. An empty
// or unusable token marks the client signed out. Store failures leave the
// client's state unknown and are returned.
func (p *Provider) Restore(ctx context.Context, clientID, token string) error {
	if token == "" {
		p.setClient(clientID, nil)
		return nil
	}
	sess, err := p.Resolve(ctx, token)
	if err != nil {
		var idErr *Error
		if errors.Is(err, ErrInvalidToken) || (errors.As(err, &idErr) && idErr.Code != CodeInternal) {
			p.setClient(clientID, nil)
			return nil
		}
		return err
	}
	p.setClient(clientID, &sess)
	return nil
}

// Resolve verifies a session token and checks it has not been revoked.
func (p *Provider) Resolve(ctx context.Context, token string) (core.Session, error) {
	sess, err := p.signer.Parse(token, p.now())
	if err != nil {
		return core.Session{}, err
	}
	rec, err := p.store.SessionByID(ctx, sess.ID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return core.Session{}, ErrSessionExpired
		}
		return core.Session{}, internalError(fmt.Errorf("load session: %w", err))
	}
	if rec.Revoked || rec.UserID != sess.UserID || !p.now().Before(rec.ExpiresAt) {
		return core.Session{}, ErrSessionExpired
	}
	return sess, nil
}

// SignIn checks email and password and starts a session for the client.
// The returned token is what the client presents on later requests.
func (p *Provider) SignIn(ctx context.Context, clientID, email, password string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrMissingPassword
	}

	acct, err := p.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return "", ErrInvalidCredential
		}
		return "", internalError(fmt.Errorf("load account: %w", err))
	}
	if acct.PasswordHash == "" {
		return "", ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredential
	}
	return p.startSession(ctx, clientID, acct)
}

// CreateAccount registers a new email/password account and signs it in.
func (p *Provider) CreateAccount(ctx context.Context, clientID, email, password string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrMissingPassword
	}
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return "", internalError(fmt.Errorf("hash password: %w", err))
	}
	acct := core.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	if err := p.store.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			return "", ErrEmailInUse
		}
		return "", internalError(fmt.Errorf("create account: %w", err))
	}
	p.logger.InfoContext(ctx, "Account created", "user_id", acct.ID)
	return p.startSession(ctx, clientID, acct)
}

// FederationEnabled reports whether federated sign-in is available.
func (p *Provider) FederationEnabled() bool {
	return p.federation != nil
}

// FederatedAuthURL starts a federated sign-in for the client and returns the
// URL to send the browser to.
func (p *Provider) FederatedAuthURL(clientID string) (string, error) {
	if p.federation == nil {
		return "", ErrNotAllowed
	}
	state := uuid.NewString()
	p.states.Set(state, clientID)
	return p.federation.AuthCodeURL(state), nil
}

// CompleteFederated finishes a federated sign-in started by the same client.
// Accounts are matched by provider subject, then by verified email; unknown
// users get a new account.
func (p *Provider) CompleteFederated(ctx context.Context, clientID, state, code string) (string, error) {
	if p.federation == nil {
		return "", ErrNotAllowed
	}
	owner, ok := p.states.Get(state)
	if !ok || owner != clientID {
		return "", ErrInvalidState
	}
	p.states.Delete(state)
	if code == "" {
		return "", ErrPopupClosed
	}

	user, err := p.federation.Exchange(ctx, code)
	if err != nil {
		return "", internalError(err)
	}

	acct, err := p.store.AccountByGoogleSubject(ctx, user.Subject)
	switch {
	case err == nil:
		return p.startSession(ctx, clientID, acct)
	case !errors.Is(err, core.ErrAccountNotFound):
		return "", internalError(fmt.Errorf("load account: %w", err))
	}

	email := strings.ToLower(strings.TrimSpace(user.Email))
	acct, err = p.store.AccountByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.EmailVerified {
			return "", ErrInvalidCredential
		}
		if err := p.store.LinkGoogleSubject(ctx, acct.ID, user.Subject); err != nil {
			return "", internalError(fmt.Errorf("link google account: %w", err))
		}
		acct.GoogleSubject = user.Subject
	case errors.Is(err, core.ErrAccountNotFound):
		acct = core.Account{
			ID:            uuid.NewString(),
			Email:         email,
			GoogleSubject: user.Subject,
			CreatedAt:     p.now().UTC(),
		}
		if err := p.store.CreateAccount(ctx, acct); err != nil {
			return "", internalError(fmt.Errorf("create account: %w", err))
		}
		p.logger.InfoContext(ctx, "Account created", "user_id", acct.ID, "provider", "google")
	default:
		return "", internalError(fmt.Errorf("load account: %w", err))
	}
	return p.startSession(ctx, clientID, acct)
}

// SignOut revokes the session behind token and marks the client signed out.
// The client is signed out locally even when revocation fails.
func (p *Provider) SignOut(ctx context.Context, clientID, token string) error {
	defer p.setClient(clientID, nil)

	if token == "" {
		return nil
	}
	sess, err := p.signer.Parse(token, p.now())
	if err != nil {
		return nil
	}
	if err := p.store.RevokeSession(ctx, sess.ID); err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		return internalError(fmt.Errorf("revoke session: %w", err))
	}
	return nil
}

func (p *Provider) startSession(ctx context.Context, clientID string, acct core.Account) (string, error) {
	now := p.now()
	sess := core.Session{
		ID:        uuid.NewString(),
		UserID:    acct.ID,
		Email:     acct.Email,
		ExpiresAt: now.Add(p.sessionTTL).UTC().Truncate(time.Second),
	}
	rec := core.SessionRecord{
		ID:        sess.ID,
		UserID:    sess.UserID,
		CreatedAt: now.UTC(),
		ExpiresAt: sess.ExpiresAt,
	}
	if err := p.store.CreateSession(ctx, rec); err != nil {
		return "", internalError(fmt.Errorf("create session: %w", err))
	}
	token, err := p.signer.Sign(sess, now)
	if err != nil {
		return "", internalError(err)
	}
	p.setClient(clientID, &sess)
	return token, nil
}

// setClient records the client's session and notifies listeners when it
// differs from the last known one.
func (p *Provider) setClient(clientID string, sess *core.Session) {
	p.mu.Lock()
	prev, known := p.clients.Get(clientID)
	if known && sameSession(prev.session, sess) {
		p.clients.Set(clientID, clientState{session: copySession(sess), version: prev.version})
		p.mu.Unlock()
		return
	}
	p.version++
	version := p.version
	p.clients.Set(clientID, clientState{session: copySession(sess), version: version})
	ls := make([]*listener, 0, len(p.listeners[clientID]))
	for _, l := range p.listeners[clientID] {
		ls = append(ls, l)
	}
	p.mu.Unlock()

	for _, l := range ls {
		l.deliver(version, copySession(sess))
	}
}

func sameSession(a, b *core.Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

func copySession(s *core.Session) *core.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
