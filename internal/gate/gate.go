// Package gate decides which view a browser client sees from the identity
// provider's session notifications.
package gate

import (
	"sync"

	"skillchisel/internal/core"
	"skillchisel/internal/identity"
)

// State is what the gate currently shows.
type State int

const (
	Loading State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Notifier delivers session changes for one client.
type Notifier interface {
	OnSessionChange(clientID string, fn identity.SessionListener) (unsubscribe func())
}

// ChangeFunc is called after every accepted notification with the new state.
type ChangeFunc func(state State, session *core.Session)

// Gate tracks the session of one client. It starts Loading and leaves that
// state on the first notification; there is no timeout.
type Gate struct {
	notifier Notifier
	clientID string
	onChange ChangeFunc

	mu          sync.Mutex
	mounted     bool
	loading     bool
	session     *core.Session
	unsubscribe func()
}

// New creates an unmounted gate for clientID. onChange may be nil.
func New(notifier Notifier, clientID string, onChange ChangeFunc) *Gate {
	return &Gate{
		notifier: notifier,
		clientID: clientID,
		onChange: onChange,
		loading:  true,
	}
}

// Mount subscribes to session changes. Mounting twice is a no-op.
func (g *Gate) Mount() {
	g.mu.Lock()
	if g.mounted {
		g.mu.Unlock()
		return
	}
	g.mounted = true
	g.mu.Unlock()

	unsubscribe := g.notifier.OnSessionChange(g.clientID, g.receive)

	g.mu.Lock()
	if !g.mounted {
		g.mu.Unlock()
		unsubscribe()
		return
	}
	g.unsubscribe = unsubscribe
	g.mu.Unlock()
}

// Unmount deregisters from the provider. Notifications arriving afterwards
// are ignored.
func (g *Gate) Unmount() {
	g.mu.Lock()
	g.mounted = false
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns the current state and, when Authenticated, the session.
func (g *Gate) State() (State, *core.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *Gate) stateLocked() (State, *core.Session) {
	switch {
	case g.loading:
		return Loading, nil
	case g.session != nil:
		s := *g.session
		return Authenticated, &s
	default:
		return Anonymous, nil
	}
}

func (g *Gate) receive(session *core.Session) {
	g.mu.Lock()
	if !g.mounted {
		g.mu.Unlock()
		return
	}
	g.loading = false
	g.session = session
	state, sess := g.stateLocked()
	onChange := g.onChange
	g.mu.Unlock()

	if onChange != nil {
		onChange(state, sess)
	}
}
