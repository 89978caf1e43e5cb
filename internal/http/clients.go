package http

import (
	"sync"
	"time"

	"skillchisel/internal/core"
	"skillchisel/internal/gate"
	"skillchisel/internal/signin"
	"skillchisel/internal/tracker"
)

// SSE event names pushed to open streams.
const (
	eventUpdate  = "update"
	eventSession = "session"
)

// client is the server-side state of one browser: its session gate, the
// sign-in form and, while signed in, the tracker view.
type client struct {
	id     string
	server *Server
	gate   *gate.Gate

	mu         sync.Mutex
	form       signin.Form
	view       *tracker.View
	loc        *time.Location
	sessionKey string
	closed     bool

	streamsMu sync.Mutex
	streams   map[chan string]struct{}
}

func newClient(s *Server, id string) *client {
	c := &client{
		id:      id,
		server:  s,
		loc:     s.location,
		streams: make(map[chan string]struct{}),
	}
	c.gate = gate.New(s.identity, id, c.onSessionChange)
	return c
}

// onSessionChange keeps the tracker view in step with the gate. Views are
// created on sign-in, re-pointed when the session is refreshed and torn down
// on sign-out.
func (c *client) onSessionChange(state gate.State, sess *core.Session) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	key := state.String()
	switch state {
	case gate.Authenticated:
		key += ":" + sess.UserID
		if c.view == nil {
			c.view = c.server.newView(*sess, c.loc, func() { c.publish(eventUpdate) })
			c.view.Mount()
			c.form = signin.Form{Mode: c.form.Mode}
		} else {
			c.view.SetSession(*sess)
		}
	default:
		if c.view != nil {
			c.view.Unmount()
			c.view = nil
		}
	}
	changed := c.sessionKey != "" && c.sessionKey != key
	c.sessionKey = key
	c.mu.Unlock()

	if changed {
		c.publish(eventSession)
	}
}

// trackerView returns the signed-in view or tracker.ErrNotMounted.
func (c *client) trackerView() (*tracker.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return nil, tracker.ErrNotMounted
	}
	return c.view, nil
}

// signinForm returns a copy of the form; submit it and store it back with
// saveForm. The provider is never called with mu held because its
// notifications re-enter onSessionChange.
func (c *client) signinForm() signin.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

func (c *client) saveForm(f signin.Form) {
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
}

// setLocation records the browser's zone for views created later and
// forwards it to the current one.
func (c *client) setLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	c.mu.Lock()
	c.loc = loc
	v := c.view
	c.mu.Unlock()
	if v != nil {
		v.SetLocation(loc)
	}
}

// subscribe opens a stream of event names. The channel is closed when the
// client is evicted.
func (c *client) subscribe() (<-chan string, func()) {
	ch := make(chan string, 8)
	c.streamsMu.Lock()
	if c.streams == nil {
		c.streamsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.streams[ch] = struct{}{}
	c.streamsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.streamsMu.Lock()
			if _, ok := c.streams[ch]; ok {
				delete(c.streams, ch)
				close(ch)
			}
			c.streamsMu.Unlock()
		})
	}
}

// publish sends event to every open stream, dropping it for streams that
// are not keeping up.
func (c *client) publish(event string) {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	for ch := range c.streams {
		select {
		case ch <- event:
		default:
		}
	}
}

func (c *client) streamCount() int {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	return len(c.streams)
}

// close unmounts the gate and the view and ends every stream.
func (c *client) close() {
	c.gate.Unmount()

	c.mu.Lock()
	c.closed = true
	v := c.view
	c.view = nil
	c.mu.Unlock()
	if v != nil {
		v.Unmount()
	}

	c.streamsMu.Lock()
	for ch := range c.streams {
		close(ch)
	}
	c.streams = nil
	c.streamsMu.Unlock()
}
