package gate

import (
	"sync"
	"testing"

	"skillchisel/internal/core"
	"skillchisel/internal/identity"
)

type fakeNotifier struct {
	mu        sync.Mutex
	listeners map[int]identity.SessionListener
	next      int
	initial   *core.Session
	hasInit   bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{listeners: map[int]identity.SessionListener{}}
}

func (f *fakeNotifier) OnSessionChange(_ string, fn identity.SessionListener) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	hasInit, initial := f.hasInit, f.initial
	f.mu.Unlock()

	if hasInit {
		fn(initial)
	}
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeNotifier) emit(s *core.Session) {
	f.mu.Lock()
	fns := make([]identity.SessionListener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func TestGateStartsLoadingUntilFirstNotification(t *testing.T) {
	n := newFakeNotifier()
	g := New(n, "c1", nil)
	g.Mount()
	defer g.Unmount()

	if st, _ := g.State(); st != Loading {
		t.Fatalf("State() = %v, want loading", st)
	}

	n.emit(nil)
	if st, _ := g.State(); st != Anonymous {
		t.Fatalf("State() = %v, want anonymous", st)
	}

	n.emit(&core.Session{ID: "s1", UserID: "u1", Email: "a@b.co"})
	st, sess := g.State()
	if st != Authenticated || sess == nil || sess.UserID != "u1" {
		t.Fatalf("State() = %v, %+v; want authenticated u1", st, sess)
	}

	n.emit(nil)
	if st, _ := g.State(); st != Anonymous {
		t.Fatalf("State() = %v, want anonymous after sign out", st)
	}
}

func TestGateReceivesImmediateStateOnMount(t *testing.T) {
	n := newFakeNotifier()
	n.hasInit = true
	n.initial = &core.Session{ID: "s1", UserID: "u1"}

	var changes []State
	g := New(n, "c1", func(st State, _ *core.Session) { changes = append(changes, st) })
	g.Mount()
	defer g.Unmount()

	if st, _ := g.State(); st != Authenticated {
		t.Fatalf("State() = %v, want authenticated", st)
	}
	if len(changes) != 1 || changes[0] != Authenticated {
		t.Fatalf("changes = %v", changes)
	}
}

func TestGateIgnoresNotificationsAfterUnmount(t *testing.T) {
	n := newFakeNotifier()
	calls := 0
	g := New(n, "c1", func(State, *core.Session) { calls++ })
	g.Mount()
	g.Mount()
	if n.count() != 1 {
		t.Fatalf("expected a single subscription, got %d", n.count())
	}

	var late identity.SessionListener
	n.mu.Lock()
	for _, fn := range n.listeners {
		late = fn
	}
	n.mu.Unlock()

	g.Unmount()
	if n.count() != 0 {
		t.Fatal("Unmount must deregister")
	}

	late(&core.Session{ID: "s1", UserID: "u1"})
	if st, _ := g.State(); st != Loading {
		t.Fatalf("State() = %v, want loading (late call ignored)", st)
	}
	if calls != 0 {
		t.Fatalf("onChange called %d times after unmount", calls)
	}
}

func TestGateStateReturnsCopy(t *testing.T) {
	n := newFakeNotifier()
	g := New(n, "c1", nil)
	g.Mount()
	defer g.Unmount()
	n.emit(&core.Session{ID: "s1", UserID: "u1"})

	_, sess := g.State()
	sess.UserID = "mutated"
	_, again := g.State()
	if again.UserID != "u1" {
		t.Fatal("State must not expose internal session")
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{Loading: "loading", Authenticated: "authenticated", Anonymous: "anonymous", State(9): "unknown"} {
		if st.String() != want {
			t.Errorf("%d.String() = %q, want %q", st, st.String(), want)
		}
	}
}
