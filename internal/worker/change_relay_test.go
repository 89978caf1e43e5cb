package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"skillchisel/internal/livequery"
)

type fakeSource struct {
	changes []livequery.Change
	err     error
}

func (f *fakeSource) ConsumeChanges(ctx context.Context, handler func(livequery.Change)) error {
	for _, c := range f.changes {
		handler(c)
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestChangeRelay_DeliversRemoteChanges(t *testing.T) {
	hub := livequery.NewHub(nil)
	var refreshes atomic.Int32
	stop := hub.Subscribe("u1", func() { refreshes.Add(1) })
	defer stop()

	waitFor(t, func() bool { return refreshes.Load() == 1 })

	src := &fakeSource{changes: []livequery.Change{
		{UserID: "u1", Origin: hub.Origin()}, // own echo
		{UserID: "u2", Origin: "other"},
		{UserID: "", Origin: "other"},
		{UserID: "u1", Origin: "other"},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewChangeRelay(src, hub, nil).Run(ctx) }()

	waitFor(t, func() bool { return refreshes.Load() == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := refreshes.Load(); got != 2 {
		t.Fatalf("expected exactly one remote refresh, got %d total", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() after cancel = %v, want nil", err)
	}
}

func TestChangeRelay_ReturnsSourceError(t *testing.T) {
	want := errors.New("broker gone")
	err := NewChangeRelay(&fakeSource{err: want}, livequery.NewHub(nil), nil).Run(context.Background())
	if !errors.Is(err, want) {
		t.Fatalf("Run() = %v, want %v", err, want)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}
