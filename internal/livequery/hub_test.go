package livequery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSubscribeRefreshesImmediatelyAndOnChange(t *testing.T) {
	h := NewHub(nil)
	var n atomic.Int32
	unsubscribe := h.Subscribe("u1", func() { n.Add(1) })
	defer unsubscribe()

	waitFor(t, func() bool { return n.Load() == 1 })

	h.Notify(context.Background(), "u1")
	waitFor(t, func() bool { return n.Load() == 2 })

	h.Notify(context.Background(), "someone-else")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), n.Load())
}

func TestUnsubscribeStopsRefreshes(t *testing.T) {
	h := NewHub(nil)
	var n atomic.Int32
	unsubscribe := h.Subscribe("u1", func() { n.Add(1) })
	waitFor(t, func() bool { return n.Load() == 1 })

	unsubscribe()
	unsubscribe()
	assert.Zero(t, h.Subscribers())

	h.Notify(context.Background(), "u1")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
}

func TestBurstsCoalesceAndNeverOverlap(t *testing.T) {
	h := NewHub(nil)
	release := make(chan struct{})
	var running, maxRunning, calls atomic.Int32
	unsubscribe := h.Subscribe("u1", func() {
		cur := running.Add(1)
		for {
			old := maxRunning.Load()
			if cur <= old || maxRunning.CompareAndSwap(old, cur) {
				break
			}
		}
		calls.Add(1)
		<-release
		running.Add(-1)
	})
	defer unsubscribe()

	waitFor(t, func() bool { return calls.Load() == 1 })
	for i := 0; i < 50; i++ {
		h.Notify(context.Background(), "u1")
	}
	close(release)

	waitFor(t, func() bool { return calls.Load() == 2 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load(), "burst collapses into one refresh")
	assert.Equal(t, int32(1), maxRunning.Load())
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []Change
	err  error
}

func (f *fakeBroadcaster) PublishChange(_ context.Context, c Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return f.err
}

func TestNotifyBroadcastsAndIgnoresOwnEcho(t *testing.T) {
	h := NewHub(nil)
	b := &fakeBroadcaster{}
	h.SetBroadcaster(b)

	var n atomic.Int32
	unsubscribe := h.Subscribe("u1", func() { n.Add(1) })
	defer unsubscribe()
	waitFor(t, func() bool { return n.Load() == 1 })

	h.Notify(context.Background(), "u1")
	waitFor(t, func() bool { return n.Load() == 2 })
	require.Len(t, b.sent, 1)
	assert.Equal(t, Change{UserID: "u1", Origin: h.Origin()}, b.sent[0])

	h.HandleRemote(b.sent[0])
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), n.Load(), "own echo ignored")

	h.HandleRemote(Change{UserID: "u1", Origin: "other-instance"})
	waitFor(t, func() bool { return n.Load() == 3 })
}

func TestBroadcastFailureStillDeliversLocally(t *testing.T) {
	h := NewHub(nil)
	h.SetBroadcaster(&fakeBroadcaster{err: errors.New("broker down")})
	var n atomic.Int32
	unsubscribe := h.Subscribe("u1", func() { n.Add(1) })
	defer unsubscribe()
	waitFor(t, func() bool { return n.Load() == 1 })

	h.Notify(context.Background(), "u1")
	waitFor(t, func() bool { return n.Load() == 2 })
}
