package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestLRUCache_CapacityEvictsOldest(t *testing.T) {
	var evictedKeys []string
	c := NewLRUCache[int](2, time.Hour, WithOnEvict(func(k string, _ int) {
		evictedKeys = append(evictedKeys, k)
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if len(evictedKeys) != 1 || evictedKeys[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evictedKeys)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_SlidingTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := NewLRUCache[string](10, time.Minute, WithSlidingTTL[string](), WithClock[string](clock.Now))

	c.Set("k", "v")
	clock.Advance(50 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before TTL")
	}
	clock.Advance(50 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected sliding TTL to keep item alive")
	}
	clock.Advance(61 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after idle TTL")
	}
}

func TestLRUCache_CleanExpiredNotifies(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var count int
	c := NewLRUCache[int](10, time.Minute,
		WithClock[int](clock.Now),
		WithOnEvict(func(string, int) { count++ }),
	)
	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(2 * time.Minute)
	c.Set("c", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired() = %d, want 2", n)
	}
	if count != 2 {
		t.Fatalf("onEvict called %d times, want 2", count)
	}
	if size := c.Size(); size != 1 {
		t.Fatalf("Size() = %d, want 1", size)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("Get(c) = %v, %v; want 3, true", v, ok)
	}
}

func TestLRUCache_GetOrSet(t *testing.T) {
	c := NewLRUCache[*int](10, time.Hour)
	calls := 0
	create := func() *int { calls++; v := calls; return &v }

	first, existed := c.GetOrSet("k", create)
	if existed || *first != 1 {
		t.Fatalf("first GetOrSet = %d, %v", *first, existed)
	}
	second, existed := c.GetOrSet("k", create)
	if !existed || second != first {
		t.Fatal("expected the stored value to be returned")
	}
	if calls != 1 {
		t.Fatalf("create called %d times, want 1", calls)
	}
}

func TestLRUCache_DeleteAndClearNotify(t *testing.T) {
	seen := map[string]bool{}
	c := NewLRUCache[int](10, time.Hour, WithOnEvict(func(k string, _ int) { seen[k] = true }))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("a")
	if !seen["a"] {
		t.Fatal("Delete must notify")
	}
	c.Clear()
	if !seen["b"] || !seen["c"] || c.Size() != 0 {
		t.Fatalf("Clear must evict everything, seen=%v size=%d", seen, c.Size())
	}
}

func TestLRUCache_ReplaceNotifiesOldValue(t *testing.T) {
	var old []int
	c := NewLRUCache[int](10, time.Hour, WithOnEvict(func(_ string, v int) { old = append(old, v) }))
	c.Set("k", 1)
	c.Set("k", 2)
	if len(old) != 1 || old[0] != 1 {
		t.Fatalf("evicted %v, want [1]", old)
	}
	if v, _ := c.Get("k"); v != 2 {
		t.Fatalf("Get = %d, want 2", v)
	}
}

func TestManager_CleansRegisteredCaches(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := NewLRUCache[int](10, time.Millisecond, WithClock[int](clock.Now))
	c.Set("a", 1)
	clock.Advance(time.Second)

	m := NewManager(nil)
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for c.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Size() != 0 {
		t.Fatal("expected manager to clean expired items")
	}
}

func TestManager_SweepAndRepeatedStop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	a := NewLRUCache[int](10, time.Minute, WithClock[int](clock.Now))
	b := NewLRUCache[string](10, time.Hour, WithClock[string](clock.Now))
	a.Set("x", 1)
	a.Set("y", 2)
	b.Set("z", "kept")
	clock.Advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register(a, b)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep = %d, want 2", n)
	}
	if b.Size() != 1 {
		t.Fatal("unexpired entry must survive the sweep")
	}

	m.Stop()
	m.Stop()
}
