package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillchisel/internal/core"
	"skillchisel/internal/livequery"
	"skillchisel/internal/storage/memory"
)

type flakyStore struct {
	*memory.Store
	mu      sync.Mutex
	failing bool
}

func (f *flakyStore) ListSkills(ctx context.Context, userID string) ([]core.Skill, error) {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return nil, errors.New("store unavailable")
	}
	return f.Store.ListSkills(ctx, userID)
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

type snapshots struct {
	mu  sync.Mutex
	got [][]core.Skill
}

func (s *snapshots) record(skills []core.Skill) {
	s.mu.Lock()
	s.got = append(s.got, skills)
	s.mu.Unlock()
}

func (s *snapshots) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func (s *snapshots) last() []core.Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) == 0 {
		return nil
	}
	return s.got[len(s.got)-1]
}

func newTestService(t *testing.T) (*SkillService, *flakyStore) {
	t.Helper()
	store := &flakyStore{Store: memory.New()}
	return NewSkillService(store, livequery.NewHub(nil), nil), store
}

func TestWatchDeliversInitialAndChangedSnapshots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var snaps snapshots
	stop := svc.Watch("u1", snaps.record)
	defer stop()

	require.Eventually(t, func() bool { return snaps.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, snaps.last())

	skill, err := svc.CreateSkill(ctx, core.NewSkill{Name: "Guitar", Category: "Music", UserID: "u1"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(snaps.last()) == 1 }, time.Second, 5*time.Millisecond)

	_, err = svc.AppendEntry(ctx, "u1", skill.ID, core.Entry{Date: "2024-06-10", Hours: "1", Notes: "scales"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		last := snaps.last()
		return len(last) == 1 && len(last[0].Entries) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.DeleteSkill(ctx, "u1", skill.ID))
	require.Eventually(t, func() bool { return len(snaps.last()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestWatchIgnoresOtherUsers(t *testing.T) {
	svc, _ := newTestService(t)

	var snaps snapshots
	stop := svc.Watch("u1", snaps.record)
	defer stop()
	require.Eventually(t, func() bool { return snaps.count() == 1 }, time.Second, 5*time.Millisecond)

	_, err := svc.CreateSkill(context.Background(), core.NewSkill{Name: "Chess", Category: "Games", UserID: "u2"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, snaps.count())
}

func TestWatchKeepsLastSnapshotOnReadFailure(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSkill(ctx, core.NewSkill{Name: "Guitar", Category: "Music", UserID: "u1"})
	require.NoError(t, err)

	var snaps snapshots
	stop := svc.Watch("u1", snaps.record)
	defer stop()
	require.Eventually(t, func() bool { return snaps.count() == 1 }, time.Second, 5*time.Millisecond)

	store.setFailing(true)
	_, err = svc.CreateSkill(ctx, core.NewSkill{Name: "Piano", Category: "Music", UserID: "u1"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, snaps.count())
	assert.Len(t, snaps.last(), 1)
}

func TestMutationErrorsAreWrapped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSkill(ctx, core.NewSkill{Name: "", Category: "Music", UserID: "u1"})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = svc.AppendEntry(ctx, "u1", "missing", core.Entry{Date: "2024-06-10", Hours: "1", Notes: "x"})
	assert.ErrorIs(t, err, core.ErrSkillNotFound)

	assert.ErrorIs(t, svc.DeleteSkill(ctx, "u1", "missing"), core.ErrSkillNotFound)
}
