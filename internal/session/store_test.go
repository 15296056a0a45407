package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer records its callback so tests can fire expiry deterministically.
type fakeTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

// Fire runs the callback unless the timer was stopped, mirroring
// time.AfterFunc semantics.
func (t *fakeTimer) Fire() {
	if t.stopped || t.fired {
		return
	}
	t.fired = true
	t.fn()
}

type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) factory(d time.Duration, fn func()) Timer {
	t := &fakeTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func newTestStore(onExpire ExpireFunc) (*Store, *fakeScheduler) {
	sched := &fakeScheduler{}
	store := NewStoreWithTimers(3*time.Minute, onExpire, sched.factory, time.Now)
	return store, sched
}

func TestStore_GetMissingReturnsIdle(t *testing.T) {
	store, _ := newTestStore(nil)

	sess := store.Get("549111111111")
	assert.Equal(t, StateIdle, sess.State)
	assert.True(t, sess.Idle())
	assert.Nil(t, sess.Data.Extraction)
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(nil)

	data := Data{SearchTerm: "Juan Perez"}
	store.Set("549111111111", StateAwaitingPayeeConfirm, data)

	sess := store.Get("549111111111")
	assert.Equal(t, StateAwaitingPayeeConfirm, sess.State)
	assert.Equal(t, "Juan Perez", sess.Data.SearchTerm)
	assert.False(t, sess.Idle())
	assert.False(t, sess.LastActivityAt.IsZero())
}

func TestStore_SecondSetCancelsFirstTimer(t *testing.T) {
	var expirations []string
	store, sched := newTestStore(func(sender string) {
		expirations = append(expirations, sender)
	})

	store.Set("sender", StateAwaitingPayeeConfirm, Data{})
	store.Set("sender", StateAwaitingMethodConfirm, Data{})

	require.Len(t, sched.timers, 2)
	assert.True(t, sched.timers[0].stopped, "first timer must be cancelled")

	// Even if the first timer's callback races its cancellation, the entry
	// identity check must keep it from clearing the replacement session.
	sched.timers[0].stopped = false
	sched.timers[0].Fire()
	assert.Empty(t, expirations)
	assert.Equal(t, StateAwaitingMethodConfirm, store.Get("sender").State)

	sched.timers[1].Fire()
	assert.Equal(t, []string{"sender"}, expirations)
	assert.True(t, store.Get("sender").Idle())
}

func TestStore_ExpiryFiresOnce(t *testing.T) {
	var count int
	store, sched := newTestStore(func(string) { count++ })

	store.Set("sender", StateAwaitingSaveConfirm, Data{})
	require.Len(t, sched.timers, 1)

	sched.timers[0].Fire()
	sched.timers[0].Fire()

	assert.Equal(t, 1, count)
	assert.True(t, store.Get("sender").Idle())
}

func TestStore_ManualClearPreventsExpiryNotification(t *testing.T) {
	var count int
	store, sched := newTestStore(func(string) { count++ })

	store.Set("sender", StateAwaitingPayeeRetry, Data{})
	store.Clear("sender")

	require.Len(t, sched.timers, 1)
	assert.True(t, sched.timers[0].stopped)

	// Stale callback after manual clear must be a no-op.
	sched.timers[0].stopped = false
	sched.timers[0].Fire()
	assert.Zero(t, count)
}

func TestStore_ClearIdempotent(t *testing.T) {
	store, _ := newTestStore(nil)

	store.Set("sender", StateAwaitingPayeeConfirm, Data{})
	store.Clear("sender")
	assert.NotPanics(t, func() { store.Clear("sender") })
	assert.True(t, store.Get("sender").Idle())
}

func TestStore_CreatedAtPreservedAcrossSets(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	sched := &fakeScheduler{}
	store := NewStoreWithTimers(3*time.Minute, nil, sched.factory, clock)

	store.Set("sender", StateAwaitingPayeeConfirm, Data{})
	now = now.Add(time.Minute)
	store.Set("sender", StateAwaitingMethodConfirm, Data{})

	sess := store.Get("sender")
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), sess.CreatedAt)
	assert.Equal(t, now, sess.LastActivityAt)
}

func TestStore_SessionsIsolatedBySender(t *testing.T) {
	store, _ := newTestStore(nil)

	store.Set("a", StateAwaitingPayeeConfirm, Data{SearchTerm: "x"})
	store.Set("b", StateAwaitingSaveConfirm, Data{SearchTerm: "y"})
	store.Clear("a")

	assert.True(t, store.Get("a").Idle())
	assert.Equal(t, StateAwaitingSaveConfirm, store.Get("b").State)
}
