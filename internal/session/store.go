package session

import (
	"sync"
	"time"
)

// Timer is the handle of a scheduled expiry. Stop reports whether the
// callback was prevented from running.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules fn to run after d. The default factory wraps
// time.AfterFunc; tests substitute a controllable fake.
type TimerFactory func(d time.Duration, fn func()) Timer

type realTimer struct{ *time.Timer }

func defaultTimerFactory(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

// ExpireFunc is invoked after an inactivity timer has removed a session.
// It runs outside the store lock.
type ExpireFunc func(sender string)

type entry struct {
	session Session
	timer   Timer
}

// Store keeps one live session per sender with a single pending inactivity
// timer each. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	onExpire ExpireFunc
	newTimer TimerFactory
	now      func() time.Time
}

// NewStore creates a store whose sessions expire after ttl of inactivity.
// onExpire may be nil when no expiry notification is wanted.
func NewStore(ttl time.Duration, onExpire ExpireFunc) *Store {
	return NewStoreWithTimers(ttl, onExpire, defaultTimerFactory, time.Now)
}

// NewStoreWithTimers is NewStore with an injectable timer factory and clock,
// so tests can fire or freeze time deterministically.
func NewStoreWithTimers(ttl time.Duration, onExpire ExpireFunc, factory TimerFactory, now func() time.Time) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		onExpire: onExpire,
		newTimer: factory,
		now:      now,
	}
}

// Set replaces any existing session for sender and restarts its inactivity
// timer. The previous timer, if any, is cancelled first so a sender never
// has two pending expiries.
func (s *Store) Set(sender string, state State, data Data) {
	s.mu.Lock()

	now := s.now()
	created := now
	if prev, ok := s.sessions[sender]; ok {
		if prev.timer != nil {
			prev.timer.Stop()
		}
		created = prev.session.CreatedAt
	}

	e := &entry{
		session: Session{
			Sender:         sender,
			State:          state,
			Data:           data,
			CreatedAt:      created,
			LastActivityAt: now,
		},
	}
	s.sessions[sender] = e
	e.timer = s.newTimer(s.ttl, func() { s.expire(sender, e) })

	s.mu.Unlock()
}

// Get returns the sender's session, or a canonical idle session when none
// exists. Callers cannot distinguish "never existed" from "expired".
func (s *Store) Get(sender string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[sender]; ok {
		return e.session
	}
	return Session{Sender: sender, State: StateIdle}
}

// Clear cancels the pending timer and removes the session. Idempotent.
func (s *Store) Clear(sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[sender]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.sessions, sender)
	}
}

// expire runs when an inactivity timer fires. The entry identity check keeps
// a stale timer from clearing a session that was replaced or already cleared
// while the callback was in flight.
func (s *Store) expire(sender string, e *entry) {
	s.mu.Lock()
	current, ok := s.sessions[sender]
	if !ok || current != e {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sender)
	s.mu.Unlock()

	if s.onExpire != nil {
		s.onExpire(sender)
	}
}
