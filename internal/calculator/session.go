package calculator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Session is one open calculator screen.
type Session struct {
	ID        string
	CreatedAt time.Time

	now      func() time.Time
	mu       sync.Mutex
	engine   Engine
	lastUsed time.Time
}

// Press applies tokens in order and returns the display after each one.
// The session handles one batch at a time.
func (s *Session) Press(tokens []Token, each func(Token, Evaluation)) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	displays := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ev := s.engine.Press(t)
		if each != nil {
			each(t, ev)
		}
		displays = append(displays, s.engine.Display())
	}
	s.lastUsed = s.now()

	return displays
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Store keeps the open sessions in memory.
type Store struct {
	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a store. A zero ttl disables idle expiry and a zero
// maxSessions disables the limit.
func NewStore(ttl time.Duration, maxSessions int) *Store {
	return &Store{
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Create opens a session in the initial state.
func (st *Store) Create() (*Session, error) {
	now := st.now()
	st.Sweep(now)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.maxSessions > 0 && len(st.sessions) >= st.maxSessions {
		return nil, ErrTooManySessions
	}

	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		now:       st.now,
		engine:    Engine{state: Initial()},
		lastUsed:  now,
	}
	st.sessions[sess.ID] = sess

	return sess, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Delete closes a session.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the ttl and returns how many
// were removed.
func (st *Store) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, sess := range st.sessions {
		if now.Sub(sess.idleSince()) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// SweepEvery runs Sweep on every tick of interval until ctx is done.
func (st *Store) SweepEvery(ctx context.Context, interval time.Duration) {
	if st.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(st.now())
		}
	}
}
