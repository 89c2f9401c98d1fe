package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds all live sessions in memory. Sessions are ephemeral by design:
// a restart loses them and the UI is expected to start over.
//
// Each session carries its own mutex, so mutations on one session never block
// another. The outer map lock is held only for lookups and inserts/removals.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*tracked

	defaultLanguage string
}

type tracked struct {
	mu sync.Mutex
	s  Session
}

// NewStore creates an empty store. defaultLanguage may be "" to use
// DefaultLanguage.
func NewStore(defaultLanguage string) *Store {
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}
	return &Store{
		sessions:        make(map[string]*tracked),
		defaultLanguage: defaultLanguage,
	}
}

// Create registers a new session. teachers must contain exactly two distinct
// non-empty identifiers; the first becomes the initial speaker, the second
// the initial renderer.
func (st *Store) Create(teachers []string, lessonURL string) (Session, error) {
	if len(teachers) != 2 || teachers[0] == "" || teachers[1] == "" || teachers[0] == teachers[1] {
		return Session{}, ErrInvalidTeachers
	}

	now := time.Now().UTC()
	s := Session{
		SessionID:      uuid.NewString(),
		ActiveTeachers: append([]string(nil), teachers...),
		LeftTeacher:    teachers[0],
		RightTeacher:   teachers[1],
		Turn:           0,
		Speaker:        teachers[0],
		Renderer:       teachers[1],
		LessonURL:      lessonURL,
		Language:       st.defaultLanguage,
		Queues: map[string]QueueEntry{
			teachers[0]: {Status: StatusIdle},
			teachers[1]: {Status: StatusIdle},
		},
		CreatedAt:      now,
		LastActivityAt: now,
		Status:         "active",
	}

	st.mu.Lock()
	st.sessions[s.SessionID] = &tracked{s: s}
	st.mu.Unlock()

	return s.clone(), nil
}

// Get returns a deep-copied snapshot of the session.
func (st *Store) Get(id string) (Session, error) {
	t, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.clone(), nil
}

// Mutate applies fn to the session under its exclusive lock and returns the
// updated snapshot. If fn returns an error the session is left as fn left it
// and the error is passed through; fn must not mutate on failure paths.
func (st *Store) Mutate(id string, fn func(*Session) error) (Session, error) {
	t, err := st.lookup(id)
	if err != nil {
		return Session{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := fn(&t.s); err != nil {
		return Session{}, err
	}
	t.s.LastActivityAt = time.Now().UTC()
	return t.s.clone(), nil
}

// Delete removes the session. Returns false if it was already gone.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

// ExpireIdle removes every session whose last activity is older than ttl and
// returns the removed IDs. Callers are responsible for tearing down any event
// subscribers still attached to those sessions.
func (st *Store) ExpireIdle(ttl time.Duration) []string {
	cutoff := time.Now().UTC().Add(-ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	var expired []string
	for id, t := range st.sessions {
		t.mu.Lock()
		idle := t.s.LastActivityAt.Before(cutoff)
		t.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) lookup(id string) (*tracked, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	t, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}
