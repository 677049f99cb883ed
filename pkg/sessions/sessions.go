// Package sessions keeps per-session conversation history in memory.
// History is plain text turns; sessions live for the lifetime of the
// process and can be cleared individually.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatooli/chatooli/pkg/engine"
)

// Session is a conversation with its bookkeeping.
type Session struct {
	ID        string           `json:"id"`
	Messages  []engine.Message `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store holds sessions keyed by ID. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Ensure returns the session with the given ID, creating it first if
// needed. An empty ID allocates a fresh one.
func (s *Store) Ensure(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		s.sessions[id] = sess
	}
	return sess
}

// Append adds a turn to a session, creating the session if needed, and
// returns the session ID.
func (s *Store) Append(id, role, content string) string {
	sess := s.Ensure(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Messages = append(sess.Messages, engine.Message{Role: role, Content: content})
	sess.UpdatedAt = time.Now()
	return sess.ID
}

// History returns a copy of the session's messages, or nil when the
// session does not exist.
func (s *Store) History(id string) []engine.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return append([]engine.Message(nil), sess.Messages...)
}

// Get returns a snapshot of a session.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	snapshot := *sess
	snapshot.Messages = append([]engine.Message(nil), sess.Messages...)
	return snapshot, true
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
