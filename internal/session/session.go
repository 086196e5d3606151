// Package session owns per-connection game sessions and the turn pipeline
// that moves a player choice through generation, guardrails, reconciliation
// and deterministic checks to a committed scene.
package session

import (
	"errors"
	"sync"

	"medievalrpg/internal/game"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrTurnInFlight = errors.New("turn already in progress")
)

// Session binds one session id to one world state. At most one turn may be
// in flight; a second choice arriving mid-generation is rejected, not
// queued.
type Session struct {
	ID    string
	State *game.WorldState

	mu   sync.Mutex
	busy bool
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrTurnInFlight
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Store is the in-memory session registry keyed by session id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Put creates or replaces the session for an id. Replacing is the load
// path: a session that loads a save starts over with the restored state.
func (st *Store) Put(id string, state *game.WorldState) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess := &Session{ID: id, State: state}
	st.sessions[id] = sess
	return sess
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
