package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionEntry struct {
	session  *Session
	lastSeen time.Time
}

// Sessions keeps one Session per visitor id.
type Sessions struct {
	Categories *CategoryStore
	MaxIdle    time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewSessions(categories *CategoryStore, maxIdle time.Duration) *Sessions {
	return &Sessions{
		Categories: categories,
		MaxIdle:    maxIdle,
		sessions:   map[string]*sessionEntry{},
	}
}

// Get returns the session for id, creating it when id is unknown. An empty
// id gets a new random one.
func (s *Sessions) Get(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		entry = &sessionEntry{session: NewSession(id, s.Categories)}
		s.sessions[id] = entry
	}
	entry.lastSeen = time.Now()
	return entry.session
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Prune forgets sessions that have been idle longer than MaxIdle and
// returns how many were removed.
func (s *Sessions) Prune(now time.Time) int {
	if s.MaxIdle <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > s.MaxIdle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
