package game

import (
	"log"
	"sync"
)

// Registry indexes running sessions by id and by participant.
type Registry struct {
	sessions      map[uint]*Session
	byParticipant map[int64]uint
	mu            sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[uint]*Session),
		byParticipant: make(map[int64]uint),
	}
}

// add stores s unless a session with the same id is already running.
func (r *Registry) add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return ErrSessionExists
	}
	r.sessions[s.ID] = s
	for _, id := range s.order {
		if prev, ok := r.byParticipant[id]; ok && prev != s.ID {
			log.Printf("registry: participant %d moves from session %d to %d", id, prev, s.ID)
		}
		r.byParticipant[id] = s.ID
	}
	return nil
}

// Get retrieves a session by id
func (r *Registry) Get(id uint) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// FindByParticipant returns the session a participant currently plays in.
func (r *Registry) FindByParticipant(participantID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byParticipant[participantID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops a session and its participant index entries.
func (r *Registry) Remove(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	for pid, sid := range r.byParticipant {
		if sid == id {
			delete(r.byParticipant, pid)
		}
	}
	return true
}

func (r *Registry) forgetParticipant(sessionID uint, participantID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byParticipant[participantID] == sessionID {
		delete(r.byParticipant, participantID)
	}
}

// IDs returns the ids of all running sessions.
func (r *Registry) IDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of running sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// PlayersOnline counts participants across running sessions.
func (r *Registry) PlayersOnline() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byParticipant)
}
