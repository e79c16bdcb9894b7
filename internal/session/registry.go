package session

import "sync"

// Registry tracks live sessions so they can be torn down together on shutdown.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers s. It reports false, and closes s, when the registry is already shut down.
func (r *Registry) Add(s *Session) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		s.Close()
		return false
	}
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return true
}

// Remove closes and forgets s.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID)
	r.mu.Unlock()
	s.Close()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes every session and rejects later Adds.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
