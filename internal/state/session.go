package state

import "sync"

// Session is a mutex-guarded State shared by request handlers.
type Session struct {
	mu sync.Mutex
	st State
}

func NewSession(initial State) *Session { return &Session{st: initial} }

// Dispatch applies a and returns the resulting state.
func (s *Session) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = Update(s.st, a)
	return s.st.clone()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

// TryStart starts f if CanStart allows it, reporting whether it did.
// The selection it started under is returned in the state.
func (s *Session) TryStart(f Feature) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanStart(s.st, f) {
		return s.st.clone(), false
	}
	s.st = Update(s.st, Start{Feature: f})
	return s.st.clone(), true
}
