package p2p

import (
	"github.com/gofrs/uuid"
)

// sessionIndex keeps every live Session by id, and by State in creation
// order so each tick visits records deterministically. Only the tick
// goroutine touches it.
type sessionIndex struct {
	m      map[uuid.UUID]*Session
	states map[State][]*Session
}

func newSessionIndex() *sessionIndex {
	return &sessionIndex{
		m:      make(map[uuid.UUID]*Session),
		states: make(map[State][]*Session),
	}
}

func (m *sessionIndex) Get(key uuid.UUID) *Session {
	return m.m[key]
}

func (m *sessionIndex) Put(s *Session) bool {
	if m.m[s.Id()] != nil {
		return false
	}
	m.m[s.Id()] = s
	m.states[s.state] = append(m.states[s.state], s)
	return true
}

func (m *sessionIndex) Delete(s *Session) {
	if m.m[s.Id()] != s {
		return
	}
	delete(m.m, s.Id())
	m.states[s.state] = remove(m.states[s.state], s)
}

// Move updates s to state and files it under the new state.
func (m *sessionIndex) Move(s *Session, state State) {
	if s.state == state {
		return
	}
	m.states[s.state] = remove(m.states[s.state], s)
	s.state = state
	m.states[state] = append(m.states[state], s)
}

// Slice returns a copy, so callers may mutate the index while iterating.
func (m *sessionIndex) Slice(state State) []*Session {
	return append([]*Session(nil), m.states[state]...)
}

func (m *sessionIndex) All() []*Session {
	var sessions []*Session
	sessions = append(sessions, m.states[StateConnecting]...)
	sessions = append(sessions, m.states[StateConnected]...)
	return sessions
}

func (m *sessionIndex) Len() int {
	return len(m.m)
}

func remove(sessions []*Session, s *Session) []*Session {
	for i, c := range sessions {
		if c == s {
			return append(sessions[:i], sessions[i+1:]...)
		}
	}
	return sessions
}
