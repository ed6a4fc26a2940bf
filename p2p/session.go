package p2p

import (
	"context"
	"fmt"

	"github.com/MixinNetwork/tickquic/network"
	"github.com/gofrs/uuid"
)

type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// State is the connection level state of a Session. A Session starts
// Connecting and only ever moves to Connected, failures destroy it.
type State int

const (
	StateConnecting State = iota + 1
	StateConnected
)

// StreamState is the stream sub cycle of a Connected Session.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamOpening
	StreamReading
)

// SessionInfo is the immutable part of a Session handed to event consumers.
type SessionInfo struct {
	Id         uuid.UUID
	Role       Role
	RemoteAddr string
	Label      string
}

// Session is one peer relationship, a client view of a server or a server
// view of one client. It is owned by the tick goroutine.
type Session struct {
	info SessionInfo

	state    State
	stream   StreamState
	idleAt   uint64
	conn     network.Connection
	op       operation
	endpoint *Endpoint
	owner    bool

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(role Role, remote, label string, e *Endpoint, owner bool) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		info: SessionInfo{
			Id:         uuid.Must(uuid.NewV4()),
			Role:       role,
			RemoteAddr: remote,
			Label:      label,
		},
		state:    StateConnecting,
		endpoint: e,
		owner:    owner,
		ctx:      ctx,
		cancel:   cancel,
	}
	e.sessions++
	return s
}

func (s *Session) Id() uuid.UUID {
	return s.info.Id
}

func (s *Session) Info() SessionInfo {
	return s.info
}

func (s *Session) State() State {
	return s.state
}

// StreamState is only meaningful once the Session is Connected.
func (s *Session) StreamState() StreamState {
	return s.stream
}

func (s *Session) Endpoint() *Endpoint {
	return s.endpoint
}

// Pending returns the kind of the single operation attached to the
// Session, if any.
func (s *Session) Pending() (OperationKind, bool) {
	if s.op == nil {
		return 0, false
	}
	return s.op.Kind(), true
}

func (s *Session) String() string {
	return fmt.Sprintf("%s %s@%s", s.info.Id, s.info.Label, s.info.RemoteAddr)
}

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (st State) String() string {
	switch st {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("state(%d)", int(st))
}

func (st StreamState) String() string {
	switch st {
	case StreamIdle:
		return "idle"
	case StreamOpening:
		return "opening"
	case StreamReading:
		return "reading"
	}
	return fmt.Sprintf("stream(%d)", int(st))
}
