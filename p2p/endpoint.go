package p2p

import (
	"context"
	"net"

	"github.com/MixinNetwork/tickquic/logger"
	"github.com/MixinNetwork/tickquic/network"
	"github.com/gofrs/uuid"
)

type Mode int

const (
	ModeOriginate Mode = iota
	ModeAccept
)

func (m Mode) String() string {
	if m == ModeAccept {
		return "accept"
	}
	return "originate"
}

// Endpoint is a bound local socket. Sessions spawned from it only read it,
// the top level record owning it is the only one allowed to close it.
type Endpoint struct {
	Id   uuid.UUID
	Mode Mode

	local    net.Addr
	origin   network.Endpoint
	listener network.Listener

	accept    *acceptOp
	exhausted bool
	closed    bool
	sessions  int

	ctx    context.Context
	cancel context.CancelFunc
}

func newEndpoint(mode Mode, local net.Addr) *Endpoint {
	ctx, cancel := context.WithCancel(context.Background())
	return &Endpoint{
		Id:     uuid.Must(uuid.NewV4()),
		Mode:   mode,
		local:  local,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (e *Endpoint) LocalAddr() net.Addr {
	return e.local
}

// Exhausted reports whether the accept loop learned that no more inbound
// attempts will arrive.
func (e *Endpoint) Exhausted() bool {
	return e.exhausted
}

func (e *Endpoint) Closed() bool {
	return e.closed
}

// Accepting reports whether an accept operation is armed.
func (e *Endpoint) Accepting() bool {
	return e.accept != nil
}

// Sessions is the number of live sessions spawned from the endpoint.
func (e *Endpoint) Sessions() int {
	return e.sessions
}

func (e *Endpoint) close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.accept != nil {
		e.accept.abandon()
		e.accept = nil
	}
	e.cancel()

	var err error
	switch e.Mode {
	case ModeOriginate:
		err = e.origin.Close()
	case ModeAccept:
		err = e.listener.Close()
	}
	logger.Verbosef("endpoint.Close(%s, %s) => %v", e.Mode, e.local, err)
}
