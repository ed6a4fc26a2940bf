package network

import (
	"context"
	"errors"
	"net"
)

// ErrEndpointClosed is returned by Listener.Accept once no more inbound
// attempts will ever arrive.
var ErrEndpointClosed = errors.New("network endpoint closed")

type Transport interface {
	// Bind creates an endpoint that originates connections.
	Bind(addr string) (Endpoint, error)
	// Listen creates an endpoint that accepts connections.
	Listen(addr string, creds *ServerCredentials) (Listener, error)
}

type Endpoint interface {
	LocalAddr() net.Addr
	Dial(ctx context.Context, addr, serverName string, creds *ClientCredentials) (Connection, error)
	Close() error
}

type Listener interface {
	Addr() net.Addr
	Accept(ctx context.Context) (Incoming, error)
	Close() error
}

// Incoming is an accepted attempt whose handshake may still be running.
type Incoming interface {
	RemoteAddr() net.Addr
	Handshake(ctx context.Context) (Connection, error)
	Refuse() error
}

type Connection interface {
	RemoteAddr() net.Addr
	OpenStream(ctx context.Context) (Stream, error)
	AcceptStream(ctx context.Context) (Stream, error)
	Close(reason string) error
}

// Stream is one bidirectional stream. Only the receive half is read here,
// CloseWrite finishes the send half.
type Stream interface {
	Read(p []byte) (int, error)
	CloseWrite() error
	CancelRead()
}
