package network

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/MixinNetwork/tickquic/config"
	"github.com/quic-go/quic-go"
)

// ErrConnectionClosed marks a connection closed on purpose by either side.
// Transport implementations wrap it around the errors of streams and
// stream opens once their connection is closed with code 0.
var ErrConnectionClosed = errors.New("network connection closed")

type QuicTransport struct {
	conf *quic.Config
}

type quicEndpoint struct {
	udp  *net.UDPConn
	tr   *quic.Transport
	conf *quic.Config
}

type quicListener struct {
	endpoint *quicEndpoint
	listener *quic.EarlyListener
}

type quicIncoming struct {
	conn quic.EarlyConnection
}

type quicConnection struct {
	conn quic.Connection
}

type quicStream struct {
	stream quic.Stream
}

func NewQuicTransport(custom *config.Custom) *QuicTransport {
	conf := &quic.Config{
		MaxIncomingStreams:   int64(custom.Quic.MaxIncomingStreams),
		HandshakeIdleTimeout: custom.HandshakeDuration(),
		MaxIdleTimeout:       custom.IdleDuration(),
	}
	if custom.Quic.KeepAlive {
		conf.KeepAlivePeriod = custom.IdleDuration() / 2
	}
	return &QuicTransport{conf: conf}
}

func (t *QuicTransport) Bind(addr string) (Endpoint, error) {
	return t.bind(addr)
}

func (t *QuicTransport) Listen(addr string, creds *ServerCredentials) (Listener, error) {
	e, err := t.bind(addr)
	if err != nil {
		return nil, err
	}
	l, err := e.tr.ListenEarly(creds.config(), e.conf)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("quic.ListenEarly(%s) => %v", addr, err)
	}
	return &quicListener{endpoint: e, listener: l}, nil
}

func (t *QuicTransport) bind(addr string) (*quicEndpoint, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	udp, err := net.ListenUDP("udp", a)
	if err != nil {
		return nil, err
	}
	return &quicEndpoint{
		udp:  udp,
		tr:   &quic.Transport{Conn: udp},
		conf: t.conf,
	}, nil
}

func (e *quicEndpoint) LocalAddr() net.Addr {
	return e.udp.LocalAddr()
}

func (e *quicEndpoint) Dial(ctx context.Context, addr, serverName string, creds *ClientCredentials) (Connection, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := e.tr.Dial(ctx, a, creds.config(serverName), e.conf)
	if err != nil {
		return nil, err
	}
	return &quicConnection{conn: conn}, nil
}

func (e *quicEndpoint) Close() error {
	err := e.tr.Close()
	if cerr := e.udp.Close(); err == nil {
		err = cerr
	}
	return err
}

func (l *quicListener) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *quicListener) Accept(ctx context.Context) (Incoming, error) {
	conn, err := l.listener.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEndpointClosed, err)
	}
	return &quicIncoming{conn: conn}, nil
}

func (l *quicListener) Close() error {
	l.listener.Close()
	return l.endpoint.Close()
}

func (i *quicIncoming) RemoteAddr() net.Addr {
	return i.conn.RemoteAddr()
}

func (i *quicIncoming) Handshake(ctx context.Context) (Connection, error) {
	select {
	case <-i.conn.HandshakeComplete():
		return &quicConnection{conn: i.conn}, nil
	case <-i.conn.Context().Done():
		return nil, context.Cause(i.conn.Context())
	case <-ctx.Done():
		i.conn.CloseWithError(0, "handshake abandoned")
		return nil, ctx.Err()
	}
}

func (i *quicIncoming) Refuse() error {
	return i.conn.CloseWithError(0, "refused")
}

func (c *quicConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *quicConnection) OpenStream(ctx context.Context) (Stream, error) {
	stm, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, closeError(err)
	}
	return &quicStream{stream: stm}, nil
}

func (c *quicConnection) AcceptStream(ctx context.Context) (Stream, error) {
	stm, err := c.conn.AcceptStream(ctx)
	if err != nil {
		return nil, closeError(err)
	}
	return &quicStream{stream: stm}, nil
}

func (c *quicConnection) Close(reason string) error {
	return c.conn.CloseWithError(0, reason)
}

func (s *quicStream) Read(p []byte) (int, error) {
	n, err := s.stream.Read(p)
	return n, closeError(err)
}

func (s *quicStream) CloseWrite() error {
	return s.stream.Close()
}

func (s *quicStream) CancelRead() {
	s.stream.CancelRead(0)
}

// closeError marks a connection closed by either side with code 0 as
// ErrConnectionClosed, keeping the quic-go error in the chain.
func closeError(err error) error {
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) && appErr.ErrorCode == 0 {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return err
}

// IsGracefulClose reports whether err means the connection was closed on
// purpose with no error code, as opposed to failing.
func IsGracefulClose(err error) bool {
	if errors.Is(err, ErrConnectionClosed) {
		return true
	}
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.ErrorCode == 0
	}
	return false
}
