package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/MixinNetwork/tickquic/network"
)

var errRefused = errors.New("fake connection refused")

type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

// fakeNet is an in memory network.Transport. Dials complete at once, while
// accepts and stream reads block until the test feeds them.
type fakeNet struct {
	mutex     sync.Mutex
	listeners map[string]*fakeListener
	endpoints []*fakeEndpoint
	bindErr   error
	dialErr   error
	ports     int
}

func newFakeNet() *fakeNet {
	return &fakeNet{listeners: make(map[string]*fakeListener)}
}

func (n *fakeNet) port() fakeAddr {
	n.ports++
	return fakeAddr(fmt.Sprintf("127.0.0.1:%d", 40000+n.ports))
}

func (n *fakeNet) Bind(addr string) (network.Endpoint, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.bindErr != nil {
		return nil, n.bindErr
	}
	e := &fakeEndpoint{net: n, local: n.port()}
	n.endpoints = append(n.endpoints, e)
	return e, nil
}

func (n *fakeNet) Listen(addr string, creds *network.ServerCredentials) (network.Listener, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.listeners[addr] != nil {
		return nil, fmt.Errorf("address %s in use", addr)
	}
	l := &fakeListener{
		net:      n,
		addr:     fakeAddr(addr),
		incoming: make(chan *fakeIncoming, 64),
		closed:   make(chan struct{}),
	}
	n.listeners[addr] = l
	return l, nil
}

// peer listens on addr as a remote server the tests drive by hand.
func (n *fakeNet) peer(addr string) *fakeListener {
	l, err := n.Listen(addr, nil)
	if err != nil {
		panic(err)
	}
	return l.(*fakeListener)
}

func (n *fakeNet) closedEndpoints() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	var count int
	for _, e := range n.endpoints {
		if e.isClosed() {
			count++
		}
	}
	return count
}

type fakeEndpoint struct {
	net    *fakeNet
	local  fakeAddr
	mutex  sync.Mutex
	closed bool
}

func (e *fakeEndpoint) LocalAddr() net.Addr { return e.local }

func (e *fakeEndpoint) Dial(ctx context.Context, addr, serverName string, creds *network.ClientCredentials) (network.Connection, error) {
	e.net.mutex.Lock()
	l := e.net.listeners[addr]
	dialErr := e.net.dialErr
	e.net.mutex.Unlock()

	if dialErr != nil {
		return nil, dialErr
	}
	if l == nil || l.isClosed() {
		return nil, fmt.Errorf("dial %s: %w", addr, errRefused)
	}
	client, server := newFakeConnPair(e.local, l.addr)
	l.incoming <- &fakeIncoming{conn: server, ready: closedChan()}
	return client, nil
}

func (e *fakeEndpoint) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.closed = true
	return nil
}

func (e *fakeEndpoint) isClosed() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.closed
}

type fakeListener struct {
	net       *fakeNet
	addr      fakeAddr
	incoming  chan *fakeIncoming
	closed    chan struct{}
	closeOnce sync.Once
}

func (l *fakeListener) Addr() net.Addr { return l.addr }

func (l *fakeListener) Accept(ctx context.Context) (network.Incoming, error) {
	select {
	case i := <-l.incoming:
		return i, nil
	case <-l.closed:
		return nil, network.ErrEndpointClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", network.ErrEndpointClosed, ctx.Err())
	}
}

func (l *fakeListener) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *fakeListener) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// push queues an inbound attempt whose handshake finishes when ready is
// closed, or fails with err if err is set.
func (l *fakeListener) push(remote string, ready chan struct{}, err error) *fakeConn {
	client, server := newFakeConnPair(fakeAddr(remote), l.addr)
	l.incoming <- &fakeIncoming{conn: server, ready: ready, err: err}
	return client
}

type fakeIncoming struct {
	conn    *fakeConn
	ready   chan struct{}
	err     error
	refused bool
}

func (i *fakeIncoming) RemoteAddr() net.Addr { return i.conn.remote }

func (i *fakeIncoming) Handshake(ctx context.Context) (network.Connection, error) {
	select {
	case <-i.ready:
		if i.err != nil {
			return nil, i.err
		}
		return i.conn, nil
	case <-ctx.Done():
		i.conn.Close("handshake canceled")
		return nil, ctx.Err()
	}
}

func (i *fakeIncoming) Refuse() error {
	i.refused = true
	return i.conn.Close("refused")
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type fakeConn struct {
	local   net.Addr
	remote  net.Addr
	peer    *fakeConn
	streams chan *fakeStream

	mutex  sync.Mutex
	closed chan struct{}
	err    error
	opened int
}

func newFakeConnPair(client, server net.Addr) (*fakeConn, *fakeConn) {
	c := &fakeConn{local: client, remote: server, streams: make(chan *fakeStream, 64), closed: make(chan struct{})}
	s := &fakeConn{local: server, remote: client, streams: make(chan *fakeStream, 64), closed: make(chan struct{})}
	c.peer, s.peer = s, c
	return c, s
}

func (c *fakeConn) RemoteAddr() net.Addr { return c.remote }

func (c *fakeConn) OpenStream(ctx context.Context) (network.Stream, error) {
	if err := c.closeErr(); err != nil {
		return nil, err
	}
	local, remote := newFakeStreamPair(c, c.peer)
	c.mutex.Lock()
	c.opened++
	c.mutex.Unlock()
	c.peer.streams <- remote
	return local, nil
}

func (c *fakeConn) AcceptStream(ctx context.Context) (network.Stream, error) {
	select {
	case s := <-c.streams:
		return s, nil
	case <-c.closed:
		return nil, c.closeErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Close(reason string) error {
	c.shutdown(fmt.Errorf("%w: local %s", network.ErrConnectionClosed, reason))
	c.peer.shutdown(fmt.Errorf("%w: remote %s", network.ErrConnectionClosed, reason))
	return nil
}

// fail breaks the connection on both sides with a transport error.
func (c *fakeConn) fail(err error) {
	c.shutdown(err)
	c.peer.shutdown(err)
}

func (c *fakeConn) shutdown(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.err != nil {
		return
	}
	c.err = err
	close(c.closed)
}

func (c *fakeConn) closeErr() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.err
}

func (c *fakeConn) isClosed() bool {
	return c.closeErr() != nil
}

func (c *fakeConn) openedStreams() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.opened
}

// fakeStream is one side of a stream. Reads drain chunks written by the
// peer side and hit io.EOF once the peer closed its write half.
type fakeStream struct {
	conn  *fakeConn
	peer  *fakeStream
	in    chan []byte
	reset chan struct{}

	mutex      sync.Mutex
	pending    []byte
	resetErr   error
	writeOnce  sync.Once
	writeDone  bool
	canceled   bool
	largestBuf int
}

func newFakeStreamPair(a, b *fakeConn) (*fakeStream, *fakeStream) {
	x := &fakeStream{conn: a, in: make(chan []byte, 64), reset: make(chan struct{})}
	y := &fakeStream{conn: b, in: make(chan []byte, 64), reset: make(chan struct{})}
	x.peer, y.peer = y, x
	return x, y
}

func (s *fakeStream) Read(p []byte) (int, error) {
	s.mutex.Lock()
	if len(p) > s.largestBuf {
		s.largestBuf = len(p)
	}
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		s.mutex.Unlock()
		return n, nil
	}
	s.mutex.Unlock()

	select {
	case chunk, ok := <-s.in:
		if !ok {
			return 0, io.EOF
		}
		n := copy(p, chunk)
		s.mutex.Lock()
		s.pending = chunk[n:]
		s.mutex.Unlock()
		return n, nil
	case <-s.reset:
		s.mutex.Lock()
		defer s.mutex.Unlock()
		return 0, s.resetErr
	case <-s.conn.closed:
		return 0, s.conn.closeErr()
	}
}

// Write hands data to the peer side, tests use it as the remote writer.
func (s *fakeStream) Write(data []byte) {
	s.peer.in <- append([]byte(nil), data...)
}

func (s *fakeStream) CloseWrite() error {
	s.writeOnce.Do(func() {
		s.mutex.Lock()
		s.writeDone = true
		s.mutex.Unlock()
		close(s.peer.in)
	})
	return nil
}

func (s *fakeStream) CancelRead() {
	s.mutex.Lock()
	s.canceled = true
	s.mutex.Unlock()
	s.breakWith(errors.New("read canceled"))
}

// breakWith makes pending and future reads on s fail with err.
func (s *fakeStream) breakWith(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.resetErr != nil {
		return
	}
	s.resetErr = err
	close(s.reset)
}

func (s *fakeStream) writeClosed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.writeDone
}

func (s *fakeStream) readBuffer() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.largestBuf
}
