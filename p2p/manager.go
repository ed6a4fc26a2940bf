package p2p

import (
	"fmt"

	"github.com/MixinNetwork/tickquic/config"
	"github.com/MixinNetwork/tickquic/kernel"
	"github.com/MixinNetwork/tickquic/logger"
	"github.com/MixinNetwork/tickquic/network"
	"github.com/MixinNetwork/tickquic/task"
	"github.com/gofrs/uuid"
)

// Manager drives every Session and Endpoint from the kernel tick. None of
// its methods may be called concurrently with a tick, use Kernel.Submit
// from other goroutines.
type Manager struct {
	transport network.Transport
	pool      task.Pool
	bind      string

	sessions *sessionIndex
	servers  []*Endpoint
	bus      *Bus
	metric   *MetricPool
}

func NewManager(transport network.Transport, pool task.Pool, custom *config.Custom) *Manager {
	return &Manager{
		transport: transport,
		pool:      pool,
		bind:      custom.Client.Bind,
		sessions:  newSessionIndex(),
		bus:       &Bus{},
		metric:    &MetricPool{enabled: custom.Node.Metric},
	}
}

// Register adds the lifecycle systems to k. Connection systems run before
// the stream system, events are flushed last.
func (m *Manager) Register(k *kernel.Kernel) {
	k.Register("p2p.accept", m.acceptSystem)
	k.Register("p2p.connect", m.connectSystem)
	k.Register("p2p.stream", m.streamSystem)
	k.Register("p2p.events", func(uint64) { m.bus.Flush() })
}

func (m *Manager) Subscribe(f func(Event)) {
	m.bus.Subscribe(f)
}

func (m *Manager) Metric() *MetricPool {
	return m.metric
}

// Connect binds a fresh client endpoint and starts dialing addr with
// serverName as the identity. Only a local bind failure is returned, a
// failed dial shows up as the absence of a Connected event.
func (m *Manager) Connect(addr, serverName string, creds *network.ClientCredentials) (*Session, error) {
	ep, err := m.transport.Bind(m.bind)
	if err != nil {
		return nil, fmt.Errorf("transport.Bind(%s) => %v", m.bind, err)
	}
	e := newEndpoint(ModeOriginate, ep.LocalAddr())
	e.origin = ep

	s := newSession(RoleClient, addr, serverName, e, true)
	s.op = spawnDial(s.ctx, m.pool, ep, addr, serverName, creds)
	m.sessions.Put(s)
	logger.Printf("Connecting to QUIC server %s at %s from %s...", serverName, addr, e.local)
	return s, nil
}

// Listen binds a server endpoint and arms its accept loop.
func (m *Manager) Listen(addr string, creds *network.ServerCredentials) (*Endpoint, error) {
	l, err := m.transport.Listen(addr, creds)
	if err != nil {
		return nil, fmt.Errorf("transport.Listen(%s) => %v", addr, err)
	}
	e := newEndpoint(ModeAccept, l.Addr())
	e.listener = l
	e.accept = spawnAccept(e.ctx, m.pool, l)
	m.servers = append(m.servers, e)
	logger.Printf("QUIC server listening on %s", e.local)
	return e, nil
}

func (m *Manager) Session(id uuid.UUID) *Session {
	return m.sessions.Get(id)
}

func (m *Manager) Sessions() []*Session {
	return m.sessions.All()
}

func (m *Manager) Servers() []*Endpoint {
	return append([]*Endpoint(nil), m.servers...)
}

// Close destroys a session at whatever stage it is. Consumers that saw it
// connect get a Disconnected event.
func (m *Manager) Close(id uuid.UUID) bool {
	s := m.sessions.Get(id)
	if s == nil {
		return false
	}
	logger.Printf("Closing session %s", s)
	m.teardown(s, "closed", s.state == StateConnected)
	return true
}

// CloseEndpoint tears down every session spawned from a server endpoint,
// then the endpoint itself.
func (m *Manager) CloseEndpoint(e *Endpoint) {
	for _, s := range m.sessions.All() {
		if s.endpoint == e {
			m.teardown(s, "endpoint closed", s.state == StateConnected)
		}
	}
	for i, c := range m.servers {
		if c == e {
			m.servers = append(m.servers[:i], m.servers[i+1:]...)
			break
		}
	}
	e.close()
}

// Shutdown closes everything and delivers the resulting events.
func (m *Manager) Shutdown() {
	for _, s := range m.sessions.All() {
		m.teardown(s, "shutdown", s.state == StateConnected)
	}
	for _, e := range m.Servers() {
		m.CloseEndpoint(e)
	}
	m.bus.Flush()
	logger.Printf("Shutdown(%d, %s)", m.sessions.Len(), m.metric)
}

// teardown removes s and everything attached to it. The pending operation
// is abandoned, its eventual result closed by the operation itself.
func (m *Manager) teardown(s *Session, reason string, notify bool) {
	if s.op != nil {
		s.op.abandon()
		s.op = nil
	}
	s.cancel()
	if s.conn != nil {
		err := s.conn.Close(reason)
		logger.Debugf("conn.Close(%s, %s) => %v", s, reason, err)
		s.conn = nil
	}
	m.sessions.Delete(s)

	s.endpoint.sessions--
	if s.owner {
		s.endpoint.close()
	}
	if notify {
		m.bus.Publish(Disconnected{Session: s.info})
		m.metric.handle(metricDisconnected)
	}
}
