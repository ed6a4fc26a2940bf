package p2p

import (
	"github.com/MixinNetwork/tickquic/logger"
)

// acceptSystem turns each inbound attempt into a Connecting session and
// re-arms the accept operation in the same tick, so an open endpoint always
// has one armed.
func (m *Manager) acceptSystem(tick uint64) {
	for _, e := range m.servers {
		if e.accept == nil {
			continue
		}
		res, ok := e.accept.handle.PollOnce()
		if !ok {
			continue
		}
		e.accept = nil

		if res.err != nil {
			e.exhausted = true
			logger.Printf("QUIC server %s stops accepting => %v", e.local, res.err)
			m.metric.handle(metricEndpointExhausted)
			continue
		}

		remote := res.incoming.RemoteAddr().String()
		s := newSession(RoleServer, remote, remote, e, false)
		s.op = spawnHandshake(s.ctx, m.pool, res.incoming)
		m.sessions.Put(s)
		m.metric.handle(metricAccepted)
		logger.Printf("Accepting connection from %s on %s", remote, e.local)

		e.accept = spawnAccept(e.ctx, m.pool, e.listener)
	}
}
