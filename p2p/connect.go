package p2p

import (
	"github.com/MixinNetwork/tickquic/logger"
)

// connectSystem polls every Connecting session once. A success promotes it
// to Connected with an idle stream cycle starting next tick, a failure
// destroys it without an event since nobody saw it connect.
func (m *Manager) connectSystem(tick uint64) {
	for _, s := range m.sessions.Slice(StateConnecting) {
		op := s.op.(*connectOp)
		res, ok := op.handle.PollOnce()
		if !ok {
			continue
		}
		s.op = nil

		if res.err != nil {
			logger.Errorf("Failed to connect %s %s => %v", s.info.Role, s, res.err)
			m.metric.handle(metricConnectFailed)
			m.teardown(s, "connect failed", false)
			continue
		}

		s.conn = res.conn
		s.stream = StreamIdle
		s.idleAt = tick
		m.sessions.Move(s, StateConnected)
		logger.Printf("Connected %s %s", s.info.Role, s)
		m.bus.Publish(Connected{Session: s.info})
		m.metric.handle(metricConnected)
	}
}
