package p2p

import (
	"github.com/MixinNetwork/tickquic/logger"
)

// streamSystem advances the stream cycle of every Connected session by at
// most one step per tick: idle sessions open a stream, opening sessions
// start reading it, reading sessions emit the message or go away.
func (m *Manager) streamSystem(tick uint64) {
	for _, s := range m.sessions.Slice(StateConnected) {
		switch s.stream {
		case StreamIdle:
			m.openStream(s, tick)
		case StreamOpening:
			m.startReading(s)
		case StreamReading:
			m.finishReading(s, tick)
		}
	}
}

func (m *Manager) openStream(s *Session, tick uint64) {
	if s.idleAt >= tick {
		return
	}
	s.op = spawnOpen(s.ctx, m.pool, s.conn, s.info.Role)
	s.stream = StreamOpening
}

func (m *Manager) startReading(s *Session) {
	op := s.op.(*openOp)
	res, ok := op.handle.PollOnce()
	if !ok {
		return
	}
	s.op = nil

	if res.err != nil {
		logger.Printf("Failed to open bidirectional stream %s => %v", s, res.err)
		m.metric.handle(metricOpenFailed)
		m.teardown(s, "stream failed", true)
		return
	}

	err := res.stream.CloseWrite()
	logger.Debugf("stream.CloseWrite(%s) => %v", s, err)
	s.op = spawnRead(m.pool, res.stream)
	s.stream = StreamReading
}

func (m *Manager) finishReading(s *Session, tick uint64) {
	op := s.op.(*readOp)
	res, ok := op.handle.PollOnce()
	if !ok {
		return
	}
	s.op = nil

	switch res.Outcome {
	case ReadData:
		logger.Verbosef("Message from remote %s => %d bytes", s, len(res.Data))
		m.bus.Publish(DataReceived{Session: s.info, Data: res.Data})
		m.metric.handle(metricDataReceived)
		m.metric.bytes(len(res.Data))
		s.stream = StreamIdle
		s.idleAt = tick
	case ReadClosed:
		logger.Verbosef("Stream closed by remote %s => %v", s, res.Err)
		m.metric.handle(metricReadClosed)
		m.teardown(s, "stream closed", true)
	case ReadError:
		logger.Errorf("Failed to read stream from %s => %v", s, res.Err)
		m.metric.handle(metricReadError)
		m.teardown(s, "stream error", true)
	}
}
