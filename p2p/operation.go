package p2p

import (
	"context"
	"io"

	"github.com/MixinNetwork/tickquic/config"
	"github.com/MixinNetwork/tickquic/network"
	"github.com/MixinNetwork/tickquic/task"
)

type OperationKind int

const (
	OperationConnect OperationKind = iota + 1
	OperationAccept
	OperationOpenStream
	OperationRead
)

func (k OperationKind) String() string {
	switch k {
	case OperationConnect:
		return "connect"
	case OperationAccept:
		return "accept"
	case OperationOpenStream:
		return "open-stream"
	case OperationRead:
		return "read"
	}
	return "unknown"
}

// operation is a pending background computation. abandon detaches it and
// arranges for whatever it eventually produces to be closed.
type operation interface {
	Kind() OperationKind
	abandon()
}

type connectResult struct {
	conn network.Connection
	err  error
}

type connectOp struct {
	handle *task.Handle[connectResult]
}

func (op *connectOp) Kind() OperationKind { return OperationConnect }

func (op *connectOp) abandon() {
	op.handle.Detach(func(r connectResult) {
		if r.conn != nil {
			r.conn.Close("abandoned")
		}
	})
}

func spawnDial(ctx context.Context, pool task.Pool, e network.Endpoint, addr, serverName string, creds *network.ClientCredentials) *connectOp {
	return &connectOp{handle: task.Spawn(pool, func() connectResult {
		conn, err := e.Dial(ctx, addr, serverName, creds)
		return connectResult{conn: conn, err: err}
	})}
}

func spawnHandshake(ctx context.Context, pool task.Pool, incoming network.Incoming) *connectOp {
	return &connectOp{handle: task.Spawn(pool, func() connectResult {
		conn, err := incoming.Handshake(ctx)
		return connectResult{conn: conn, err: err}
	})}
}

type acceptResult struct {
	incoming network.Incoming
	err      error
}

type acceptOp struct {
	handle *task.Handle[acceptResult]
}

func (op *acceptOp) Kind() OperationKind { return OperationAccept }

func (op *acceptOp) abandon() {
	op.handle.Detach(func(r acceptResult) {
		if r.incoming != nil {
			r.incoming.Refuse()
		}
	})
}

func spawnAccept(ctx context.Context, pool task.Pool, l network.Listener) *acceptOp {
	return &acceptOp{handle: task.Spawn(pool, func() acceptResult {
		incoming, err := l.Accept(ctx)
		return acceptResult{incoming: incoming, err: err}
	})}
}

type openResult struct {
	stream network.Stream
	err    error
}

type openOp struct {
	handle *task.Handle[openResult]
}

func (op *openOp) Kind() OperationKind { return OperationOpenStream }

func (op *openOp) abandon() {
	op.handle.Detach(func(r openResult) {
		if r.stream != nil {
			r.stream.CancelRead()
			r.stream.CloseWrite()
		}
	})
}

// spawnOpen originates a stream for clients and accepts one for servers.
func spawnOpen(ctx context.Context, pool task.Pool, conn network.Connection, role Role) *openOp {
	return &openOp{handle: task.Spawn(pool, func() openResult {
		var stm network.Stream
		var err error
		if role == RoleClient {
			stm, err = conn.OpenStream(ctx)
		} else {
			stm, err = conn.AcceptStream(ctx)
		}
		return openResult{stream: stm, err: err}
	})}
}

type ReadOutcome int

const (
	ReadData ReadOutcome = iota
	ReadClosed
	ReadError
)

// ReadResult is what a read cycle resolves to. Data is only set for
// ReadData and is never nil there, Err only for the other two.
type ReadResult struct {
	Outcome ReadOutcome
	Data    []byte
	Err     error
}

type readOp struct {
	handle *task.Handle[ReadResult]
	stream network.Stream
}

func (op *readOp) Kind() OperationKind { return OperationRead }

func (op *readOp) abandon() {
	op.handle.Detach(nil)
	op.stream.CancelRead()
}

func spawnRead(pool task.Pool, stm network.Stream) *readOp {
	return &readOp{stream: stm, handle: task.Spawn(pool, func() ReadResult {
		return readStream(stm, config.ReadChunkSize)
	})}
}

// readStream accumulates the whole stream into one buffer. Only the peer
// finishing the stream yields data, even when nothing was sent.
func readStream(stm network.Stream, chunk int) ReadResult {
	buf := []byte{}
	b := make([]byte, chunk)
	for {
		n, err := stm.Read(b)
		buf = append(buf, b[:n]...)
		if err == io.EOF {
			return ReadResult{Outcome: ReadData, Data: buf}
		}
		if err == nil {
			continue
		}
		if network.IsGracefulClose(err) {
			return ReadResult{Outcome: ReadClosed, Err: err}
		}
		return ReadResult{Outcome: ReadError, Err: err}
	}
}
