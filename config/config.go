package config

import "time"

const (
	BuildVersion        = "v0.1.0-BUILD_VERSION"
	ApplicationProtocol = "tickquic"

	TickPeriod = 16 * time.Millisecond

	// ReadChunkSize is the most bytes requested from a stream per read call.
	ReadChunkSize = 1024

	MaxIncomingStreams = 128
	HandshakeTimeout   = 10 * time.Second
	IdleTimeout        = 600 * time.Second

	ClientBind   = "127.0.0.1:0"
	ServerListen = "127.0.0.1:4433"
	ServerName   = "localhost"
)
