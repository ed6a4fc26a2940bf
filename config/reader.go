package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

type Custom struct {
	Node struct {
		TickPeriod int    `toml:"tick-period"`
		LogLevel   int    `toml:"log-level"`
		LogFilter  string `toml:"log-filter"`
		LogLimiter int    `toml:"log-limiter"`
		Metric     bool   `toml:"metric"`
	} `toml:"node"`
	Quic struct {
		MaxIncomingStreams int  `toml:"max-incoming-streams"`
		HandshakeTimeout   int  `toml:"handshake-timeout"`
		IdleTimeout        int  `toml:"idle-timeout"`
		KeepAlive          bool `toml:"keep-alive"`
	} `toml:"quic"`
	Client struct {
		Bind       string `toml:"bind"`
		Remote     string `toml:"remote"`
		ServerName string `toml:"server-name"`
		Insecure   bool   `toml:"insecure"`
		CA         string `toml:"ca"`
	} `toml:"client"`
	Server struct {
		Listen string   `toml:"listen"`
		Cert   string   `toml:"cert"`
		Key    string   `toml:"key"`
		Names  []string `toml:"names"`
	} `toml:"server"`
}

func Initialize(file string) (*Custom, error) {
	f, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var config Custom
	err = toml.Unmarshal(f, &config)
	if err != nil {
		return nil, fmt.Errorf("toml.Unmarshal(%s) => %v", file, err)
	}
	err = config.fill()
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// Default is the configuration used when no file is given, it trusts any
// server certificate and self signs the server one.
func Default() *Custom {
	var config Custom
	config.Client.Insecure = true
	err := config.fill()
	if err != nil {
		panic(err)
	}
	return &config
}

func (c *Custom) TickDuration() time.Duration {
	return time.Duration(c.Node.TickPeriod) * time.Millisecond
}

func (c *Custom) HandshakeDuration() time.Duration {
	return time.Duration(c.Quic.HandshakeTimeout) * time.Second
}

func (c *Custom) IdleDuration() time.Duration {
	return time.Duration(c.Quic.IdleTimeout) * time.Second
}

func (c *Custom) fill() error {
	if c.Node.TickPeriod < 0 {
		return fmt.Errorf("invalid tick period %d", c.Node.TickPeriod)
	}
	if c.Node.TickPeriod == 0 {
		c.Node.TickPeriod = int(TickPeriod / time.Millisecond)
	}
	if c.Node.LogLevel == 0 {
		c.Node.LogLevel = 2
	}
	if c.Quic.MaxIncomingStreams == 0 {
		c.Quic.MaxIncomingStreams = MaxIncomingStreams
	}
	if c.Quic.HandshakeTimeout == 0 {
		c.Quic.HandshakeTimeout = int(HandshakeTimeout / time.Second)
	}
	if c.Quic.IdleTimeout == 0 {
		c.Quic.IdleTimeout = int(IdleTimeout / time.Second)
	}
	if c.Client.Bind == "" {
		c.Client.Bind = ClientBind
	}
	if c.Client.Remote == "" {
		c.Client.Remote = ServerListen
	}
	if c.Client.ServerName == "" {
		c.Client.ServerName = ServerName
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ServerListen
	}
	if (c.Server.Cert == "") != (c.Server.Key == "") {
		return fmt.Errorf("server cert and key must be set together")
	}
	if len(c.Server.Names) == 0 {
		c.Server.Names = []string{ServerName}
	}
	return nil
}
