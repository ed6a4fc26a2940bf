package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MixinNetwork/tickquic/config"
	"github.com/MixinNetwork/tickquic/kernel"
	"github.com/MixinNetwork/tickquic/logger"
	"github.com/MixinNetwork/tickquic/network"
	"github.com/MixinNetwork/tickquic/p2p"
	"github.com/MixinNetwork/tickquic/task"
	"github.com/urfave/cli/v2"
)

func serverCmd(c *cli.Context) error {
	custom, err := setupNode(c)
	if err != nil {
		return err
	}
	if c.IsSet("listen") {
		custom.Server.Listen = c.String("listen")
	}
	if c.IsSet("cert") || c.IsSet("key") {
		custom.Server.Cert = c.String("cert")
		custom.Server.Key = c.String("key")
	}

	creds, err := serverCredentials(custom)
	if err != nil {
		return err
	}
	return runNode(c, custom, func(m *p2p.Manager, k *kernel.Kernel, stop func()) error {
		_, err := m.Listen(custom.Server.Listen, creds)
		return err
	})
}

func clientCmd(c *cli.Context) error {
	custom, err := setupNode(c)
	if err != nil {
		return err
	}
	if c.IsSet("remote") {
		custom.Client.Remote = c.String("remote")
	}
	if c.IsSet("name") {
		custom.Client.ServerName = c.String("name")
	}
	if c.IsSet("ca") {
		custom.Client.CA = c.String("ca")
	}
	if c.IsSet("insecure") {
		custom.Client.Insecure = c.Bool("insecure")
	}

	creds, err := clientCredentials(custom)
	if err != nil {
		return err
	}
	return runNode(c, custom, func(m *p2p.Manager, k *kernel.Kernel, stop func()) error {
		s, err := m.Connect(custom.Client.Remote, custom.Client.ServerName, creds)
		if err != nil {
			return err
		}
		k.Register("client.watch", func(tick uint64) {
			if m.Session(s.Id()) == nil {
				stop()
			}
		})
		return nil
	})
}

func genCertCmd(c *cli.Context) error {
	certPEM, keyPEM, err := network.GenerateCertificate(c.StringSlice("name")...)
	if err != nil {
		return err
	}
	err = os.WriteFile(c.String("cert"), certPEM, 0644)
	if err != nil {
		return err
	}
	err = os.WriteFile(c.String("key"), keyPEM, 0600)
	if err != nil {
		return err
	}
	fmt.Printf("certificate %s\nkey %s\n", c.String("cert"), c.String("key"))
	return nil
}

func setupNode(c *cli.Context) (*config.Custom, error) {
	custom := config.Default()
	if f := c.String("config"); f != "" {
		var err error
		custom, err = config.Initialize(f)
		if err != nil {
			return nil, err
		}
	}
	if c.IsSet("log") {
		custom.Node.LogLevel = c.Int("log")
	}
	if c.IsSet("filter") {
		custom.Node.LogFilter = c.String("filter")
	}

	logger.SetLevel(custom.Node.LogLevel)
	logger.SetLimiter(custom.Node.LogLimiter)
	err := logger.SetFilter(custom.Node.LogFilter)
	if err != nil {
		return nil, err
	}
	return custom, nil
}

func serverCredentials(custom *config.Custom) (*network.ServerCredentials, error) {
	if custom.Server.Cert != "" {
		return network.LoadServerCredentials(custom.Server.Cert, custom.Server.Key)
	}
	logger.Printf("Self signing the server certificate for %v", custom.Server.Names)
	return network.SelfSignedServerCredentials(custom.Server.Names...)
}

func clientCredentials(custom *config.Custom) (*network.ClientCredentials, error) {
	if custom.Client.CA != "" {
		return network.LoadClientCredentials(custom.Client.CA)
	}
	if custom.Client.Insecure {
		logger.Printf("Skipping the certificate verification of %s", custom.Client.ServerName)
		return network.InsecureClientCredentials(), nil
	}
	return network.NewClientCredentials(&tls.Config{}), nil
}

// runNode wires the manager to a fresh kernel, lets start open the initial
// sessions, then ticks until a signal or stop.
func runNode(c *cli.Context, custom *config.Custom, start func(*p2p.Manager, *kernel.Kernel, func()) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := &task.Goroutines{}
	k := kernel.New(custom.TickDuration())
	m := p2p.NewManager(network.NewQuicTransport(custom), pool, custom)
	m.Register(k)
	m.Subscribe(printEvent)

	err := start(m, k, stop)
	if err != nil {
		m.Shutdown()
		return err
	}

	err = k.Loop(ctx)
	m.Shutdown()
	pool.Wait()
	if m.Metric().Enabled() {
		fmt.Println(m.Metric())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printEvent(e p2p.Event) {
	switch e := e.(type) {
	case p2p.Connected:
		logger.Printf("Connected %s %s at %s", e.Session.Role, e.Session.Label, e.Session.RemoteAddr)
	case p2p.DataReceived:
		if len(e.Data) == 0 {
			return
		}
		logger.Printf("Message from remote %s at %s => %s", e.Session.Label, e.Session.RemoteAddr, string(e.Data))
	case p2p.Disconnected:
		logger.Printf("Disconnected %s %s at %s", e.Session.Role, e.Session.Label, e.Session.RemoteAddr)
	}
}
