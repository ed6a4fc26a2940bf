package main

import (
	"fmt"
	"os"

	"github.com/MixinNetwork/tickquic/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "tickquic"
	app.Usage = "A tick driven QUIC peer which prints one message per stream."
	app.Version = config.BuildVersion
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "the TOML configuration `FILE`, built in defaults when empty",
		},
		&cli.IntFlag{
			Name:    "log",
			Aliases: []string{"l"},
			Usage:   "the log level, overrides the configuration",
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: "the RE2 regex pattern to filter log",
		},
	}
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Accept QUIC clients and print the messages they send",
			Action:  serverCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "listen",
					Usage: "the UDP `ADDRESS` to listen",
				},
				&cli.StringFlag{
					Name:  "cert",
					Usage: "the PEM certificate file, self signed when empty",
				},
				&cli.StringFlag{
					Name:  "key",
					Usage: "the PEM private key file of the certificate",
				},
			},
		},
		{
			Name:    "client",
			Aliases: []string{"c"},
			Usage:   "Connect to a QUIC server and print the messages it sends",
			Action:  clientCmd,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "remote",
					Usage: "the server `ADDRESS`",
				},
				&cli.StringFlag{
					Name:  "name",
					Usage: "the server name to verify",
				},
				&cli.StringFlag{
					Name:  "ca",
					Usage: "the PEM certificate file to trust",
				},
				&cli.BoolFlag{
					Name:  "insecure",
					Usage: "skip the server certificate verification",
				},
			},
		},
		{
			Name:   "gencert",
			Usage:  "Generate a self signed server certificate and key",
			Action: genCertCmd,
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:  "name",
					Value: cli.NewStringSlice(config.ServerName, "127.0.0.1"),
					Usage: "the host names or IP addresses of the certificate",
				},
				&cli.StringFlag{
					Name:  "cert",
					Value: "cert.pem",
					Usage: "the certificate output file",
				},
				&cli.StringFlag{
					Name:  "key",
					Value: "key.pem",
					Usage: "the private key output file",
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
