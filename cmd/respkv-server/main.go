package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "respkv-server",
		Usage:     "Redis wire compatible in-memory key-value server",
		UsageText: "respkv-server [flags] [name value ...]",
		Version:   buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"RESPKV_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory holding the snapshot file",
			},
			&cli.StringFlag{
				Name:  "dbfilename",
				Usage: "Snapshot file name inside --dir",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "RESP listen address (host:port)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "HTTP address for /metrics and /healthz (empty disables)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format: json, text",
			},
		},
		Action: runServer,
	}
}
