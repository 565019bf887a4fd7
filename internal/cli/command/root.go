package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/connection"
	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/cli/repl"
	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "respkv-cli",
		Usage:     "send commands to a respkv server",
		UsageText: "respkv-cli [options] [command [arg ...]]",
		Version:   buildinfo.String(),
		Flags:     globalFlags(),
		Action:    run,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "respkv server address",
			EnvVars: []string{"RESPKV_SERVER"},
			Value:   connection.DefaultServer,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, raw, json, yaml",
			Value:   string(output.FormatText),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-command timeout (0 waits forever)",
			Value: 5 * time.Second,
		},
		&cli.StringFlag{
			Name:  "history",
			Usage: "REPL history file (default ~/" + repl.DefaultHistoryFile + ")",
		},
	}
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Server  string
	Output  output.Format
	Timeout time.Duration
	History string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{
		Server:  c.String("server"),
		Output:  format,
		Timeout: c.Duration("timeout"),
		History: c.String("history"),
	}, nil
}

func run(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := connection.Dial(ctx, flags.Server, connection.WithTimeout(flags.Timeout))
	if err != nil {
		return err
	}
	defer client.Close()

	s := &session{
		ctx:    ctx,
		client: client,
		format: output.NewFormatter(flags.Output),
		out:    c.App.Writer,
	}

	if c.NArg() > 0 {
		return s.execute(c.Args().Slice())
	}
	return s.interactive(c.App.Reader, flags)
}

// session binds a connection to an output format.
type session struct {
	ctx    context.Context
	client *connection.Client
	format output.Formatter
	out    io.Writer
}

func (s *session) execute(args []string) error {
	v, err := s.client.Do(s.ctx, args...)
	if err != nil {
		return err
	}
	return s.format.Format(s.out, v)
}

func (s *session) interactive(in io.Reader, flags *GlobalFlags) error {
	if in == nil {
		in = os.Stdin
	}
	history := repl.NewHistory(flags.History)
	if err := history.Load(); err != nil {
		PrintError("load history: %v", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			PrintError("save history: %v", err)
		}
	}()

	r := repl.New(s.client.Addr(), s.execute, repl.WithIO(in, s.out), repl.WithHistory(history))
	return r.Run()
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
