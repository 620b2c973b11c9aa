package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/anthann/coffeechat/pkg/logx"
	"github.com/anthann/coffeechat/pkg/telemetry"
)

// ioStreams wires stdin/stdout/stderr for commands and becomes injectable in tests.
type ioStreams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	// Signal handling is per-command: the REPL treats an interrupt as
	// "cancel this turn", the server as "shut down".
	ctx := context.Background()
	streams := ioStreams{in: os.Stdin, out: os.Stdout, err: os.Stderr}
	if err := runCLI(ctx, os.Args[1:], streams); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(streams.err, err)
		}
		os.Exit(1)
	}
}

func runCLI(ctx context.Context, argv []string, streams ioStreams) error {
	global := flag.NewFlagSet("coffeechat", flag.ContinueOnError)
	global.SetOutput(streams.err)
	global.Usage = func() {
		fmt.Fprintln(streams.err, "coffeechat - tool-calling barista chat")
		fmt.Fprintln(streams.err, "\nUsage:")
		fmt.Fprintln(streams.err, "  coffeechat [command] [flags]")
		fmt.Fprintln(streams.err, "\nCommands:")
		fmt.Fprintln(streams.err, "  chat    Interactive terminal conversation (default)")
		fmt.Fprintln(streams.err, "  serve   Start the HTTP API with an SSE event feed")
		fmt.Fprintln(streams.err, "\nConfiguration comes from COFFEECHAT_* environment variables;")
		fmt.Fprintln(streams.err, "see 'coffeechat <command> -h' for command flags.")
	}
	if err := global.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logx.Init(logx.Environment(cfg.Env))
	shutdown, err := telemetry.Setup(ctx, "coffeechat", cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logx.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	args := global.Args()
	sub := "chat"
	rest := args
	if len(args) > 0 {
		sub = args[0]
		rest = args[1:]
	}
	switch sub {
	case "chat":
		return chatCommand(ctx, rest, cfg, streams)
	case "serve":
		return serveCommand(ctx, rest, cfg, streams)
	case "help", "-h", "--help":
		global.Usage()
		return nil
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", sub)
	}
}
