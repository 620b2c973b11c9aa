package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthann/coffeechat/pkg/event"
	"github.com/anthann/coffeechat/pkg/logx"
	"github.com/anthann/coffeechat/pkg/server"
)

func serveCommand(ctx context.Context, argv []string, cfg appConfig, streams ioStreams) error {
	set := flag.NewFlagSet("serve", flag.ContinueOnError)
	set.SetOutput(streams.err)
	addr := set.String("addr", cfg.Addr, "Address to bind.")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: coffeechat serve [flags]")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
		fmt.Fprintln(streams.err, "\nRoutes:")
		fmt.Fprintln(streams.err, "  POST /chat      Submit a prompt (202; turn progress on /events)")
		fmt.Fprintln(streams.err, "  POST /cancel    Stop the in-flight response")
		fmt.Fprintln(streams.err, "  POST /reset     Clear conversation, cart, and session")
		fmt.Fprintln(streams.err, "  GET  /messages  Conversation log and turn state")
		fmt.Fprintln(streams.err, "  GET  /cart      Current cart contents")
		fmt.Fprintln(streams.err, "  GET  /events    SSE event feed")
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runtime := buildRuntime(cfg)
	if avail := runtime.Availability(ctx); !avail.Available() {
		return fmt.Errorf("model runtime unavailable: %s (%s)", avail.Reason, unavailableHint(avail.Reason))
	}

	// The sink is bound after construction because the SSE stream lives
	// inside the server.
	var srv *server.Server
	application, err := buildApp(cfg, runtime, func(evt event.Event) {
		if srv != nil {
			_ = srv.Stream().Send(evt)
		}
	})
	if err != nil {
		return err
	}
	defer application.close()
	srv = server.New(application.controller, application.store)

	listener, err := net.Listen("tcp", strings.TrimSpace(*addr))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer listener.Close()
	httpServer := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	logx.Info().Str("addr", listener.Addr().String()).Msg("coffeechat serving")
	if streams.out != nil {
		fmt.Fprintf(streams.out, "coffeechat listening on http://%s\n", listener.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	select {
	case <-ctx.Done():
		application.controller.CancelActive()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
