package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/anthann/coffeechat/pkg/cart"
	"github.com/anthann/coffeechat/pkg/chat"
	"github.com/anthann/coffeechat/pkg/event"
	"github.com/anthann/coffeechat/pkg/menu"
	"github.com/anthann/coffeechat/pkg/model"
)

func chatCommand(ctx context.Context, argv []string, cfg appConfig, streams ioStreams) error {
	set := flag.NewFlagSet("chat", flag.ContinueOnError)
	set.SetOutput(streams.err)
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: coffeechat chat")
		fmt.Fprintln(streams.err, "\nAn interactive conversation with the barista assistant.")
		fmt.Fprintln(streams.err, "\nIn-session commands:")
		fmt.Fprintln(streams.err, "  /cart    Show the current cart")
		fmt.Fprintln(streams.err, "  /reset   Clear the conversation and the cart")
		fmt.Fprintln(streams.err, "  /quit    Exit")
		fmt.Fprintln(streams.err, "\nCtrl-C stops the in-flight response; the partial text is kept.")
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	runtime := buildRuntime(cfg)
	if avail := runtime.Availability(ctx); !avail.Available() {
		return fmt.Errorf("model runtime unavailable: %s (%s)", avail.Reason, unavailableHint(avail.Reason))
	}

	printer := newTurnPrinter(streams.out)
	application, err := buildApp(cfg, runtime, printer.sink())
	if err != nil {
		return err
	}
	defer application.close()

	// Ctrl-C cancels the in-flight turn; exit with /quit or EOF.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			application.controller.CancelActive()
		}
	}()

	fmt.Fprintf(streams.out, "coffeechat (%s, %s) - ask about the menu or order a drink\n", cfg.Provider, cfg.Model)
	scanner := bufio.NewScanner(streams.in)
	for {
		fmt.Fprint(streams.out, "\nyou> ")
		if !scanner.Scan() {
			fmt.Fprintln(streams.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			application.controller.Reset()
			fmt.Fprintln(streams.out, "conversation and cart cleared")
			continue
		case line == "/cart":
			printCart(streams.out, application.store.Snapshot())
			continue
		}

		printer.beginTurn()
		err := application.controller.Submit(ctx, line)
		printer.endTurn()
		switch {
		case err == nil:
		case errors.Is(err, chat.ErrBusy):
			fmt.Fprintln(streams.err, "still responding, wait for the current answer")
		default:
			fmt.Fprintf(streams.err, "turn failed: %v\n", err)
		}
	}
}

func unavailableHint(reason model.UnavailableReason) string {
	switch reason {
	case model.ReasonFeatureDisabled:
		return "set COFFEECHAT_API_KEY"
	case model.ReasonAssetsNotReady:
		return "try again shortly"
	default:
		return "check the provider configuration"
	}
}

func printCart(out io.Writer, snapshot cart.Cart) {
	if len(snapshot.Lines) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return
	}
	for _, line := range snapshot.Lines {
		fmt.Fprintf(out, "  %d x %s (%s, %s) %s\n",
			line.Quantity, line.Item.Name,
			line.Temperature.Label(), line.Sweetness.Label(),
			menu.FormatPrice(line.Subtotal()))
	}
	fmt.Fprintf(out, "  total %s\n", menu.FormatPrice(snapshot.Total()))
}

// turnPrinter renders streamed events to the terminal. Snapshots are
// cumulative, so it prints only the text appended since the last one.
type turnPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	printed int
	labeled bool
}

func newTurnPrinter(out io.Writer) *turnPrinter {
	return &turnPrinter{out: out}
}

func (p *turnPrinter) beginTurn() {
	p.mu.Lock()
	p.printed = 0
	p.labeled = false
	p.mu.Unlock()
}

func (p *turnPrinter) endTurn() {
	p.mu.Lock()
	if p.labeled {
		fmt.Fprintln(p.out)
	}
	p.mu.Unlock()
}

func (p *turnPrinter) sink() event.Sink {
	return func(evt event.Event) {
		p.mu.Lock()
		defer p.mu.Unlock()
		switch evt.Type {
		case event.TypeAssistantUpdate:
			data, ok := evt.Data.(event.MessageData)
			if !ok {
				return
			}
			if !p.labeled {
				fmt.Fprint(p.out, "barista> ")
				p.labeled = true
			}
			if len(data.Text) > p.printed {
				fmt.Fprint(p.out, data.Text[p.printed:])
				p.printed = len(data.Text)
			} else if len(data.Text) < p.printed {
				// A new model round replaced the text; start over on a
				// fresh line.
				fmt.Fprintf(p.out, "\nbarista> %s", data.Text)
				p.printed = len(data.Text)
			}
		case event.TypeToolCall:
			data, ok := evt.Data.(event.ToolCallData)
			if !ok {
				return
			}
			if p.labeled {
				fmt.Fprintln(p.out)
				p.labeled = false
				p.printed = 0
			}
			fmt.Fprintf(p.out, "  [%s]\n", data.Name)
		case event.TypeTurnError:
			if data, ok := evt.Data.(event.ErrorData); ok {
				fmt.Fprintf(p.out, "\n! %s", data.Message)
			}
		}
	}
}
