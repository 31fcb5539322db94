package espalier

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// Runner drives an interactive console conversation against an Engine.
// This allows for easy testing and integration with different frontends
// (CLI, TUI, chat simulators) without coupling the core package to any of
// them.
type Runner struct {
	Input     io.Reader
	Output    io.Writer
	FlowID    string
	SessionID string
	Channel   string
	// ShowSystem also prints system directives (warnings, degradations).
	ShowSystem bool
}

// Run executes the conversation loop until the flow ends, transfers, or the
// input reaches EOF.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	if r.FlowID == "" {
		return fmt.Errorf("flow id must be set")
	}
	if r.SessionID == "" {
		r.SessionID = "console"
	}
	if r.Channel == "" {
		r.Channel = "console"
	}

	lineReader := bufio.NewReader(r.Input)

	// First invocation carries no event: it renders the opening chain up to
	// the first prompt.
	var ev *domain.InboundEvent

	for {
		reply, err := engine.ProcessMessage(ctx, Message{
			SessionID: r.SessionID,
			FlowID:    r.FlowID,
			Channel:   r.Channel,
			Event:     ev,
		})
		if err != nil {
			return fmt.Errorf("processing failed: %w", err)
		}

		for _, d := range reply.Directives {
			r.print(d)
		}

		if reply.ShouldTransfer {
			fmt.Fprintf(r.Output, "[transferred to %s]\n", reply.TransferQueue)
			return nil
		}
		if reply.Ended {
			return nil
		}

		fmt.Fprint(r.Output, "> ")
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "exit" || text == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		}
		ev = domain.TextEvent(text)
	}
}

func (r *Runner) print(d domain.Directive) {
	switch d.Type {
	case domain.DirectiveText:
		fmt.Fprintln(r.Output, d.Text)
	case domain.DirectiveMenu, domain.DirectiveButtons:
		fmt.Fprintln(r.Output, d.Text)
		for i, opt := range d.Options {
			fmt.Fprintf(r.Output, "  %d) %s\n", i+1, opt.Label)
		}
	case domain.DirectiveMedia:
		fmt.Fprintf(r.Output, "[media %s: %s]\n", d.MediaType, d.MediaURL)
		if d.Caption != "" {
			fmt.Fprintln(r.Output, d.Caption)
		}
	case domain.DirectiveSystem:
		if r.ShowSystem {
			fmt.Fprintf(r.Output, "[%s] %s\n", d.Level, d.Message)
		}
	}
}
