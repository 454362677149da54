package senda

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Runner drives one workflow instance over the provided IO until it reaches
// a terminal node. This allows for easy testing and integration with
// different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms node text before it is written. This allows for
// TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner bound to Stdin/Stdout. Override the fields for
// testing or alternative frontends.
func NewRunner() *Runner {
	return &Runner{
		Input:  os.Stdin,
		Output: os.Stdout,
	}
}

// Run executes the loop for flowID: render the current node, display its
// text when the node changed, read a choice when one is awaited, advance.
// It returns when the instance reaches a terminal node, the reader hits EOF,
// or the user types "exit"/"quit". In headless mode the loop stops at the
// first node that awaits a choice.
func (r *Runner) Run(ctx context.Context, engine *Engine, flowID string) error {
	if r.Input == nil || r.Output == nil {
		return fmt.Errorf("runner requires both input and output")
	}
	lines := bufio.NewReader(r.Input)
	lastRendered := ""

	for {
		view, err := engine.View(ctx, flowID)
		if err != nil {
			return fmt.Errorf("render error: %w", err)
		}

		// Only print when the node changed (fresh entry), so re-prompting
		// after an unrecognized choice does not repeat the node text.
		if view.NodeID != lastRendered {
			r.display(view.Text)
			for _, c := range view.Choices {
				fmt.Fprintf(r.Output, "  [%s] %s\n", c.Value, c.Label)
			}
			lastRendered = view.NodeID
		}

		if view.Terminal {
			return nil
		}

		var input string
		if view.AwaitsChoice() {
			if r.Headless {
				return nil
			}
			fmt.Fprint(r.Output, "> ")
			text, err := lines.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return fmt.Errorf("input error: %w", err)
			}
			input = strings.TrimSpace(text)
			if input == "exit" || input == "quit" {
				fmt.Fprintln(r.Output, "Bye!")
				return nil
			}
			input, err = SanitizeInput(input)
			if err != nil {
				fmt.Fprintln(r.Output, "Input rejected.")
				continue
			}
		}

		advanced, err := engine.Advance(ctx, flowID, input)
		if err != nil {
			return fmt.Errorf("navigation error: %w", err)
		}
		if !advanced {
			if input == "" {
				// Nothing unconditional to take: the graph is waiting on
				// input this runner cannot produce here.
				return nil
			}
			fmt.Fprintln(r.Output, "Unrecognized choice.")
		}
	}
}

func (r *Runner) display(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	output := text
	if r.Renderer != nil {
		if rendered, err := r.Renderer(text); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))
}
