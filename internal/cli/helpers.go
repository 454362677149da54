package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/sendahq/senda/internal/logging"
)

// Logger builds the CLI logger. Debug mode writes to stderr, keeping stdout
// free for flow text; otherwise logs are discarded.
func Logger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// IsTerminal reports whether stdout is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

// handleExecutionError maps interruptions to a clean exit.
func handleExecutionError(err error) error {
	if isInterrupted(err) {
		return nil
	}
	return err
}

func logCompletion(nodeID string, err error, quiet bool, sig os.Signal) {
	if quiet {
		return
	}
	if err == nil {
		printSystemMessage("Finished at '%s' node.", nodeID)
		return
	}
	if isInterrupted(err) {
		if sig == os.Interrupt {
			fmt.Printf("[CTRL+C]\n")
			printSystemMessage("Interrupted at '%s' node.", nodeID)
		} else {
			fmt.Printf("\n")
			printSystemMessage("Terminated at '%s' node.", nodeID)
		}
	}
}
