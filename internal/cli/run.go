package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendahq/senda"
	"github.com/sendahq/senda/internal/config"
	"github.com/sendahq/senda/internal/presentation/tui"
	"github.com/sendahq/senda/pkg/observe"
	"github.com/sendahq/senda/pkg/resume"
)

// RunOptions configures the 'run' command.
type RunOptions struct {
	FlowsDir string
	FlowID   string
	Commands string
	Headless bool
	Debug    bool
	Plain    bool
}

// Execute runs one workflow interactively on the in-memory store.
func Execute(opts RunOptions) error {
	logger := Logger(opts.Debug)

	cfg := &config.Config{
		Store:        config.StoreMemory,
		FlowsDir:     opts.FlowsDir,
		CommandsFile: opts.Commands,
		Resume:       config.ResumeConfig{Window: resume.DefaultWindow},
	}

	var engineOpts []senda.Option
	if opts.Debug {
		engineOpts = append(engineOpts, senda.WithHooks(observe.LogHooks(logger)))
	}

	rt, err := NewRuntime(cfg, logger, engineOpts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	flowID, err := pickFlow(rt.Engine.Definitions(), opts.FlowID)
	if err != nil {
		return err
	}

	interactive := IsTerminal() && !opts.Headless
	if interactive {
		tui.PrintBanner(senda.Version)
	}

	r := senda.NewRunner()
	r.Headless = opts.Headless
	if interactive && !opts.Plain {
		r.Renderer = tui.NewRenderer()
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	runErr := r.Run(sigCtx, rt.Engine, flowID)
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	node := ""
	if view, err := rt.Engine.View(context.Background(), flowID); err == nil {
		node = view.NodeID
	}
	logCompletion(node, runErr, opts.Headless, sigCtx.Signal())

	return handleExecutionError(runErr)
}

// pickFlow resolves which definition to run. An explicit id must exist; with
// no id, a lone definition is unambiguous.
func pickFlow(available []string, requested string) (string, error) {
	if requested != "" {
		for _, id := range available {
			if id == requested {
				return id, nil
			}
		}
		return "", fmt.Errorf("flow %q not found (available: %s)", requested, strings.Join(available, ", "))
	}
	switch len(available) {
	case 0:
		return "", errors.New("no flow definitions found")
	case 1:
		return available[0], nil
	default:
		return "", fmt.Errorf("several flows available, pick one with --flow: %s", strings.Join(available, ", "))
	}
}
