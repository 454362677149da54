// Package process exposes allow-listed external commands as action
// handlers. Variables travel to the child process as environment variables,
// never as argv, so instance data cannot inject flags or shell syntax.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sendahq/senda/pkg/actions"
	"github.com/sendahq/senda/pkg/flow"
)

// envPrefix is prepended to every variable passed into the child process.
const envPrefix = "SENDA_VAR_"

// Runner binds external commands to an action registry. Only registered
// commands run; there is no ad-hoc execution path.
type Runner struct {
	commands map[string]Command
	baseDir  string
	grace    time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithCommands populates the allow-list from a loaded manifest.
func WithCommands(commands map[string]Command) RunnerOption {
	return func(r *Runner) {
		for name, c := range commands {
			c.Name = name
			r.commands[name] = c
		}
	}
}

// WithBaseDir sets the working directory for executed commands.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGrace sets how long a cancelled command may keep running after the
// interrupt signal before it is killed.
func WithGrace(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// NewRunner creates a process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		commands: make(map[string]Command),
		grace:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name, command string, args ...string) {
	r.commands[name] = Command{Name: name, Command: command, Args: args}
}

// Bind registers every allow-listed command as an action handler under its
// manifest name. It fails if a command declares an unparseable timeout.
func (r *Runner) Bind(reg *actions.Registry) error {
	for name, c := range r.commands {
		timeout, err := c.timeout()
		if err != nil {
			return err
		}
		reg.Register(name, r.handler(c, timeout))
	}
	return nil
}

func (r *Runner) handler(c Command, timeout time.Duration) actions.Handler {
	return func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		runCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		cmd := exec.CommandContext(runCtx, c.Command, c.Args...)
		cmd.Dir = r.baseDir
		// Interrupt first, kill after the grace period.
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
		cmd.WaitDelay = r.grace

		env := cmd.Environ()
		for k, v := range c.Env {
			env = append(env, k+"="+v)
		}
		env = append(env, "SENDA_FLOW_ID="+flowID)
		for k, v := range vars {
			env = append(env, envPrefix+envKey(k)+"="+v)
		}
		cmd.Env = env

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			// Parent cancellation propagates so the executor reports the
			// cancelled status; a per-command timeout is an ordinary failure.
			if ctx.Err() != nil {
				return flow.Outcome{}, ctx.Err()
			}
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				return flow.Errorf("%s: %v", c.Name, err), nil
			}
			return flow.Errorf("%s: %v: %s", c.Name, err, detail), nil
		}

		return parseOutput(stdout.String()), nil
	}
}

// parseOutput turns the command's stdout into an outcome. A JSON object of
// strings becomes the outcome variables; anything else is captured whole
// under "output".
func parseOutput(out string) flow.Outcome {
	trimmed := strings.TrimSpace(out)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		vars := map[string]string{}
		if err := json.Unmarshal([]byte(trimmed), &vars); err == nil {
			return flow.Outcome{Status: flow.StatusOK, Variables: vars}
		}
	}
	if trimmed == "" {
		return flow.OK(nil)
	}
	return flow.Outcome{Status: flow.StatusOK, Variables: map[string]string{"output": trimmed}}
}

// envKey uppercases a variable name and squashes anything outside
// [A-Z0-9_], keeping the child's environment well-formed.
func envKey(k string) string {
	up := strings.ToUpper(k)
	var b strings.Builder
	b.Grow(len(up))
	for _, r := range up {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
