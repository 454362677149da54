package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendahq/senda/pkg/flow"
)

func TestExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register("lookup", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		assert.Equal(t, "wf-1", flowID)
		assert.Equal(t, "near", vars["radius"])
		return flow.Outcome{Status: "ok", Variables: map[string]string{"found": "3"}}, nil
	})

	out := r.Execute(context.Background(), "lookup", "wf-1", map[string]string{"radius": "near"})
	assert.Equal(t, flow.StatusOK, out.Status)
	assert.Equal(t, "3", out.Variables["found"])
}

func TestExecuteDefaultsEmptyStatusToOK(t *testing.T) {
	r := NewRegistry()
	r.Register("quiet", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		return flow.Outcome{Variables: map[string]string{"done": "yes"}}, nil
	})

	out := r.Execute(context.Background(), "quiet", "wf-1", nil)
	assert.Equal(t, flow.StatusOK, out.Status)
}

func TestExecuteUnknownAction(t *testing.T) {
	r := NewRegistry()

	out := r.Execute(context.Background(), "ghost", "wf-1", nil)
	assert.Equal(t, flow.StatusError, out.Status)
	assert.Contains(t, out.Variables[flow.VarError], "not registered")
	assert.Contains(t, out.Variables[flow.VarError], "ghost")
}

func TestExecuteHandlerError(t *testing.T) {
	r := NewRegistry()
	r.Register("flaky", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		return flow.Outcome{}, errors.New("upstream down")
	})

	out := r.Execute(context.Background(), "flaky", "wf-1", nil)
	assert.Equal(t, flow.StatusError, out.Status)
	assert.Contains(t, out.Variables[flow.VarError], "upstream down")
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register("bomb", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		panic("boom")
	})

	out := r.Execute(context.Background(), "bomb", "wf-1", nil)
	assert.Equal(t, flow.StatusError, out.Status)
	assert.Contains(t, out.Variables[flow.VarError], "panicked")
	assert.Contains(t, out.Variables[flow.VarError], "boom")
}

func TestExecuteCancelledBeforeCall(t *testing.T) {
	r := NewRegistry()
	invoked := false
	r.Register("slow", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		invoked = true
		return flow.OK(nil), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := r.Execute(ctx, "slow", "wf-1", nil)
	assert.Equal(t, flow.StatusCancelled, out.Status)
	assert.Empty(t, out.Variables, "cancelled work commits nothing")
	assert.False(t, invoked, "handler must not run once the context is done")
}

func TestExecuteCancelledDuringCall(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	r.Register("watcher", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		// Cancellation arrives while the handler is running.
		cancel()
		return flow.Outcome{Variables: map[string]string{"partial": "work"}}, ctx.Err()
	})

	out := r.Execute(ctx, "watcher", "wf-1", nil)
	assert.Equal(t, flow.StatusCancelled, out.Status)
	assert.Empty(t, out.Variables, "partial payload is dropped on cancellation")
}

func TestExecuteSnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	r.Register("greedy", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		vars["stolen"] = "yes"
		delete(vars, "mine")
		return flow.OK(nil), nil
	})

	caller := map[string]string{"mine": "still here"}
	out := r.Execute(context.Background(), "greedy", "wf-1", caller)

	assert.Equal(t, flow.StatusOK, out.Status)
	assert.Equal(t, "still here", caller["mine"])
	assert.NotContains(t, caller, "stolen")
}

func TestRegistryConcurrentRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	r.Register("base", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		return flow.OK(nil), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Register(fmt.Sprintf("extra-%d", i), func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
				return flow.OK(nil), nil
			})
		}(i)
		go func() {
			defer wg.Done()
			out := r.Execute(context.Background(), "base", "wf-1", nil)
			assert.Equal(t, flow.StatusOK, out.Status)
		}()
	}
	wg.Wait()

	assert.Len(t, r.Names(), 51)
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	noop := func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		return flow.OK(nil), nil
	}
	r.Register("zeta", noop)
	r.Register("alpha", noop)
	r.Register("mid", noop)

	require.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}
