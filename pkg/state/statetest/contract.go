// Package statetest provides a reusable contract suite verifying that a
// state.Store implementation honors the port's atomicity guarantees. Every
// adapter runs it from its own tests.
package statetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendahq/senda/pkg/flow"
	"github.com/sendahq/senda/pkg/state"
)

// Run exercises the full Store contract against store. Ids are suffixed with
// a timestamp so the suite can run against shared backends without cleanup
// colliding across runs.
func Run(t *testing.T, store state.Store) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405.000")

	t.Run("current node initializes to fallback on first read", func(t *testing.T) {
		id := prefix + "-init"
		node, err := store.CurrentNode(ctx, id, "start")
		require.NoError(t, err)
		assert.Equal(t, "start", node)

		// The initialized value sticks; a different fallback must not win.
		node, err = store.CurrentNode(ctx, id, "other")
		require.NoError(t, err)
		assert.Equal(t, "start", node)
	})

	t.Run("set current node overwrites", func(t *testing.T) {
		id := prefix + "-set"
		require.NoError(t, store.SetCurrentNode(ctx, id, "middle"))

		node, err := store.CurrentNode(ctx, id, "start")
		require.NoError(t, err)
		assert.Equal(t, "middle", node)
	})

	t.Run("concurrent first reads agree on one winner", func(t *testing.T) {
		id := prefix + "-race-init"
		const n = 50

		results := make([]string, n)
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				node, err := store.CurrentNode(ctx, id, "start")
				assert.NoError(t, err)
				results[i] = node
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			assert.Equal(t, "start", results[i])
		}
	})

	t.Run("variables default gracefully", func(t *testing.T) {
		id := prefix + "-defaults"
		v, ok, err := store.Variable(ctx, id, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "", v)

		vars, err := store.Variables(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, vars)
	})

	t.Run("set and get variable", func(t *testing.T) {
		id := prefix + "-vars"
		require.NoError(t, store.SetVariable(ctx, id, "city", "lima"))

		v, ok, err := store.Variable(ctx, id, "city")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "lima", v)

		require.NoError(t, store.SetVariable(ctx, id, "city", "cusco"))
		v, _, err = store.Variable(ctx, id, "city")
		require.NoError(t, err)
		assert.Equal(t, "cusco", v)
	})

	t.Run("variable keys are case-insensitive", func(t *testing.T) {
		id := prefix + "-case"
		require.NoError(t, store.SetVariable(ctx, id, "Status", "ok"))

		v, ok, err := store.Variable(ctx, id, "status")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "ok", v)

		v, ok, err = store.Variable(ctx, id, "STATUS")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "ok", v)

		vars, err := store.Variables(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"status": "ok"}, vars)
	})

	t.Run("concurrent distinct writes on a fresh id all survive", func(t *testing.T) {
		id := prefix + "-race-vars"
		const n = 100

		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("k%03d", i)
				assert.NoError(t, store.SetVariable(ctx, id, key, fmt.Sprintf("v%03d", i)))
			}(i)
		}
		wg.Wait()

		vars, err := store.Variables(ctx, id)
		require.NoError(t, err)
		require.Len(t, vars, n)
		for i := 0; i < n; i++ {
			assert.Equal(t, fmt.Sprintf("v%03d", i), vars[fmt.Sprintf("k%03d", i)])
		}
	})

	t.Run("bulk merge preserves unrelated keys", func(t *testing.T) {
		id := prefix + "-merge"
		require.NoError(t, store.SetVariable(ctx, id, "keep", "me"))
		require.NoError(t, store.SetVariables(ctx, id, map[string]string{
			"Status": "ok",
			"place":  "market",
		}))

		vars, err := store.Variables(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"keep":   "me",
			"status": "ok",
			"place":  "market",
		}, vars)

		// Empty merge is a no-op.
		require.NoError(t, store.SetVariables(ctx, id, nil))
		vars, err = store.Variables(ctx, id)
		require.NoError(t, err)
		assert.Len(t, vars, 3)
	})

	t.Run("snapshot is isolated from the store", func(t *testing.T) {
		id := prefix + "-snapshot"
		require.NoError(t, store.SetVariable(ctx, id, "a", "1"))

		vars, err := store.Variables(ctx, id)
		require.NoError(t, err)
		vars["a"] = "tampered"
		vars["b"] = "injected"

		v, _, err := store.Variable(ctx, id, "a")
		require.NoError(t, err)
		assert.Equal(t, "1", v)
		_, ok, err := store.Variable(ctx, id, "b")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("remove deletes everything for the id", func(t *testing.T) {
		id := prefix + "-remove"
		require.NoError(t, store.SetCurrentNode(ctx, id, "middle"))
		require.NoError(t, store.SetVariable(ctx, id, "a", "1"))

		require.NoError(t, store.Remove(ctx, id))

		node, err := store.CurrentNode(ctx, id, "start")
		require.NoError(t, err)
		assert.Equal(t, "start", node, "removed instance re-initializes from fallback")

		vars, err := store.Variables(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, vars)
	})

	t.Run("no torn reads while the pointer is rewritten", func(t *testing.T) {
		id := prefix + "-torn"
		require.NoError(t, store.SetCurrentNode(ctx, id, "alpha"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 200; i++ {
				if i%2 == 0 {
					_ = store.SetCurrentNode(ctx, id, "omega")
				} else {
					_ = store.SetCurrentNode(ctx, id, "alpha")
				}
			}
		}()

		for i := 0; i < 200; i++ {
			node, err := store.CurrentNode(ctx, id, "start")
			require.NoError(t, err)
			assert.Contains(t, []string{"alpha", "omega"}, node)
		}
		<-done
	})

	t.Run("rejects empty ids and keys", func(t *testing.T) {
		_, err := store.CurrentNode(ctx, "", "start")
		assert.ErrorIs(t, err, flow.ErrInvalidInput)

		assert.ErrorIs(t, store.SetCurrentNode(ctx, "", "n"), flow.ErrInvalidInput)
		assert.ErrorIs(t, store.SetVariable(ctx, "", "k", "v"), flow.ErrInvalidInput)
		assert.ErrorIs(t, store.SetVariable(ctx, prefix, "", "v"), flow.ErrInvalidInput)

		_, _, err = store.Variable(ctx, prefix, "")
		assert.ErrorIs(t, err, flow.ErrInvalidInput)
		_, err = store.Variables(ctx, "")
		assert.ErrorIs(t, err, flow.ErrInvalidInput)
		assert.ErrorIs(t, store.Remove(ctx, ""), flow.ErrInvalidInput)
	})
}
