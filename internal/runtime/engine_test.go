package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendahq/senda/internal/runtime"
	"github.com/sendahq/senda/pkg/actions"
	"github.com/sendahq/senda/pkg/adapters/memory"
	"github.com/sendahq/senda/pkg/catalog"
	"github.com/sendahq/senda/pkg/flow"
	"github.com/sendahq/senda/pkg/state"
)

type fixture struct {
	engine  *runtime.Engine
	catalog *catalog.Catalog
	store   state.Store
	actions *actions.Registry
}

func newFixture(t *testing.T, opts ...runtime.Option) *fixture {
	t.Helper()
	f := &fixture{
		catalog: catalog.New(),
		store:   memory.NewStore(),
		actions: actions.NewRegistry(),
	}
	f.engine = runtime.NewEngine(f.catalog, f.store, f.actions, opts...)
	return f
}

// choiceGraph models a choice node with both a guarded and an unconditional
// edge, the shape that exercises the matching rules.
//
//	ask --(yes)--> cheers
//	ask --------> skipped
//	cheers/skipped ----> end
func choiceGraph(id string) *flow.Definition {
	return &flow.Definition{
		ID: id,
		Nodes: map[string]flow.Node{
			"ask": {ID: "ask", Kind: flow.KindChoice, Text: "Coffee?", Choices: []flow.Choice{
				{Label: "Yes", Value: "yes"},
				{Label: "No", Value: "no"},
			}},
			"cheers":  {ID: "cheers", Kind: flow.KindPrompt, Text: "Enjoy!"},
			"skipped": {ID: "skipped", Kind: flow.KindPrompt, Text: "Maybe later."},
			"end":     {ID: "end", Kind: flow.KindTerminal, Text: "Bye."},
		},
		Transitions: []flow.Transition{
			{From: "ask", To: "cheers", Guard: "yes"},
			{From: "ask", To: "skipped"},
			{From: "cheers", To: "end"},
			{From: "skipped", To: "end"},
		},
		Starts: []string{"ask"},
	}
}

// actionGraph walks a prompt into an action node bound to handler name.
func actionGraph(id, handler string) *flow.Definition {
	return &flow.Definition{
		ID: id,
		Nodes: map[string]flow.Node{
			"start": {ID: "start", Kind: flow.KindPrompt, Text: "Looking around you..."},
			"fetch": {ID: "fetch", Kind: flow.KindAction, Text: "Fetching...", Action: handler},
			"done":  {ID: "done", Kind: flow.KindTerminal, Text: "Done."},
		},
		Transitions: []flow.Transition{
			{From: "start", To: "fetch"},
			{From: "fetch", To: "done"},
		},
		Starts: []string{"start"},
	}
}

func TestAdvanceGuardedChoice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.catalog.Register(choiceGraph("wf")))

	advanced, err := f.engine.Advance(context.Background(), "wf", "yes")
	require.NoError(t, err)
	assert.True(t, advanced)

	v, err := f.engine.View(context.Background(), "wf")
	require.NoError(t, err)
	assert.Equal(t, "cheers", v.NodeID)
}

func TestAdvanceEmptyChoiceTakesDefaultEdge(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.catalog.Register(choiceGraph("wf")))

	advanced, err := f.engine.Advance(context.Background(), "wf", "")
	require.NoError(t, err)
	assert.True(t, advanced)

	v, err := f.engine.View(context.Background(), "wf")
	require.NoError(t, err)
	assert.Equal(t, "skipped", v.NodeID)
}

func TestAdvanceUnknownChoiceDoesNotAdvance(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.catalog.Register(choiceGraph("wf")))

	// "no" names no guard here; the default edge must not swallow it.
	advanced, err := f.engine.Advance(context.Background(), "wf", "no")
	require.NoError(t, err)
	assert.False(t, advanced)

	v, err := f.engine.View(context.Background(), "wf")
	require.NoError(t, err)
	assert.Equal(t, "ask", v.NodeID, "a refused advance must not move the pointer")
}

func TestAdvanceTerminalNeverAdvances(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.catalog.Register(choiceGraph("wf")))
	ctx := context.Background()

	for _, choice := range []string{"yes", ""} {
		advanced, err := f.engine.Advance(ctx, "wf", choice)
		require.NoError(t, err)
		require.True(t, advanced)
	}

	v, err := f.engine.View(ctx, "wf")
	require.NoError(t, err)
	require.Equal(t, "end", v.NodeID)
	require.True(t, v.Terminal)

	for _, choice := range []string{"", "yes", "anything"} {
		advanced, err := f.engine.Advance(ctx, "wf", choice)
		require.NoError(t, err)
		assert.False(t, advanced)
	}

	v, err = f.engine.View(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, "end", v.NodeID)
}

func TestAdvanceUnknownWorkflow(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Advance(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, flow.ErrUnknownFlow)
}

func TestAdvanceRejectsEmptyID(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Advance(context.Background(), "", "")
	assert.ErrorIs(t, err, flow.ErrInvalidInput)
}

func TestAdvanceMergesActionOutcome(t *testing.T) {
	f := newFixture(t)
	f.actions.Register("lookup", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		return flow.Outcome{Status: "ok", Variables: map[string]string{"foo": "bar"}}, nil
	})
	require.NoError(t, f.catalog.Register(actionGraph("wf", "lookup")))
	ctx := context.Background()

	advanced, err := f.engine.Advance(ctx, "wf", "")
	require.NoError(t, err)
	require.True(t, advanced)

	status, _, err := f.store.Variable(ctx, "wf", "status")
	require.NoError(t, err)
	assert.Equal(t, "ok", status)

	foo, _, err := f.store.Variable(ctx, "wf", "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", foo)
}

func TestAdvanceActionSeesVariableSnapshot(t *testing.T) {
	f := newFixture(t)
	var seen map[string]string
	f.actions.Register("lookup", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		seen = vars
		return flow.OK(nil), nil
	})
	require.NoError(t, f.catalog.Register(actionGraph("wf", "lookup")))
	ctx := context.Background()

	require.NoError(t, f.store.SetVariable(ctx, "wf", "radius", "500m"))

	_, err := f.engine.Advance(ctx, "wf", "")
	require.NoError(t, err)
	assert.Equal(t, "500m", seen["radius"])
}

func TestAdvanceSurvivesHandlerPanic(t *testing.T) {
	f := newFixture(t)
	f.actions.Register("bomb", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		panic("kaboom")
	})
	require.NoError(t, f.catalog.Register(actionGraph("wf", "bomb")))
	ctx := context.Background()

	advanced, err := f.engine.Advance(ctx, "wf", "")
	require.NoError(t, err)
	assert.True(t, advanced, "the transition into the action node still occurred")

	v, err := f.engine.View(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, "fetch", v.NodeID)
	assert.Equal(t, flow.StatusError, v.Variables[flow.VarStatus])
	assert.Contains(t, v.Variables[flow.VarError], "kaboom")
}

func TestAdvanceUnknownActionName(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.catalog.Register(actionGraph("wf", "never_registered")))
	ctx := context.Background()

	advanced, err := f.engine.Advance(ctx, "wf", "")
	require.NoError(t, err)
	assert.True(t, advanced)

	v, err := f.engine.View(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, flow.StatusError, v.Variables[flow.VarStatus])
	assert.Contains(t, v.Variables[flow.VarError], "not registered")
}

func TestAdvanceCancelledActionCommitsNothing(t *testing.T) {
	f := newFixture(t)
	f.actions.Register("slow", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		return flow.Outcome{Variables: map[string]string{"partial": "data"}}, nil
	})
	require.NoError(t, f.catalog.Register(actionGraph("wf", "slow")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	advanced, err := f.engine.Advance(ctx, "wf", "")
	require.NoError(t, err)
	assert.True(t, advanced)

	vars, err := f.store.Variables(context.Background(), "wf")
	require.NoError(t, err)
	assert.Equal(t, flow.StatusCancelled, vars[flow.VarStatus])
	assert.NotContains(t, vars, "partial")
}

func TestAdvanceMovesOneEdgePerCall(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.actions.Register("count", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		calls++
		return flow.OK(nil), nil
	})
	require.NoError(t, f.catalog.Register(actionGraph("wf", "count")))
	ctx := context.Background()

	advanced, err := f.engine.Advance(ctx, "wf", "")
	require.NoError(t, err)
	require.True(t, advanced)
	assert.Equal(t, 1, calls)

	// The next call re-evaluates from the updated node; the prior action is
	// never replayed.
	advanced, err = f.engine.Advance(ctx, "wf", "")
	require.NoError(t, err)
	require.True(t, advanced)
	assert.Equal(t, 1, calls)

	v, err := f.engine.View(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, "done", v.NodeID)
}

func TestAdvanceDanglingPointerSurfaces(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.catalog.Register(choiceGraph("wf")))
	ctx := context.Background()

	_, err := f.engine.Advance(ctx, "wf", "yes")
	require.NoError(t, err)

	// Re-register a shrunken definition that no longer contains the node
	// the instance sits on.
	smaller := &flow.Definition{
		ID: "wf",
		Nodes: map[string]flow.Node{
			"ask": {ID: "ask", Kind: flow.KindTerminal, Text: "Gone."},
		},
		Starts: []string{"ask"},
	}
	require.NoError(t, f.catalog.Register(smaller))

	_, err = f.engine.Advance(ctx, "wf", "")
	assert.ErrorIs(t, err, flow.ErrUnknownNode)
	_, err = f.engine.View(ctx, "wf")
	assert.ErrorIs(t, err, flow.ErrUnknownNode)
}

func TestViewInitializesInstanceAtEntry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.catalog.Register(choiceGraph("wf")))

	v, err := f.engine.View(context.Background(), "wf")
	require.NoError(t, err)
	assert.Equal(t, "ask", v.NodeID)
	assert.Equal(t, flow.KindChoice, v.Kind)
	assert.Equal(t, "Coffee?", v.Text)
	require.Len(t, v.Choices, 2)
	assert.Equal(t, "yes", v.Choices[0].Value)
	assert.False(t, v.Terminal)
	assert.Empty(t, v.Variables)
}

func TestViewUnknownWorkflow(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.View(context.Background(), "ghost")
	assert.ErrorIs(t, err, flow.ErrUnknownFlow)
}
