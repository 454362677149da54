package senda_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendahq/senda"
	"github.com/sendahq/senda/pkg/flow"
	"github.com/sendahq/senda/pkg/resume"
)

func coffeeFlow(id string) *flow.Definition {
	return &flow.Definition{
		ID:     id,
		Name:   "Coffee",
		Starts: []string{"ask"},
		Nodes: map[string]flow.Node{
			"ask": {ID: "ask", Kind: flow.KindChoice, Text: "Coffee?", Choices: []flow.Choice{
				{Label: "Yes", Value: "yes"},
				{Label: "No", Value: "no"},
			}},
			"brew": {ID: "brew", Kind: flow.KindAction, Action: "brew"},
			"done": {ID: "done", Kind: flow.KindTerminal, Text: "Enjoy!"},
			"bye":  {ID: "bye", Kind: flow.KindTerminal, Text: "Another time."},
		},
		Transitions: []flow.Transition{
			{From: "ask", To: "brew", Guard: "yes"},
			{From: "ask", To: "bye", Guard: "no"},
			{From: "brew", To: "done"},
		},
	}
}

func TestFacadeRegisterAndLookup(t *testing.T) {
	eng := senda.New()

	require.NoError(t, eng.Register(coffeeFlow("coffee")))

	def, err := eng.Definition("coffee")
	require.NoError(t, err)
	assert.Equal(t, "coffee", def.ID)
	assert.Equal(t, []string{"coffee"}, eng.Definitions())

	_, err = eng.Definition("tea")
	assert.ErrorIs(t, err, flow.ErrUnknownFlow)
}

func TestFacadeAdvanceRunsAction(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))

	eng.RegisterAction("brew", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		return flow.Outcome{Variables: map[string]string{"cup": "espresso"}}, nil
	})
	assert.Equal(t, []string{"brew"}, eng.Actions())

	ctx := context.Background()
	advanced, err := eng.Advance(ctx, "coffee", "yes")
	require.NoError(t, err)
	assert.True(t, advanced)

	status, ok, err := eng.Variable(ctx, "coffee", "status")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, flow.StatusOK, status)

	cup, ok, err := eng.Variable(ctx, "coffee", "CUP")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "espresso", cup)

	view, err := eng.View(ctx, "coffee")
	require.NoError(t, err)
	assert.Equal(t, "brew", view.NodeID)

	advanced, err = eng.Advance(ctx, "coffee", "")
	require.NoError(t, err)
	assert.True(t, advanced)

	view, err = eng.View(ctx, "coffee")
	require.NoError(t, err)
	assert.True(t, view.Terminal)
}

func TestFacadeVariables(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))

	ctx := context.Background()
	require.NoError(t, eng.SetVariable(ctx, "coffee", "Size", "large"))

	vars, err := eng.Variables(ctx, "coffee")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"size": "large"}, vars)

	_, ok, err := eng.Variable(ctx, "coffee", "sugar")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFacadeStartCreatesIndependentInstances(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))

	ctx := context.Background()
	first, err := eng.Start(ctx, "coffee")
	require.NoError(t, err)
	second, err := eng.Start(ctx, "coffee")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "coffee-"))

	advanced, err := eng.Advance(ctx, first, "no")
	require.NoError(t, err)
	assert.True(t, advanced)

	view, err := eng.View(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "ask", view.NodeID, "instances must not share state")
}

func TestFacadeStartUnknownTemplate(t *testing.T) {
	eng := senda.New()

	_, err := eng.Start(context.Background(), "ghost")
	assert.ErrorIs(t, err, flow.ErrUnknownFlow)
}

func TestFacadeStartAtResumesWithinWindow(t *testing.T) {
	eng := senda.New()
	ctx := context.Background()

	id, resumed, err := eng.StartAt(ctx, "store-visit", "AISLE 7  ", coffeeFlow("coffee"))
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.True(t, strings.HasPrefix(id, "store-visit:"))

	require.NoError(t, eng.SetVariable(ctx, id, "seen", "1"))

	// Same context modulo case and spacing resolves to the same id.
	again, resumed, err := eng.StartAt(ctx, "store-visit", "aisle 7", coffeeFlow("coffee"))
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, id, again)

	seen, ok, err := eng.Variable(ctx, id, "seen")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", seen)
}

func TestFacadeStartAtFreshAfterWindow(t *testing.T) {
	tracker := resume.NewMemoryTracker()
	eng := senda.New(senda.WithTracker(tracker), senda.WithResumeWindow(time.Hour))
	ctx := context.Background()

	id, _, err := eng.StartAt(ctx, "store-visit", "aisle 7", coffeeFlow("coffee"))
	require.NoError(t, err)
	require.NoError(t, eng.SetVariable(ctx, id, "seen", "1"))
	advanced, err := eng.Advance(ctx, id, "no")
	require.NoError(t, err)
	require.True(t, advanced)

	// Just inside the window still resumes.
	require.NoError(t, tracker.Mark(ctx, id, time.Now().Add(-59*time.Minute)))
	_, resumed, err := eng.StartAt(ctx, "store-visit", "aisle 7", coffeeFlow("coffee"))
	require.NoError(t, err)
	assert.True(t, resumed)

	// Past the window the same context yields a fresh instance under the
	// same id: state reset, variables gone.
	require.NoError(t, tracker.Mark(ctx, id, time.Now().Add(-2*time.Hour)))
	again, resumed, err := eng.StartAt(ctx, "store-visit", "aisle 7", coffeeFlow("coffee"))
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, id, again)

	view, err := eng.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ask", view.NodeID)
	_, ok, err := eng.Variable(ctx, id, "seen")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFacadeStartAtNilTemplate(t *testing.T) {
	eng := senda.New()

	_, _, err := eng.StartAt(context.Background(), "store-visit", "aisle 7", nil)
	assert.ErrorIs(t, err, flow.ErrInvalidInput)
}

func TestFacadeRemove(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))
	ctx := context.Background()
	require.NoError(t, eng.SetVariable(ctx, "coffee", "size", "large"))

	require.NoError(t, eng.Remove(ctx, "coffee"))

	_, err := eng.Definition("coffee")
	assert.ErrorIs(t, err, flow.ErrUnknownFlow)
	_, ok, err := eng.Variable(ctx, "coffee", "size")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFacadeSweep(t *testing.T) {
	tracker := resume.NewMemoryTracker()
	eng := senda.New(senda.WithTracker(tracker), senda.WithResumeWindow(time.Hour))
	ctx := context.Background()

	stale, _, err := eng.StartAt(ctx, "store-visit", "aisle 7", coffeeFlow("coffee"))
	require.NoError(t, err)
	fresh, _, err := eng.StartAt(ctx, "store-visit", "aisle 9", coffeeFlow("coffee"))
	require.NoError(t, err)

	require.NoError(t, tracker.Mark(ctx, stale, time.Now().Add(-2*time.Hour)))

	swept, err := eng.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = eng.Definition(stale)
	assert.ErrorIs(t, err, flow.ErrUnknownFlow)
	_, err = eng.Definition(fresh)
	assert.NoError(t, err)
}

func TestFacadeWindow(t *testing.T) {
	assert.Equal(t, resume.DefaultWindow, senda.New().Window())
	assert.Equal(t, 45*time.Minute, senda.New(senda.WithResumeWindow(45*time.Minute)).Window())
}
