package senda_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendahq/senda"
	"github.com/sendahq/senda/pkg/flow"
)

func TestRunnerWalksToTerminal(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))
	eng.RegisterAction("brew", func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error) {
		return flow.OK(nil), nil
	})

	var out bytes.Buffer
	runner := &senda.Runner{
		Input:  strings.NewReader("yes\n"),
		Output: &out,
	}

	require.NoError(t, runner.Run(context.Background(), eng, "coffee"))

	transcript := out.String()
	assert.Contains(t, transcript, "Coffee?")
	assert.Contains(t, transcript, "[yes] Yes")
	assert.Contains(t, transcript, "Enjoy!")
	assert.NotContains(t, transcript, "Another time.")
}

func TestRunnerRepromptsOnUnrecognizedChoice(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))

	var out bytes.Buffer
	runner := &senda.Runner{
		Input:  strings.NewReader("maybe\nno\n"),
		Output: &out,
	}

	require.NoError(t, runner.Run(context.Background(), eng, "coffee"))

	transcript := out.String()
	assert.Contains(t, transcript, "Unrecognized choice.")
	assert.Contains(t, transcript, "Another time.")
	// The node text is printed once, not repeated on re-prompt.
	assert.Equal(t, 1, strings.Count(transcript, "Coffee?"))
}

func TestRunnerStopsOnEOF(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))

	var out bytes.Buffer
	runner := &senda.Runner{
		Input:  strings.NewReader(""),
		Output: &out,
	}

	require.NoError(t, runner.Run(context.Background(), eng, "coffee"))
	assert.Contains(t, out.String(), "Coffee?")
}

func TestRunnerExitCommand(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))

	var out bytes.Buffer
	runner := &senda.Runner{
		Input:  strings.NewReader("exit\n"),
		Output: &out,
	}

	require.NoError(t, runner.Run(context.Background(), eng, "coffee"))
	assert.Contains(t, out.String(), "Bye!")

	// The instance did not move.
	view, err := eng.View(context.Background(), "coffee")
	require.NoError(t, err)
	assert.Equal(t, "ask", view.NodeID)
}

func TestRunnerHeadlessStopsAtChoice(t *testing.T) {
	eng := senda.New()
	require.NoError(t, eng.Register(coffeeFlow("coffee")))

	var out bytes.Buffer
	runner := &senda.Runner{
		Input:    strings.NewReader(""),
		Output:   &out,
		Headless: true,
	}

	require.NoError(t, runner.Run(context.Background(), eng, "coffee"))
	assert.Contains(t, out.String(), "Coffee?")
	assert.NotContains(t, out.String(), "> ")
}

func TestRunnerRequiresIO(t *testing.T) {
	eng := senda.New()
	runner := &senda.Runner{}
	assert.Error(t, runner.Run(context.Background(), eng, "coffee"))
}
