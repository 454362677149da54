package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendahq/senda/internal/config"
	"github.com/sendahq/senda/pkg/resume"
	"github.com/sendahq/senda/pkg/state/middleware"
)

const coffeeDoc = `
id: coffee
start: ask
nodes:
  - id: ask
    text: "Coffee?"
    choices:
      - { label: "Yes", value: "yes" }
      - { label: "No", value: "no" }
    routes:
      - { when: "yes", to: brew }
      - { when: "no", to: bye }
  - id: brew
    action: brew_coffee
    next: done
  - id: done
    text: "Enjoy!"
  - id: bye
    text: "Another time."
`

func memoryConfig(flowsDir string) *config.Config {
	return &config.Config{
		Store:    config.StoreMemory,
		FlowsDir: flowsDir,
		Resume:   config.ResumeConfig{Window: resume.DefaultWindow},
	}
}

func TestNewRuntimeLoadsFlowsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coffee.yaml"), []byte(coffeeDoc), 0o644))

	rt, err := NewRuntime(memoryConfig(dir), Logger(false))
	require.NoError(t, err)
	defer rt.Close()

	assert.Contains(t, rt.Engine.Definitions(), "coffee")
	assert.Nil(t, rt.Locker)
}

func TestNewRuntimeMissingFlowsDirStartsEmpty(t *testing.T) {
	rt, err := NewRuntime(memoryConfig(filepath.Join(t.TempDir(), "absent")), Logger(false))
	require.NoError(t, err)
	defer rt.Close()

	assert.Empty(t, rt.Engine.Definitions())
}

func TestNewRuntimeRejectsBrokenDefinition(t *testing.T) {
	dir := t.TempDir()
	broken := `
id: broken
start: ask
nodes:
  - id: ask
    next: ghost
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(broken), 0o644))

	_, err := NewRuntime(memoryConfig(dir), Logger(false))
	assert.Error(t, err)
}

func TestNewRuntimeBindsCommandManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := `
commands:
  - name: greet
    command: echo
    args: ["hi"]
`
	path := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	cfg := memoryConfig(filepath.Join(dir, "flows"))
	cfg.CommandsFile = path

	rt, err := NewRuntime(cfg, Logger(false))
	require.NoError(t, err)
	defer rt.Close()

	assert.Contains(t, rt.Engine.Actions(), "greet")
}

func TestNewRuntimeSecuredStore(t *testing.T) {
	ctx := context.Background()

	cfg := memoryConfig(filepath.Join(t.TempDir(), "absent"))
	cfg.Security = config.SecurityConfig{
		EncryptionKey: strings.Repeat("ab", 32),
		PIIPatterns:   "card, ^ssn$",
	}

	rt, err := NewRuntime(cfg, Logger(false))
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.Engine.SetVariable(ctx, "flow-1", "city", "Lisbon"))
	require.NoError(t, rt.Engine.SetVariable(ctx, "flow-1", "card_number", "4111-1111"))

	city, ok, err := rt.Engine.Variable(ctx, "flow-1", "city")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Lisbon", city)

	card, ok, err := rt.Engine.Variable(ctx, "flow-1", "card_number")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, middleware.Mask, card)
}

func TestSecureStoreRejectsBadKey(t *testing.T) {
	_, err := secureStore(nil, config.SecurityConfig{EncryptionKey: "not-hex"})
	assert.ErrorContains(t, err, "SENDA_ENCRYPTION_KEY")

	_, err = secureStore(nil, config.SecurityConfig{EncryptionKey: "abcd"})
	assert.ErrorContains(t, err, "32 bytes")
}

func TestSecureStoreNoConfigKeepsNil(t *testing.T) {
	st, err := secureStore(nil, config.SecurityConfig{})
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestPickFlow(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		requested string
		want      string
		wantErr   bool
	}{
		{name: "explicit match", available: []string{"a", "b"}, requested: "b", want: "b"},
		{name: "explicit miss", available: []string{"a"}, requested: "z", wantErr: true},
		{name: "single default", available: []string{"only"}, want: "only"},
		{name: "none", available: nil, wantErr: true},
		{name: "ambiguous", available: []string{"a", "b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickFlow(tt.available, tt.requested)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
