package middleware_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendahq/senda/pkg/adapters/memory"
	"github.com/sendahq/senda/pkg/state/middleware"
	"github.com/sendahq/senda/pkg/state/statetest"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestEncryptionRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	store := middleware.Chain(inner, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: testKey('a'),
	}))

	require.NoError(t, store.SetVariable(ctx, "wf-1", "secret", "hunter2"))

	// Through the middleware the plaintext comes back.
	v, ok, err := store.Variable(ctx, "wf-1", "secret")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", v)

	// At rest the value is an opaque base64 blob, not the plaintext.
	raw, ok, err := inner.Variable(ctx, "wf-1", "secret")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, "hunter2", raw)
	assert.NotContains(t, raw, "hunter2")
	_, err = base64.StdEncoding.DecodeString(raw)
	assert.NoError(t, err)
}

func TestEncryptionBulkAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store := middleware.Chain(memory.NewStore(), middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: testKey('a'),
	}))

	require.NoError(t, store.SetVariables(ctx, "wf-1", map[string]string{
		"City":  "lima",
		"phone": "+51 1 555 0100",
	}))

	vars, err := store.Variables(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"city": "lima", "phone": "+51 1 555 0100"}, vars)
}

func TestEncryptionKeyRotation(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()

	old := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: testKey('a')})(inner)
	require.NoError(t, old.SetVariable(ctx, "wf-1", "secret", "hunter2"))

	// New active key, old key demoted to fallback: reads still decrypt.
	rotated := middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey:    testKey('b'),
		FallbackKeys: [][]byte{testKey('a')},
	})(inner)

	v, ok, err := rotated.Variable(ctx, "wf-1", "secret")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", v)

	// A write re-seals under the new active key, readable without fallback.
	require.NoError(t, rotated.SetVariable(ctx, "wf-1", "secret", "hunter3"))
	fresh := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: testKey('b')})(inner)
	v, _, err = fresh.Variable(ctx, "wf-1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "hunter3", v)
}

func TestEncryptionWrongKeyFails(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()

	writer := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: testKey('a')})(inner)
	require.NoError(t, writer.SetVariable(ctx, "wf-1", "secret", "hunter2"))

	reader := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: testKey('x')})(inner)
	_, _, err := reader.Variable(ctx, "wf-1", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestEncryptionRejectsShortKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	})
}

// The encrypted store must still honor the full store contract: the
// decorator may not weaken atomicity or graceful defaults.
func TestEncryptionStoreContract(t *testing.T) {
	store := middleware.Chain(memory.NewStore(), middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: testKey('a'),
	}))
	statetest.Run(t, store)
}
