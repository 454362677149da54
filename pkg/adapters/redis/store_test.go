package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendahq/senda/pkg/adapters/redis"
	"github.com/sendahq/senda/pkg/state/statetest"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	return backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisStoreContract(t *testing.T) {
	store := redis.NewFromClient(newTestClient(t))
	statetest.Run(t, store)
}

func TestRedisStoreTTLExpiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	node, err := store.CurrentNode(ctx, "flow-ttl", "start")
	require.NoError(t, err)
	assert.Equal(t, "start", node)
	require.NoError(t, store.SetVariable(ctx, "flow-ttl", "drink", "espresso"))

	mr.FastForward(2 * time.Second)

	// The hash expired: the pointer re-initializes and the bag is empty.
	node, err = store.CurrentNode(ctx, "flow-ttl", "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", node)

	_, ok, err := store.Variable(ctx, "flow-ttl", "drink")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorePrefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.SetCurrentNode(ctx, "my-flow", "start"))

	assert.True(t, mr.Exists("custom:app:flow:my-flow"), "expected key with custom prefix")
}

func TestRedisStoreKeysAreCaseInsensitive(t *testing.T) {
	store := redis.NewFromClient(newTestClient(t))
	ctx := context.Background()

	require.NoError(t, store.SetVariable(ctx, "wf", "Drink", "espresso"))

	val, ok, err := store.Variable(ctx, "wf", "DRINK")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "espresso", val)

	vars, err := store.Variables(ctx, "wf")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"drink": "espresso"}, vars)
}
