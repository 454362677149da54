package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockTableDoesNotLeak(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		id := fmt.Sprintf("wf-%d", i)
		_ = mgr.Do(ctx, id, func(context.Context) error { return nil })
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Empty(t, mgr.locks, "lock entries must be garbage collected at refcount zero")
}

func TestLockTableDrainsUnderContention(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.Do(ctx, "wf-contended", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Empty(t, mgr.locks)
}
