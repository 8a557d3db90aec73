package core

import (
	"context"
	"sync"
	"testing"

	"github.com/huangsam/reposcout/internal/iocache"
	"github.com/stretchr/testify/assert"
)

// TestContextConcurrentAccess tests that context values can be safely accessed concurrently.
func TestContextConcurrentAccess(t *testing.T) {
	ctx := context.Background()

	const numGoroutines = 50
	done := make(chan bool, numGoroutines)

	mgr := &iocache.MockStoreManager{}
	ctx = withSuppressHeader(ctx)
	ctx = withRunID(ctx, "run-12345")
	ctx = contextWithStoreManager(ctx, mgr)

	for i := range numGoroutines {
		go func(id int) {
			defer func() { done <- true }()

			suppress := shouldSuppressHeader(ctx)
			runID, ok := getRunID(ctx)

			assert.True(t, suppress, "Goroutine %d: shouldSuppressHeader should be true", id)
			assert.True(t, ok, "Goroutine %d: getRunID should return true", id)
			assert.Equal(t, "run-12345", runID, "Goroutine %d: runID mismatch", id)
			assert.Same(t, mgr, storeManagerFromContext(ctx), "Goroutine %d: store manager mismatch", id)
		}(i)
	}

	for range numGoroutines {
		<-done
	}
}

// TestContextIsolation tests that different contexts maintain isolation.
func TestContextIsolation(t *testing.T) {
	baseCtx := context.Background()

	ctx1 := withRunID(baseCtx, "a")
	ctx2 := withRunID(baseCtx, "b")
	ctx3 := withSuppressHeader(baseCtx)

	var wg sync.WaitGroup
	wg.Go(func() {
		id, ok := getRunID(ctx1)
		assert.True(t, ok)
		assert.Equal(t, "a", id)
		assert.False(t, shouldSuppressHeader(ctx1))
	})
	wg.Go(func() {
		id, ok := getRunID(ctx2)
		assert.True(t, ok)
		assert.Equal(t, "b", id)
	})
	wg.Go(func() {
		_, ok := getRunID(ctx3)
		assert.False(t, ok)
		assert.True(t, shouldSuppressHeader(ctx3))
		assert.Nil(t, storeManagerFromContext(ctx3))
	})
	wg.Wait()
}

// TestContextDefaults tests the defaults of an empty context.
func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	assert.False(t, shouldSuppressHeader(ctx))
	_, ok := getRunID(ctx)
	assert.False(t, ok)
	_, ok = getRunID(withRunID(ctx, ""))
	assert.False(t, ok)
	assert.Nil(t, storeManagerFromContext(contextWithStoreManager(ctx, nil)))
}
