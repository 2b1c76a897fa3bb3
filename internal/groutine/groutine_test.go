package groutine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_NamePropagates(t *testing.T) {
	got := make(chan string, 1)

	Go(context.Background(), "test-worker", func(ctx context.Context) {
		got <- Name(ctx)
	})

	select {
	case name := <-got:
		assert.Equal(t, "test-worker", name)
	case <-time.After(2 * time.Second):
		require.Fail(t, "goroutine did not run")
	}
}

func TestGo_NilParentContext(t *testing.T) {
	done := make(chan struct{})

	Go(nil, "orphan", func(ctx context.Context) {
		assert.NotNil(t, ctx)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "goroutine did not run")
	}
}

func TestName_OutsideGo(t *testing.T) {
	assert.Equal(t, "", Name(context.Background()))
	assert.Equal(t, "", Name(nil))
}
