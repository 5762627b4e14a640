package semaphore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingAcquireRelease(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	a, err := s.Acquire(ctx)
	require.NoError(t, err)
	b, err := s.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	ctx2, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.Acquire(ctx2)
	assert.Error(t, err)

	s.Release(a)
	c, err := s.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestCountingLen(t *testing.T) {
	assert.Equal(t, 3, New(3).Len())
	assert.Equal(t, 1, New(0).Len())
}

func TestBinarySignalWait(t *testing.T) {
	b := NewBinary()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, b.Wait(ctx))

	b.Signal()
	b.Signal() // idempotent
	require.NoError(t, b.Wait(context.Background()))
}
