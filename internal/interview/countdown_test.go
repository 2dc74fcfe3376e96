package interview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdownRunEmitsEveryValue(t *testing.T) {
	var got []int
	err := NewCountdown(3, time.Millisecond).Run(context.Background(), func(n int) {
		got = append(got, n)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1, 0}, got)
}

func TestCountdownIsSingleUse(t *testing.T) {
	c := NewCountdown(1, time.Millisecond)
	require.NoError(t, c.Run(context.Background(), nil))
	assert.ErrorIs(t, c.Run(context.Background(), nil), ErrCountdownConsumed)
}

func TestCountdownCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var got []int
	err := NewCountdown(5, time.Hour).Run(ctx, func(n int) {
		got = append(got, n)
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{5}, got)
}

func TestCountdownAlreadyCancelledNeverTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewCountdown(3, time.Millisecond).Run(ctx, func(int) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCountdownCancelledDoesNotLeakIntoNext(t *testing.T) {
	oldCtx, cancelOld := context.WithCancel(context.Background())
	oldDone := make(chan error, 1)
	oldTicks := make(chan int, 16)
	go func() {
		oldDone <- NewCountdown(3, 20*time.Millisecond).Run(oldCtx, func(n int) { oldTicks <- n })
	}()
	<-oldTicks
	cancelOld()

	var got []int
	require.NoError(t, NewCountdown(2, time.Millisecond).Run(context.Background(), func(n int) {
		got = append(got, n)
	}))
	assert.Equal(t, []int{2, 1, 0}, got)

	select {
	case err := <-oldDone:
		assert.ErrorIs(t, err, context.Canceled, "a cancelled countdown never reports completion")
	case <-time.After(time.Second):
		t.Fatal("cancelled countdown did not return")
	}
	close(oldTicks)
	for n := range oldTicks {
		assert.NotEqual(t, 0, n)
	}
}

func TestCountdownValues(t *testing.T) {
	values, wait := NewCountdown(2, time.Millisecond).Values(context.Background())
	var got []int
	for n := range values {
		got = append(got, n)
	}
	assert.Equal(t, []int{2, 1, 0}, got)
	assert.NoError(t, wait())
}

func TestCountdownValuesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	values, wait := NewCountdown(10, time.Hour).Values(ctx)
	assert.Equal(t, 10, <-values)
	cancel()
	for range values {
	}
	assert.ErrorIs(t, wait(), context.Canceled)
}

func TestNewCountdownDefaults(t *testing.T) {
	c := NewCountdown(-2, 0)
	assert.Equal(t, 0, c.start)
	assert.Equal(t, time.Second, c.tick)
}
