package serial

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsTasksInSubmissionOrder(t *testing.T) {
	e := New(16)
	defer e.Close()

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, e.Do(context.Background(), func() {
			order = append(order, i)
		}))
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestDoSerializesConcurrentSubmitters(t *testing.T) {
	e := New(64)
	defer e.Close()

	// A plain int mutated from many goroutines; the executor is the only
	// thing keeping this data-race free.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Do(context.Background(), func() {
				counter++
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestDoWaitsForCompletion(t *testing.T) {
	e := New(1)
	defer e.Close()

	ran := false
	require.NoError(t, e.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran, "Do must not return before the task has run")
}

func TestDoAfterClose(t *testing.T) {
	e := New(1)
	e.Close()

	err := e.Do(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	e := New(1)
	e.Close()
	assert.NotPanics(t, func() { e.Close() })
}

func TestDoHonorsContextWhileQueueFull(t *testing.T) {
	e := New(0)

	block := make(chan struct{})
	go func() {
		_ = e.Do(context.Background(), func() { <-block })
	}()

	// Wait for the blocking task to occupy the loop.
	started := make(chan struct{})
	go func() {
		close(started)
		_ = e.Do(context.Background(), func() {})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.Canceled)

	close(block)
	e.Close()
}
