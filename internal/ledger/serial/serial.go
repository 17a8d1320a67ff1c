// Package serial provides an executor that runs submitted tasks one at a
// time in submission order. The engine routes every public operation and
// the payroll pass through a single executor, so two operations can never
// interleave mid-mutation.
package serial

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Do after the executor has been closed.
var ErrClosed = errors.New("executor closed")

type task struct {
	fn   func()
	done chan struct{}
}

// Executor serializes task execution on a single goroutine.
type Executor struct {
	tasks     chan task
	closed    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts an executor with the given submission buffer.
func New(buffer int) *Executor {
	e := &Executor{
		tasks:  make(chan task, buffer),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		select {
		case t := <-e.tasks:
			t.fn()
			close(t.done)
		case <-e.closed:
			// Drain tasks that were accepted before close.
			for {
				select {
				case t := <-e.tasks:
					t.fn()
					close(t.done)
				default:
					return
				}
			}
		}
	}
}

// Do submits fn and blocks until it has run. Once fn is accepted it always
// runs to completion; ctx only bounds the wait for a queue slot.
func (e *Executor) Do(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case e.tasks <- t:
		select {
		case <-t.done:
			return nil
		case <-e.done:
			// The loop exited before picking this task up.
			select {
			case <-t.done:
				return nil
			default:
				return ErrClosed
			}
		}
	case <-e.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the executor after finishing tasks already accepted. It is
// safe to call more than once.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		close(e.closed)
	})
	<-e.done
}
