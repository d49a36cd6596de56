// Package workers tracks goroutines spawned for connections and background
// jobs so that shutdown can cancel and join all of them in one place.
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrShutdown reports a Spawn after Shutdown started.
var ErrShutdown = errors.New("worker registry shut down")

// Task is one spawned unit of work.
type Task struct {
	ID      string
	Name    string
	Started time.Time

	done chan struct{}
	err  error
}

// Done is closed when the task function returns.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Registry owns a set of running tasks.
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	tasks    map[string]*Task
	closed   bool
	wg       sync.WaitGroup
	finished chan struct{}
}

// New returns a registry whose tasks observe a context derived from parent.
func New(parent context.Context) *Registry {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Registry{
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(map[string]*Task),
		finished: make(chan struct{}, 1),
	}
}

// Spawn runs fn on a new goroutine and tracks it until reaped.
func (r *Registry) Spawn(name string, fn func(ctx context.Context) error) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrShutdown
	}
	task := &Task{
		ID:      uuid.NewString(),
		Name:    name,
		Started: time.Now(),
		done:    make(chan struct{}),
	}
	r.tasks[task.ID] = task
	r.wg.Add(1)
	go r.run(task, fn)
	return task, nil
}

func (r *Registry) run(task *Task, fn func(context.Context) error) {
	defer r.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			task.err = fmt.Errorf("worker %s panicked: %v", task.Name, p)
		}
		close(task.done)
		select {
		case r.finished <- struct{}{}:
		default:
		}
	}()
	task.err = fn(r.ctx)
}

// Finished receives a value whenever at least one task has completed since
// the last receive.
func (r *Registry) Finished() <-chan struct{} {
	return r.finished
}

// Reap removes completed tasks from the registry and returns them.
func (r *Registry) Reap() []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reaped []*Task
	for id, task := range r.tasks {
		select {
		case <-task.done:
			reaped = append(reaped, task)
			delete(r.tasks, id)
		default:
		}
	}
	return reaped
}

// Active returns the number of tracked tasks that have not been reaped.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Shutdown refuses new tasks, cancels the shared context and joins every
// running task until ctx ends. Joined tasks stay registered for Reap.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	joined := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("join workers: %w", ctx.Err())
	}
}
