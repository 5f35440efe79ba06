// Package shutdownqueue provides a process-wide LIFO queue of named cleanup
// tasks.
//
// Register tasks as resources are opened and drain the queue once at the end
// of main:
//
//	db := open()
//	shutdownqueue.Add("close db", func(context.Context) error { return db.Close() })
//	...
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	err := shutdownqueue.Shutdown(ctx)
//
// Tasks run once, newest first, so dependents close before their
// dependencies. Panics are recovered and reported as errors. Every task error
// is wrapped with the task name and joined into the returned error.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a shutdown function. It should honor ctx.
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	run  Task
}

type queue struct {
	mu     sync.Mutex
	tasks  []namedTask
	closed bool
}

var q = &queue{tasks: make([]namedTask, 0, 8)}

// Add registers a task under name. Nil tasks, and tasks added once Shutdown
// has started, are ignored.
func Add(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		slog.Warn("shutdown task added after shutdown started", "task", name)
		return
	}

	q.tasks = append(q.tasks, namedTask{name: name, run: t})
}

// Shutdown runs all registered tasks in LIFO order. Later calls are no-ops.
//
// When ctx ends mid-drain the remaining tasks are skipped and the context
// error is joined with the task errors collected so far.
func Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()

		return nil
	}

	q.closed = true
	tasks := q.tasks
	q.tasks = nil

	q.mu.Unlock()

	var errs []error

	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]

		if ctx.Err() != nil {
			skipped := make([]string, 0, i+1)
			for j := i; j >= 0; j-- {
				skipped = append(skipped, tasks[j].name)
			}

			errs = append(errs, fmt.Errorf("shutdown canceled, skipped %v: %w", skipped, ctx.Err()))

			return errors.Join(errs...)
		}

		start := time.Now()

		err := runTask(ctx, t)
		if err != nil {
			slog.Error("shutdown task failed", "task", t.name, "error", err)
			errs = append(errs, err)

			continue
		}

		slog.Debug("shutdown task done", "task", t.name, "took", time.Since(start))
	}

	return errors.Join(errs...)
}

func runTask(ctx context.Context, t namedTask) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("%s: panic: %v", t.name, r)
		}
	}()

	err = t.run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}

	return nil
}
