package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/telemetry"
)

// ErrDispatcherClosed is delivered for tasks submitted after Close.
var ErrDispatcherClosed = errors.New("indexing dispatcher is closed")

// Task is a unit of background work. It receives a context detached from
// the submitting request and bounded by the dispatcher's task timeout.
type Task func(ctx context.Context) error

// Dispatcher runs tasks on their own goroutines and keeps track of them so
// shutdown can wait for in-flight work.
type Dispatcher struct {
	taskTimeout time.Duration
	log         *logger.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(taskTimeout time.Duration, log *logger.Logger) *Dispatcher {
	if taskTimeout <= 0 {
		taskTimeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		taskTimeout: taskTimeout,
		log:         log.With("component", "indexing_dispatcher"),
		baseCtx:     ctx,
		cancel:      cancel,
	}
}

// Go starts task in the background. The returned channel receives the
// task's result exactly once and is then closed; callers may ignore it.
func (d *Dispatcher) Go(name string, task Task) <-chan error {
	result := make(chan error, 1)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		result <- ErrDispatcherClosed
		close(result)
		return result
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer close(result)

		ctx, cancel := context.WithTimeout(d.baseCtx, d.taskTimeout)
		defer cancel()

		result <- d.run(ctx, name, task)
	}()

	return result
}

func (d *Dispatcher) run(ctx context.Context, name string, task Task) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", name, r)
		}
		if err != nil {
			d.log.Warn("background task failed", "task", name, "error", err, "duration", time.Since(start))
			telemetry.CaptureError(ctx, err)
			return
		}
		d.log.Debug("background task finished", "task", name, "duration", time.Since(start))
	}()

	return task(ctx)
}

// Close stops accepting tasks and waits for running ones. If ctx ends
// first, running tasks are cancelled and ctx's error is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
