package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cloo-solutions/supporthub/internal/logger"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor on a fixed interval until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	log          *logger.Logger
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

func NewWorker(processor JobProcessor, pollInterval time.Duration, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		log:          log.With("component", "worker"),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop and blocks until ctx is cancelled or Stop is
// called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	w.log.Info("worker started", "poll_interval", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.log.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				w.log.Error("error processing jobs", "error", err)
			}
		}
	}
}

// Stop signals the loop and waits for it to exit. Start must have been
// called.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}
