package notebook

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/laguz/internal/storage"
)

const (
	createAttempts = 3
	createBackoff  = 100 * time.Millisecond
)

// Creator writes empty backing files for newly created blocks off the
// request path. CreateBlock enqueues and returns immediately; the worker
// retries transient failures and logs the path when it gives up, leaving
// the dangling ref for the startup sync pass to report.
type Creator struct {
	store  storage.Provider
	logger *slog.Logger

	reqCh   chan string
	stopped chan struct{}
	closed  atomic.Bool
}

// NewCreator starts the background worker.
func NewCreator(store storage.Provider, logger *slog.Logger) *Creator {
	c := &Creator{
		store:   store,
		logger:  logger,
		reqCh:   make(chan string, 256),
		stopped: make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Creator) run() {
	defer close(c.stopped)
	for path := range c.reqCh {
		c.create(path)
	}
}

func (c *Creator) create(path string) {
	var err error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		if err = c.store.Write(path, nil); err == nil {
			c.logger.Debug("backing file created", slog.String("path", path))
			return
		}
		if attempt < createAttempts {
			time.Sleep(time.Duration(attempt) * createBackoff)
		}
	}
	c.logger.Error("backing file creation failed",
		slog.String("path", path),
		slog.Int("attempts", createAttempts),
		slog.String("error", err.Error()))
}

// Enqueue requests creation of an empty file at path. Never blocks: when
// the queue is full the request is dropped with a log line, which leaves
// the same dangling ref as an exhausted retry.
func (c *Creator) Enqueue(path string) {
	if c.closed.Load() {
		return
	}
	select {
	case c.reqCh <- path:
	default:
		c.logger.Warn("creator queue full, dropping request", slog.String("path", path))
	}
}

// Close drains outstanding requests and stops the worker.
func (c *Creator) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.reqCh)
	}
	<-c.stopped
}
