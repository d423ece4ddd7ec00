// Package worker provides an asynchronous worker pool that publishes committed
// turn events through an eventstream.Publisher.
//
// The pool decouples publishing from the turn request path so a slow or
// unreachable event stream never delays a learner's reply.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher is the event stream backend.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each publish call (defaults to 10s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.TurnCommittedEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.TurnCommittedEvent, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits an event for publishing.
// Returns true if enqueued, false if the queue is full, resulting in the event being dropped
func (p *Pool) Enqueue(event *eventstream.TurnCommittedEvent) bool {
	if event == nil {
		return false
	}

	select {
	case p.queue <- event:
		p.logger.Debug("turn event queued",
			"session_id", event.Turn.SessionID,
			"turn_index", event.Turn.Index,
		)
		return true
	default:
		p.logger.Error("turn event not queued, queue full, event dropped",
			"session_id", event.Turn.SessionID,
			"turn_index", event.Turn.Index,
		)
		return false
	}
}

// Close signals workers to stop, waits for queued events to drain and closes
// the publisher. Call it after the HTTP server has stopped accepting turns.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		err = p.config.Publisher.Close()
	})
	return err
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *eventstream.TurnCommittedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Error("publishing turn event failed",
			"session_id", event.Turn.SessionID,
			"turn_index", event.Turn.Index,
			"error", err,
		)
		return
	}

	p.logger.Debug("turn event published",
		"event_id", event.EventID,
		"session_id", event.Turn.SessionID,
	)
}
