// Package sink forwards session changes to the record store without ever
// blocking or failing the session that produced them.
package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/valentine/internal/domain"
	"github.com/ashureev/valentine/internal/store"
)

const (
	defaultQueueSize    = 32
	defaultWriteTimeout = 5 * time.Second
)

// Config tunes an Async sink.
type Config struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// Async writes one session's record in the background.
// The record is created first and updates are applied in submission order.
// When the queue is full the oldest pending update is dropped. Failures are
// logged and swallowed; nothing is retried.
type Async struct {
	rec     store.Recorder
	key     string
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	queue   chan domain.Patch
	started bool
	closed  bool
	done    chan struct{}

	idMu sync.RWMutex
	id   string
}

// NewAsync creates a sink for the session identified by key.
func NewAsync(rec store.Recorder, key string, cfg Config, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	return &Async{
		rec:     rec,
		key:     key,
		timeout: cfg.WriteTimeout,
		logger:  logger,
		queue:   make(chan domain.Patch, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Create starts the background writer and inserts the record for name.
// Only the first call has an effect.
func (a *Async) Create(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.closed {
		return
	}
	a.started = true
	go a.run(name)
}

// Update queues a partial update of the record.
func (a *Async) Update(patch domain.Patch) {
	if patch.IsEmpty() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	select {
	case a.queue <- patch:
		return
	default:
	}

	// Full: drop the oldest pending update to make room.
	select {
	case <-a.queue:
		a.logger.Warn("Sink queue full, dropped oldest update", "session_key", a.key)
	default:
	}
	select {
	case a.queue <- patch:
	default:
		a.logger.Warn("Sink queue full, dropped update", "session_key", a.key)
	}
}

// RecordID returns the ID assigned by the store, or "" until the record exists.
func (a *Async) RecordID() string {
	a.idMu.RLock()
	defer a.idMu.RUnlock()
	return a.id
}

// Close stops accepting updates and returns at once. Queued writes are
// still applied in the background; Wait blocks until they are done.
func (a *Async) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.queue)
}

// Wait blocks until the writer has applied everything queued before Close,
// or until ctx is done. It returns immediately if the record was never
// created.
func (a *Async) Wait(ctx context.Context) error {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) run(name string) {
	defer close(a.done)

	created := a.create(name)
	for patch := range a.queue {
		if !created {
			a.logger.Debug("Sink update skipped, record was never created", "session_key", a.key)
			continue
		}
		a.update(patch)
	}
}

func (a *Async) create(name string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	resp := domain.NewResponse(name, time.Now())
	if err := a.rec.CreateResponse(ctx, resp); err != nil {
		a.logFailure("create", err)
		return false
	}

	a.idMu.Lock()
	a.id = resp.ID
	a.idMu.Unlock()

	a.logger.Debug("Sink record created", "session_key", a.key, "record_id", resp.ID)
	return true
}

func (a *Async) update(patch domain.Patch) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.rec.UpdateResponse(ctx, a.RecordID(), patch); err != nil {
		a.logFailure("update", err)
	}
}

func (a *Async) logFailure(op string, err error) {
	if store.IsBusy(err) {
		a.logger.Debug("Sink write lost to database contention", "op", op, "session_key", a.key, "error", err)
		return
	}
	a.logger.Warn("Sink write failed", "op", op, "session_key", a.key, "error", err)
}

// Nop discards everything. It is used when the sink is disabled.
type Nop struct{}

// Create does nothing.
func (Nop) Create(string) {}

// Update does nothing.
func (Nop) Update(domain.Patch) {}

// Close does nothing.
func (Nop) Close() {}

// Wait returns nil.
func (Nop) Wait(context.Context) error { return nil }
