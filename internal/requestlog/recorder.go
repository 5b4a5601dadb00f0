package requestlog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ferro-labs/media-gateway/internal/metrics"
)

// Recorder queues entries and writes them on a background goroutine so
// request handling never waits on the database. Entries recorded while the
// queue is full, or after Close, are dropped and counted.
type Recorder struct {
	writer       Writer
	queue        chan Entry
	writeTimeout time.Duration
	logger       *slog.Logger

	wg sync.WaitGroup

	// mu guards closed and the send on queue against a concurrent Close.
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewRecorder starts a Recorder with the given queue size.
func NewRecorder(w Writer, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1000
	}
	r := &Recorder{
		writer:       w,
		queue:        make(chan Entry, buffer),
		writeTimeout: 5 * time.Second,
		logger:       slog.Default().With("component", "requestlog.recorder"),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Record enqueues e without blocking.
func (r *Recorder) Record(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop()
		return
	}
	select {
	case r.queue <- e:
	default:
		r.drop()
	}
}

func (r *Recorder) drop() {
	r.dropped.Add(1)
	metrics.RequestLogDropped.Inc()
}

// Dropped returns how many entries were discarded.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close drains the queue and stops the worker. It is safe to call Record
// concurrently with or after Close.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		if err := r.writer.Write(ctx, e); err != nil {
			r.logger.Warn("request log write failed", "error", err, "trace_id", e.TraceID)
		}
		cancel()
	}
}
