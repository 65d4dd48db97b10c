package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log records on shutdown.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncHandler decouples log emission from the caller: Handle enqueues the
// record and a background drainer writes it through the inner handler. When
// the queue is full the record is dropped rather than blocking a task
// operation on log IO.
type asyncHandler struct {
	inner   slog.Handler
	queue   chan slog.Record
	stop    *sync.Once
	drained *sync.WaitGroup
	dropped *atomic.Int64
}

// newAsyncHandler starts the drainer goroutine. Close stops it and waits
// until every queued record has been written.
func newAsyncHandler(inner slog.Handler, depth int) *asyncHandler {
	h := &asyncHandler{
		inner:   inner,
		queue:   make(chan slog.Record, depth),
		stop:    &sync.Once{},
		drained: &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	h.drained.Add(1)
	go func() {
		defer h.drained.Done()
		for rec := range h.queue {
			_ = h.inner.Handle(context.Background(), rec)
		}
	}()
	return h
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- rec:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs and WithGroup derive handlers that share the queue and drainer,
// so one Close flushes all of them.

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	d := *h
	d.inner = h.inner.WithAttrs(attrs)
	return &d
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	d := *h
	d.inner = h.inner.WithGroup(name)
	return &d
}

// Dropped reports how many records were discarded on queue overflow.
func (h *asyncHandler) Dropped() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and blocks until the queue is drained.
// Safe to call more than once.
func (h *asyncHandler) Close() {
	h.stop.Do(func() { close(h.queue) })
	h.drained.Wait()
}
