package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// captureHandler records what reaches the inner handler.
type captureHandler struct {
	mu    sync.Mutex
	got   []string
	delay time.Duration
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.got = append(h.got, rec.Message)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.got)
}

func record(msg string) slog.Record {
	return slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0)
}

func TestAsyncDeliversRecord(t *testing.T) {
	inner := &captureHandler{}
	h := newAsyncHandler(inner, 16)

	if err := h.Handle(context.Background(), record("task claimed")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	h.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}
}

func TestAsyncCloseFlushesQueue(t *testing.T) {
	inner := &captureHandler{}
	h := newAsyncHandler(inner, 512)

	const total = 300
	for range total {
		_ = h.Handle(context.Background(), record("bulk item"))
	}
	h.Close()

	if got := inner.count(); got != total {
		t.Fatalf("expected %d records after close, got %d", total, got)
	}
}

func TestAsyncConcurrentProducers(t *testing.T) {
	inner := &captureHandler{}
	h := newAsyncHandler(inner, 8192)

	const producers, each = 50, 100
	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				_ = h.Handle(context.Background(), record("concurrent"))
			}
		}()
	}
	wg.Wait()
	h.Close()

	if got := inner.count(); got != producers*each {
		t.Fatalf("expected %d records, got %d", producers*each, got)
	}
}

func TestAsyncOverflowDropsInsteadOfBlocking(t *testing.T) {
	inner := &captureHandler{delay: 5 * time.Millisecond}
	h := newAsyncHandler(inner, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 40 {
			_ = h.Handle(context.Background(), record("flood"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle blocked on a full queue")
	}
	h.Close()

	if h.Dropped() == 0 {
		t.Fatal("expected overflow drops, got none")
	}
}

func TestAsyncCloseIdempotent(t *testing.T) {
	h := newAsyncHandler(&captureHandler{}, 4)
	h.Close()
	h.Close()
}

func TestAsyncWithAttrsSharesDrainer(t *testing.T) {
	inner := &captureHandler{}
	h := newAsyncHandler(inner, 16)
	derived := h.WithAttrs([]slog.Attr{slog.String("component", "bulk")})

	_ = derived.Handle(context.Background(), record("derived"))
	h.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("expected the derived handler to share the queue, got %d records", got)
	}
}
