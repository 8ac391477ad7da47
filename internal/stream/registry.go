package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrRegistryClosed is returned by Register once Shutdown has begun.
	ErrRegistryClosed = errors.New("stream: registry closed")

	// ErrShutdown is the cancellation cause handed to channels on server shutdown.
	ErrShutdown = errors.New("stream: server shutting down")
)

// Registry tracks every open notification channel so shutdown can cancel
// them and wait until each has closed.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	handles map[uint64]context.CancelCauseFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[uint64]context.CancelCauseFunc)}
}

// Handle is one registered channel. Close must be called exactly when the
// channel is done; extra calls are ignored.
type Handle struct {
	id   uint64
	ctx  context.Context
	reg  *Registry
	once sync.Once
}

// Register adds a channel derived from parent. The returned handle's context
// is cancelled by Shutdown or when parent is done.
func (r *Registry) Register(parent context.Context) (*Handle, error) {
	ctx, cancel := context.WithCancelCause(parent)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		cancel(ErrRegistryClosed)
		return nil, ErrRegistryClosed
	}
	r.nextID++
	id := r.nextID
	r.handles[id] = cancel
	r.wg.Add(1)

	return &Handle{id: id, ctx: ctx, reg: r}, nil
}

// Context is cancelled when the channel should stop.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Close deregisters the channel.
func (h *Handle) Close() {
	h.once.Do(func() {
		h.reg.mu.Lock()
		cancel := h.reg.handles[h.id]
		delete(h.reg.handles, h.id)
		h.reg.mu.Unlock()

		if cancel != nil {
			cancel(context.Canceled)
		}
		h.reg.wg.Done()
	})
}

// Len reports how many channels are registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Shutdown stops new registrations, cancels every open channel with
// ErrShutdown and waits for all of them to Close or for ctx to end.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	cancels := make([]context.CancelCauseFunc, 0, len(r.handles))
	for _, cancel := range r.handles {
		cancels = append(cancels, cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel(ErrShutdown)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stream: %d channels still open: %w", r.Len(), ctx.Err())
	}
}
