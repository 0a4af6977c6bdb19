package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"climatrack/internal/metrics"
)

var (
	// ErrQueueFull is returned when the delivery queue has no room; the
	// notification is dropped.
	ErrQueueFull = errors.New("notify: delivery queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("notify: notifier closed")
)

// Async queues notifications and delivers them to inner from a single
// worker, so callers never wait on the broker. Each delivery gets its own
// deadline, detached from the caller's context.
type Async struct {
	inner   Notifier
	timeout time.Duration
	log     zerolog.Logger

	queue chan ResetNotification
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ Notifier = (*Async)(nil)

// NewAsync starts the delivery worker. buffer bounds the queue.
func NewAsync(inner Notifier, buffer int, timeout time.Duration, log zerolog.Logger) *Async {
	a := &Async{
		inner:   inner,
		timeout: timeout,
		log:     log,
		queue:   make(chan ResetNotification, buffer),
		done:    make(chan struct{}),
	}
	go a.worker()
	return a
}

// NotifyPasswordReset enqueues msg and returns at once.
func (a *Async) NotifyPasswordReset(_ context.Context, msg ResetNotification) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- msg:
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues("async", "dropped").Inc()
		a.log.Warn().Int("capacity", cap(a.queue)).Msg("notification queue full, dropping password reset notification")
		return ErrQueueFull
	}
}

func (a *Async) worker() {
	defer close(a.done)
	for msg := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.inner.NotifyPasswordReset(ctx, msg); err != nil {
			a.log.Warn().Err(err).Msg("deliver password reset notification")
		}
		cancel()
	}
}

// Close stops accepting notifications, waits for the queued ones to be
// delivered and closes inner.
func (a *Async) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	<-a.done
	return a.inner.Close()
}
