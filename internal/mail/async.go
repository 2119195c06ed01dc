package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultSendTimeout = 30 * time.Second

// Async hands messages to a background goroutine and returns immediately.
// Failures are logged and reported to OnError; they never reach the caller.
type Async struct {
	next    Sender
	logger  *slog.Logger
	timeout time.Duration
	onError func(error)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type AsyncOption func(*Async)

// WithOnError registers a callback run for every failed delivery.
func WithOnError(fn func(error)) AsyncOption {
	return func(a *Async) {
		a.onError = fn
	}
}

// WithSendTimeout bounds a single delivery attempt.
func WithSendTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func NewAsync(next Sender, logger *slog.Logger, opts ...AsyncOption) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{
		next:    next,
		logger:  logger,
		timeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Send schedules msg for delivery. The request context's values are kept but
// its cancellation is not, so the send outlives the HTTP response.
// Messages arriving after Wait has been called are logged and dropped.
func (a *Async) Send(ctx context.Context, msg Message) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.logger.WarnContext(ctx, "mail dropped after shutdown", "to", msg.To, "subject", msg.Subject)
		return nil
	}
	a.wg.Add(1)
	a.mu.Unlock()

	sendCtx := context.WithoutCancel(ctx)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(sendCtx, a.timeout)
		defer cancel()

		if err := a.next.Send(ctx, msg); err != nil {
			a.logger.ErrorContext(ctx, "mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
			if a.onError != nil {
				a.onError(err)
			}
		}
	}()
	return nil
}

// Wait stops accepting new messages and blocks until scheduled deliveries
// finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
