package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/domain/notification"
	applog "github.com/Miraines/gadgets-store/auth-service/internal/infra/log"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var ErrSenderClosed = errors.New("mail: sender closed")

type AsyncOptions struct {
	MaxRetries     uint64
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// AsyncSender hands messages to a background goroutine that retries with
// exponential backoff. Send returns as soon as the message is accepted.
type AsyncSender struct {
	next notification.Sender
	opts AsyncOptions
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewAsyncSender(next notification.Sender, opts AsyncOptions, log *zap.Logger) *AsyncSender {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncSender{next: next, opts: opts, log: log, ctx: ctx, cancel: cancel}
}

func (s *AsyncSender) Send(_ context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(msg)
	}()
	return nil
}

func (s *AsyncSender) deliver(msg notification.Message) {
	backoff := retry.WithMaxRetries(s.opts.MaxRetries, retry.NewExponential(s.opts.BaseDelay))

	attempt := 0
	err := retry.Do(s.ctx, backoff, func(ctx context.Context) error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
		defer cancel()

		if err := s.next.Send(actx, msg); err != nil {
			s.log.Debug("mail attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("mail delivery abandoned",
			applog.Email("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
	}
}

// Shutdown stops accepting messages and waits for in-flight deliveries.
// When ctx expires first, pending retries are cancelled.
func (s *AsyncSender) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
