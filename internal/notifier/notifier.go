// Package notifier delivers approval notifications to delegates. Delivery is
// best effort: it happens after the approval is committed, retries with
// backoff for a bounded time, and failures are logged and dropped without
// affecting the ledger.
package notifier

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/logger"
	"github.com/galleryprotocol/nft-ledger/internal/messaging"
)

// Notifier dispatches approval notifications asynchronously.
type Notifier interface {
	// Notify queues a notification for delivery. It never blocks the
	// caller beyond queue admission and never reports delivery failure.
	Notify(notification domain.ApprovalNotification)
	// Shutdown stops accepting notifications and waits for in-flight
	// deliveries to finish.
	Shutdown()
}

// Config sizes the delivery pool.
type Config struct {
	Workers        int
	QueueSize      int
	MaxElapsedTime time.Duration
}

type poolNotifier struct {
	pool       pond.Pool
	publisher  messaging.Publisher
	maxElapsed time.Duration
}

// New creates a notifier delivering through the given publisher.
func New(ctx context.Context, cfg Config, publisher messaging.Publisher) Notifier {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}

	return &poolNotifier{
		pool:       pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.QueueSize), pond.WithContext(ctx)),
		publisher:  publisher,
		maxElapsed: cfg.MaxElapsedTime,
	}
}

func (n *poolNotifier) Notify(notification domain.ApprovalNotification) {
	_, ok := n.pool.TrySubmit(func() {
		n.deliver(notification)
	})
	if !ok {
		logger.Warn("approval notification dropped, queue full",
			zap.String("token_id", string(notification.TokenID)),
			zap.String("delegate_id", string(notification.DelegateID)))
	}
}

func (n *poolNotifier) deliver(notification domain.ApprovalNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), n.maxElapsed)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = n.maxElapsed

	err := backoff.Retry(func() error {
		return n.publisher.PublishApproval(ctx, notification)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		logger.Warn("approval notification delivery failed",
			zap.String("token_id", string(notification.TokenID)),
			zap.String("delegate_id", string(notification.DelegateID)),
			zap.Uint64("approval_id", notification.ApprovalID),
			zap.Error(err))
	}
}

func (n *poolNotifier) Shutdown() {
	n.pool.StopAndWait()
}
