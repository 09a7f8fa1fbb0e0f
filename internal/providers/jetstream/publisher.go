// Package jetstream implements the messaging surface on NATS JetStream.
package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/galleryprotocol/nft-ledger/internal/adapter"
	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/logger"
	"github.com/galleryprotocol/nft-ledger/internal/messaging"
)

// Subject layout. Event subjects carry the event type, approval subjects the
// delegate, so consumers can subscribe to exactly what they care about.
const (
	eventSubjectPrefix    = "ledger.events"
	approvalSubjectPrefix = "ledger.approvals"
	paymentSubject        = "ledger.payments"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
}

// NewPublisher creates a new NATS JetStream publisher
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
	}, nil
}

// PublishEvent wraps the mutation data in the event envelope and publishes it
// on the subject for its type.
func (p *publisher) PublishEvent(ctx context.Context, event domain.EventType, data any) error {
	logger.Debug("Publishing ledger event", zap.String("event", string(event)), zap.Any("data", data))

	payload, err := p.json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	envelope, err := p.json.Marshal(domain.EventLog{
		Standard: domain.EventStandard,
		Version:  domain.EventVersion,
		Event:    event,
		Data:     json.RawMessage(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", eventSubjectPrefix, event)
	if _, err := p.js.Publish(ctx, subject, envelope); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// PublishApproval publishes an approval notification on the delegate's
// subject.
func (p *publisher) PublishApproval(ctx context.Context, notification domain.ApprovalNotification) error {
	data, err := p.json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal approval notification: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", approvalSubjectPrefix, notification.DelegateID)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish approval notification: %w", err)
	}

	return nil
}

// PublishPayment publishes a payment instruction for the value-movement
// collaborator.
func (p *publisher) PublishPayment(ctx context.Context, instruction domain.PaymentInstruction) error {
	data, err := p.json.Marshal(instruction)
	if err != nil {
		return fmt.Errorf("failed to marshal payment instruction: %w", err)
	}

	if _, err := p.js.Publish(ctx, paymentSubject, data); err != nil {
		return fmt.Errorf("failed to publish payment instruction: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
