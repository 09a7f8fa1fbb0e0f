// Package messaging defines the outbound message surface of the ledger.
package messaging

import (
	"context"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
)

// Publisher delivers committed ledger events and notifications to the message
// broker.
type Publisher interface {
	// PublishEvent publishes a ledger mutation in the structured event
	// envelope on the event subject for its type.
	PublishEvent(ctx context.Context, event domain.EventType, data any) error
	// PublishApproval delivers an approval notification on the delegate's
	// subject.
	PublishApproval(ctx context.Context, notification domain.ApprovalNotification) error
	// PublishPayment hands a payment instruction to the value-movement
	// collaborator.
	PublishPayment(ctx context.Context, instruction domain.PaymentInstruction) error
	// Close closes the connection
	Close()
}
