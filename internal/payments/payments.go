// Package payments executes value movement for refunds and storage releases.
// The ledger itself never holds balances; it instructs a collaborator.
package payments

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/messaging"
)

// Transferrer credits an account with an amount.
type Transferrer interface {
	Transfer(ctx context.Context, accountID domain.AccountID, amount *uint256.Int, memo string) error
}

// BrokerTransferrer publishes payment instructions to the message broker,
// where the value-movement collaborator executes them.
type BrokerTransferrer struct {
	publisher messaging.Publisher
}

// NewBrokerTransferrer creates a transferrer backed by the given publisher.
func NewBrokerTransferrer(publisher messaging.Publisher) *BrokerTransferrer {
	return &BrokerTransferrer{publisher: publisher}
}

// Transfer publishes a payment instruction. Zero amounts are skipped.
func (t *BrokerTransferrer) Transfer(ctx context.Context, accountID domain.AccountID, amount *uint256.Int, memo string) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	err := t.publisher.PublishPayment(ctx, domain.PaymentInstruction{
		AccountID: accountID,
		Amount:    amount.Dec(),
		Memo:      memo,
	})
	if err != nil {
		return fmt.Errorf("failed to instruct payment to %s: %w", accountID, err)
	}
	return nil
}
