// Package rent prices ledger storage. Every entry the ledger persists has a
// deterministic byte footprint; the accountant converts footprints to amounts
// at a fixed per-byte cost and settles the difference against the payment
// attached to an operation.
package rent

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
)

// Serialization overhead per stored field: a 4-byte length prefix for
// variable-length values, 8 bytes for a u64, 4 bytes for a u32.
const (
	lenPrefixBytes  = 4
	approvalIDBytes = 8
	basisPointBytes = 4
)

// ApprovalEntryBytes is the footprint of one approval map entry.
func ApprovalEntryBytes(delegateID domain.AccountID) uint64 {
	return uint64(len(delegateID)) + lenPrefixBytes + approvalIDBytes
}

// RoyaltyEntryBytes is the footprint of one royalty map entry.
func RoyaltyEntryBytes(recipientID domain.AccountID) uint64 {
	return uint64(len(recipientID)) + lenPrefixBytes + basisPointBytes
}

// TokenEntryBytes is the footprint of the token record itself, excluding its
// approval and royalty entries.
func TokenEntryBytes(tokenID domain.TokenID, ownerID domain.AccountID) uint64 {
	return uint64(len(tokenID)) + lenPrefixBytes + uint64(len(ownerID)) + lenPrefixBytes + approvalIDBytes
}

// MetadataEntryBytes is the footprint of a token's metadata document.
func MetadataEntryBytes(tokenID domain.TokenID, metadata []byte) uint64 {
	return uint64(len(tokenID)) + lenPrefixBytes + uint64(len(metadata)) + lenPrefixBytes
}

// MintBytes is the total footprint of a freshly minted token: the token
// record, its royalty entries and its metadata document.
func MintBytes(tokenID domain.TokenID, ownerID domain.AccountID, royalty domain.RoyaltyMap, metadata []byte) uint64 {
	total := TokenEntryBytes(tokenID, ownerID) + MetadataEntryBytes(tokenID, metadata)
	for recipient := range royalty {
		total += RoyaltyEntryBytes(recipient)
	}
	return total
}

// ApprovalsBytes sums the footprints of a token's approval entries.
func ApprovalsBytes(approvals map[domain.AccountID]uint64) uint64 {
	var total uint64
	for delegate := range approvals {
		total += ApprovalEntryBytes(delegate)
	}
	return total
}

// Accountant settles storage charges and releases at a fixed per-byte cost.
type Accountant struct {
	byteCost      *uint256.Int
	dustThreshold *uint256.Int
}

// NewAccountant builds an accountant. Refunds at or below dustThreshold are
// dropped rather than paid out.
func NewAccountant(byteCost, dustThreshold *uint256.Int) *Accountant {
	return &Accountant{
		byteCost:      byteCost.Clone(),
		dustThreshold: dustThreshold.Clone(),
	}
}

// Cost converts a byte footprint to an amount at the configured byte cost.
func (a *Accountant) Cost(bytesUsed uint64) *uint256.Int {
	return new(uint256.Int).Mul(a.byteCost, uint256.NewInt(bytesUsed))
}

// Charge settles the cost of bytesUsed against the attached payment. It
// returns the refund owed to the payer, zero when the change is dust.
func (a *Accountant) Charge(bytesUsed uint64, attached *uint256.Int) (*uint256.Int, error) {
	cost := a.Cost(bytesUsed)
	if attached.Cmp(cost) < 0 {
		return nil, fmt.Errorf("%w: need %s, attached %s", domain.ErrInsufficientPayment, cost.Dec(), attached.Dec())
	}

	refund := new(uint256.Int).Sub(attached, cost)
	if refund.Cmp(a.dustThreshold) <= 0 {
		return uint256.NewInt(0), nil
	}
	return refund, nil
}

// Release converts freed bytes back to an amount owed to the payer, zero when
// the amount is dust.
func (a *Accountant) Release(bytesReleased uint64) *uint256.Int {
	amount := a.Cost(bytesReleased)
	if amount.Cmp(a.dustThreshold) <= 0 {
		return uint256.NewInt(0)
	}
	return amount
}
