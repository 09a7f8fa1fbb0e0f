package domain

import (
	"fmt"

	"github.com/holiman/uint256"
)

// TokenID is the opaque unique identifier of a token. It is immutable once
// minted and serves as the primary key of the ledger.
type TokenID string

// AccountID identifies a principal (owner or delegate). The ledger performs no
// structural validation beyond uniqueness as a map key.
type AccountID string

// BasisPoints expresses a revenue share in units where 10000 = 100%.
type BasisPoints uint32

const (
	// BasisPointsTotal is the whole of a sale amount in basis points.
	BasisPointsTotal BasisPoints = 10000

	// MaxRoyaltyEntries bounds the royalty map at mint time so payout
	// computation cost stays bounded.
	MaxRoyaltyEntries = 6
)

// RoyaltyMap is the permanent revenue-split configuration of a token, set at
// mint time and never mutated afterwards.
type RoyaltyMap map[AccountID]BasisPoints

// Validate checks the mint-time constraints of a royalty configuration.
func (r RoyaltyMap) Validate() error {
	if len(r) > MaxRoyaltyEntries {
		return fmt.Errorf("%w: %d royalty entries, maximum is %d", ErrTooManyRecipients, len(r), MaxRoyaltyEntries)
	}

	var total BasisPoints
	for recipient, bps := range r {
		if recipient == "" {
			return fmt.Errorf("royalty recipient must not be empty")
		}
		if bps > BasisPointsTotal {
			return fmt.Errorf("royalty share for %q exceeds %d basis points", recipient, BasisPointsTotal)
		}
		total += bps
	}
	if total > BasisPointsTotal {
		return fmt.Errorf("royalty shares sum to %d basis points, maximum is %d", total, BasisPointsTotal)
	}

	return nil
}

// Clone returns an independent copy of the royalty map.
func (r RoyaltyMap) Clone() RoyaltyMap {
	if r == nil {
		return nil
	}
	out := make(RoyaltyMap, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Token is a single ledger entry.
type Token struct {
	// OwnerID is the current owner, mutated only by a successful transfer.
	OwnerID AccountID `json:"owner_id"`
	// Approvals maps delegates to the approval id issued to them. The
	// owner never appears as a key of its own approvals map.
	Approvals map[AccountID]uint64 `json:"approvals"`
	// NextApprovalID only ever increases across the token's lifetime. It
	// survives transfers and revocations so a previously issued id is
	// never reissued to a different delegate.
	NextApprovalID uint64 `json:"next_approval_id"`
	// Royalty is the permanent revenue split configured at mint time.
	Royalty RoyaltyMap `json:"royalty,omitempty"`
}

// Clone returns a deep copy of the token.
func (t Token) Clone() Token {
	out := Token{
		OwnerID:        t.OwnerID,
		NextApprovalID: t.NextApprovalID,
		Royalty:        t.Royalty.Clone(),
	}
	out.Approvals = make(map[AccountID]uint64, len(t.Approvals))
	for k, v := range t.Approvals {
		out.Approvals[k] = v
	}
	return out
}

// ParseAmount parses a decimal string into an amount. Amounts are 256-bit so
// per-byte storage prices at on-chain scale cannot overflow.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}
