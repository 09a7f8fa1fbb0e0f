// Package store persists the ledger to postgres. The in-memory ledger is
// authoritative; the store is its durable shadow plus an append-only journal,
// written after each commit and replayed at startup.
package store

import (
	"context"
	"encoding/json"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/store/schema"
)

// LedgerSnapshot is the durable state loaded at startup.
type LedgerSnapshot struct {
	Tokens   map[domain.TokenID]domain.Token
	Metadata map[domain.TokenID]json.RawMessage
}

// Store defines the interface for database operations
type Store interface {
	// SaveMint persists a freshly minted token with its royalty rows and
	// metadata document, plus a journal entry, in one transaction.
	SaveMint(ctx context.Context, tokenID domain.TokenID, token domain.Token, metadata json.RawMessage) error
	// SaveApprove persists an approval grant or overwrite.
	SaveApprove(ctx context.Context, tokenID domain.TokenID, ownerID, delegateID domain.AccountID, approvalID, nextApprovalID uint64) error
	// SaveRevoke removes a delegate's approval row, or all of them when
	// delegateID is empty.
	SaveRevoke(ctx context.Context, tokenID domain.TokenID, ownerID, delegateID domain.AccountID) error
	// SaveTransfer moves ownership and clears the token's approval rows.
	SaveTransfer(ctx context.Context, tokenID domain.TokenID, senderID, previousOwnerID, newOwnerID domain.AccountID) error
	// SaveBurn removes the token and its dependent rows.
	SaveBurn(ctx context.Context, tokenID domain.TokenID, ownerID domain.AccountID) error
	// LoadLedger reads the full durable state for rebuilding the ledger.
	LoadLedger(ctx context.Context) (*LedgerSnapshot, error)
	// GetToken retrieves a token row with its associations, nil when absent.
	GetToken(ctx context.Context, tokenID domain.TokenID) (*schema.Token, error)
	// GetJournal retrieves a page of journal entries for a token, oldest
	// first.
	GetJournal(ctx context.Context, tokenID domain.TokenID, offset, limit int) ([]schema.LedgerJournal, error)
}
