// Package executor orchestrates ledger operations: core mutation, storage
// accounting, the durable journal, events and notifications. All validation
// happens before any state is committed, so a failed operation has no partial
// effect.
package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/ledger"
	"github.com/galleryprotocol/nft-ledger/internal/logger"
	"github.com/galleryprotocol/nft-ledger/internal/messaging"
	"github.com/galleryprotocol/nft-ledger/internal/notifier"
	"github.com/galleryprotocol/nft-ledger/internal/payments"
	"github.com/galleryprotocol/nft-ledger/internal/rent"
	"github.com/galleryprotocol/nft-ledger/internal/royalty"
	"github.com/galleryprotocol/nft-ledger/internal/store"
	"github.com/galleryprotocol/nft-ledger/internal/store/schema"
)

// Executor wires the core ledger to its collaborators.
type Executor struct {
	core        *ledger.Ledger
	rent        *rent.Accountant
	store       store.Store
	publisher   messaging.Publisher
	notifier    notifier.Notifier
	transferrer payments.Transferrer

	journalMaxElapsed time.Duration
}

// New creates an executor over the given collaborators.
func New(core *ledger.Ledger, accountant *rent.Accountant, st store.Store, publisher messaging.Publisher, ntf notifier.Notifier, transferrer payments.Transferrer) *Executor {
	return &Executor{
		core:              core,
		rent:              accountant,
		store:             st,
		publisher:         publisher,
		notifier:          ntf,
		transferrer:       transferrer,
		journalMaxElapsed: 30 * time.Second,
	}
}

// MintRequest carries the inputs of a mint operation.
type MintRequest struct {
	TokenID  domain.TokenID
	OwnerID  domain.AccountID
	Royalty  domain.RoyaltyMap
	Metadata json.RawMessage
	Attached *uint256.Int
}

// MintResult reports the storage settlement of a mint.
type MintResult struct {
	BytesUsed uint64
	Refund    *uint256.Int
}

// Mint validates payment against the entry's byte footprint, applies the core
// mutation, then settles the refund, journals and emits the mint event.
func (e *Executor) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	if err := req.Royalty.Validate(); err != nil {
		return nil, err
	}

	// Price the entry before mutating so an underpaid mint never becomes
	// observable.
	bytesUsed := rent.MintBytes(req.TokenID, req.OwnerID, req.Royalty, req.Metadata)
	refund, err := e.rent.Charge(bytesUsed, req.Attached)
	if err != nil {
		return nil, err
	}

	if _, err := e.core.Mint(req.TokenID, req.OwnerID, req.Royalty, req.Metadata); err != nil {
		return nil, err
	}

	token, err := e.core.Get(req.TokenID)
	if err != nil {
		return nil, err
	}

	e.pay(ctx, req.OwnerID, refund, "mint refund")
	e.journal(ctx, func(ctx context.Context) error {
		return e.store.SaveMint(ctx, req.TokenID, token, req.Metadata)
	})
	e.publish(ctx, domain.EventMint, domain.MintEvent{
		OwnerID: req.OwnerID,
		TokenID: req.TokenID,
	})

	return &MintResult{BytesUsed: bytesUsed, Refund: refund}, nil
}

// ApproveRequest carries the inputs of an approval grant.
type ApproveRequest struct {
	TokenID    domain.TokenID
	DelegateID domain.AccountID
	CallerID   domain.AccountID
	Msg        string
	Attached   *uint256.Int
}

// ApproveResult reports the issued id and the storage settlement.
type ApproveResult struct {
	ApprovalID uint64
	Refund     *uint256.Int
}

// Approve grants an approval. A new entry is charged its byte footprint; an
// overwrite stores no new bytes, so the whole attached payment comes back.
// After the mutation is durable the delegate is notified best effort.
func (e *Executor) Approve(ctx context.Context, req ApproveRequest) (*ApproveResult, error) {
	entryBytes := rent.ApprovalEntryBytes(req.DelegateID)

	// Price against the current state so an underpaid new approval is
	// rejected before the mutation.
	exists, err := e.core.IsApproved(req.TokenID, req.DelegateID, nil)
	if err != nil {
		return nil, err
	}
	expectedBytes := entryBytes
	if exists {
		expectedBytes = 0
	}
	if _, err := e.rent.Charge(expectedBytes, req.Attached); err != nil {
		return nil, err
	}

	approvalID, isNew, err := e.core.Approve(req.TokenID, req.DelegateID, req.CallerID)
	if err != nil {
		return nil, err
	}

	// The insert flag is authoritative for charging. If a concurrent
	// revoke turned the priced overwrite into an insert, settle at the
	// insert price and undo the grant when the payment cannot cover it.
	chargedBytes := entryBytes
	if !isNew {
		chargedBytes = 0
	}
	refund, err := e.rent.Charge(chargedBytes, req.Attached)
	if err != nil {
		if _, revokeErr := e.core.Revoke(req.TokenID, req.DelegateID, req.CallerID); revokeErr != nil {
			logger.ErrorCtx(ctx, revokeErr, zap.String("token_id", string(req.TokenID)))
		}
		return nil, err
	}

	e.pay(ctx, req.CallerID, refund, "approve refund")
	e.journal(ctx, func(ctx context.Context) error {
		token, err := e.core.Get(req.TokenID)
		if err != nil {
			return err
		}
		return e.store.SaveApprove(ctx, req.TokenID, req.CallerID, req.DelegateID, approvalID, token.NextApprovalID)
	})
	e.publish(ctx, domain.EventApprove, domain.ApproveEvent{
		TokenID:    req.TokenID,
		OwnerID:    req.CallerID,
		DelegateID: req.DelegateID,
		ApprovalID: approvalID,
	})

	e.notifier.Notify(domain.ApprovalNotification{
		TokenID:    req.TokenID,
		OwnerID:    req.CallerID,
		DelegateID: req.DelegateID,
		ApprovalID: approvalID,
		Msg:        req.Msg,
	})

	return &ApproveResult{ApprovalID: approvalID, Refund: refund}, nil
}

// RevokeRequest carries the inputs of a revocation.
type RevokeRequest struct {
	TokenID    domain.TokenID
	DelegateID domain.AccountID
	CallerID   domain.AccountID
}

// RevokeResult reports the storage released back to the caller.
type RevokeResult struct {
	Released *uint256.Int
}

// Revoke removes one delegate's approval and pays its bytes back.
func (e *Executor) Revoke(ctx context.Context, req RevokeRequest) (*RevokeResult, error) {
	removed, err := e.core.Revoke(req.TokenID, req.DelegateID, req.CallerID)
	if err != nil {
		return nil, err
	}

	released := uint256.NewInt(0)
	if removed {
		released = e.rent.Release(rent.ApprovalEntryBytes(req.DelegateID))
		e.pay(ctx, req.CallerID, released, "revoke release")
		e.journal(ctx, func(ctx context.Context) error {
			return e.store.SaveRevoke(ctx, req.TokenID, req.CallerID, req.DelegateID)
		})
		e.publish(ctx, domain.EventRevoke, domain.RevokeEvent{
			TokenID:    req.TokenID,
			OwnerID:    req.CallerID,
			DelegateID: req.DelegateID,
		})
	}

	return &RevokeResult{Released: released}, nil
}

// RevokeAll removes every approval of the token and pays their bytes back.
func (e *Executor) RevokeAll(ctx context.Context, tokenID domain.TokenID, callerID domain.AccountID) (*RevokeResult, error) {
	removed, err := e.core.RevokeAll(tokenID, callerID)
	if err != nil {
		return nil, err
	}

	released := uint256.NewInt(0)
	if len(removed) > 0 {
		var totalBytes uint64
		for _, delegate := range removed {
			totalBytes += rent.ApprovalEntryBytes(delegate)
		}
		released = e.rent.Release(totalBytes)
		e.pay(ctx, callerID, released, "revoke all release")
		e.journal(ctx, func(ctx context.Context) error {
			return e.store.SaveRevoke(ctx, tokenID, callerID, "")
		})
		e.publish(ctx, domain.EventRevoke, domain.RevokeEvent{
			TokenID: tokenID,
			OwnerID: callerID,
		})
	}

	return &RevokeResult{Released: released}, nil
}

// TransferRequest carries the inputs of a transfer.
type TransferRequest struct {
	TokenID    domain.TokenID
	SenderID   domain.AccountID
	ReceiverID domain.AccountID
	ApprovalID *uint64
}

// TransferResult reports the previous owner and the storage released to them
// by the cleared approvals.
type TransferResult struct {
	PreviousOwnerID domain.AccountID
	Released        *uint256.Int
}

// Transfer moves ownership. The bytes of the approvals cleared by the move
// are released to the previous owner, who paid for them.
func (e *Executor) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	previous, err := e.core.Transfer(req.TokenID, req.SenderID, req.ReceiverID, req.ApprovalID)
	if err != nil {
		return nil, err
	}

	released := e.rent.Release(rent.ApprovalsBytes(previous.Approvals))
	e.pay(ctx, previous.OwnerID, released, "transfer approval release")
	e.journal(ctx, func(ctx context.Context) error {
		return e.store.SaveTransfer(ctx, req.TokenID, req.SenderID, previous.OwnerID, req.ReceiverID)
	})

	event := domain.TransferEvent{
		OldOwnerID: previous.OwnerID,
		NewOwnerID: req.ReceiverID,
		TokenID:    req.TokenID,
	}
	if req.SenderID != previous.OwnerID {
		event.AuthorizedID = req.SenderID
	}
	e.publish(ctx, domain.EventTransfer, event)

	return &TransferResult{PreviousOwnerID: previous.OwnerID, Released: released}, nil
}

// TransferPayoutRequest is a transfer plus a sale settlement.
type TransferPayoutRequest struct {
	TransferRequest
	SaleAmount    *uint256.Int
	MaxRecipients int
}

// TransferPayoutResult is the transfer outcome plus the computed payout.
type TransferPayoutResult struct {
	TransferResult
	Payout map[domain.AccountID]*uint256.Int
}

// TransferPayout transfers the token and computes the sale payout against the
// pre-transfer state, so the seller receives the owner residual. The payout is
// returned for the marketplace to execute.
func (e *Executor) TransferPayout(ctx context.Context, req TransferPayoutRequest) (*TransferPayoutResult, error) {
	// Validate the payout bound before mutating anything.
	current, err := e.core.Get(req.TokenID)
	if err != nil {
		return nil, err
	}
	payout, err := royalty.ComputePayout(current, req.SaleAmount, req.MaxRecipients)
	if err != nil {
		return nil, err
	}

	transfer, err := e.Transfer(ctx, req.TransferRequest)
	if err != nil {
		return nil, err
	}

	return &TransferPayoutResult{TransferResult: *transfer, Payout: payout}, nil
}

// BurnResult reports the storage released by a burn.
type BurnResult struct {
	Released *uint256.Int
}

// Burn removes the token and releases its full byte footprint to the owner.
func (e *Executor) Burn(ctx context.Context, tokenID domain.TokenID, callerID domain.AccountID) (*BurnResult, error) {
	metadata, err := e.core.Metadata(tokenID)
	if err != nil {
		return nil, err
	}

	previous, err := e.core.Burn(tokenID, callerID)
	if err != nil {
		return nil, err
	}

	totalBytes := rent.MintBytes(tokenID, previous.OwnerID, previous.Royalty, metadata) +
		rent.ApprovalsBytes(previous.Approvals)
	released := e.rent.Release(totalBytes)

	e.pay(ctx, previous.OwnerID, released, "burn release")
	e.journal(ctx, func(ctx context.Context) error {
		return e.store.SaveBurn(ctx, tokenID, previous.OwnerID)
	})
	e.publish(ctx, domain.EventBurn, domain.BurnEvent{
		OwnerID: previous.OwnerID,
		TokenID: tokenID,
	})

	return &BurnResult{Released: released}, nil
}

// Token returns a copy of the ledger entry.
func (e *Executor) Token(tokenID domain.TokenID) (domain.Token, error) {
	return e.core.Get(tokenID)
}

// Metadata returns the token's raw metadata document.
func (e *Executor) Metadata(tokenID domain.TokenID) (json.RawMessage, error) {
	return e.core.Metadata(tokenID)
}

// Payout computes the sale payout for the token's current state without
// transferring it.
func (e *Executor) Payout(tokenID domain.TokenID, saleAmount *uint256.Int, maxRecipients int) (map[domain.AccountID]*uint256.Int, error) {
	token, err := e.core.Get(tokenID)
	if err != nil {
		return nil, err
	}
	return royalty.ComputePayout(token, saleAmount, maxRecipients)
}

// Journal returns a page of the token's durable operation history.
func (e *Executor) Journal(ctx context.Context, tokenID domain.TokenID, offset, limit int) ([]schema.LedgerJournal, error) {
	return e.store.GetJournal(ctx, tokenID, offset, limit)
}

// Supply returns the total number of tokens.
func (e *Executor) Supply() uint64 {
	return e.core.Supply()
}

// SupplyForOwner returns the number of tokens held by an owner.
func (e *Executor) SupplyForOwner(ownerID domain.AccountID) uint64 {
	return e.core.SupplyForOwner(ownerID)
}

// Tokens returns a page of token ids.
func (e *Executor) Tokens(offset, limit int) []domain.TokenID {
	return e.core.Tokens(offset, limit)
}

// TokensForOwner returns a page of an owner's token ids.
func (e *Executor) TokensForOwner(ownerID domain.AccountID, offset, limit int) []domain.TokenID {
	return e.core.TokensForOwner(ownerID, offset, limit)
}

// pay executes a refund or release through the payment primitive. Payment is
// a follow-up to a committed mutation; failure is logged, never rolled back.
func (e *Executor) pay(ctx context.Context, accountID domain.AccountID, amount *uint256.Int, memo string) {
	if amount == nil || amount.IsZero() {
		return
	}
	if err := e.transferrer.Transfer(ctx, accountID, amount, memo); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("account_id", string(accountID)),
			zap.String("amount", amount.Dec()),
			zap.String("memo", memo))
	}
}

// journal writes the durable record of a committed mutation, retrying with
// backoff. The in-memory ledger is authoritative; a journal failure is logged
// and the operation still succeeds.
func (e *Executor) journal(ctx context.Context, write func(ctx context.Context) error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = e.journalMaxElapsed

	err := backoff.Retry(func() error {
		return write(ctx)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "journal write failed"))
	}
}

// publish emits the structured event for a committed mutation.
func (e *Executor) publish(ctx context.Context, event domain.EventType, data any) {
	if err := e.publisher.PublishEvent(ctx, event, data); err != nil {
		logger.WarnCtx(ctx, "event publish failed",
			zap.String("event", string(event)),
			zap.Error(err))
	}
}
