// Package ledger holds the authoritative in-memory token ledger. A single
// mutex serializes mutations, so every operation observes and produces a
// consistent state even under a concurrent HTTP surface.
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/rent"
)

// Ledger is the token store: tokens by id, a reverse index of token ids per
// owner, and metadata documents by token id.
type Ledger struct {
	mu sync.Mutex

	tokens        map[domain.TokenID]*domain.Token
	tokensByOwner map[domain.AccountID]map[domain.TokenID]struct{}
	metadata      map[domain.TokenID]json.RawMessage
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		tokens:        make(map[domain.TokenID]*domain.Token),
		tokensByOwner: make(map[domain.AccountID]map[domain.TokenID]struct{}),
		metadata:      make(map[domain.TokenID]json.RawMessage),
	}
}

// Mint creates a token and returns the byte footprint of its new entries.
func (l *Ledger) Mint(tokenID domain.TokenID, ownerID domain.AccountID, royalty domain.RoyaltyMap, metadata json.RawMessage) (uint64, error) {
	if tokenID == "" {
		return 0, fmt.Errorf("token id must not be empty")
	}
	if ownerID == "" {
		return 0, fmt.Errorf("owner id must not be empty")
	}
	if err := royalty.Validate(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[tokenID]; ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrTokenAlreadyExists, tokenID)
	}

	l.tokens[tokenID] = &domain.Token{
		OwnerID:   ownerID,
		Approvals: make(map[domain.AccountID]uint64),
		Royalty:   royalty.Clone(),
	}
	l.addToOwner(ownerID, tokenID)
	l.metadata[tokenID] = append(json.RawMessage(nil), metadata...)

	return rent.MintBytes(tokenID, ownerID, royalty, metadata), nil
}

// Get returns a copy of the token.
func (l *Ledger) Get(tokenID domain.TokenID) (domain.Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token, ok := l.tokens[tokenID]
	if !ok {
		return domain.Token{}, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}
	return token.Clone(), nil
}

// Approve grants delegateID the right to transfer the token once. The caller
// must be the owner. The returned boolean reports whether the entry is new;
// re-approving an existing delegate overwrites its id without growing the
// approvals map, but the next approval id advances either way.
func (l *Ledger) Approve(tokenID domain.TokenID, delegateID, callerID domain.AccountID) (uint64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token, ok := l.tokens[tokenID]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}
	if callerID != token.OwnerID {
		return 0, false, fmt.Errorf("%w: only the owner can approve", domain.ErrUnauthorized)
	}
	if delegateID == token.OwnerID {
		return 0, false, fmt.Errorf("owner cannot approve itself")
	}

	_, existed := token.Approvals[delegateID]
	approvalID := token.NextApprovalID
	token.Approvals[delegateID] = approvalID
	token.NextApprovalID++

	return approvalID, !existed, nil
}

// IsApproved reports whether delegateID holds an approval for the token,
// additionally matching the approval id when one is supplied.
func (l *Ledger) IsApproved(tokenID domain.TokenID, delegateID domain.AccountID, approvalID *uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token, ok := l.tokens[tokenID]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}

	held, ok := token.Approvals[delegateID]
	if !ok {
		return false, nil
	}
	if approvalID != nil && held != *approvalID {
		return false, nil
	}
	return true, nil
}

// Revoke removes delegateID's approval. Revoking an absent delegate is a
// successful no-op; the boolean reports whether an entry was actually removed
// so the caller knows whether storage was released.
func (l *Ledger) Revoke(tokenID domain.TokenID, delegateID, callerID domain.AccountID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token, ok := l.tokens[tokenID]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}
	if callerID != token.OwnerID {
		return false, fmt.Errorf("%w: only the owner can revoke", domain.ErrUnauthorized)
	}

	if _, ok := token.Approvals[delegateID]; !ok {
		return false, nil
	}
	delete(token.Approvals, delegateID)
	return true, nil
}

// RevokeAll clears every approval of the token and returns the removed
// delegates.
func (l *Ledger) RevokeAll(tokenID domain.TokenID, callerID domain.AccountID) ([]domain.AccountID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token, ok := l.tokens[tokenID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}
	if callerID != token.OwnerID {
		return nil, fmt.Errorf("%w: only the owner can revoke", domain.ErrUnauthorized)
	}

	removed := make([]domain.AccountID, 0, len(token.Approvals))
	for delegate := range token.Approvals {
		removed = append(removed, delegate)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	token.Approvals = make(map[domain.AccountID]uint64)

	return removed, nil
}

// Transfer moves the token to receiverID. The sender must be the owner or an
// approved delegate; when requiredApprovalID is supplied a delegate's held id
// must match it. All approvals are cleared by the move while the next approval
// id is preserved. The pre-transfer token is returned so the caller can
// release the cleared approvals' storage to the previous owner.
func (l *Ledger) Transfer(tokenID domain.TokenID, senderID, receiverID domain.AccountID, requiredApprovalID *uint64) (domain.Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token, ok := l.tokens[tokenID]
	if !ok {
		return domain.Token{}, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}

	if senderID != token.OwnerID {
		held, ok := token.Approvals[senderID]
		if !ok {
			return domain.Token{}, fmt.Errorf("%w: sender is neither owner nor approved", domain.ErrUnauthorized)
		}
		if requiredApprovalID != nil && held != *requiredApprovalID {
			return domain.Token{}, fmt.Errorf("%w: held %d, required %d", domain.ErrApprovalMismatch, held, *requiredApprovalID)
		}
	}
	if receiverID == token.OwnerID {
		return domain.Token{}, fmt.Errorf("%w: %s", domain.ErrSelfTransfer, tokenID)
	}

	previous := token.Clone()

	l.removeFromOwner(token.OwnerID, tokenID)
	token.OwnerID = receiverID
	token.Approvals = make(map[domain.AccountID]uint64)
	l.addToOwner(receiverID, tokenID)

	return previous, nil
}

// Burn removes the token, its reverse-index entry and its metadata. Owner
// only. The removed token is returned so the caller can release its storage.
func (l *Ledger) Burn(tokenID domain.TokenID, callerID domain.AccountID) (domain.Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token, ok := l.tokens[tokenID]
	if !ok {
		return domain.Token{}, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}
	if callerID != token.OwnerID {
		return domain.Token{}, fmt.Errorf("%w: only the owner can burn", domain.ErrUnauthorized)
	}

	previous := token.Clone()
	l.removeFromOwner(token.OwnerID, tokenID)
	delete(l.tokens, tokenID)
	delete(l.metadata, tokenID)

	return previous, nil
}

// Metadata returns the raw metadata document of a token.
func (l *Ledger) Metadata(tokenID domain.TokenID) (json.RawMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tokens[tokenID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}
	return append(json.RawMessage(nil), l.metadata[tokenID]...), nil
}

// Supply returns the number of tokens in the ledger.
func (l *Ledger) Supply() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.tokens))
}

// SupplyForOwner returns the number of tokens held by an owner.
func (l *Ledger) SupplyForOwner(ownerID domain.AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.tokensByOwner[ownerID]))
}

// Tokens returns a page of token ids in lexicographic order.
func (l *Ledger) Tokens(offset, limit int) []domain.TokenID {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]domain.TokenID, 0, len(l.tokens))
	for id := range l.tokens {
		ids = append(ids, id)
	}
	return pageTokenIDs(ids, offset, limit)
}

// TokensForOwner returns a page of the owner's token ids in lexicographic
// order. An unknown owner yields an empty page.
func (l *Ledger) TokensForOwner(ownerID domain.AccountID, offset, limit int) []domain.TokenID {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.tokensByOwner[ownerID]
	ids := make([]domain.TokenID, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	return pageTokenIDs(ids, offset, limit)
}

// Restore inserts a token as loaded from the durable journal, bypassing mint
// validation. It is only meant for rebuilding the ledger at startup.
func (l *Ledger) Restore(tokenID domain.TokenID, token domain.Token, metadata json.RawMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()

	restored := token.Clone()
	l.tokens[tokenID] = &restored
	l.addToOwner(token.OwnerID, tokenID)
	l.metadata[tokenID] = append(json.RawMessage(nil), metadata...)
}

func pageTokenIDs(ids []domain.TokenID, offset, limit int) []domain.TokenID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []domain.TokenID{}
	}
	ids = ids[offset:]
	if limit >= 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

func (l *Ledger) addToOwner(ownerID domain.AccountID, tokenID domain.TokenID) {
	bucket, ok := l.tokensByOwner[ownerID]
	if !ok {
		bucket = make(map[domain.TokenID]struct{})
		l.tokensByOwner[ownerID] = bucket
	}
	bucket[tokenID] = struct{}{}
}

// removeFromOwner deletes the reverse-index entry, dropping the bucket when
// it becomes empty so no owner maps to an empty set.
func (l *Ledger) removeFromOwner(ownerID domain.AccountID, tokenID domain.TokenID) {
	bucket := l.tokensByOwner[ownerID]
	delete(bucket, tokenID)
	if len(bucket) == 0 {
		delete(l.tokensByOwner, ownerID)
	}
}
