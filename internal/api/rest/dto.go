package rest

import (
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/store/schema"
)

const MAX_PAGE_SIZE = 100

// paginationQuery holds the shared paging parameters of list endpoints
type paginationQuery struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=20"`
}

func (p *paginationQuery) normalize() {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > MAX_PAGE_SIZE {
		p.Limit = MAX_PAGE_SIZE
	}
}

// payoutQuery holds the query parameters of GET /tokens/:id/payout
type payoutQuery struct {
	SaleAmount    string `form:"sale_amount" binding:"required"`
	MaxRecipients *int   `form:"max_recipients"`
}

// mintRequest is the body of POST /tokens
type mintRequest struct {
	TokenID  string            `json:"token_id" binding:"required"`
	OwnerID  string            `json:"owner_id" binding:"required"`
	Royalty  map[string]uint32 `json:"royalty"`
	Metadata json.RawMessage   `json:"metadata"`
	Attached string            `json:"attached" binding:"required"`
}

// mintResponse reports the storage settlement of a mint
type mintResponse struct {
	TokenID   string `json:"token_id"`
	BytesUsed uint64 `json:"bytes_used"`
	Refund    string `json:"refund"`
}

// approveRequest is the body of POST /tokens/:id/approvals
type approveRequest struct {
	DelegateID string `json:"delegate_id" binding:"required"`
	CallerID   string `json:"caller_id" binding:"required"`
	Msg        string `json:"msg"`
	Attached   string `json:"attached" binding:"required"`
}

// approveResponse reports the issued approval id and the refund
type approveResponse struct {
	ApprovalID uint64 `json:"approval_id"`
	Refund     string `json:"refund"`
}

// revokeResponse reports the storage released by a revocation
type revokeResponse struct {
	Released string `json:"released"`
}

// transferRequest is the body of POST /tokens/:id/transfer
type transferRequest struct {
	SenderID   string  `json:"sender_id" binding:"required"`
	ReceiverID string  `json:"receiver_id" binding:"required"`
	ApprovalID *uint64 `json:"approval_id"`
}

// transferResponse reports the outcome of a transfer
type transferResponse struct {
	PreviousOwnerID string `json:"previous_owner_id"`
	Released        string `json:"released"`
}

// transferPayoutRequest is the body of POST /tokens/:id/transfer-payout
type transferPayoutRequest struct {
	transferRequest
	SaleAmount    string `json:"sale_amount" binding:"required"`
	MaxRecipients *int   `json:"max_recipients"`
}

// transferPayoutResponse is the transfer outcome plus the computed payout
type transferPayoutResponse struct {
	transferResponse
	Payout map[string]string `json:"payout"`
}

// burnRequest is the body of POST /tokens/:id/burn
type burnRequest struct {
	CallerID string `json:"caller_id" binding:"required"`
}

// burnResponse reports the storage released by a burn
type burnResponse struct {
	Released string `json:"released"`
}

// tokenResponse is the public view of a ledger entry
type tokenResponse struct {
	TokenID        string            `json:"token_id"`
	OwnerID        string            `json:"owner_id"`
	Approvals      map[string]uint64 `json:"approvals"`
	NextApprovalID uint64            `json:"next_approval_id"`
	Royalty        map[string]uint32 `json:"royalty,omitempty"`
}

// tokenListResponse is a page of token ids
type tokenListResponse struct {
	Tokens []string `json:"tokens"`
	Offset int      `json:"offset"`
	Limit  int      `json:"limit"`
}

// supplyResponse reports a token count
type supplyResponse struct {
	Supply uint64 `json:"supply"`
}

// payoutResponse maps recipients to their decimal amounts
type payoutResponse struct {
	Payout map[string]string `json:"payout"`
}

// journalEntryResponse is one durable operation record
type journalEntryResponse struct {
	ID         string          `json:"id"`
	Operation  string          `json:"operation"`
	TokenID    string          `json:"token_id"`
	Actor      string          `json:"actor"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RecordedAt string          `json:"recorded_at"`
}

// journalResponse is a page of journal records
type journalResponse struct {
	Entries []journalEntryResponse `json:"entries"`
	Offset  int                    `json:"offset"`
	Limit   int                    `json:"limit"`
}

func toTokenResponse(tokenID domain.TokenID, token domain.Token) tokenResponse {
	approvals := make(map[string]uint64, len(token.Approvals))
	for delegate, id := range token.Approvals {
		approvals[string(delegate)] = id
	}
	var royalty map[string]uint32
	if len(token.Royalty) > 0 {
		royalty = make(map[string]uint32, len(token.Royalty))
		for recipient, bps := range token.Royalty {
			royalty[string(recipient)] = uint32(bps)
		}
	}
	return tokenResponse{
		TokenID:        string(tokenID),
		OwnerID:        string(token.OwnerID),
		Approvals:      approvals,
		NextApprovalID: token.NextApprovalID,
		Royalty:        royalty,
	}
}

func toRoyaltyMap(royalty map[string]uint32) domain.RoyaltyMap {
	if royalty == nil {
		return nil
	}
	out := make(domain.RoyaltyMap, len(royalty))
	for recipient, bps := range royalty {
		out[domain.AccountID(recipient)] = domain.BasisPoints(bps)
	}
	return out
}

func toPayoutResponse(payout map[domain.AccountID]*uint256.Int) map[string]string {
	out := make(map[string]string, len(payout))
	for recipient, amount := range payout {
		out[string(recipient)] = amount.Dec()
	}
	return out
}

func toTokenIDs(ids []domain.TokenID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toJournalResponse(entries []schema.LedgerJournal, offset, limit int) journalResponse {
	out := journalResponse{
		Entries: make([]journalEntryResponse, len(entries)),
		Offset:  offset,
		Limit:   limit,
	}
	for i, entry := range entries {
		out.Entries[i] = journalEntryResponse{
			ID:         entry.ID,
			Operation:  entry.Operation,
			TokenID:    entry.TokenID,
			Actor:      entry.Actor,
			Payload:    json.RawMessage(entry.Payload),
			RecordedAt: entry.RecordedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		}
	}
	return out
}
