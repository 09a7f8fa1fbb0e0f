package domain

import "encoding/json"

// EventType names a ledger event in the structured event log.
type EventType string

const (
	EventMint     EventType = "nft_mint"
	EventTransfer EventType = "nft_transfer"
	EventBurn     EventType = "nft_burn"
	EventApprove  EventType = "nft_approve"
	EventRevoke   EventType = "nft_revoke"
)

const (
	// EventStandard identifies the event envelope format.
	EventStandard = "nft-ledger"
	// EventVersion is the current envelope version.
	EventVersion = "1.0.0"
)

// EventLog is the envelope emitted for every committed ledger mutation.
type EventLog struct {
	Standard string          `json:"standard"`
	Version  string          `json:"version"`
	Event    EventType       `json:"event"`
	Data     json.RawMessage `json:"data"`
}

// MintEvent records a newly minted token.
type MintEvent struct {
	OwnerID AccountID `json:"owner_id"`
	TokenID TokenID   `json:"token_id"`
}

// TransferEvent records an ownership change.
type TransferEvent struct {
	OldOwnerID AccountID `json:"old_owner_id"`
	NewOwnerID AccountID `json:"new_owner_id"`
	TokenID    TokenID   `json:"token_id"`
	// AuthorizedID is set when the transfer was executed by a delegate
	// rather than the owner.
	AuthorizedID AccountID `json:"authorized_id,omitempty"`
}

// BurnEvent records a token removal.
type BurnEvent struct {
	OwnerID AccountID `json:"owner_id"`
	TokenID TokenID   `json:"token_id"`
}

// ApproveEvent records an approval grant or overwrite.
type ApproveEvent struct {
	TokenID    TokenID   `json:"token_id"`
	OwnerID    AccountID `json:"owner_id"`
	DelegateID AccountID `json:"delegate_id"`
	ApprovalID uint64    `json:"approval_id"`
}

// RevokeEvent records an approval revocation. DelegateID is empty when all
// approvals of the token were revoked at once.
type RevokeEvent struct {
	TokenID    TokenID   `json:"token_id"`
	OwnerID    AccountID `json:"owner_id"`
	DelegateID AccountID `json:"delegate_id,omitempty"`
}

// ApprovalNotification is the best-effort message delivered to a delegate
// after an approval is committed.
type ApprovalNotification struct {
	TokenID    TokenID   `json:"token_id"`
	OwnerID    AccountID `json:"owner_id"`
	DelegateID AccountID `json:"delegate_id"`
	ApprovalID uint64    `json:"approval_id"`
	Msg        string    `json:"msg,omitempty"`
}

// PaymentInstruction asks the value-movement collaborator to credit an
// account. Amount is a decimal string.
type PaymentInstruction struct {
	AccountID AccountID `json:"account_id"`
	Amount    string    `json:"amount"`
	Memo      string    `json:"memo,omitempty"`
}
