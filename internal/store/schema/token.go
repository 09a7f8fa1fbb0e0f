package schema

import (
	"time"
)

// Token represents the tokens table, one row per ledger entry.
type Token struct {
	// TokenID is the natural primary key, immutable once minted.
	TokenID string `gorm:"column:token_id;primaryKey;type:text"`
	// OwnerID is the current owner.
	OwnerID string `gorm:"column:owner_id;not null;type:text;index:idx_tokens_owner"`
	// NextApprovalID is the id the next approval of this token will take.
	NextApprovalID uint64 `gorm:"column:next_approval_id;not null;default:0"`
	// CreatedAt is the mint time of the row.
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt moves on every mutation of the row.
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`

	// Associations
	Approvals []Approval     `gorm:"foreignKey:TokenID;references:TokenID;constraint:OnDelete:CASCADE"`
	Royalties []Royalty      `gorm:"foreignKey:TokenID;references:TokenID;constraint:OnDelete:CASCADE"`
	Metadata  *TokenMetadata `gorm:"foreignKey:TokenID;references:TokenID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}
