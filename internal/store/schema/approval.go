package schema

// Approval represents the approvals table, one row per delegate holding a
// live approval on a token.
type Approval struct {
	// TokenID is the approved token.
	TokenID string `gorm:"column:token_id;primaryKey;type:text"`
	// DelegateID is the account holding the approval.
	DelegateID string `gorm:"column:delegate_id;primaryKey;type:text;index:idx_approvals_delegate"`
	// ApprovalID is the id issued to this delegate.
	ApprovalID uint64 `gorm:"column:approval_id;not null"`
}

// TableName specifies the table name for the Approval model
func (Approval) TableName() string {
	return "approvals"
}
