package schema

// Royalty represents the royalties table, one row per recipient of a token's
// permanent revenue split. Rows are written at mint and only removed by burn.
type Royalty struct {
	// TokenID is the token the split belongs to.
	TokenID string `gorm:"column:token_id;primaryKey;type:text"`
	// RecipientID is the account receiving the share.
	RecipientID string `gorm:"column:recipient_id;primaryKey;type:text"`
	// BasisPoints is the share in units of 1/10000.
	BasisPoints uint32 `gorm:"column:basis_points;not null"`
}

// TableName specifies the table name for the Royalty model
func (Royalty) TableName() string {
	return "royalties"
}
