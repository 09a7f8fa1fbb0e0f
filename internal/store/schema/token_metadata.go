package schema

import (
	"gorm.io/datatypes"
)

// TokenMetadata represents the token_metadata table holding the opaque
// metadata document attached at mint.
type TokenMetadata struct {
	// TokenID is the owning token.
	TokenID string `gorm:"column:token_id;primaryKey;type:text"`
	// Document is the raw metadata JSON.
	Document datatypes.JSON `gorm:"column:document;type:jsonb"`
}

// TableName specifies the table name for the TokenMetadata model
func (TokenMetadata) TableName() string {
	return "token_metadata"
}
