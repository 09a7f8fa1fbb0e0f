package schema

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerJournal represents the ledger_journal table, an append-only record of
// every committed mutation. ULID ids keep the journal ordered by insertion.
type LedgerJournal struct {
	// ID is a ULID assigned at write time.
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Operation names the mutation (mint, approve, revoke, revoke_all,
	// transfer, burn).
	Operation string `gorm:"column:operation;not null;type:text"`
	// TokenID is the token the mutation applied to.
	TokenID string `gorm:"column:token_id;not null;type:text;index:idx_journal_token"`
	// Actor is the caller that drove the mutation.
	Actor string `gorm:"column:actor;not null;type:text"`
	// Payload carries the operation-specific details.
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb"`
	// RecordedAt is the journal write time.
	RecordedAt time.Time `gorm:"column:recorded_at;not null;default:now()"`
}

// TableName specifies the table name for the LedgerJournal model
func (LedgerJournal) TableName() string {
	return "ledger_journal"
}
