package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/galleryprotocol/nft-ledger/internal/adapter"
	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/store/schema"
)

// Journal operation names.
const (
	opMint      = "mint"
	opApprove   = "approve"
	opRevoke    = "revoke"
	opRevokeAll = "revoke_all"
	opTransfer  = "transfer"
	opBurn      = "burn"
)

type pgStore struct {
	db    *gorm.DB
	clock adapter.Clock
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB, clock adapter.Clock) Store {
	return &pgStore{db: db, clock: clock}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection, applying defaults for zero values.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

func (s *pgStore) journalEntry(operation string, tokenID domain.TokenID, actor domain.AccountID, payload any) (*schema.LedgerJournal, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journal payload: %w", err)
	}

	return &schema.LedgerJournal{
		ID:         ulid.Make().String(),
		Operation:  operation,
		TokenID:    string(tokenID),
		Actor:      string(actor),
		Payload:    datatypes.JSON(body),
		RecordedAt: s.clock.Now(),
	}, nil
}

// SaveMint persists the token row, its royalty rows, its metadata document
// and the journal entry in one transaction.
func (s *pgStore) SaveMint(ctx context.Context, tokenID domain.TokenID, token domain.Token, metadata json.RawMessage) error {
	journal, err := s.journalEntry(opMint, tokenID, token.OwnerID, map[string]any{
		"owner_id": token.OwnerID,
		"royalty":  token.Royalty,
	})
	if err != nil {
		return err
	}

	now := s.clock.Now()
	row := schema.Token{
		TokenID:        string(tokenID),
		OwnerID:        string(token.OwnerID),
		NextApprovalID: token.NextApprovalID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for recipient, bps := range token.Royalty {
		row.Royalties = append(row.Royalties, schema.Royalty{
			TokenID:     string(tokenID),
			RecipientID: string(recipient),
			BasisPoints: uint32(bps),
		})
	}
	if len(metadata) > 0 {
		row.Metadata = &schema.TokenMetadata{
			TokenID:  string(tokenID),
			Document: datatypes.JSON(metadata),
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert token: %w", err)
		}
		if err := tx.Create(journal).Error; err != nil {
			return fmt.Errorf("failed to append journal: %w", err)
		}
		return nil
	})
}

// SaveApprove upserts the delegate's approval row and advances the token's
// next approval id.
func (s *pgStore) SaveApprove(ctx context.Context, tokenID domain.TokenID, ownerID, delegateID domain.AccountID, approvalID, nextApprovalID uint64) error {
	journal, err := s.journalEntry(opApprove, tokenID, ownerID, map[string]any{
		"delegate_id": delegateID,
		"approval_id": approvalID,
	})
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_id"}, {Name: "delegate_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"approval_id"}),
		}).Create(&schema.Approval{
			TokenID:    string(tokenID),
			DelegateID: string(delegateID),
			ApprovalID: approvalID,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to upsert approval: %w", err)
		}

		err = tx.Model(&schema.Token{}).
			Where("token_id = ?", tokenID).
			Updates(map[string]any{
				"next_approval_id": nextApprovalID,
				"updated_at":       s.clock.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update token: %w", err)
		}

		if err := tx.Create(journal).Error; err != nil {
			return fmt.Errorf("failed to append journal: %w", err)
		}
		return nil
	})
}

// SaveRevoke deletes one approval row, or every row of the token when
// delegateID is empty.
func (s *pgStore) SaveRevoke(ctx context.Context, tokenID domain.TokenID, ownerID, delegateID domain.AccountID) error {
	operation := opRevoke
	payload := map[string]any{"delegate_id": delegateID}
	if delegateID == "" {
		operation = opRevokeAll
		payload = map[string]any{}
	}

	journal, err := s.journalEntry(operation, tokenID, ownerID, payload)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("token_id = ?", tokenID)
		if delegateID != "" {
			q = q.Where("delegate_id = ?", delegateID)
		}
		if err := q.Delete(&schema.Approval{}).Error; err != nil {
			return fmt.Errorf("failed to delete approvals: %w", err)
		}

		if err := tx.Create(journal).Error; err != nil {
			return fmt.Errorf("failed to append journal: %w", err)
		}
		return nil
	})
}

// SaveTransfer moves ownership and clears the token's approval rows.
func (s *pgStore) SaveTransfer(ctx context.Context, tokenID domain.TokenID, senderID, previousOwnerID, newOwnerID domain.AccountID) error {
	journal, err := s.journalEntry(opTransfer, tokenID, senderID, map[string]any{
		"old_owner_id": previousOwnerID,
		"new_owner_id": newOwnerID,
	})
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&schema.Token{}).
			Where("token_id = ?", tokenID).
			Updates(map[string]any{
				"owner_id":   string(newOwnerID),
				"updated_at": s.clock.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update token owner: %w", err)
		}

		if err := tx.Where("token_id = ?", tokenID).Delete(&schema.Approval{}).Error; err != nil {
			return fmt.Errorf("failed to clear approvals: %w", err)
		}

		if err := tx.Create(journal).Error; err != nil {
			return fmt.Errorf("failed to append journal: %w", err)
		}
		return nil
	})
}

// SaveBurn removes the token row; approval, royalty and metadata rows go with
// it through the cascade.
func (s *pgStore) SaveBurn(ctx context.Context, tokenID domain.TokenID, ownerID domain.AccountID) error {
	journal, err := s.journalEntry(opBurn, tokenID, ownerID, map[string]any{
		"owner_id": ownerID,
	})
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_id = ?", tokenID).Delete(&schema.Approval{}).Error; err != nil {
			return fmt.Errorf("failed to delete approvals: %w", err)
		}
		if err := tx.Where("token_id = ?", tokenID).Delete(&schema.Royalty{}).Error; err != nil {
			return fmt.Errorf("failed to delete royalties: %w", err)
		}
		if err := tx.Where("token_id = ?", tokenID).Delete(&schema.TokenMetadata{}).Error; err != nil {
			return fmt.Errorf("failed to delete metadata: %w", err)
		}
		if err := tx.Where("token_id = ?", tokenID).Delete(&schema.Token{}).Error; err != nil {
			return fmt.Errorf("failed to delete token: %w", err)
		}

		if err := tx.Create(journal).Error; err != nil {
			return fmt.Errorf("failed to append journal: %w", err)
		}
		return nil
	})
}

// LoadLedger reads every token with its approvals, royalties and metadata.
func (s *pgStore) LoadLedger(ctx context.Context) (*LedgerSnapshot, error) {
	var rows []schema.Token
	err := s.db.WithContext(ctx).
		Preload("Approvals").
		Preload("Royalties").
		Preload("Metadata").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	snapshot := &LedgerSnapshot{
		Tokens:   make(map[domain.TokenID]domain.Token, len(rows)),
		Metadata: make(map[domain.TokenID]json.RawMessage, len(rows)),
	}
	for _, row := range rows {
		token := domain.Token{
			OwnerID:        domain.AccountID(row.OwnerID),
			NextApprovalID: row.NextApprovalID,
			Approvals:      make(map[domain.AccountID]uint64, len(row.Approvals)),
		}
		for _, approval := range row.Approvals {
			token.Approvals[domain.AccountID(approval.DelegateID)] = approval.ApprovalID
		}
		if len(row.Royalties) > 0 {
			token.Royalty = make(domain.RoyaltyMap, len(row.Royalties))
			for _, royalty := range row.Royalties {
				token.Royalty[domain.AccountID(royalty.RecipientID)] = domain.BasisPoints(royalty.BasisPoints)
			}
		}

		tokenID := domain.TokenID(row.TokenID)
		snapshot.Tokens[tokenID] = token
		if row.Metadata != nil {
			snapshot.Metadata[tokenID] = json.RawMessage(row.Metadata.Document)
		}
	}

	return snapshot, nil
}

// GetToken retrieves a token row with its associations
func (s *pgStore) GetToken(ctx context.Context, tokenID domain.TokenID) (*schema.Token, error) {
	var row schema.Token
	err := s.db.WithContext(ctx).
		Preload("Approvals").
		Preload("Royalties").
		Preload("Metadata").
		Where("token_id = ?", tokenID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &row, nil
}

// GetJournal retrieves a page of journal entries for a token, oldest first
func (s *pgStore) GetJournal(ctx context.Context, tokenID domain.TokenID, offset, limit int) ([]schema.LedgerJournal, error) {
	var entries []schema.LedgerJournal
	err := s.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}
	return entries, nil
}
