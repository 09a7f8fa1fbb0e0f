package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
)

func saveTestMint(t *testing.T, s Store, tokenID domain.TokenID, ownerID domain.AccountID) {
	t.Helper()
	err := s.SaveMint(context.Background(), tokenID, domain.Token{
		OwnerID:   ownerID,
		Approvals: map[domain.AccountID]uint64{},
	}, json.RawMessage(`{"title":"test"}`))
	require.NoError(t, err)
}

func TestSaveMint(t *testing.T) {
	s := initPGTestDB(t)
	ctx := context.Background()

	t.Run("mint persists token, royalties, metadata and journal", func(t *testing.T) {
		err := s.SaveMint(ctx, "t1", domain.Token{
			OwnerID:   "alice",
			Approvals: map[domain.AccountID]uint64{},
			Royalty:   domain.RoyaltyMap{"artist": 500},
		}, json.RawMessage(`{"title":"one"}`))
		require.NoError(t, err)

		row, err := s.GetToken(ctx, "t1")
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, "alice", row.OwnerID)
		assert.Equal(t, uint64(0), row.NextApprovalID)
		require.Len(t, row.Royalties, 1)
		assert.Equal(t, "artist", row.Royalties[0].RecipientID)
		assert.Equal(t, uint32(500), row.Royalties[0].BasisPoints)
		require.NotNil(t, row.Metadata)
		assert.JSONEq(t, `{"title":"one"}`, string(row.Metadata.Document))

		journal, err := s.GetJournal(ctx, "t1", 0, 10)
		require.NoError(t, err)
		require.Len(t, journal, 1)
		assert.Equal(t, "mint", journal[0].Operation)
		assert.Equal(t, "alice", journal[0].Actor)
	})

	t.Run("absent token reads as nil", func(t *testing.T) {
		row, err := s.GetToken(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, row)
	})
}

func TestSaveApprove(t *testing.T) {
	s := initPGTestDB(t)
	ctx := context.Background()

	saveTestMint(t, s, "t1", "alice")

	err := s.SaveApprove(ctx, "t1", "alice", "bob", 0, 1)
	require.NoError(t, err)

	row, err := s.GetToken(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, row.Approvals, 1)
	assert.Equal(t, "bob", row.Approvals[0].DelegateID)
	assert.Equal(t, uint64(0), row.Approvals[0].ApprovalID)
	assert.Equal(t, uint64(1), row.NextApprovalID)

	// Overwrite keeps a single row with the fresh id.
	err = s.SaveApprove(ctx, "t1", "alice", "bob", 1, 2)
	require.NoError(t, err)

	row, err = s.GetToken(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, row.Approvals, 1)
	assert.Equal(t, uint64(1), row.Approvals[0].ApprovalID)
	assert.Equal(t, uint64(2), row.NextApprovalID)

	journal, err := s.GetJournal(ctx, "t1", 0, 10)
	require.NoError(t, err)
	assert.Len(t, journal, 3)
}

func TestSaveRevoke(t *testing.T) {
	s := initPGTestDB(t)
	ctx := context.Background()

	saveTestMint(t, s, "t1", "alice")
	require.NoError(t, s.SaveApprove(ctx, "t1", "alice", "bob", 0, 1))
	require.NoError(t, s.SaveApprove(ctx, "t1", "alice", "carol", 1, 2))

	t.Run("single delegate", func(t *testing.T) {
		err := s.SaveRevoke(ctx, "t1", "alice", "bob")
		require.NoError(t, err)

		row, err := s.GetToken(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, row.Approvals, 1)
		assert.Equal(t, "carol", row.Approvals[0].DelegateID)
	})

	t.Run("all delegates", func(t *testing.T) {
		err := s.SaveRevoke(ctx, "t1", "alice", "")
		require.NoError(t, err)

		row, err := s.GetToken(ctx, "t1")
		require.NoError(t, err)
		assert.Empty(t, row.Approvals)

		journal, err := s.GetJournal(ctx, "t1", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, "revoke_all", journal[len(journal)-1].Operation)
	})
}

func TestSaveTransfer(t *testing.T) {
	s := initPGTestDB(t)
	ctx := context.Background()

	saveTestMint(t, s, "t1", "alice")
	require.NoError(t, s.SaveApprove(ctx, "t1", "alice", "bob", 0, 1))

	err := s.SaveTransfer(ctx, "t1", "bob", "alice", "carol")
	require.NoError(t, err)

	row, err := s.GetToken(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "carol", row.OwnerID)
	assert.Empty(t, row.Approvals)
	// next_approval_id survives the transfer.
	assert.Equal(t, uint64(1), row.NextApprovalID)

	journal, err := s.GetJournal(ctx, "t1", 0, 10)
	require.NoError(t, err)
	last := journal[len(journal)-1]
	assert.Equal(t, "transfer", last.Operation)
	assert.Equal(t, "bob", last.Actor)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(last.Payload, &payload))
	assert.Equal(t, "alice", payload["old_owner_id"])
	assert.Equal(t, "carol", payload["new_owner_id"])
}

func TestSaveBurn(t *testing.T) {
	s := initPGTestDB(t)
	ctx := context.Background()

	saveTestMint(t, s, "t1", "alice")
	require.NoError(t, s.SaveApprove(ctx, "t1", "alice", "bob", 0, 1))

	err := s.SaveBurn(ctx, "t1", "alice")
	require.NoError(t, err)

	row, err := s.GetToken(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, row)

	// The journal keeps the token's full history after the burn.
	journal, err := s.GetJournal(ctx, "t1", 0, 10)
	require.NoError(t, err)
	require.Len(t, journal, 3)
	assert.Equal(t, "burn", journal[len(journal)-1].Operation)
}

func TestLoadLedger(t *testing.T) {
	s := initPGTestDB(t)
	ctx := context.Background()

	err := s.SaveMint(ctx, "t1", domain.Token{
		OwnerID:   "alice",
		Approvals: map[domain.AccountID]uint64{},
		Royalty:   domain.RoyaltyMap{"artist": 1000},
	}, json.RawMessage(`{"title":"one"}`))
	require.NoError(t, err)
	require.NoError(t, s.SaveApprove(ctx, "t1", "alice", "bob", 0, 1))

	saveTestMint(t, s, "t2", "carol")

	snapshot, err := s.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Tokens, 2)

	t1 := snapshot.Tokens["t1"]
	assert.Equal(t, domain.AccountID("alice"), t1.OwnerID)
	assert.Equal(t, map[domain.AccountID]uint64{"bob": 0}, t1.Approvals)
	assert.Equal(t, uint64(1), t1.NextApprovalID)
	assert.Equal(t, domain.RoyaltyMap{"artist": 1000}, t1.Royalty)
	assert.JSONEq(t, `{"title":"one"}`, string(snapshot.Metadata["t1"]))

	t2 := snapshot.Tokens["t2"]
	assert.Equal(t, domain.AccountID("carol"), t2.OwnerID)
	assert.Empty(t, t2.Approvals)
}

func TestGetJournalPaging(t *testing.T) {
	s := initPGTestDB(t)
	ctx := context.Background()

	saveTestMint(t, s, "t1", "alice")
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, s.SaveApprove(ctx, "t1", "alice", "bob", i, i+1))
	}

	page, err := s.GetJournal(ctx, "t1", 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "mint", page[0].Operation)

	rest, err := s.GetJournal(ctx, "t1", 3, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}
