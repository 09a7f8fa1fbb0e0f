package executor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryprotocol/nft-ledger/internal/domain"
	"github.com/galleryprotocol/nft-ledger/internal/ledger"
	"github.com/galleryprotocol/nft-ledger/internal/logger"
	"github.com/galleryprotocol/nft-ledger/internal/rent"
	"github.com/galleryprotocol/nft-ledger/internal/store"
	"github.com/galleryprotocol/nft-ledger/internal/store/schema"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	m.Run()
}

// fakeStore records the save calls the executor makes.
type fakeStore struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeStore) SaveMint(_ context.Context, tokenID domain.TokenID, _ domain.Token, _ json.RawMessage) error {
	f.record("mint:" + string(tokenID))
	return nil
}

func (f *fakeStore) SaveApprove(_ context.Context, tokenID domain.TokenID, _, delegateID domain.AccountID, _, _ uint64) error {
	f.record("approve:" + string(tokenID) + ":" + string(delegateID))
	return nil
}

func (f *fakeStore) SaveRevoke(_ context.Context, tokenID domain.TokenID, _, delegateID domain.AccountID) error {
	f.record("revoke:" + string(tokenID) + ":" + string(delegateID))
	return nil
}

func (f *fakeStore) SaveTransfer(_ context.Context, tokenID domain.TokenID, _, _, newOwnerID domain.AccountID) error {
	f.record("transfer:" + string(tokenID) + ":" + string(newOwnerID))
	return nil
}

func (f *fakeStore) SaveBurn(_ context.Context, tokenID domain.TokenID, _ domain.AccountID) error {
	f.record("burn:" + string(tokenID))
	return nil
}

func (f *fakeStore) LoadLedger(context.Context) (*store.LedgerSnapshot, error) {
	return &store.LedgerSnapshot{}, nil
}

func (f *fakeStore) GetToken(context.Context, domain.TokenID) (*schema.Token, error) {
	return nil, nil
}

func (f *fakeStore) GetJournal(context.Context, domain.TokenID, int, int) ([]schema.LedgerJournal, error) {
	return nil, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	events    []domain.EventType
	approvals []domain.ApprovalNotification
}

func (f *fakePublisher) PublishEvent(_ context.Context, event domain.EventType, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) PublishApproval(_ context.Context, n domain.ApprovalNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvals = append(f.approvals, n)
	return nil
}

func (f *fakePublisher) PublishPayment(context.Context, domain.PaymentInstruction) error {
	return nil
}

func (f *fakePublisher) Close() {}

// directNotifier delivers synchronously so tests observe notifications
// without waiting on a pool.
type directNotifier struct {
	publisher *fakePublisher
}

func (n *directNotifier) Notify(notification domain.ApprovalNotification) {
	_ = n.publisher.PublishApproval(context.Background(), notification)
}

func (n *directNotifier) Shutdown() {}

type payment struct {
	account domain.AccountID
	amount  string
	memo    string
}

type fakeTransferrer struct {
	mu       sync.Mutex
	payments []payment
}

func (f *fakeTransferrer) Transfer(_ context.Context, accountID domain.AccountID, amount *uint256.Int, memo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, payment{account: accountID, amount: amount.Dec(), memo: memo})
	return nil
}

type fixture struct {
	executor    *Executor
	store       *fakeStore
	publisher   *fakePublisher
	transferrer *fakeTransferrer
}

// newFixture wires an executor with byte cost 1 and no dust threshold, so
// amounts equal byte counts exactly.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := &fakeStore{}
	pub := &fakePublisher{}
	tr := &fakeTransferrer{}
	acct := rent.NewAccountant(uint256.NewInt(1), uint256.NewInt(0))
	exec := New(ledger.New(), acct, st, pub, &directNotifier{publisher: pub}, tr)
	return &fixture{executor: exec, store: st, publisher: pub, transferrer: tr}
}

func (f *fixture) mint(t *testing.T, tokenID domain.TokenID, ownerID domain.AccountID, royalty domain.RoyaltyMap) *MintResult {
	t.Helper()
	res, err := f.executor.Mint(context.Background(), MintRequest{
		TokenID:  tokenID,
		OwnerID:  ownerID,
		Royalty:  royalty,
		Attached: uint256.NewInt(1_000_000),
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) approve(t *testing.T, tokenID domain.TokenID, delegateID, callerID domain.AccountID) *ApproveResult {
	t.Helper()
	res, err := f.executor.Approve(context.Background(), ApproveRequest{
		TokenID:    tokenID,
		DelegateID: delegateID,
		CallerID:   callerID,
		Attached:   uint256.NewInt(1_000_000),
	})
	require.NoError(t, err)
	return res
}

func TestMintChargesAndRefunds(t *testing.T) {
	f := newFixture(t)

	res, err := f.executor.Mint(context.Background(), MintRequest{
		TokenID:  "t1",
		OwnerID:  "alice",
		Metadata: json.RawMessage(`{"a":1}`),
		Attached: uint256.NewInt(1000),
	})
	require.NoError(t, err)

	wantBytes := rent.MintBytes("t1", "alice", nil, json.RawMessage(`{"a":1}`))
	assert.Equal(t, wantBytes, res.BytesUsed)
	assert.Equal(t, uint256.NewInt(1000-wantBytes).Dec(), res.Refund.Dec())

	require.Len(t, f.transferrer.payments, 1)
	assert.Equal(t, domain.AccountID("alice"), f.transferrer.payments[0].account)
	assert.Equal(t, res.Refund.Dec(), f.transferrer.payments[0].amount)

	assert.Equal(t, []string{"mint:t1"}, f.store.calls)
	assert.Equal(t, []domain.EventType{domain.EventMint}, f.publisher.events)
}

func TestMintInsufficientPaymentHasNoEffect(t *testing.T) {
	f := newFixture(t)

	_, err := f.executor.Mint(context.Background(), MintRequest{
		TokenID:  "t1",
		OwnerID:  "alice",
		Attached: uint256.NewInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	_, err = f.executor.Token("t1")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	assert.Empty(t, f.store.calls)
	assert.Empty(t, f.publisher.events)
	assert.Empty(t, f.transferrer.payments)
}

func TestApproveNewEntryChargesAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", nil)

	res, err := f.executor.Approve(context.Background(), ApproveRequest{
		TokenID:    "t1",
		DelegateID: "bob",
		CallerID:   "alice",
		Msg:        "sale listing",
		Attached:   uint256.NewInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.ApprovalID)

	entryBytes := rent.ApprovalEntryBytes("bob")
	assert.Equal(t, uint256.NewInt(100-entryBytes).Dec(), res.Refund.Dec())

	require.Len(t, f.publisher.approvals, 1)
	assert.Equal(t, domain.AccountID("bob"), f.publisher.approvals[0].DelegateID)
	assert.Equal(t, "sale listing", f.publisher.approvals[0].Msg)
	assert.Contains(t, f.store.calls, "approve:t1:bob")
}

func TestApproveOverwriteChargesNothing(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", nil)
	f.approve(t, "t1", "bob", "alice")

	// Zero attached payment is enough for an overwrite.
	res, err := f.executor.Approve(context.Background(), ApproveRequest{
		TokenID:    "t1",
		DelegateID: "bob",
		CallerID:   "alice",
		Attached:   uint256.NewInt(0),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.ApprovalID)
	assert.True(t, res.Refund.IsZero())
}

func TestApproveUnderpaidNewEntryRejected(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", nil)

	_, err := f.executor.Approve(context.Background(), ApproveRequest{
		TokenID:    "t1",
		DelegateID: "bob",
		CallerID:   "alice",
		Attached:   uint256.NewInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	token, err := f.executor.Token("t1")
	require.NoError(t, err)
	assert.Empty(t, token.Approvals)
	assert.Zero(t, token.NextApprovalID)
}

func TestRevokeReleasesEntryBytes(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", nil)
	f.approve(t, "t1", "bob", "alice")
	f.transferrer.payments = nil

	res, err := f.executor.Revoke(context.Background(), RevokeRequest{
		TokenID:    "t1",
		DelegateID: "bob",
		CallerID:   "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(rent.ApprovalEntryBytes("bob")).Dec(), res.Released.Dec())

	require.Len(t, f.transferrer.payments, 1)
	assert.Equal(t, domain.AccountID("alice"), f.transferrer.payments[0].account)

	// Revoking again is a no-op: nothing released, nothing journaled.
	f.transferrer.payments = nil
	res, err = f.executor.Revoke(context.Background(), RevokeRequest{
		TokenID:    "t1",
		DelegateID: "bob",
		CallerID:   "alice",
	})
	require.NoError(t, err)
	assert.True(t, res.Released.IsZero())
	assert.Empty(t, f.transferrer.payments)
}

func TestRevokeAllReleasesAllEntries(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", nil)
	f.approve(t, "t1", "bob", "alice")
	f.approve(t, "t1", "carol", "alice")

	res, err := f.executor.RevokeAll(context.Background(), "t1", "alice")
	require.NoError(t, err)

	want := rent.ApprovalEntryBytes("bob") + rent.ApprovalEntryBytes("carol")
	assert.Equal(t, uint256.NewInt(want).Dec(), res.Released.Dec())
	assert.Contains(t, f.store.calls, "revoke:t1:")
}

func TestTransferReleasesApprovalsToPreviousOwner(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", nil)
	approveRes := f.approve(t, "t1", "bob", "alice")
	f.transferrer.payments = nil

	id := approveRes.ApprovalID
	res, err := f.executor.Transfer(context.Background(), TransferRequest{
		TokenID:    "t1",
		SenderID:   "bob",
		ReceiverID: "carol",
		ApprovalID: &id,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("alice"), res.PreviousOwnerID)
	assert.Equal(t, uint256.NewInt(rent.ApprovalEntryBytes("bob")).Dec(), res.Released.Dec())

	// The cleared approval's bytes go back to alice, who paid for them.
	require.Len(t, f.transferrer.payments, 1)
	assert.Equal(t, domain.AccountID("alice"), f.transferrer.payments[0].account)

	token, err := f.executor.Token("t1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("carol"), token.OwnerID)
	assert.Contains(t, f.store.calls, "transfer:t1:carol")
	assert.Contains(t, f.publisher.events, domain.EventTransfer)
}

func TestTransferPayout(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", domain.RoyaltyMap{"r1": 2000, "r2": 1000})

	res, err := f.executor.TransferPayout(context.Background(), TransferPayoutRequest{
		TransferRequest: TransferRequest{
			TokenID:    "t1",
			SenderID:   "alice",
			ReceiverID: "buyer",
		},
		SaleAmount:    uint256.NewInt(1000),
		MaxRecipients: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "200", res.Payout["r1"].Dec())
	assert.Equal(t, "100", res.Payout["r2"].Dec())
	// The seller receives the owner residual.
	assert.Equal(t, "700", res.Payout["alice"].Dec())

	token, err := f.executor.Token("t1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("buyer"), token.OwnerID)
}

func TestTransferPayoutTooManyRecipientsHasNoEffect(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", domain.RoyaltyMap{"r1": 100, "r2": 100})

	_, err := f.executor.TransferPayout(context.Background(), TransferPayoutRequest{
		TransferRequest: TransferRequest{
			TokenID:    "t1",
			SenderID:   "alice",
			ReceiverID: "buyer",
		},
		SaleAmount:    uint256.NewInt(1000),
		MaxRecipients: 1,
	})
	assert.ErrorIs(t, err, domain.ErrTooManyRecipients)

	token, err := f.executor.Token("t1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("alice"), token.OwnerID)
}

func TestBurnReleasesFullFootprint(t *testing.T) {
	f := newFixture(t)

	metadata := json.RawMessage(`{"title":"one"}`)
	_, err := f.executor.Mint(context.Background(), MintRequest{
		TokenID:  "t1",
		OwnerID:  "alice",
		Royalty:  domain.RoyaltyMap{"r1": 500},
		Metadata: metadata,
		Attached: uint256.NewInt(1_000_000),
	})
	require.NoError(t, err)
	f.approve(t, "t1", "bob", "alice")
	f.transferrer.payments = nil

	res, err := f.executor.Burn(context.Background(), "t1", "alice")
	require.NoError(t, err)

	want := rent.MintBytes("t1", "alice", domain.RoyaltyMap{"r1": 500}, metadata) +
		rent.ApprovalEntryBytes("bob")
	assert.Equal(t, uint256.NewInt(want).Dec(), res.Released.Dec())

	_, err = f.executor.Token("t1")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	assert.Contains(t, f.store.calls, "burn:t1")
	assert.Contains(t, f.publisher.events, domain.EventBurn)
}

func TestStaleApprovalIDRejected(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", nil)
	f.approve(t, "t1", "bob", "alice")
	f.approve(t, "t1", "bob", "alice")

	stale := uint64(0)
	_, err := f.executor.Transfer(context.Background(), TransferRequest{
		TokenID:    "t1",
		SenderID:   "bob",
		ReceiverID: "carol",
		ApprovalID: &stale,
	})
	assert.ErrorIs(t, err, domain.ErrApprovalMismatch)
}

func TestEnumerationReads(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "t1", "alice", nil)
	f.mint(t, "t2", "alice", nil)
	f.mint(t, "t3", "bob", nil)

	assert.Equal(t, uint64(3), f.executor.Supply())
	assert.Equal(t, uint64(2), f.executor.SupplyForOwner("alice"))
	assert.Equal(t, []domain.TokenID{"t1", "t2", "t3"}, f.executor.Tokens(0, -1))
	assert.Equal(t, []domain.TokenID{"t3"}, f.executor.TokensForOwner("bob", 0, -1))
}
