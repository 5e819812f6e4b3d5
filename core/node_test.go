package core

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
	"mediachain/core/genesis"
	"mediachain/core/types"
	"mediachain/crypto"
	"mediachain/native/promotion"
	"mediachain/storage"
)

var (
	operator = [20]byte{0xee}
	acc0     = [20]byte{0x10}
	acc1     = [20]byte{0x11}
	acc2     = [20]byte{0x12}
)

func initialSupply() *big.Int {
	v, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	return v
}

type recordingSink struct {
	mu      sync.Mutex
	records []types.EventRecord
}

func (s *recordingSink) Publish(_ context.Context, records []types.EventRecord) error {
	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) ofType(kind string) []types.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.EventRecord
	for _, rec := range s.records {
		if rec.Event.Type == kind {
			out = append(out, rec)
		}
	}
	return out
}

func newTestNode(t *testing.T, db storage.Database, autoMine bool) *Node {
	t.Helper()
	spec := &genesis.Spec{Alloc: map[string]string{
		crypto.FormatAccount(acc0): initialSupply().String(),
	}}
	node, err := NewNode(db, Options{Operator: operator, Genesis: spec, AutoMine: autoMine})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func balance(t *testing.T, n *Node, addr [20]byte) *big.Int {
	t.Helper()
	bal, err := n.BalanceOf(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func TestGenesisSupply(t *testing.T) {
	node := newTestNode(t, storage.NewMemDB(), true)
	if bal := balance(t, node, acc0); bal.Cmp(initialSupply()) != 0 {
		t.Fatalf("unexpected genesis balance %s", bal)
	}
	supply, err := node.TotalSupply()
	if err != nil || supply.Cmp(initialSupply()) != 0 {
		t.Fatalf("unexpected supply %s err=%v", supply, err)
	}
	if node.RegistryOwner() != operator {
		t.Fatalf("registry owner should default to the operator")
	}
}

func TestDelegateBuysContentFromMaster(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t, storage.NewMemDB(), true)
	sink := &recordingSink{}
	node.AddSink(sink)

	registry := promotion.RegistryAddress()
	if _, err := node.Approve(ctx, acc0, registry, big.NewInt(10_000_000_000_000_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := node.ProposeDelegation(ctx, acc0, acc1); err != nil {
		t.Fatalf("propose delegation: %v", err)
	}
	if _, err := node.ProposeMaster(ctx, acc1, acc0); err != nil {
		t.Fatalf("propose master: %v", err)
	}
	master, ok, err := node.MasterOf(acc1)
	if err != nil || !ok || master != acc0 {
		t.Fatalf("expected acc0 as master, got %x ok=%v err=%v", master, ok, err)
	}

	receipt, err := node.BuyContent(ctx, acc1, "http://abcd", acc2, big.NewInt(100), [20]byte{})
	if err != nil {
		t.Fatalf("buy content: %v", err)
	}
	if receipt.Height != 4 {
		t.Fatalf("expected height 4, got %d", receipt.Height)
	}

	want, _ := new(big.Int).SetString("999999999999999999999900", 10)
	if bal := balance(t, node, acc0); bal.Cmp(want) != 0 {
		t.Fatalf("master balance %s, want %s", bal, want)
	}
	if bal := balance(t, node, acc2); bal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("recipient balance %s, want 100", bal)
	}
	if bal := balance(t, node, acc1); bal.Sign() != 0 {
		t.Fatalf("delegate should not pay, balance %s", bal)
	}
	if got := sink.ofType(events.TypeContentPurchased); len(got) != 1 {
		t.Fatalf("expected one purchase event, got %d", len(got))
	}
}

func TestVerifiedInteractionsThroughNode(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t, storage.NewMemDB(), true)
	registry := promotion.RegistryAddress()
	issuer := [20]byte{0x08}

	if _, err := node.Approve(ctx, acc0, registry, big.NewInt(1000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	params := promotion.Params{
		ContentID:   "http://abc",
		StartHeight: 2,
		Duration:    10,
		Budget:      big.NewInt(1000),
		Likes:       true,
		Authorities: []string{"myVerification"},
	}
	if _, _, err := node.RegisterPromotion(ctx, acc0, params); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := node.RegisterService(ctx, issuer, "myVerification"); err != nil {
		t.Fatalf("register service: %v", err)
	}
	receipt, err := node.RecordInteraction(ctx, acc1, "http://abc", promotion.Like, "", nil)
	if !errors.Is(err, coreerrors.ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
	if receipt.Height != 4 || node.Height() != 4 {
		t.Fatalf("failed operation must still consume a height, got %d", node.Height())
	}
	if _, err := node.AddUserVerification(ctx, issuer, acc1); err != nil {
		t.Fatalf("verify: %v", err)
	}
	ok, err := node.IsVerified("myVerification", acc1)
	if err != nil || !ok {
		t.Fatalf("expected verified, got %v err=%v", ok, err)
	}
	if _, err := node.RecordInteraction(ctx, acc1, "http://abc", promotion.Like, "", nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	if _, err := node.Mine(ctx, 10); err != nil {
		t.Fatalf("mine: %v", err)
	}
	settlement, _, err := node.EndPromotion(ctx, acc2, "http://abc")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if settlement.ActiveBuckets != 1 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
	if bal := balance(t, node, acc1); bal.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("sole active bucket should pay the whole budget, got %s", bal)
	}
}

func TestFailedOperationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t, storage.NewMemDB(), false)
	sink := &recordingSink{}
	node.AddSink(sink)

	if _, err := node.Transfer(ctx, acc1, acc2, big.NewInt(1)); !errors.Is(err, coreerrors.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// Escrow funding fails without an allowance; nothing of the campaign may persist.
	params := promotion.Params{ContentID: "http://abc", StartHeight: 0, Duration: 5, Budget: big.NewInt(10), Likes: true}
	if _, _, err := node.RegisterPromotion(ctx, acc0, params); !errors.Is(err, coreerrors.ErrAllowanceExceeded) {
		t.Fatalf("expected ErrAllowanceExceeded, got %v", err)
	}
	if _, ok, err := node.PromotionGet("http://abc"); err != nil || ok {
		t.Fatalf("campaign persisted after failure ok=%v err=%v", ok, err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("failed operations must not publish events, got %d", len(sink.records))
	}
	if node.Height() != 0 {
		t.Fatalf("height must not advance without auto-mine, got %d", node.Height())
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemDB()
	node := newTestNode(t, db, true)
	sink := &recordingSink{}
	node.AddSink(sink)
	if _, err := node.Transfer(ctx, acc0, acc1, big.NewInt(42)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := node.Mine(ctx, 3); err != nil {
		t.Fatalf("mine: %v", err)
	}

	// Genesis is not re-applied over existing state.
	restarted := newTestNode(t, db, true)
	if restarted.Height() != 4 {
		t.Fatalf("expected height 4 after restart, got %d", restarted.Height())
	}
	if bal := balance(t, restarted, acc1); bal.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("expected persisted balance 42, got %s", bal)
	}
	supply, _ := restarted.TotalSupply()
	if supply.Cmp(initialSupply()) != 0 {
		t.Fatalf("supply changed across restart: %s", supply)
	}

	next := &recordingSink{}
	restarted.AddSink(next)
	if _, err := restarted.Transfer(ctx, acc1, acc2, big.NewInt(2)); err != nil {
		t.Fatalf("transfer after restart: %v", err)
	}
	last := sink.records[len(sink.records)-1].Sequence
	if got := next.records[0].Sequence; got != last+1 {
		t.Fatalf("event sequence must continue across restarts: got %d after %d", got, last)
	}
}

func TestSubscriptionThroughNode(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t, storage.NewMemDB(), true)
	registry := promotion.RegistryAddress()
	if _, err := node.ApproveRecurrent(ctx, acc0, registry, big.NewInt(10), 5); err != nil {
		t.Fatalf("approve recurrent: %v", err)
	}
	if _, err := node.RegisterSubscriptionOffer(ctx, acc2, "http://feed", big.NewInt(10), 5); err != nil {
		t.Fatalf("offer: %v", err)
	}
	expires, _, err := node.Subscribe(ctx, acc0, "http://feed")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if expires != 3+5 {
		t.Fatalf("unexpected expiry %d", expires)
	}
	ok, err := node.IsSubscriber("http://feed", acc0)
	if err != nil || !ok {
		t.Fatalf("expected live membership, got %v err=%v", ok, err)
	}
	if bal := balance(t, node, acc2); bal.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("publisher should be paid, got %s", bal)
	}
}
