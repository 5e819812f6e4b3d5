package promotion

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "mediachain/core/errors"
	"mediachain/core/types"
	"mediachain/native/common"
)

// reentrantLedger calls back into the registry while funds move.
type reentrantLedger struct {
	Ledger
	registry *Registry
	hook     func(r *Registry) error
	errs     []error
}

func (l *reentrantLedger) TransferFrom(bc types.BlockContext, spender, from, to [20]byte, amount *big.Int) error {
	if l.hook != nil {
		l.errs = append(l.errs, l.hook(l.registry))
	}
	return l.Ledger.TransferFrom(bc, spender, from, to, amount)
}

func (l *reentrantLedger) Transfer(bc types.BlockContext, from, to [20]byte, amount *big.Int) error {
	if l.hook != nil {
		l.errs = append(l.errs, l.hook(l.registry))
	}
	return l.Ledger.Transfer(bc, from, to, amount)
}

func TestReentrantCallsAreRejected(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 1000)

	evil := &reentrantLedger{Ledger: h.ledger}
	reg := NewRegistry(h.state, evil, operator)
	reg.SetVerifier(h.identity)
	reg.SetDelegations(h.delegations)
	evil.registry = reg

	evil.hook = func(r *Registry) error {
		return r.RecordInteraction(at(1), owner, content, Like, "", nil)
	}
	if _, err := reg.PromotionRegister(at(0), owner, openParams(content, 0, 2, 100)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(evil.errs) != 1 || !errors.Is(evil.errs[0], common.ErrReentrantCall) {
		t.Fatalf("nested interaction must be rejected, got %v", evil.errs)
	}

	evil.errs = nil
	evil.hook = func(r *Registry) error {
		return r.BuyContent(at(1), owner, content, account(1), big.NewInt(1), [20]byte{})
	}
	if err := reg.BuyContent(at(1), owner, content, account(2), big.NewInt(5), [20]byte{}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if len(evil.errs) != 1 || !errors.Is(evil.errs[0], common.ErrReentrantCall) {
		t.Fatalf("nested purchase must be rejected, got %v", evil.errs)
	}

	evil.hook = nil
	if err := reg.RecordInteraction(at(1), account(3), content, Like, "", nil); err != nil {
		t.Fatalf("guards must be released after each call: %v", err)
	}

	evil.errs = nil
	evil.hook = func(r *Registry) error {
		_, err := r.EndPromotion(at(2), owner, content)
		return err
	}
	if _, err := reg.EndPromotion(at(2), owner, content); err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(evil.errs) == 0 {
		t.Fatalf("expected payout transfers to trigger the hook")
	}
	for _, err := range evil.errs {
		if !errors.Is(err, common.ErrReentrantCall) {
			t.Fatalf("nested settlement must be rejected, got %v", err)
		}
	}
	if h.balance(account(3)) != 100 {
		t.Fatalf("settlement should pay exactly once, got %d", h.balance(account(3)))
	}
}

// cappedInteractions refuses shares.
type cappedInteractions struct{ V1 }

func (c cappedInteractions) RecordInteraction(b *Backend, bc types.BlockContext, caller [20]byte, contentID string, kind InteractionType, metadata string, coAccounts [][20]byte) error {
	if kind == Share {
		return coreerrors.ErrNotAuthorized
	}
	return c.V1.RecordInteraction(b, bc, caller, contentID, kind, metadata, coAccounts)
}

func TestUpgradeKeepsCampaigns(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 100)
	h.register(at(0), owner, openParams(content, 0, 5, 100))
	if err := h.record(0, account(1), content, Like); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := h.registry.Upgrade(owner, cappedInteractions{}, "no-shares"); !errors.Is(err, coreerrors.ErrNotAuthorized) {
		t.Fatalf("campaign owners cannot upgrade the registry, got %v", err)
	}
	if err := h.registry.Upgrade(operator, cappedInteractions{}, "no-shares"); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if v := h.registry.Version(); v.Number != 2 || v.Label != "no-shares" {
		t.Fatalf("unexpected version %+v", v)
	}
	if err := h.record(1, account(1), content, Share); !errors.Is(err, coreerrors.ErrNotAuthorized) {
		t.Fatalf("upgraded logic should apply, got %v", err)
	}
	if err := h.record(1, account(1), content, Like); !errors.Is(err, coreerrors.ErrDuplicateInteraction) {
		t.Fatalf("claims recorded before the upgrade must survive, got %v", err)
	}
	p, ok, err := h.registry.PromotionGet(content)
	if err != nil || !ok || p.InteractionCount != 1 {
		t.Fatalf("campaign lost across upgrade: %+v ok=%v err=%v", p, ok, err)
	}
}

func TestPausedRegistryRejectsMutations(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 100)
	h.registry.SetPauses(common.StaticPauses{"promotion": true})
	if _, err := h.registry.PromotionRegister(at(0), owner, openParams(content, 1, 2, 100)); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if _, ok, err := h.registry.PromotionGet(content); ok || err != nil {
		t.Fatalf("reads must work while paused: ok=%v err=%v", ok, err)
	}
}

func TestRecordInteractionLimits(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 100)
	params := openParams(content, 0, 5, 100)
	params.ReferralSplit = 10
	h.register(at(0), owner, params)
	h.registry.SetLimits(Limits{MaxMetadataBytes: 4, MaxCoAccounts: 1})

	if err := h.registry.RecordInteraction(at(0), account(1), content, Comment, "too long", nil); !errors.Is(err, ErrMetadataTooLarge) {
		t.Fatalf("expected ErrMetadataTooLarge, got %v", err)
	}
	if err := h.record(0, account(1), content, Like, account(2), account(3)); !errors.Is(err, ErrTooManyCoAccounts) {
		t.Fatalf("expected ErrTooManyCoAccounts, got %v", err)
	}
}
