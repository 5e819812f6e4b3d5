package promotion

import (
	"math/big"
	"testing"

	"mediachain/core/events"
	"mediachain/core/state"
	"mediachain/core/types"
	"mediachain/native/delegation"
	"mediachain/native/identity"
	"mediachain/native/token"
	"mediachain/storage"
)

var operator = [20]byte{0xee}

type captureEmitter struct{ events []events.Event }

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captureEmitter) ofType(kind string) []events.Event {
	var out []events.Event
	for _, evt := range c.events {
		if evt.EventType() == kind {
			out = append(out, evt)
		}
	}
	return out
}

type harness struct {
	t           *testing.T
	state       *state.Manager
	ledger      *token.Engine
	identity    *identity.Registry
	delegations *delegation.Registry
	registry    *Registry
	events      *captureEmitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	capture := &captureEmitter{}

	ledger := token.NewEngine()
	ledger.SetState(mgr)
	ledger.SetEmitter(capture)

	ids := identity.NewRegistry(mgr, operator)
	dels := delegation.NewRegistry(mgr)

	reg := NewRegistry(mgr, ledger, operator)
	reg.SetVerifier(ids)
	reg.SetDelegations(dels)
	reg.SetEmitter(capture)

	return &harness{t: t, state: mgr, ledger: ledger, identity: ids, delegations: dels, registry: reg, events: capture}
}

func account(n byte) [20]byte { return [20]byte{n} }

func at(h uint64) types.BlockContext { return types.BlockContext{Height: h} }

// fund mints amount to addr and approves the registry for it.
func (h *harness) fund(addr [20]byte, amount int64) {
	h.t.Helper()
	if err := h.ledger.Mint(addr, big.NewInt(amount)); err != nil {
		h.t.Fatalf("mint: %v", err)
	}
	if err := h.ledger.Approve(at(0), addr, RegistryAddress(), big.NewInt(amount)); err != nil {
		h.t.Fatalf("approve: %v", err)
	}
}

func (h *harness) balance(addr [20]byte) int64 {
	h.t.Helper()
	bal, err := h.ledger.BalanceOf(addr)
	if err != nil {
		h.t.Fatalf("balance: %v", err)
	}
	return bal.Int64()
}

func (h *harness) register(bc types.BlockContext, owner [20]byte, params Params) *Promotion {
	h.t.Helper()
	p, err := h.registry.PromotionRegister(bc, owner, params)
	if err != nil {
		h.t.Fatalf("register: %v", err)
	}
	return p
}

func (h *harness) record(height uint64, caller [20]byte, id string, kind InteractionType, co ...[20]byte) error {
	return h.registry.RecordInteraction(at(height), caller, id, kind, "", co)
}

func openParams(id string, start, duration uint64, budget int64) Params {
	return Params{
		ContentID:   id,
		StartHeight: start,
		Duration:    duration,
		Budget:      big.NewInt(budget),
		Likes:       true,
		Comments:    true,
		Shares:      true,
		Views:       true,
	}
}
