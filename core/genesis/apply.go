package genesis

import (
	"fmt"
	"math/big"
)

var markerKey = []byte("chain/genesis")

type genesisState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

type minter interface {
	Mint(to [20]byte, amount *big.Int) error
}

// Record is persisted once genesis has been applied. Restarts read the roles
// from it instead of the spec file.
type Record struct {
	RegistryOwner [20]byte
	LedgerManager [20]byte
	Supply        *big.Int
}

// Stored returns the genesis record when genesis has already been applied.
func Stored(st genesisState) (*Record, bool, error) {
	if st == nil {
		return nil, false, fmt.Errorf("genesis: state unavailable")
	}
	var rec Record
	ok, err := st.KVGet(markerKey, &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	if rec.Supply == nil {
		rec.Supply = big.NewInt(0)
	}
	return &rec, true, nil
}

// Apply mints the allocations of r and writes the genesis marker. Roles left
// empty in the spec default to operator. When the marker already exists the
// stored record is returned and nothing is minted.
func Apply(st genesisState, ledger minter, r *Resolved, operator [20]byte) (*Record, bool, error) {
	if existing, ok, err := Stored(st); err != nil {
		return nil, false, err
	} else if ok {
		return existing, false, nil
	}
	if ledger == nil {
		return nil, false, fmt.Errorf("genesis: ledger unavailable")
	}
	if r == nil {
		r = &Resolved{}
	}
	rec := &Record{
		RegistryOwner: r.RegistryOwner,
		LedgerManager: r.LedgerManager,
		Supply:        big.NewInt(0),
	}
	if rec.RegistryOwner == ([20]byte{}) {
		rec.RegistryOwner = operator
	}
	if rec.LedgerManager == ([20]byte{}) {
		rec.LedgerManager = operator
	}
	for _, alloc := range r.Alloc {
		if alloc.Amount == nil || alloc.Amount.Sign() == 0 {
			continue
		}
		if err := ledger.Mint(alloc.Account, alloc.Amount); err != nil {
			return nil, false, fmt.Errorf("genesis: mint: %w", err)
		}
		rec.Supply.Add(rec.Supply, alloc.Amount)
	}
	if err := st.KVPut(markerKey, rec); err != nil {
		return nil, false, fmt.Errorf("genesis: persist marker: %w", err)
	}
	return rec, true, nil
}
