package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	balancePrefix  = []byte("ledger/balance/")
	totalSupplyKey = []byte("ledger/supply")
	heightKey      = []byte("chain/height")

	// ErrBalanceOverflow is returned when a balance would not fit in 256 bits.
	ErrBalanceOverflow = errors.New("state: balance exceeds uint256")
	// ErrNegativeBalance guards against writing a negative amount.
	ErrNegativeBalance = errors.New("state: negative balance")
)

func balanceKey(addr [20]byte) []byte {
	buf := make([]byte, len(balancePrefix)+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], addr[:])
	return buf
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeBalance
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return ErrBalanceOverflow
	}
	return nil
}

// Balance returns the stored balance for addr. Unknown accounts hold zero.
func (m *Manager) Balance(addr [20]byte) (*big.Int, error) {
	out := new(big.Int)
	if _, err := m.KVGet(balanceKey(addr), out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetBalance overwrites the balance for addr.
func (m *Manager) SetBalance(addr [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return fmt.Errorf("%w: %s", err, amount)
	}
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(balanceKey(addr))
	}
	return m.KVPut(balanceKey(addr), amount)
}

// TotalSupply returns the amount minted so far.
func (m *Manager) TotalSupply() (*big.Int, error) {
	out := new(big.Int)
	if _, err := m.KVGet(totalSupplyKey, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetTotalSupply records the minted supply.
func (m *Manager) SetTotalSupply(amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount == nil {
		amount = new(big.Int)
	}
	return m.KVPut(totalSupplyKey, amount)
}

// Height returns the last height consumed by the sequencer.
func (m *Manager) Height() (uint64, error) {
	var height uint64
	if _, err := m.KVGet(heightKey, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// SetHeight persists the sequencer cursor.
func (m *Manager) SetHeight(height uint64) error {
	return m.KVPut(heightKey, height)
}
