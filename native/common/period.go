package common

import (
	"errors"
	"math/big"
)

var (
	ErrWindowDisabled = errors.New("period window disabled")
	ErrWindowExceeded = errors.New("period window cap exceeded")
)

// PeriodWindow tracks spending against a cap that refills every Length
// heights. Start is the height at which the current period opened.
type PeriodWindow struct {
	Cap    *big.Int
	Length uint64
	Spent  *big.Int
	Start  uint64
}

// Active reports whether the window still authorizes spending.
func (w PeriodWindow) Active() bool {
	return w.Cap != nil && w.Cap.Sign() > 0 && w.Length > 0
}

// Roll returns the window as observed at height. When the current period has
// elapsed the counter is cleared and the period restarts at height.
func (w PeriodWindow) Roll(height uint64) PeriodWindow {
	next := PeriodWindow{Cap: copyInt(w.Cap), Length: w.Length, Spent: copyInt(w.Spent), Start: w.Start}
	if w.Length > 0 && height >= w.Start && height-w.Start >= w.Length {
		next.Spent = new(big.Int)
		next.Start = height
	}
	return next
}

// Remaining is what can still be spent at height.
func (w PeriodWindow) Remaining(height uint64) *big.Int {
	if !w.Active() {
		return new(big.Int)
	}
	rolled := w.Roll(height)
	left := new(big.Int).Sub(rolled.Cap, rolled.Spent)
	if left.Sign() < 0 {
		return new(big.Int)
	}
	return left
}

// ConsumeWindow verifies that amount fits into the window at height. The
// returned window reflects the updated counters when the draw is allowed; on
// denial prev is returned unchanged.
func ConsumeWindow(prev PeriodWindow, height uint64, amount *big.Int) (PeriodWindow, error) {
	if !prev.Active() {
		return prev, ErrWindowDisabled
	}
	next := prev.Roll(height)
	if amount == nil || amount.Sign() <= 0 {
		return next, nil
	}
	total := new(big.Int).Add(next.Spent, amount)
	if total.Cmp(next.Cap) > 0 {
		return prev, ErrWindowExceeded
	}
	next.Spent = total
	return next, nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
