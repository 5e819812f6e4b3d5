package token

import (
	"math/big"

	"mediachain/native/common"
)

// RecurrentAllowance is a periodic spending authorization. SpentInPeriod
// refills lazily once PeriodLength heights have elapsed since PeriodStart.
type RecurrentAllowance struct {
	Cap           *big.Int
	PeriodLength  uint64
	SpentInPeriod *big.Int
	PeriodStart   uint64
}

func (r *RecurrentAllowance) window() common.PeriodWindow {
	if r == nil {
		return common.PeriodWindow{}
	}
	return common.PeriodWindow{Cap: r.Cap, Length: r.PeriodLength, Spent: r.SpentInPeriod, Start: r.PeriodStart}
}

func recurrentFromWindow(w common.PeriodWindow) *RecurrentAllowance {
	return &RecurrentAllowance{Cap: w.Cap, PeriodLength: w.Length, SpentInPeriod: w.Spent, PeriodStart: w.Start}
}

// Active reports whether the allowance still authorizes draws.
func (r *RecurrentAllowance) Active() bool {
	return r.window().Active()
}

// Remaining returns the unspent part of the cap as seen at height.
func (r *RecurrentAllowance) Remaining(height uint64) *big.Int {
	return r.window().Remaining(height)
}

func (r *RecurrentAllowance) ensure() *RecurrentAllowance {
	if r.Cap == nil {
		r.Cap = new(big.Int)
	}
	if r.SpentInPeriod == nil {
		r.SpentInPeriod = new(big.Int)
	}
	return r
}
