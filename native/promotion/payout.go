package promotion

import (
	"bytes"
	"math/big"
	"sort"
)

// Payout is the reward owed to one account at campaign end.
type Payout struct {
	Account [20]byte
	Amount  *big.Int
}

// Settlement summarises a campaign distribution.
type Settlement struct {
	Budget        *big.Int
	PerBucket     *big.Int
	ActiveBuckets uint64
	TotalPaid     *big.Int
	// Remainder stays with the owner: floor residue when buckets were active,
	// the whole budget otherwise.
	Remainder *big.Int
	Payouts   []Payout
}

// Settle splits budget across the campaign's height buckets. Every active
// bucket receives budget/active and shares it pro rata to the units each
// account earned in that bucket. All divisions floor. Payouts are ordered by
// ascending account.
func Settle(p *Promotion, records []Interaction, budget *big.Int) *Settlement {
	result := &Settlement{
		Budget:    copyInt(budget),
		PerBucket: new(big.Int),
		TotalPaid: new(big.Int),
		Remainder: copyInt(budget),
		Payouts:   []Payout{},
	}
	if p == nil || budget == nil || budget.Sign() <= 0 || p.Duration == 0 {
		return result
	}

	countViews := p.ViewCount >= p.MinViewCount
	// Units accumulate as big.Int: repeated shares have no upper bound.
	bucketTotals := make(map[uint64]*big.Int)
	bucketUnits := make(map[uint64]map[[20]byte]*big.Int)
	for _, entry := range records {
		if entry.Units == 0 || !p.InWindow(entry.Height) {
			continue
		}
		if InteractionType(entry.Type) == View && !countViews {
			continue
		}
		bucket := entry.Height - p.StartHeight
		units, ok := bucketUnits[bucket]
		if !ok {
			units = make(map[[20]byte]*big.Int)
			bucketUnits[bucket] = units
			bucketTotals[bucket] = new(big.Int)
		}
		amount := new(big.Int).SetUint64(entry.Units)
		if acc, ok := units[entry.Account]; ok {
			acc.Add(acc, amount)
		} else {
			units[entry.Account] = amount
		}
		bucketTotals[bucket].Add(bucketTotals[bucket], amount)
	}
	if len(bucketTotals) == 0 {
		return result
	}

	buckets := make([]uint64, 0, len(bucketTotals))
	for bucket := range bucketTotals {
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	active := uint64(len(buckets))
	perBucket := new(big.Int).Div(budget, new(big.Int).SetUint64(active))
	result.ActiveBuckets = active
	result.PerBucket = perBucket

	rewards := make(map[[20]byte]*big.Int)
	for _, bucket := range buckets {
		total := bucketTotals[bucket]
		for account, units := range bucketUnits[bucket] {
			share := new(big.Int).Mul(perBucket, units)
			share.Div(share, total)
			if share.Sign() == 0 {
				continue
			}
			if acc, ok := rewards[account]; ok {
				acc.Add(acc, share)
			} else {
				rewards[account] = share
			}
		}
	}

	accounts := make([][20]byte, 0, len(rewards))
	for account := range rewards {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return bytes.Compare(accounts[i][:], accounts[j][:]) < 0 })

	for _, account := range accounts {
		amount := rewards[account]
		result.Payouts = append(result.Payouts, Payout{Account: account, Amount: amount})
		result.TotalPaid.Add(result.TotalPaid, amount)
	}
	result.Remainder = new(big.Int).Sub(budget, result.TotalPaid)
	return result
}
