package promotion

import (
	"math/big"
	"testing"
)

func TestSettleSplitsActiveBucketsAndKeepsDust(t *testing.T) {
	p := &Promotion{StartHeight: 10, Duration: 20}
	var records []Interaction
	for i := 0; i < 20; i++ {
		if i == 4 || i == 11 {
			continue
		}
		records = append(records, Interaction{Account: account(byte(i + 1)), Height: uint64(10 + i), Units: 100})
	}
	s := Settle(p, records, big.NewInt(2_000_000))
	if s.ActiveBuckets != 18 {
		t.Fatalf("expected 18 active buckets, got %d", s.ActiveBuckets)
	}
	if s.PerBucket.Int64() != 111_111 {
		t.Fatalf("unexpected per bucket amount %s", s.PerBucket)
	}
	if s.TotalPaid.Int64() != 1_999_998 || s.Remainder.Int64() != 2 {
		t.Fatalf("unexpected totals paid=%s remainder=%s", s.TotalPaid, s.Remainder)
	}
	for i := 1; i < len(s.Payouts); i++ {
		prev, cur := s.Payouts[i-1].Account, s.Payouts[i].Account
		if string(prev[:]) >= string(cur[:]) {
			t.Fatalf("payouts must be ordered by account")
		}
	}
}

func TestSettleProRataWithinBucket(t *testing.T) {
	p := &Promotion{StartHeight: 0, Duration: 5}
	records := []Interaction{
		{Account: account(1), Height: 2, Units: 100},
		{Account: account(2), Height: 2, Units: 200},
		{Account: account(1), Height: 3, Units: 100},
	}
	s := Settle(p, records, big.NewInt(1000))
	got := map[[20]byte]int64{}
	for _, payout := range s.Payouts {
		got[payout.Account] = payout.Amount.Int64()
	}
	// 500 per bucket: bucket 2 splits 166/333, bucket 3 pays 500 to account 1.
	if got[account(1)] != 666 || got[account(2)] != 333 {
		t.Fatalf("unexpected payouts %+v", got)
	}
	if s.Remainder.Int64() != 1 {
		t.Fatalf("expected one unit of dust, got %s", s.Remainder)
	}
}

func TestSettleWithoutActivity(t *testing.T) {
	p := &Promotion{StartHeight: 0, Duration: 5}
	s := Settle(p, []Interaction{{Account: account(1), Height: 9, Units: 100}}, big.NewInt(77))
	if s.ActiveBuckets != 0 || len(s.Payouts) != 0 {
		t.Fatalf("out-of-window entries must be ignored: %+v", s)
	}
	if s.Remainder.Int64() != 77 {
		t.Fatalf("whole budget should remain, got %s", s.Remainder)
	}
}

func TestSettleIgnoresViewsBelowThreshold(t *testing.T) {
	p := &Promotion{StartHeight: 0, Duration: 4, MinViewCount: 3, ViewCount: 2}
	records := []Interaction{
		{Account: account(1), Height: 0, Units: 100, Type: uint8(View)},
		{Account: account(2), Height: 1, Units: 100, Type: uint8(Like)},
	}
	s := Settle(p, records, big.NewInt(100))
	if s.ActiveBuckets != 1 || len(s.Payouts) != 1 || s.Payouts[0].Account != account(2) {
		t.Fatalf("views below the threshold must not activate buckets: %+v", s)
	}

	p.ViewCount = 3
	s = Settle(p, records, big.NewInt(100))
	if s.ActiveBuckets != 2 {
		t.Fatalf("views at the threshold count, got %d active", s.ActiveBuckets)
	}
}

func TestSettleUnitTotalsDoNotWrap(t *testing.T) {
	p := &Promotion{StartHeight: 0, Duration: 2}
	huge := ^uint64(0)
	records := []Interaction{
		{Account: account(1), Height: 0, Units: huge},
		{Account: account(1), Height: 0, Units: huge},
		{Account: account(2), Height: 0, Units: 1},
	}
	s := Settle(p, records, big.NewInt(1000))
	if s.TotalPaid.Cmp(big.NewInt(1000)) > 0 {
		t.Fatalf("payouts %s exceed the budget", s.TotalPaid)
	}
	if len(s.Payouts) != 1 || s.Payouts[0].Account != account(1) || s.Payouts[0].Amount.Int64() != 999 {
		t.Fatalf("unexpected payouts %+v", s.Payouts)
	}
	if s.Remainder.Int64() != 1 {
		t.Fatalf("expected one unit of dust, got %s", s.Remainder)
	}
}
