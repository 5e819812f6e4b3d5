package events

import (
	"math/big"
	"strconv"
	"strings"

	"mediachain/core/types"
)

const (
	TypePromotionRegistered  = "promotion.registered"
	TypePromotionBudgetAdded = "promotion.budget.added"
	TypePromotionAuthority   = "promotion.authority.added"
	TypePromotionInteraction = "promotion.interaction"
	TypePromotionPayout      = "promotion.payout"
	TypePromotionEnded       = "promotion.ended"
	TypeContentPurchased     = "promotion.content.purchased"
)

type PromotionRegistered struct {
	ContentID   string
	Owner       [20]byte
	Escrow      [20]byte
	StartHeight uint64
	Duration    uint64
	Budget      *big.Int
}

func (PromotionRegistered) EventType() string { return TypePromotionRegistered }

func (e PromotionRegistered) Event() *types.Event {
	return &types.Event{Type: TypePromotionRegistered, Attributes: map[string]string{
		"contentId":   e.ContentID,
		"owner":       formatAccount(e.Owner),
		"escrow":      formatAccount(e.Escrow),
		"startHeight": formatHeight(e.StartHeight),
		"duration":    formatHeight(e.Duration),
		"budget":      formatAmount(e.Budget),
	}}
}

type PromotionBudgetAdded struct {
	ContentID string
	Funder    [20]byte
	Amount    *big.Int
	Budget    *big.Int
}

func (PromotionBudgetAdded) EventType() string { return TypePromotionBudgetAdded }

func (e PromotionBudgetAdded) Event() *types.Event {
	return &types.Event{Type: TypePromotionBudgetAdded, Attributes: map[string]string{
		"contentId": e.ContentID,
		"funder":    formatAccount(e.Funder),
		"amount":    formatAmount(e.Amount),
		"budget":    formatAmount(e.Budget),
	}}
}

type PromotionAuthorityAdded struct {
	ContentID string
	Service   string
}

func (PromotionAuthorityAdded) EventType() string { return TypePromotionAuthority }

func (e PromotionAuthorityAdded) Event() *types.Event {
	return &types.Event{Type: TypePromotionAuthority, Attributes: map[string]string{
		"contentId": e.ContentID,
		"service":   e.Service,
	}}
}

type PromotionInteraction struct {
	ContentID  string
	Account    [20]byte
	Actor      [20]byte
	Kind       string
	Height     uint64
	Units      uint64
	CoAccounts [][20]byte
}

func (PromotionInteraction) EventType() string { return TypePromotionInteraction }

func (e PromotionInteraction) Event() *types.Event {
	attrs := map[string]string{
		"contentId": e.ContentID,
		"account":   formatAccount(e.Account),
		"kind":      e.Kind,
		"height":    formatHeight(e.Height),
		"units":     strconv.FormatUint(e.Units, 10),
	}
	if e.Actor != e.Account && !isZero(e.Actor) {
		attrs["actor"] = formatAccount(e.Actor)
	}
	if len(e.CoAccounts) > 0 {
		encoded := make([]string, len(e.CoAccounts))
		for i, co := range e.CoAccounts {
			encoded[i] = formatAccount(co)
		}
		attrs["coAccounts"] = strings.Join(encoded, ",")
	}
	return &types.Event{Type: TypePromotionInteraction, Attributes: attrs}
}

type PromotionPayout struct {
	ContentID string
	Account   [20]byte
	Amount    *big.Int
}

func (PromotionPayout) EventType() string { return TypePromotionPayout }

func (e PromotionPayout) Event() *types.Event {
	return &types.Event{Type: TypePromotionPayout, Attributes: map[string]string{
		"contentId": e.ContentID,
		"account":   formatAccount(e.Account),
		"amount":    formatAmount(e.Amount),
	}}
}

type PromotionEnded struct {
	ContentID     string
	Height        uint64
	Budget        *big.Int
	Paid          *big.Int
	Dust          *big.Int
	ActiveBuckets uint64
	Refund        *big.Int
}

func (PromotionEnded) EventType() string { return TypePromotionEnded }

func (e PromotionEnded) Event() *types.Event {
	return &types.Event{Type: TypePromotionEnded, Attributes: map[string]string{
		"contentId":     e.ContentID,
		"height":        formatHeight(e.Height),
		"budget":        formatAmount(e.Budget),
		"paid":          formatAmount(e.Paid),
		"dust":          formatAmount(e.Dust),
		"activeBuckets": strconv.FormatUint(e.ActiveBuckets, 10),
		"refund":        formatAmount(e.Refund),
	}}
}

type ContentPurchased struct {
	ContentID string
	Buyer     [20]byte
	Payer     [20]byte
	Recipient [20]byte
	Referrer  [20]byte
	Amount    *big.Int
	Referral  *big.Int
}

func (ContentPurchased) EventType() string { return TypeContentPurchased }

func (e ContentPurchased) Event() *types.Event {
	attrs := map[string]string{
		"contentId": e.ContentID,
		"buyer":     formatAccount(e.Buyer),
		"payer":     formatAccount(e.Payer),
		"recipient": formatAccount(e.Recipient),
		"amount":    formatAmount(e.Amount),
	}
	if e.Referral != nil && e.Referral.Sign() > 0 {
		attrs["referrer"] = formatAccount(e.Referrer)
		attrs["referral"] = formatAmount(e.Referral)
	}
	return &types.Event{Type: TypeContentPurchased, Attributes: attrs}
}
