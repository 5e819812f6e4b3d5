package events

import (
	"math/big"

	"mediachain/core/types"
)

const (
	TypeSubscriptionOffer = "subscription.offer"
	TypeSubscribed        = "subscription.subscribed"
)

type SubscriptionOffer struct {
	URI    string
	Owner  [20]byte
	Price  *big.Int
	Period uint64
}

func (SubscriptionOffer) EventType() string { return TypeSubscriptionOffer }

func (e SubscriptionOffer) Event() *types.Event {
	return &types.Event{Type: TypeSubscriptionOffer, Attributes: map[string]string{
		"uri":    e.URI,
		"owner":  formatAccount(e.Owner),
		"price":  formatAmount(e.Price),
		"period": formatHeight(e.Period),
	}}
}

// Subscribed covers initial subscriptions and renewals.
type Subscribed struct {
	URI        string
	Subscriber [20]byte
	ExpiresAt  uint64
	Renewal    bool
}

func (Subscribed) EventType() string { return TypeSubscribed }

func (e Subscribed) Event() *types.Event {
	renewal := "false"
	if e.Renewal {
		renewal = "true"
	}
	return &types.Event{Type: TypeSubscribed, Attributes: map[string]string{
		"uri":        e.URI,
		"subscriber": formatAccount(e.Subscriber),
		"expiresAt":  formatHeight(e.ExpiresAt),
		"renewal":    renewal,
	}}
}
