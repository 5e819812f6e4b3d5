package promotion

import (
	"fmt"
	"math/big"
	"strings"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
	"mediachain/core/types"
)

// Offer is a paywalled resource sold by subscription. Payment is pulled
// through the registry spender, so subscribers typically grant it a
// recurrent allowance sized to Price every Period.
type Offer struct {
	URI    string
	Owner  [20]byte
	Price  *big.Int
	Period uint64
}

func (o *Offer) ensure() *Offer {
	if o.Price == nil {
		o.Price = new(big.Int)
	}
	return o
}

func (V1) RegisterSubscriptionOffer(b *Backend, _ types.BlockContext, caller [20]byte, uri string, price *big.Int, period uint64) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ErrInvalidContentID
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if period == 0 {
		return ErrInvalidPeriod
	}
	existing, ok, err := b.store.offer(uri)
	if err != nil {
		return err
	}
	if ok && existing.Owner != caller {
		return fmt.Errorf("%w: offer %s belongs to another owner", coreerrors.ErrNotAuthorized, uri)
	}
	offer := &Offer{URI: uri, Owner: caller, Price: new(big.Int).Set(price), Period: period}
	if err := b.store.putOffer(offer); err != nil {
		return err
	}
	b.Emit(events.SubscriptionOffer{URI: uri, Owner: caller, Price: new(big.Int).Set(price), Period: period})
	return nil
}

func (V1) Subscribe(b *Backend, bc types.BlockContext, caller [20]byte, uri string) (uint64, error) {
	return charge(b, bc, strings.TrimSpace(uri), caller, false)
}

// RenewSubscription extends an expired subscription. Anyone may trigger the
// renewal; the subscriber pays.
func (V1) RenewSubscription(b *Backend, bc types.BlockContext, _ [20]byte, uri string, subscriber [20]byte) (uint64, error) {
	return charge(b, bc, strings.TrimSpace(uri), subscriber, true)
}

func (V1) IsSubscriber(b *Backend, uri string, account [20]byte, height uint64) (bool, error) {
	expires, ok, err := b.store.membership(strings.TrimSpace(uri), account)
	if err != nil || !ok {
		return false, err
	}
	return height < expires, nil
}

func charge(b *Backend, bc types.BlockContext, uri string, subscriber [20]byte, renewal bool) (uint64, error) {
	offer, ok, err := b.store.offer(uri)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOffer, uri)
	}
	expires, member, err := b.store.membership(uri, subscriber)
	if err != nil {
		return 0, err
	}
	if renewal && !member {
		return 0, ErrNotSubscribed
	}
	if member && bc.Height < expires {
		return 0, fmt.Errorf("%w: expires at height %d", ErrAlreadySubscribed, expires)
	}
	if err := b.ledger.TransferFrom(bc, b.address, subscriber, offer.Owner, offer.Price); err != nil {
		return 0, err
	}
	next := bc.Height + offer.Period
	if err := b.store.putMembership(uri, subscriber, next); err != nil {
		return 0, err
	}
	b.Emit(events.Subscribed{URI: uri, Subscriber: subscriber, ExpiresAt: next, Renewal: renewal})
	return next, nil
}
