package promotion

import (
	"fmt"
	"math/big"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
	"mediachain/core/types"
)

// BuyContent pays recipient for contentID. An active delegate spends from its
// master. While a campaign with a referral split runs for the content, the
// referrer receives that percentage of the price.
func (V1) BuyContent(b *Backend, bc types.BlockContext, caller [20]byte, contentID string, recipient [20]byte, amount *big.Int, referrer [20]byte) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if recipient == [20]byte{} {
		return ErrZeroAddress
	}
	id := normalizeContentID(contentID)
	if id == "" {
		return ErrInvalidContentID
	}
	payer, err := b.resolve(caller)
	if err != nil {
		return err
	}

	referral := new(big.Int)
	if referrer != ([20]byte{}) && referrer != payer && referrer != recipient {
		p, ok, err := b.store.campaign(id)
		if err != nil {
			return err
		}
		if ok && !p.Ended && p.ReferralSplit > 0 {
			referral.Mul(amount, new(big.Int).SetUint64(p.ReferralSplit))
			referral.Div(referral, big.NewInt(100))
		}
	}
	net := new(big.Int).Sub(amount, referral)
	if net.Sign() > 0 {
		if err := b.ledger.TransferFrom(bc, b.address, payer, recipient, net); err != nil {
			return err
		}
	}
	if referral.Sign() > 0 {
		if err := b.ledger.TransferFrom(bc, b.address, payer, referrer, referral); err != nil {
			return err
		}
	}
	evt := events.ContentPurchased{
		ContentID: id,
		Buyer:     caller,
		Payer:     payer,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
		Referral:  referral,
	}
	if referral.Sign() > 0 {
		evt.Referrer = referrer
	}
	b.Emit(evt)
	return nil
}

func (V1) ProposeDelegation(b *Backend, caller, delegate [20]byte) error {
	if b.delegations == nil {
		return fmt.Errorf("%w: delegation registry not configured", coreerrors.ErrNotAuthorized)
	}
	return b.delegations.ProposeDelegation(caller, delegate)
}

func (V1) ProposeMaster(b *Backend, caller, master [20]byte) error {
	if b.delegations == nil {
		return fmt.Errorf("%w: delegation registry not configured", coreerrors.ErrNotAuthorized)
	}
	return b.delegations.ProposeMaster(caller, master)
}
