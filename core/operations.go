package core

import (
	"context"
	"math/big"

	"mediachain/core/types"
	"mediachain/native/promotion"
	"mediachain/native/token"
)

// Transfer moves amount from caller to to.
func (n *Node) Transfer(ctx context.Context, caller, to [20]byte, amount *big.Int) (Receipt, error) {
	return n.execute(ctx, "token_transfer", func(bc types.BlockContext) error {
		return n.ledger.Transfer(bc, caller, to, amount)
	})
}

// Approve sets the one-shot allowance of spender over caller's balance.
func (n *Node) Approve(ctx context.Context, caller, spender [20]byte, amount *big.Int) (Receipt, error) {
	return n.execute(ctx, "token_approve", func(bc types.BlockContext) error {
		return n.ledger.Approve(bc, caller, spender, amount)
	})
}

// ApproveRecurrent installs a per-period spending cap for spender.
func (n *Node) ApproveRecurrent(ctx context.Context, caller, spender [20]byte, cap *big.Int, period uint64) (Receipt, error) {
	return n.execute(ctx, "token_approveRecurrent", func(bc types.BlockContext) error {
		return n.ledger.ApproveRecurrent(bc, caller, spender, cap, period)
	})
}

// TransferFrom moves amount out of from on behalf of caller.
func (n *Node) TransferFrom(ctx context.Context, caller, from, to [20]byte, amount *big.Int) (Receipt, error) {
	return n.execute(ctx, "token_transferFrom", func(bc types.BlockContext) error {
		return n.ledger.TransferFrom(bc, caller, from, to, amount)
	})
}

// ManagerTransfer moves funds as the ledger manager.
func (n *Node) ManagerTransfer(ctx context.Context, caller, from, to [20]byte, amount *big.Int) (Receipt, error) {
	return n.execute(ctx, "token_managerTransfer", func(bc types.BlockContext) error {
		return n.ledger.ManagerTransfer(bc, caller, from, to, amount)
	})
}

// BalanceOf returns the balance of account.
func (n *Node) BalanceOf(account [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.read(func() (err error) {
		out, err = n.ledger.BalanceOf(account)
		return err
	})
	return out, err
}

// TotalSupply returns the minted supply.
func (n *Node) TotalSupply() (*big.Int, error) {
	var out *big.Int
	err := n.read(func() (err error) {
		out, err = n.ledger.TotalSupply()
		return err
	})
	return out, err
}

// Allowance returns the one-shot allowance and, when present, the recurrent
// allowance of spender over owner.
func (n *Node) Allowance(owner, spender [20]byte) (*big.Int, *token.RecurrentAllowance, error) {
	var (
		single    *big.Int
		recurrent *token.RecurrentAllowance
	)
	err := n.read(func() error {
		var err error
		if single, err = n.ledger.Allowance(owner, spender); err != nil {
			return err
		}
		rec, ok, err := n.ledger.RecurrentAllowance(owner, spender)
		if err != nil {
			return err
		}
		if ok {
			recurrent = rec
		}
		return nil
	})
	return single, recurrent, err
}

// RegisterService registers a verification service issued by caller.
func (n *Node) RegisterService(ctx context.Context, caller [20]byte, name string) (Receipt, error) {
	return n.execute(ctx, "identity_registerService", func(types.BlockContext) error {
		return n.identity.RegisterService(caller, name)
	})
}

// AddUserVerification attests user under every service caller issues.
func (n *Node) AddUserVerification(ctx context.Context, caller, user [20]byte) (Receipt, error) {
	return n.execute(ctx, "identity_addUserVerification", func(types.BlockContext) error {
		return n.identity.AddUserVerification(caller, user)
	})
}

// RevokeUserVerification withdraws an attestation made by caller.
func (n *Node) RevokeUserVerification(ctx context.Context, caller, user [20]byte) (Receipt, error) {
	return n.execute(ctx, "identity_revokeUserVerification", func(types.BlockContext) error {
		return n.identity.RevokeUserVerification(caller, user)
	})
}

// IsVerified reports whether service vouches for user.
func (n *Node) IsVerified(service string, user [20]byte) (bool, error) {
	var out bool
	err := n.read(func() (err error) {
		out, err = n.identity.IsVerified(service, user)
		return err
	})
	return out, err
}

// RegisterPromotion opens a campaign owned by caller and escrows its budget.
func (n *Node) RegisterPromotion(ctx context.Context, caller [20]byte, params promotion.Params) (*promotion.Promotion, Receipt, error) {
	var out *promotion.Promotion
	receipt, err := n.execute(ctx, "promotion_register", func(bc types.BlockContext) (err error) {
		out, err = n.promotions.PromotionRegister(bc, caller, params)
		return err
	})
	return out, receipt, err
}

// AddBudget tops up a campaign escrow from caller.
func (n *Node) AddBudget(ctx context.Context, caller [20]byte, contentID string, amount *big.Int) (Receipt, error) {
	return n.execute(ctx, "promotion_addBudget", func(bc types.BlockContext) error {
		return n.promotions.AddBudget(bc, caller, contentID, amount)
	})
}

// AddVerificationAuthority requires interacting accounts to be verified by
// service.
func (n *Node) AddVerificationAuthority(ctx context.Context, caller [20]byte, contentID, service string) (Receipt, error) {
	return n.execute(ctx, "promotion_addVerificationAuthority", func(bc types.BlockContext) error {
		return n.promotions.AddVerificationAuthority(bc, caller, contentID, service)
	})
}

// RecordInteraction records an interaction by caller against a campaign.
func (n *Node) RecordInteraction(ctx context.Context, caller [20]byte, contentID string, kind promotion.InteractionType, metadata string, coAccounts [][20]byte) (Receipt, error) {
	return n.execute(ctx, "promotion_recordInteraction", func(bc types.BlockContext) error {
		return n.promotions.RecordInteraction(bc, caller, contentID, kind, metadata, coAccounts)
	})
}

// EndPromotion settles a campaign whose window has closed.
func (n *Node) EndPromotion(ctx context.Context, caller [20]byte, contentID string) (*promotion.Settlement, Receipt, error) {
	var out *promotion.Settlement
	receipt, err := n.execute(ctx, "promotion_end", func(bc types.BlockContext) (err error) {
		out, err = n.promotions.EndPromotion(bc, caller, contentID)
		return err
	})
	return out, receipt, err
}

// PromotionGet returns the stored campaign for contentID.
func (n *Node) PromotionGet(contentID string) (*promotion.Promotion, bool, error) {
	var (
		out *promotion.Promotion
		ok  bool
	)
	err := n.read(func() (err error) {
		out, ok, err = n.promotions.PromotionGet(contentID)
		return err
	})
	return out, ok, err
}

// Promotions lists every registered content id.
func (n *Node) Promotions() ([]string, error) {
	var out []string
	err := n.read(func() (err error) {
		out, err = n.promotions.Promotions()
		return err
	})
	return out, err
}

// Interactions returns the interactions recorded in the current round of
// contentID.
func (n *Node) Interactions(contentID string) ([]promotion.Interaction, error) {
	var out []promotion.Interaction
	err := n.read(func() (err error) {
		out, err = n.promotions.Interactions(contentID)
		return err
	})
	return out, err
}

// BuyContent pays recipient for contentID, splitting a referral share to
// referrer when the campaign defines one.
func (n *Node) BuyContent(ctx context.Context, caller [20]byte, contentID string, recipient [20]byte, amount *big.Int, referrer [20]byte) (Receipt, error) {
	return n.execute(ctx, "promotion_buyContent", func(bc types.BlockContext) error {
		return n.promotions.BuyContent(bc, caller, contentID, recipient, amount, referrer)
	})
}

// ProposeDelegation is the master side of a delegation pairing.
func (n *Node) ProposeDelegation(ctx context.Context, caller, delegate [20]byte) (Receipt, error) {
	return n.execute(ctx, "delegation_proposeDelegation", func(types.BlockContext) error {
		return n.promotions.ProposeDelegation(caller, delegate)
	})
}

// ProposeMaster is the delegate side of a delegation pairing.
func (n *Node) ProposeMaster(ctx context.Context, caller, master [20]byte) (Receipt, error) {
	return n.execute(ctx, "delegation_proposeMaster", func(types.BlockContext) error {
		return n.promotions.ProposeMaster(caller, master)
	})
}

// WithdrawDelegation lets a master drop delegate.
func (n *Node) WithdrawDelegation(ctx context.Context, caller, delegate [20]byte) (Receipt, error) {
	return n.execute(ctx, "delegation_withdrawDelegation", func(types.BlockContext) error {
		return n.delegations.WithdrawDelegation(caller, delegate)
	})
}

// WithdrawMaster lets a delegate drop its master.
func (n *Node) WithdrawMaster(ctx context.Context, caller [20]byte) (Receipt, error) {
	return n.execute(ctx, "delegation_withdrawMaster", func(types.BlockContext) error {
		return n.delegations.WithdrawMaster(caller)
	})
}

// MasterOf returns the active master of delegate.
func (n *Node) MasterOf(delegate [20]byte) ([20]byte, bool, error) {
	var (
		out [20]byte
		ok  bool
	)
	err := n.read(func() (err error) {
		out, ok, err = n.delegations.MasterOf(delegate)
		return err
	})
	return out, ok, err
}

// RegisterSubscriptionOffer publishes a subscription offer for uri.
func (n *Node) RegisterSubscriptionOffer(ctx context.Context, caller [20]byte, uri string, price *big.Int, period uint64) (Receipt, error) {
	return n.execute(ctx, "subscription_registerOffer", func(bc types.BlockContext) error {
		return n.promotions.RegisterSubscriptionOffer(bc, caller, uri, price, period)
	})
}

// Subscribe charges caller for the first period of uri and returns the
// height the membership expires at.
func (n *Node) Subscribe(ctx context.Context, caller [20]byte, uri string) (uint64, Receipt, error) {
	var expires uint64
	receipt, err := n.execute(ctx, "subscription_subscribe", func(bc types.BlockContext) (err error) {
		expires, err = n.promotions.Subscribe(bc, caller, uri)
		return err
	})
	return expires, receipt, err
}

// RenewSubscription charges subscriber for another period once the previous
// one lapsed.
func (n *Node) RenewSubscription(ctx context.Context, caller [20]byte, uri string, subscriber [20]byte) (uint64, Receipt, error) {
	var expires uint64
	receipt, err := n.execute(ctx, "subscription_renew", func(bc types.BlockContext) (err error) {
		expires, err = n.promotions.RenewSubscription(bc, caller, uri, subscriber)
		return err
	})
	return expires, receipt, err
}

// IsSubscriber reports whether account holds a live membership of uri at the
// current height.
func (n *Node) IsSubscriber(uri string, account [20]byte) (bool, error) {
	var out bool
	err := n.read(func() (err error) {
		out, err = n.promotions.IsSubscriber(uri, account, n.height)
		return err
	})
	return out, err
}
