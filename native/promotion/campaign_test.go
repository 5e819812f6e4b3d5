package promotion

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
)

const content = "http://abc"

func TestEndPromotionPaysBucketsAndReturnsDust(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 2_000_000)
	p := h.register(at(1), owner, openParams(content, 3, 20, 2_000_000))
	if h.balance(p.Escrow) != 2_000_000 || h.balance(owner) != 0 {
		t.Fatalf("budget should be escrowed")
	}

	participants := 0
	for i := uint64(0); i < 20; i++ {
		if i == 6 || i == 15 {
			continue
		}
		participants++
		if err := h.record(3+i, account(byte(i+1)), content, Like); err != nil {
			t.Fatalf("record at %d: %v", 3+i, err)
		}
	}

	if _, err := h.registry.EndPromotion(at(22), account(0x55), content); !errors.Is(err, coreerrors.ErrNotYetEligible) {
		t.Fatalf("expected ErrNotYetEligible, got %v", err)
	}
	settlement, err := h.registry.EndPromotion(at(23), account(0x55), content)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if settlement.ActiveBuckets != 18 || len(settlement.Payouts) != participants {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
	for i := 0; i < 20; i++ {
		if i == 6 || i == 15 {
			continue
		}
		if got := h.balance(account(byte(i + 1))); got != 111_111 {
			t.Fatalf("participant %d received %d", i+1, got)
		}
	}
	if h.balance(owner) != 2 {
		t.Fatalf("owner should retain the dust, got %d", h.balance(owner))
	}
	if h.balance(p.Escrow) != 0 {
		t.Fatalf("escrow must be emptied")
	}

	ended := h.events.ofType(events.TypePromotionEnded)
	if len(ended) != 1 || ended[0].(events.PromotionEnded).Dust.Int64() != 2 {
		t.Fatalf("unexpected ended events %+v", ended)
	}
	stored, _, _ := h.registry.PromotionGet(content)
	if !stored.Ended || stored.Status(30) != StatusEnded || stored.Dust.Int64() != 2 {
		t.Fatalf("unexpected stored campaign %+v", stored)
	}

	if _, err := h.registry.EndPromotion(at(24), owner, content); !errors.Is(err, coreerrors.ErrAlreadyEnded) {
		t.Fatalf("expected ErrAlreadyEnded, got %v", err)
	}
	if err := h.record(24, account(1), content, Like); !errors.Is(err, coreerrors.ErrUnknownCampaign) {
		t.Fatalf("ended campaign must reject interactions, got %v", err)
	}
}

func TestEndPromotionWithoutActivityRefundsOwner(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 500)
	h.register(at(0), owner, openParams(content, 0, 5, 500))

	settlement, err := h.registry.EndPromotion(at(5), owner, content)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if settlement.ActiveBuckets != 0 || h.balance(owner) != 500 {
		t.Fatalf("expected full refund, got %+v balance=%d", settlement, h.balance(owner))
	}
	stored, _, _ := h.registry.PromotionGet(content)
	if stored.Refund.Int64() != 500 || stored.Dust.Sign() != 0 {
		t.Fatalf("unexpected stored campaign %+v", stored)
	}
}

func TestRegisterValidationAndDuplicates(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 1000)

	if _, err := h.registry.PromotionRegister(at(5), owner, openParams(content, 4, 10, 100)); !errors.Is(err, ErrStartInPast) {
		t.Fatalf("expected ErrStartInPast, got %v", err)
	}
	if _, err := h.registry.PromotionRegister(at(0), owner, openParams(" ", 1, 10, 100)); !errors.Is(err, ErrInvalidContentID) {
		t.Fatalf("expected ErrInvalidContentID, got %v", err)
	}
	if _, err := h.registry.PromotionRegister(at(0), owner, openParams(content, 1, 0, 100)); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	bad := openParams(content, 1, 10, 100)
	bad.ReferralSplit = 101
	if _, err := h.registry.PromotionRegister(at(0), owner, bad); !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("expected ErrInvalidSplit, got %v", err)
	}

	h.register(at(0), owner, openParams(content, 1, 3, 100))
	if _, err := h.registry.PromotionRegister(at(1), owner, openParams(content, 2, 3, 100)); !errors.Is(err, coreerrors.ErrDuplicateCampaign) {
		t.Fatalf("expected ErrDuplicateCampaign, got %v", err)
	}
	if err := h.record(2, account(1), content, Like); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := h.registry.EndPromotion(at(4), owner, content); err != nil {
		t.Fatalf("end: %v", err)
	}

	again := h.register(at(4), owner, openParams(content, 5, 3, 100))
	if again.Round != 1 || again.InteractionCount != 0 {
		t.Fatalf("re-registration should open a fresh round: %+v", again)
	}
	if err := h.record(5, account(1), content, Like); err != nil {
		t.Fatalf("claims must reset for a new round: %v", err)
	}
	ids, _ := h.registry.Promotions()
	if len(ids) != 1 || ids[0] != content {
		t.Fatalf("unexpected index %v", ids)
	}
}

func TestRegisterWithoutApprovalStoresNothing(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	if err := h.ledger.Mint(owner, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := h.registry.PromotionRegister(at(0), owner, openParams(content, 1, 3, 100)); !errors.Is(err, coreerrors.ErrAllowanceExceeded) {
		t.Fatalf("expected ErrAllowanceExceeded, got %v", err)
	}
	if _, ok, _ := h.registry.PromotionGet(content); ok {
		t.Fatalf("failed registration must not create a campaign")
	}
}

func TestRecordInteractionRules(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 1000)
	params := openParams(content, 2, 10, 1000)
	params.Comments = false
	h.register(at(0), owner, params)
	user := account(1)

	if err := h.record(1, user, content, Like); !errors.Is(err, coreerrors.ErrUnknownCampaign) {
		t.Fatalf("scheduled campaign must reject interactions, got %v", err)
	}
	if err := h.record(2, user, "http://unknown", Like); !errors.Is(err, coreerrors.ErrUnknownCampaign) {
		t.Fatalf("unknown campaign must be rejected, got %v", err)
	}
	if err := h.record(2, user, content, Comment); !errors.Is(err, coreerrors.ErrNotAuthorized) {
		t.Fatalf("disabled type must be rejected, got %v", err)
	}
	if err := h.record(2, user, content, Like); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := h.record(3, user, content, Like); !errors.Is(err, coreerrors.ErrDuplicateInteraction) {
		t.Fatalf("expected ErrDuplicateInteraction, got %v", err)
	}
	if err := h.record(3, user, content, Share); err != nil {
		t.Fatalf("first share: %v", err)
	}
	if err := h.record(4, user, content, Share); err != nil {
		t.Fatalf("shares are counted, not deduplicated: %v", err)
	}
	if err := h.record(4, user, content, InteractionType(9)); !errors.Is(err, ErrInvalidInteraction) {
		t.Fatalf("expected ErrInvalidInteraction, got %v", err)
	}
	if err := h.record(12, user, content, View); !errors.Is(err, coreerrors.ErrUnknownCampaign) {
		t.Fatalf("closed window must reject interactions, got %v", err)
	}
	log, _ := h.registry.Interactions(content)
	if len(log) != 3 {
		t.Fatalf("expected 3 logged interactions, got %d", len(log))
	}
}

func TestVerificationAuthorities(t *testing.T) {
	h := newHarness(t)
	owner, issuer, user, friend := account(0xa0), account(8), account(1), account(2)
	h.fund(owner, 1000)
	params := openParams(content, 1, 10, 1000)
	params.ReferralSplit = 20
	h.register(at(0), owner, params)

	if err := h.registry.AddVerificationAuthority(at(0), user, content, "myVerification"); !errors.Is(err, coreerrors.ErrNotAuthorized) {
		t.Fatalf("only the owner adds authorities, got %v", err)
	}
	if err := h.registry.AddVerificationAuthority(at(0), owner, content, "myVerification"); err != nil {
		t.Fatalf("add authority: %v", err)
	}
	if err := h.identity.RegisterService(issuer, "myVerification"); err != nil {
		t.Fatalf("register service: %v", err)
	}

	if err := h.record(1, user, content, Like); !errors.Is(err, coreerrors.ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
	if err := h.identity.AddUserVerification(issuer, user); err != nil {
		t.Fatalf("attest: %v", err)
	}
	if err := h.record(1, user, content, Like, friend); !errors.Is(err, coreerrors.ErrNotVerified) {
		t.Fatalf("unverified co-account must be rejected, got %v", err)
	}
	if err := h.record(1, user, content, Like); err != nil {
		t.Fatalf("verified like: %v", err)
	}
}

func TestCoAccountsShareCredit(t *testing.T) {
	h := newHarness(t)
	owner, user, coA, coB := account(0xa0), account(1), account(2), account(3)
	h.fund(owner, 100)
	h.fund(account(0xa1), 100)

	h.register(at(0), owner, openParams(content, 1, 1, 100))
	if err := h.record(1, user, content, Like, coA); !errors.Is(err, coreerrors.ErrNotAuthorized) {
		t.Fatalf("split 0 forbids co-crediting, got %v", err)
	}

	params := openParams("http://split", 1, 1, 100)
	params.ReferralSplit = 50
	h.register(at(0), account(0xa1), params)
	if err := h.record(1, user, "http://split", Like, user); !errors.Is(err, ErrInvalidCoAccount) {
		t.Fatalf("self co-account must be rejected, got %v", err)
	}
	if err := h.record(1, user, "http://split", Like, coA, coA); !errors.Is(err, ErrInvalidCoAccount) {
		t.Fatalf("duplicate co-account must be rejected, got %v", err)
	}
	if err := h.record(1, user, "http://split", Like, coA, coB); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := h.registry.EndPromotion(at(2), owner, "http://split"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if h.balance(user) != 50 || h.balance(coA) != 25 || h.balance(coB) != 25 {
		t.Fatalf("unexpected split user=%d a=%d b=%d", h.balance(user), h.balance(coA), h.balance(coB))
	}
}

func TestDelegateInteractionsCreditMaster(t *testing.T) {
	h := newHarness(t)
	owner, master, delegate := account(0xa0), account(1), account(2)
	h.fund(owner, 100)
	h.register(at(0), owner, openParams(content, 1, 2, 100))

	if err := h.registry.ProposeDelegation(master, delegate); err != nil {
		t.Fatalf("propose delegation: %v", err)
	}
	if err := h.registry.ProposeMaster(delegate, master); err != nil {
		t.Fatalf("propose master: %v", err)
	}
	if err := h.record(1, delegate, content, Like); err != nil {
		t.Fatalf("delegate like: %v", err)
	}
	if err := h.record(1, master, content, Like); !errors.Is(err, coreerrors.ErrDuplicateInteraction) {
		t.Fatalf("master already credited through its delegate, got %v", err)
	}
	if _, err := h.registry.EndPromotion(at(3), owner, content); err != nil {
		t.Fatalf("end: %v", err)
	}
	if h.balance(master) != 100 || h.balance(delegate) != 0 {
		t.Fatalf("reward should go to the master: master=%d delegate=%d", h.balance(master), h.balance(delegate))
	}
}

func TestAddBudget(t *testing.T) {
	h := newHarness(t)
	owner, sponsor := account(0xa0), account(0xb0)
	h.fund(owner, 100)
	h.fund(sponsor, 50)
	h.register(at(0), owner, openParams(content, 1, 2, 100))

	if err := h.registry.AddBudget(at(1), sponsor, content, big.NewInt(50)); err != nil {
		t.Fatalf("add budget: %v", err)
	}
	p, _, _ := h.registry.PromotionGet(content)
	if p.Budget.Int64() != 150 || h.balance(p.Escrow) != 150 {
		t.Fatalf("unexpected budget %s", p.Budget)
	}
	if err := h.registry.AddBudget(at(3), owner, content, big.NewInt(1)); !errors.Is(err, coreerrors.ErrUnknownCampaign) {
		t.Fatalf("closed campaign must reject top-ups, got %v", err)
	}
	if err := h.registry.AddBudget(at(1), owner, "http://none", big.NewInt(1)); !errors.Is(err, coreerrors.ErrUnknownCampaign) {
		t.Fatalf("unknown campaign must reject top-ups, got %v", err)
	}
}

func TestBuyContentReferralAndDelegation(t *testing.T) {
	h := newHarness(t)
	owner, master, delegate, seller, referrer := account(0xa0), account(1), account(2), account(3), account(4)
	h.fund(owner, 10)
	h.fund(master, 1000)

	params := openParams(content, 1, 10, 10)
	params.ReferralSplit = 10
	h.register(at(0), owner, params)

	if err := h.registry.ProposeDelegation(master, delegate); err != nil {
		t.Fatalf("propose delegation: %v", err)
	}
	if err := h.registry.ProposeMaster(delegate, master); err != nil {
		t.Fatalf("propose master: %v", err)
	}
	if err := h.registry.BuyContent(at(2), delegate, content, seller, big.NewInt(100), referrer); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if h.balance(master) != 900 || h.balance(seller) != 90 || h.balance(referrer) != 10 {
		t.Fatalf("unexpected balances master=%d seller=%d referrer=%d", h.balance(master), h.balance(seller), h.balance(referrer))
	}

	if err := h.registry.BuyContent(at(3), master, "http://other", seller, big.NewInt(100), referrer); err != nil {
		t.Fatalf("buy without campaign: %v", err)
	}
	if h.balance(seller) != 190 || h.balance(referrer) != 10 {
		t.Fatalf("no referral without a live campaign")
	}
	if err := h.registry.BuyContent(at(4), delegate, content, seller, big.NewInt(10_000), referrer); !errors.Is(err, coreerrors.ErrAllowanceExceeded) {
		t.Fatalf("expected ErrAllowanceExceeded, got %v", err)
	}
}

func TestSubscriptionStub(t *testing.T) {
	h := newHarness(t)
	publisher, reader := account(0xa0), account(1)
	if err := h.ledger.Mint(reader, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := h.ledger.ApproveRecurrent(at(0), reader, RegistryAddress(), big.NewInt(5), 10); err != nil {
		t.Fatalf("approve recurrent: %v", err)
	}
	uri := "http://paywall"
	if _, err := h.registry.Subscribe(at(0), reader, uri); !errors.Is(err, ErrUnknownOffer) {
		t.Fatalf("expected ErrUnknownOffer, got %v", err)
	}
	if err := h.registry.RegisterSubscriptionOffer(at(0), publisher, uri, big.NewInt(5), 10); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if err := h.registry.RegisterSubscriptionOffer(at(0), reader, uri, big.NewInt(1), 10); !errors.Is(err, coreerrors.ErrNotAuthorized) {
		t.Fatalf("offer hijack must fail, got %v", err)
	}
	if _, err := h.registry.RenewSubscription(at(1), publisher, uri, reader); !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("expected ErrNotSubscribed, got %v", err)
	}
	expires, err := h.registry.Subscribe(at(1), reader, uri)
	if err != nil || expires != 11 {
		t.Fatalf("subscribe: expires=%d err=%v", expires, err)
	}
	if ok, _ := h.registry.IsSubscriber(uri, reader, 10); !ok {
		t.Fatalf("reader should be subscribed at height 10")
	}
	if _, err := h.registry.RenewSubscription(at(5), publisher, uri, reader); !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
	if ok, _ := h.registry.IsSubscriber(uri, reader, 11); ok {
		t.Fatalf("subscription should lapse at height 11")
	}
	if expires, err := h.registry.RenewSubscription(at(11), publisher, uri, reader); err != nil || expires != 21 {
		t.Fatalf("renew: expires=%d err=%v", expires, err)
	}
	if h.balance(publisher) != 10 || h.balance(reader) != 90 {
		t.Fatalf("unexpected balances publisher=%d reader=%d", h.balance(publisher), h.balance(reader))
	}
}

func TestSharesAcceptedWhenShareFlagOff(t *testing.T) {
	h := newHarness(t)
	owner, user := account(0xa0), account(1)
	h.fund(owner, 1000)
	params := openParams(content, 1, 10, 1000)
	params.Shares = false
	params.Views = false
	h.register(at(0), owner, params)

	if err := h.record(1, user, content, Like); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := h.record(1, user, content, Share); err != nil {
		t.Fatalf("share from the same account must pass: %v", err)
	}
	if err := h.record(2, user, content, Share); err != nil {
		t.Fatalf("repeat share: %v", err)
	}
	if err := h.record(2, user, content, View); !errors.Is(err, coreerrors.ErrNotAuthorized) {
		t.Fatalf("disabled views must be rejected, got %v", err)
	}
	log, _ := h.registry.Interactions(content)
	if len(log) != 3 {
		t.Fatalf("expected 3 logged interactions, got %d", len(log))
	}
}

func TestRegisterRejectsOutOfRangeWeights(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 1000)

	for _, weights := range []Weights{
		{Like: 100_000_000_000_000_000, Comment: 1, Share: 1, View: 1},
		{Like: 1, Comment: MaxWeight + 1, Share: 1, View: 1},
		{Like: 1, Comment: 1, Share: ^uint64(0), View: 1},
	} {
		params := openParams(content, 1, 10, 1000)
		params.Weights = &weights
		if _, err := h.registry.PromotionRegister(at(0), owner, params); !errors.Is(err, ErrInvalidWeights) {
			t.Fatalf("weights %+v: expected ErrInvalidWeights, got %v", weights, err)
		}
	}
	if h.balance(owner) != 1000 {
		t.Fatalf("rejected registration must not move the budget, owner has %d", h.balance(owner))
	}
	if _, ok, _ := h.registry.PromotionGet(content); ok {
		t.Fatalf("rejected registration must not create a campaign")
	}
}

func TestMaxWeightCampaignSettlesWithinBudget(t *testing.T) {
	h := newHarness(t)
	owner := account(0xa0)
	h.fund(owner, 1000)
	params := openParams(content, 1, 2, 1000)
	params.Weights = &Weights{Like: MaxWeight, Comment: MaxWeight, Share: MaxWeight, View: MaxWeight}
	p := h.register(at(0), owner, params)

	if err := h.record(1, account(1), content, Like); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := h.record(1, account(2), content, Like); err != nil {
		t.Fatalf("like: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := h.record(1, account(2), content, Share); err != nil {
			t.Fatalf("share %d: %v", i, err)
		}
	}

	settlement, err := h.registry.EndPromotion(at(3), owner, content)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if settlement.TotalPaid.Cmp(big.NewInt(1000)) > 0 {
		t.Fatalf("payouts %s exceed the budget", settlement.TotalPaid)
	}
	// The only active bucket pays 1000, shared 1:6 between the two accounts.
	if h.balance(account(1)) != 142 || h.balance(account(2)) != 857 || h.balance(owner) != 1 {
		t.Fatalf("unexpected balances %d/%d owner=%d", h.balance(account(1)), h.balance(account(2)), h.balance(owner))
	}
	if h.balance(p.Escrow) != 0 {
		t.Fatalf("escrow must be emptied")
	}
}

func TestCustomWeightsFlowThroughSettlement(t *testing.T) {
	h := newHarness(t)
	owner, fan, critic := account(0xa0), account(1), account(2)
	h.fund(owner, 1000)
	params := openParams(content, 1, 2, 1000)
	params.Weights = &Weights{Like: 3, Comment: 1, Share: 2, View: 1}
	h.register(at(0), owner, params)

	if err := h.record(1, fan, content, Like); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := h.record(1, critic, content, Comment); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := h.record(2, critic, content, Share); err != nil {
		t.Fatalf("share: %v", err)
	}
	log, _ := h.registry.Interactions(content)
	if len(log) != 3 || log[0].Units != 300 || log[1].Units != 100 || log[2].Units != 200 {
		t.Fatalf("units must follow the campaign weights: %+v", log)
	}

	settlement, err := h.registry.EndPromotion(at(3), owner, content)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if settlement.ActiveBuckets != 2 || settlement.PerBucket.Int64() != 500 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
	// Bucket 1 splits 500 as 300:100, bucket 2 pays 500 to the critic alone.
	if h.balance(fan) != 375 || h.balance(critic) != 625 || h.balance(owner) != 0 {
		t.Fatalf("unexpected balances fan=%d critic=%d owner=%d", h.balance(fan), h.balance(critic), h.balance(owner))
	}
}
