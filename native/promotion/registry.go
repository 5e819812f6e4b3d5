package promotion

import (
	"math/big"
	"strings"

	"mediachain/core/events"
	"mediachain/core/types"
	"mediachain/native/common"
)

const (
	moduleName        = "promotion"
	maxContentIDBytes = 256
	registryGuardKey  = "promotion/registry"
	campaignGuardRoot = "promotion/campaign/"
)

// Ledger is the token ledger surface the registry settles through.
type Ledger interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	Transfer(bc types.BlockContext, from, to [20]byte, amount *big.Int) error
	TransferFrom(bc types.BlockContext, spender, from, to [20]byte, amount *big.Int) error
}

// Verifier answers whether a verification service vouches for an account.
type Verifier interface {
	IsVerified(service string, user [20]byte) (bool, error)
}

// Delegations resolves delegates to their masters and records pairings.
type Delegations interface {
	Resolve(actor [20]byte) ([20]byte, error)
	ProposeDelegation(master, delegate [20]byte) error
	ProposeMaster(delegate, master [20]byte) error
}

// Backend bundles the collaborators and persistent state an implementation
// operates on. It survives upgrades.
type Backend struct {
	store       store
	ledger      Ledger
	verifier    Verifier
	delegations Delegations
	emitter     events.Emitter
	address     [20]byte
	limits      Limits
}

// Address returns the registry spender account.
func (b *Backend) Address() [20]byte { return b.address }

// Limits returns the configured input bounds.
func (b *Backend) Limits() Limits { return b.limits }

// Emit forwards evt to the configured emitter.
func (b *Backend) Emit(evt events.Event) {
	if b == nil || b.emitter == nil || evt == nil {
		return
	}
	b.emitter.Emit(evt)
}

func (b *Backend) resolve(actor [20]byte) ([20]byte, error) {
	if b.delegations == nil {
		return actor, nil
	}
	return b.delegations.Resolve(actor)
}

// Implementation is the upgradeable campaign registry logic.
type Implementation interface {
	PromotionRegister(b *Backend, bc types.BlockContext, caller [20]byte, params Params) (*Promotion, error)
	AddBudget(b *Backend, bc types.BlockContext, caller [20]byte, contentID string, amount *big.Int) error
	AddVerificationAuthority(b *Backend, bc types.BlockContext, caller [20]byte, contentID, service string) error
	RecordInteraction(b *Backend, bc types.BlockContext, caller [20]byte, contentID string, kind InteractionType, metadata string, coAccounts [][20]byte) error
	EndPromotion(b *Backend, bc types.BlockContext, caller [20]byte, contentID string) (*Settlement, error)
	PromotionGet(b *Backend, contentID string) (*Promotion, bool, error)
	BuyContent(b *Backend, bc types.BlockContext, caller [20]byte, contentID string, recipient [20]byte, amount *big.Int, referrer [20]byte) error
	ProposeDelegation(b *Backend, caller, delegate [20]byte) error
	ProposeMaster(b *Backend, caller, master [20]byte) error
	RegisterSubscriptionOffer(b *Backend, bc types.BlockContext, caller [20]byte, uri string, price *big.Int, period uint64) error
	Subscribe(b *Backend, bc types.BlockContext, caller [20]byte, uri string) (uint64, error)
	RenewSubscription(b *Backend, bc types.BlockContext, caller [20]byte, uri string, subscriber [20]byte) (uint64, error)
	IsSubscriber(b *Backend, uri string, account [20]byte, height uint64) (bool, error)
}

// Registry is the stable campaign registry handle. It guards every mutation
// against re-entry and forwards to the installed implementation.
type Registry struct {
	backend  *Backend
	dispatch *common.Dispatcher[Implementation]
	guard    *common.EntityGuard
	pauses   common.PauseView
}

// NewRegistry creates a registry over st settling through ledger. owner
// controls implementation upgrades.
func NewRegistry(st registryState, ledger Ledger, owner [20]byte) *Registry {
	return &Registry{
		backend: &Backend{
			store:   store{st: st},
			ledger:  ledger,
			emitter: events.NoopEmitter{},
			address: RegistryAddress(),
			limits:  DefaultLimits(),
		},
		dispatch: common.NewDispatcher[Implementation](owner, V1{}, "promotion-v1"),
		guard:    common.NewEntityGuard(),
	}
}

// SetVerifier wires the verification registry.
func (r *Registry) SetVerifier(v Verifier) { r.backend.verifier = v }

// SetDelegations wires the delegation registry.
func (r *Registry) SetDelegations(d Delegations) { r.backend.delegations = d }

// SetEmitter configures the event emitter. Passing nil resets the emitter to
// a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.backend.emitter = events.NoopEmitter{}
		return
	}
	r.backend.emitter = emitter
}

// SetPauses wires the pause view consulted before every mutation.
func (r *Registry) SetPauses(p common.PauseView) { r.pauses = p }

// SetLimits overrides the interaction input bounds. Non-positive values keep
// the defaults.
func (r *Registry) SetLimits(l Limits) {
	defaults := DefaultLimits()
	if l.MaxMetadataBytes <= 0 {
		l.MaxMetadataBytes = defaults.MaxMetadataBytes
	}
	if l.MaxCoAccounts <= 0 {
		l.MaxCoAccounts = defaults.MaxCoAccounts
	}
	r.backend.limits = l
}

// Address returns the registry spender account.
func (r *Registry) Address() [20]byte { return r.backend.address }

// Upgrade installs a new implementation while keeping every campaign record.
func (r *Registry) Upgrade(caller [20]byte, impl Implementation, label string) error {
	return r.dispatch.Upgrade(caller, impl, label)
}

// Version reports the installed implementation.
func (r *Registry) Version() common.Version { return r.dispatch.Version() }

// Backend exposes the shared collaborators, mostly for implementations that
// wrap V1.
func (r *Registry) Backend() *Backend { return r.backend }

func (r *Registry) ready() error {
	if r == nil || r.backend == nil || r.backend.store.st == nil || r.backend.ledger == nil {
		return ErrNilState
	}
	return nil
}

// enter checks the pause switch and acquires the re-entrancy keys for a
// mutation.
func (r *Registry) enter(keys ...string) (func(), error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if err := common.Guard(r.pauses, moduleName); err != nil {
		return nil, err
	}
	releases := make([]func(), 0, len(keys))
	release := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		done, err := r.guard.Enter(key)
		if err != nil {
			release()
			return nil, err
		}
		releases = append(releases, done)
	}
	return release, nil
}

func campaignGuardKey(contentID string) string {
	return campaignGuardRoot + normalizeContentID(contentID)
}

// PromotionRegister opens a campaign and escrows its budget from caller.
func (r *Registry) PromotionRegister(bc types.BlockContext, caller [20]byte, params Params) (*Promotion, error) {
	release, err := r.enter(registryGuardKey, campaignGuardKey(params.ContentID))
	if err != nil {
		return nil, err
	}
	defer release()
	return r.dispatch.Current().PromotionRegister(r.backend, bc, caller, params)
}

// AddBudget moves amount from caller into the campaign escrow.
func (r *Registry) AddBudget(bc types.BlockContext, caller [20]byte, contentID string, amount *big.Int) error {
	release, err := r.enter(campaignGuardKey(contentID))
	if err != nil {
		return err
	}
	defer release()
	return r.dispatch.Current().AddBudget(r.backend, bc, caller, contentID, amount)
}

// AddVerificationAuthority lets the owner name another verification service.
func (r *Registry) AddVerificationAuthority(bc types.BlockContext, caller [20]byte, contentID, service string) error {
	release, err := r.enter(campaignGuardKey(contentID))
	if err != nil {
		return err
	}
	defer release()
	return r.dispatch.Current().AddVerificationAuthority(r.backend, bc, caller, contentID, service)
}

// RecordInteraction credits an interaction to caller, or to its master.
func (r *Registry) RecordInteraction(bc types.BlockContext, caller [20]byte, contentID string, kind InteractionType, metadata string, coAccounts [][20]byte) error {
	release, err := r.enter(campaignGuardKey(contentID))
	if err != nil {
		return err
	}
	defer release()
	return r.dispatch.Current().RecordInteraction(r.backend, bc, caller, contentID, kind, metadata, coAccounts)
}

// EndPromotion settles a closed campaign and pays out its escrow.
func (r *Registry) EndPromotion(bc types.BlockContext, caller [20]byte, contentID string) (*Settlement, error) {
	release, err := r.enter(campaignGuardKey(contentID))
	if err != nil {
		return nil, err
	}
	defer release()
	return r.dispatch.Current().EndPromotion(r.backend, bc, caller, contentID)
}

// PromotionGet returns a copy of the campaign record.
func (r *Registry) PromotionGet(contentID string) (*Promotion, bool, error) {
	if err := r.ready(); err != nil {
		return nil, false, err
	}
	return r.dispatch.Current().PromotionGet(r.backend, contentID)
}

// Promotions lists every content id that was ever registered.
func (r *Registry) Promotions() ([]string, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.backend.store.campaignIDs()
}

// Interactions returns the credited log of the campaign's current round.
func (r *Registry) Interactions(contentID string) ([]Interaction, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	p, ok, err := r.backend.store.campaign(normalizeContentID(contentID))
	if err != nil || !ok {
		return nil, err
	}
	return r.backend.store.interactions(p)
}

// BuyContent pays recipient on behalf of caller's master account and routes the
// referral cut to referrer.
func (r *Registry) BuyContent(bc types.BlockContext, caller [20]byte, contentID string, recipient [20]byte, amount *big.Int, referrer [20]byte) error {
	release, err := r.enter(registryGuardKey)
	if err != nil {
		return err
	}
	defer release()
	return r.dispatch.Current().BuyContent(r.backend, bc, caller, contentID, recipient, amount, referrer)
}

// ProposeDelegation records caller's side of a delegate link.
func (r *Registry) ProposeDelegation(caller, delegate [20]byte) error {
	release, err := r.enter(registryGuardKey)
	if err != nil {
		return err
	}
	defer release()
	return r.dispatch.Current().ProposeDelegation(r.backend, caller, delegate)
}

// ProposeMaster records caller's side of a master link.
func (r *Registry) ProposeMaster(caller, master [20]byte) error {
	release, err := r.enter(registryGuardKey)
	if err != nil {
		return err
	}
	defer release()
	return r.dispatch.Current().ProposeMaster(r.backend, caller, master)
}

// RegisterSubscriptionOffer publishes a priced subscription for uri.
func (r *Registry) RegisterSubscriptionOffer(bc types.BlockContext, caller [20]byte, uri string, price *big.Int, period uint64) error {
	release, err := r.enter(registryGuardKey)
	if err != nil {
		return err
	}
	defer release()
	return r.dispatch.Current().RegisterSubscriptionOffer(r.backend, bc, caller, uri, price, period)
}

// Subscribe pays for one period of uri and returns the new expiry height.
func (r *Registry) Subscribe(bc types.BlockContext, caller [20]byte, uri string) (uint64, error) {
	release, err := r.enter(registryGuardKey)
	if err != nil {
		return 0, err
	}
	defer release()
	return r.dispatch.Current().Subscribe(r.backend, bc, caller, uri)
}

// RenewSubscription charges subscriber for another period once the last one expired.
func (r *Registry) RenewSubscription(bc types.BlockContext, caller [20]byte, uri string, subscriber [20]byte) (uint64, error) {
	release, err := r.enter(registryGuardKey)
	if err != nil {
		return 0, err
	}
	defer release()
	return r.dispatch.Current().RenewSubscription(r.backend, bc, caller, uri, subscriber)
}

// IsSubscriber reports whether account holds an unexpired subscription at height.
func (r *Registry) IsSubscriber(uri string, account [20]byte, height uint64) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}
	return r.dispatch.Current().IsSubscriber(r.backend, uri, account, height)
}

// V1 is the initial campaign registry logic.
type V1 struct{}

func normalizeContentID(id string) string {
	return strings.TrimSpace(id)
}
