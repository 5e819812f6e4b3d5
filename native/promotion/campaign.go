package promotion

import (
	"fmt"
	"math/big"
	"strings"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
	"mediachain/core/types"
)

func (V1) PromotionRegister(b *Backend, bc types.BlockContext, caller [20]byte, params Params) (*Promotion, error) {
	id := normalizeContentID(params.ContentID)
	if id == "" || len(id) > maxContentIDBytes {
		return nil, ErrInvalidContentID
	}
	if params.Duration == 0 {
		return nil, ErrInvalidDuration
	}
	if params.Budget == nil || params.Budget.Sign() <= 0 {
		return nil, ErrInvalidBudget
	}
	if params.ReferralSplit > 100 {
		return nil, ErrInvalidSplit
	}
	if params.StartHeight < bc.Height {
		return nil, fmt.Errorf("%w: start %d before height %d", ErrStartInPast, params.StartHeight, bc.Height)
	}
	if params.StartHeight+params.Duration < params.StartHeight {
		return nil, ErrInvalidDuration
	}

	existing, exists, err := b.store.campaign(id)
	if err != nil {
		return nil, err
	}
	var round uint64
	if exists {
		if !existing.Ended {
			return nil, fmt.Errorf("%w: %s", coreerrors.ErrDuplicateCampaign, id)
		}
		round = existing.Round + 1
	}

	weights := DefaultWeights()
	if params.Weights != nil {
		weights = *params.Weights
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	authorities, err := normalizeAuthorities(params.Authorities)
	if err != nil {
		return nil, err
	}

	p := &Promotion{
		ContentID:     id,
		Round:         round,
		Owner:         caller,
		Escrow:        EscrowAddress(id),
		RegisteredAt:  bc.Height,
		StartHeight:   params.StartHeight,
		Duration:      params.Duration,
		Budget:        new(big.Int).Set(params.Budget),
		Likes:         params.Likes,
		Comments:      params.Comments,
		Shares:        params.Shares,
		Views:         params.Views,
		Weights:       weights,
		Authorities:   authorities,
		ReferralSplit: params.ReferralSplit,
		MinViewCount:  params.MinViewCount,
	}
	if err := b.ledger.TransferFrom(bc, b.address, caller, p.Escrow, p.Budget); err != nil {
		return nil, err
	}
	if err := b.store.putCampaign(p); err != nil {
		return nil, err
	}
	if err := b.store.indexCampaign(id); err != nil {
		return nil, err
	}
	b.Emit(events.PromotionRegistered{
		ContentID:   id,
		Owner:       caller,
		Escrow:      p.Escrow,
		StartHeight: p.StartHeight,
		Duration:    p.Duration,
		Budget:      new(big.Int).Set(p.Budget),
	})
	return p.Clone(), nil
}

func (V1) AddBudget(b *Backend, bc types.BlockContext, caller [20]byte, contentID string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	id := normalizeContentID(contentID)
	p, err := openCampaign(b, id)
	if err != nil {
		return err
	}
	if bc.Height >= p.EndHeight() {
		return fmt.Errorf("%w: %s closed at height %d", coreerrors.ErrUnknownCampaign, id, p.EndHeight())
	}
	if err := b.ledger.TransferFrom(bc, b.address, caller, p.Escrow, amount); err != nil {
		return err
	}
	p.Budget = new(big.Int).Add(p.Budget, amount)
	if err := b.store.putCampaign(p); err != nil {
		return err
	}
	b.Emit(events.PromotionBudgetAdded{ContentID: id, Funder: caller, Amount: new(big.Int).Set(amount), Budget: new(big.Int).Set(p.Budget)})
	return nil
}

func (V1) AddVerificationAuthority(b *Backend, _ types.BlockContext, caller [20]byte, contentID, service string) error {
	id := normalizeContentID(contentID)
	p, exists, err := b.store.campaign(id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", coreerrors.ErrUnknownCampaign, id)
	}
	if p.Ended {
		return fmt.Errorf("%w: %s", coreerrors.ErrAlreadyEnded, id)
	}
	if caller != p.Owner {
		return fmt.Errorf("%w: only the campaign owner may add authorities", coreerrors.ErrNotAuthorized)
	}
	service = strings.TrimSpace(service)
	if service == "" {
		return ErrInvalidService
	}
	for _, existing := range p.Authorities {
		if existing == service {
			return nil
		}
	}
	p.Authorities = append(p.Authorities, service)
	if err := b.store.putCampaign(p); err != nil {
		return err
	}
	b.Emit(events.PromotionAuthorityAdded{ContentID: id, Service: service})
	return nil
}

func (V1) RecordInteraction(b *Backend, bc types.BlockContext, caller [20]byte, contentID string, kind InteractionType, metadata string, coAccounts [][20]byte) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidInteraction, uint8(kind))
	}
	if len(metadata) > b.limits.MaxMetadataBytes {
		return ErrMetadataTooLarge
	}
	id := normalizeContentID(contentID)
	p, err := openCampaign(b, id)
	if err != nil {
		return err
	}
	if !p.InWindow(bc.Height) {
		return fmt.Errorf("%w: %s not active at height %d", coreerrors.ErrUnknownCampaign, id, bc.Height)
	}
	// Shares are accepted whatever the flag says, matching their exemption
	// from duplicate checks.
	if kind != Share && !p.Enabled(kind) {
		return fmt.Errorf("%w: %s interactions disabled for %s", coreerrors.ErrNotAuthorized, kind, id)
	}
	if len(coAccounts) > 0 {
		if p.ReferralSplit == 0 {
			return fmt.Errorf("%w: %s does not share interaction credit", coreerrors.ErrNotAuthorized, id)
		}
		if len(coAccounts) > b.limits.MaxCoAccounts {
			return ErrTooManyCoAccounts
		}
	}
	if err := requireVerified(b, p, caller, coAccounts); err != nil {
		return err
	}

	credited, err := b.resolve(caller)
	if err != nil {
		return err
	}
	seen := map[[20]byte]struct{}{caller: {}, credited: {}}
	for _, co := range coAccounts {
		if co == [20]byte{} {
			return fmt.Errorf("%w: zero address", ErrInvalidCoAccount)
		}
		if _, dup := seen[co]; dup {
			return fmt.Errorf("%w: duplicate or self reference", ErrInvalidCoAccount)
		}
		seen[co] = struct{}{}
	}

	claim, err := b.store.claim(p, credited)
	if err != nil {
		return err
	}
	if kind != Share && claim.has(kind) {
		return fmt.Errorf("%w: %s already recorded for %s", coreerrors.ErrDuplicateInteraction, kind, id)
	}

	weight := p.Weights.For(kind)
	actorUnits := weight * unitScale
	var coUnits uint64
	if len(coAccounts) > 0 {
		actorUnits = weight * (unitScale - p.ReferralSplit)
		coUnits = weight * p.ReferralSplit / uint64(len(coAccounts))
	}

	entry := Interaction{Account: credited, Actor: caller, Type: uint8(kind), Height: bc.Height, Units: actorUnits, Metadata: metadata}
	if err := b.store.appendInteraction(p, entry); err != nil {
		return err
	}
	if coUnits > 0 {
		for _, co := range coAccounts {
			if err := b.store.appendInteraction(p, Interaction{Account: co, Actor: caller, Type: uint8(kind), Height: bc.Height, Units: coUnits}); err != nil {
				return err
			}
		}
	}

	if claim.Claimed == 0 && claim.Shares == 0 {
		claim.FirstHeight = bc.Height
	}
	claim.LastHeight = bc.Height
	if kind == Share {
		claim.Shares++
	} else {
		claim.mark(kind)
	}
	if err := b.store.putClaim(p, credited, claim); err != nil {
		return err
	}
	if kind == View {
		p.ViewCount++
	}
	if err := b.store.putCampaign(p); err != nil {
		return err
	}
	b.Emit(events.PromotionInteraction{
		ContentID:  id,
		Account:    credited,
		Actor:      caller,
		Kind:       kind.String(),
		Height:     bc.Height,
		Units:      actorUnits,
		CoAccounts: append([][20]byte(nil), coAccounts...),
	})
	return nil
}

func (V1) EndPromotion(b *Backend, bc types.BlockContext, _ [20]byte, contentID string) (*Settlement, error) {
	id := normalizeContentID(contentID)
	p, exists, err := b.store.campaign(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrUnknownCampaign, id)
	}
	if p.Ended {
		return nil, fmt.Errorf("%w: %s at height %d", coreerrors.ErrAlreadyEnded, id, p.EndedAt)
	}
	if bc.Height < p.EndHeight() {
		return nil, fmt.Errorf("%w: %s ends at height %d", coreerrors.ErrNotYetEligible, id, p.EndHeight())
	}

	records, err := b.store.interactions(p)
	if err != nil {
		return nil, err
	}
	settlement := Settle(p, records, p.Budget)
	for _, payout := range settlement.Payouts {
		if err := b.ledger.Transfer(bc, p.Escrow, payout.Account, payout.Amount); err != nil {
			return nil, err
		}
		b.Emit(events.PromotionPayout{ContentID: id, Account: payout.Account, Amount: new(big.Int).Set(payout.Amount)})
	}
	leftover, err := b.ledger.BalanceOf(p.Escrow)
	if err != nil {
		return nil, err
	}
	if leftover.Sign() > 0 {
		if err := b.ledger.Transfer(bc, p.Escrow, p.Owner, leftover); err != nil {
			return nil, err
		}
	}

	p.Ended = true
	p.EndedAt = bc.Height
	p.ActiveBuckets = settlement.ActiveBuckets
	p.TotalPaid = copyInt(settlement.TotalPaid)
	if settlement.ActiveBuckets > 0 {
		p.Dust = copyInt(settlement.Remainder)
		p.Refund = new(big.Int)
	} else {
		p.Dust = new(big.Int)
		p.Refund = copyInt(settlement.Remainder)
	}
	if err := b.store.putCampaign(p); err != nil {
		return nil, err
	}
	b.Emit(events.PromotionEnded{
		ContentID:     id,
		Height:        bc.Height,
		Budget:        copyInt(p.Budget),
		Paid:          copyInt(p.TotalPaid),
		Dust:          copyInt(p.Dust),
		ActiveBuckets: p.ActiveBuckets,
		Refund:        copyInt(p.Refund),
	})
	return settlement, nil
}

func (V1) PromotionGet(b *Backend, contentID string) (*Promotion, bool, error) {
	p, ok, err := b.store.campaign(normalizeContentID(contentID))
	if err != nil || !ok {
		return nil, false, err
	}
	return p.Clone(), true, nil
}

// openCampaign loads a campaign that still accepts budget and interactions.
func openCampaign(b *Backend, id string) (*Promotion, error) {
	p, exists, err := b.store.campaign(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s not registered", coreerrors.ErrUnknownCampaign, id)
	}
	if p.Ended {
		return nil, fmt.Errorf("%w: %s has ended", coreerrors.ErrUnknownCampaign, id)
	}
	return p, nil
}

// requireVerified enforces the campaign's verification authorities on the
// caller and every co-account. Any listed service is sufficient.
func requireVerified(b *Backend, p *Promotion, caller [20]byte, coAccounts [][20]byte) error {
	if len(p.Authorities) == 0 {
		return nil
	}
	if b.verifier == nil {
		return fmt.Errorf("%w: no verification registry configured", coreerrors.ErrNotVerified)
	}
	accounts := append([][20]byte{caller}, coAccounts...)
	for _, account := range accounts {
		verified := false
		for _, service := range p.Authorities {
			ok, err := b.verifier.IsVerified(service, account)
			if err != nil {
				return err
			}
			if ok {
				verified = true
				break
			}
		}
		if !verified {
			return fmt.Errorf("%w: account not attested by %s", coreerrors.ErrNotVerified, strings.Join(p.Authorities, ","))
		}
	}
	return nil
}

func normalizeAuthorities(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, service := range raw {
		service = strings.TrimSpace(service)
		if service == "" {
			return nil, ErrInvalidService
		}
		if _, dup := seen[service]; dup {
			continue
		}
		seen[service] = struct{}{}
		out = append(out, service)
	}
	return out, nil
}
