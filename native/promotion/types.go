package promotion

import (
	"fmt"
	"math/big"
	"strings"
)

// InteractionType enumerates the interactions a campaign can reward.
type InteractionType uint8

const (
	Like InteractionType = iota
	Comment
	Share
	View
)

func (t InteractionType) String() string {
	switch t {
	case Like:
		return "like"
	case Comment:
		return "comment"
	case Share:
		return "share"
	case View:
		return "view"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool { return t <= View }

// ParseInteractionType accepts either the lowercase name or the numeric code.
func ParseInteractionType(raw string) (InteractionType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "like", "0":
		return Like, nil
	case "comment", "1":
		return Comment, nil
	case "share", "2":
		return Share, nil
	case "view", "3":
		return View, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidInteraction, raw)
	}
}

// Weights maps interaction types to reward weights.
type Weights struct {
	Like    uint64
	Comment uint64
	Share   uint64
	View    uint64
}

// DefaultWeights returns the weights used when a campaign does not set its own.
func DefaultWeights() Weights {
	return Weights{Like: 1, Comment: 2, Share: 1, View: 1}
}

// For returns the weight of t.
func (w Weights) For(t InteractionType) uint64 {
	switch t {
	case Like:
		return w.Like
	case Comment:
		return w.Comment
	case Share:
		return w.Share
	case View:
		return w.View
	default:
		return 0
	}
}

// Validate rejects any weight above MaxWeight.
func (w Weights) Validate() error {
	for _, t := range []InteractionType{Like, Comment, Share, View} {
		if weight := w.For(t); weight > MaxWeight {
			return fmt.Errorf("%w: %s weight %d exceeds %d", ErrInvalidWeights, t, weight, MaxWeight)
		}
	}
	return nil
}

// unitScale expresses an interaction weight in percent so referral splits
// divide without losing precision.
const unitScale = 100

// MaxWeight bounds a single interaction weight. One interaction then earns at
// most MaxWeight*unitScale units, far below the uint64 range.
const MaxWeight = 1_000_000

// Params describes a campaign at registration.
type Params struct {
	ContentID   string
	StartHeight uint64
	Duration    uint64
	Budget      *big.Int
	Likes       bool
	Comments    bool
	Shares      bool
	Views       bool

	// Authorities names verification services any of which must vouch for
	// participants. Empty means interactions are open.
	Authorities   []string
	ReferralSplit uint64
	MinViewCount  uint64
	Weights       *Weights
}

// Status is the lifecycle phase of a campaign at a given height.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusClosed    Status = "closed"
	StatusEnded     Status = "ended"
)

// Promotion is the persisted campaign record.
type Promotion struct {
	ContentID        string
	Round            uint64
	Owner            [20]byte
	Escrow           [20]byte
	RegisteredAt     uint64
	StartHeight      uint64
	Duration         uint64
	Budget           *big.Int
	Likes            bool
	Comments         bool
	Shares           bool
	Views            bool
	Weights          Weights
	Authorities      []string
	ReferralSplit    uint64
	MinViewCount     uint64
	InteractionCount uint64
	ViewCount        uint64
	Ended            bool
	EndedAt          uint64
	ActiveBuckets    uint64
	TotalPaid        *big.Int
	Dust             *big.Int
	Refund           *big.Int
}

// EndHeight is the first height outside the interaction window.
func (p *Promotion) EndHeight() uint64 { return p.StartHeight + p.Duration }

// InWindow reports whether height falls in [start, start+duration).
func (p *Promotion) InWindow(height uint64) bool {
	return height >= p.StartHeight && height < p.EndHeight()
}

// Status derives the lifecycle phase at height.
func (p *Promotion) Status(height uint64) Status {
	switch {
	case p.Ended:
		return StatusEnded
	case height < p.StartHeight:
		return StatusScheduled
	case height < p.EndHeight():
		return StatusActive
	default:
		return StatusClosed
	}
}

// Enabled reports whether interactions of type t are rewarded.
func (p *Promotion) Enabled(t InteractionType) bool {
	switch t {
	case Like:
		return p.Likes
	case Comment:
		return p.Comments
	case Share:
		return p.Shares
	case View:
		return p.Views
	default:
		return false
	}
}

func (p *Promotion) ensure() *Promotion {
	if p.Budget == nil {
		p.Budget = new(big.Int)
	}
	if p.TotalPaid == nil {
		p.TotalPaid = new(big.Int)
	}
	if p.Dust == nil {
		p.Dust = new(big.Int)
	}
	if p.Refund == nil {
		p.Refund = new(big.Int)
	}
	if p.Authorities == nil {
		p.Authorities = []string{}
	}
	return p
}

// Clone returns a deep copy safe to hand to callers.
func (p *Promotion) Clone() *Promotion {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Budget = copyInt(p.Budget)
	clone.TotalPaid = copyInt(p.TotalPaid)
	clone.Dust = copyInt(p.Dust)
	clone.Refund = copyInt(p.Refund)
	clone.Authorities = append([]string{}, p.Authorities...)
	return &clone
}

// Interaction is one credited entry of a campaign's append-only log.
type Interaction struct {
	Account  [20]byte
	Actor    [20]byte
	Type     uint8
	Height   uint64
	Units    uint64
	Metadata string
}

type claimRecord struct {
	Claimed     uint8
	Shares      uint64
	FirstHeight uint64
	LastHeight  uint64
}

func (c *claimRecord) has(t InteractionType) bool { return c.Claimed&(1<<t) != 0 }
func (c *claimRecord) mark(t InteractionType)     { c.Claimed |= 1 << t }

// Limits bounds the size of interaction inputs.
type Limits struct {
	MaxMetadataBytes int
	MaxCoAccounts    int
}

// DefaultLimits returns conservative input bounds.
func DefaultLimits() Limits {
	return Limits{MaxMetadataBytes: 1024, MaxCoAccounts: 8}
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
