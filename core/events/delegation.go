package events

import (
	"strconv"

	"mediachain/core/types"
)

const (
	TypeDelegationProposed  = "delegation.proposed"
	TypeDelegationWithdrawn = "delegation.withdrawn"
)

// Delegation reports one side of the two-phase pairing handshake. Active is
// true once both the master and the delegate have proposed each other.
type Delegation struct {
	Master    [20]byte
	Delegate  [20]byte
	Side      string // "master" or "delegate": the account that acted
	Active    bool
	Withdrawn bool
}

func (e Delegation) EventType() string {
	if e.Withdrawn {
		return TypeDelegationWithdrawn
	}
	return TypeDelegationProposed
}

func (e Delegation) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"master":   formatAccount(e.Master),
		"delegate": formatAccount(e.Delegate),
		"side":     e.Side,
		"active":   strconv.FormatBool(e.Active),
	}}
}
