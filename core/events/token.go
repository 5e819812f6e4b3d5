package events

import (
	"math/big"

	"mediachain/core/types"
)

const (
	// TypeTransfer is emitted for every balance movement.
	TypeTransfer = "token.transfer"
	// TypeExternalTransfer is emitted alongside TypeTransfer when a third
	// party moved funds through an allowance.
	TypeExternalTransfer = "token.transfer.external"
	// TypeApproval is emitted when a one-shot allowance is set.
	TypeApproval = "token.approval"
	// TypeRecurrentApproval is emitted when a periodic allowance is installed
	// or revoked.
	TypeRecurrentApproval = "token.approval.recurrent"
	// TypeMint is emitted for genesis issuance.
	TypeMint = "token.mint"
)

type Transfer struct {
	From   [20]byte
	To     [20]byte
	Amount *big.Int
	Height uint64
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"from":   formatAccount(e.From),
		"to":     formatAccount(e.To),
		"amount": formatAmount(e.Amount),
		"height": formatHeight(e.Height),
	}}
}

type ExternalTransfer struct {
	Spender [20]byte
	From    [20]byte
	To      [20]byte
	Amount  *big.Int
	Height  uint64
}

func (ExternalTransfer) EventType() string { return TypeExternalTransfer }

func (e ExternalTransfer) Event() *types.Event {
	return &types.Event{Type: TypeExternalTransfer, Attributes: map[string]string{
		"spender": formatAccount(e.Spender),
		"from":    formatAccount(e.From),
		"to":      formatAccount(e.To),
		"amount":  formatAmount(e.Amount),
		"height":  formatHeight(e.Height),
	}}
}

type Approval struct {
	Owner   [20]byte
	Spender [20]byte
	Amount  *big.Int
	Height  uint64
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeApproval, Attributes: map[string]string{
		"owner":   formatAccount(e.Owner),
		"spender": formatAccount(e.Spender),
		"amount":  formatAmount(e.Amount),
		"height":  formatHeight(e.Height),
	}}
}

type RecurrentApproval struct {
	Owner   [20]byte
	Spender [20]byte
	Cap     *big.Int
	Period  uint64
	Height  uint64
}

func (RecurrentApproval) EventType() string { return TypeRecurrentApproval }

func (e RecurrentApproval) Event() *types.Event {
	return &types.Event{Type: TypeRecurrentApproval, Attributes: map[string]string{
		"owner":   formatAccount(e.Owner),
		"spender": formatAccount(e.Spender),
		"cap":     formatAmount(e.Cap),
		"period":  formatHeight(e.Period),
		"height":  formatHeight(e.Height),
	}}
}

type Mint struct {
	To     [20]byte
	Amount *big.Int
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{Type: TypeMint, Attributes: map[string]string{
		"to":     formatAccount(e.To),
		"amount": formatAmount(e.Amount),
	}}
}
