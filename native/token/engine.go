package token

import (
	"errors"
	"fmt"
	"math/big"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
	"mediachain/core/types"
	"mediachain/native/common"
)

const moduleName = "token"

var (
	allowancePrefix = []byte("ledger/allowance/")
	recurrentPrefix = []byte("ledger/recurrent/")
)

type engineState interface {
	Balance(addr [20]byte) (*big.Int, error)
	SetBalance(addr [20]byte, amount *big.Int) error
	TotalSupply() (*big.Int, error)
	SetTotalSupply(amount *big.Int) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Engine is the media token ledger: balances, direct transfers and the
// one-shot and recurrent allowance primitives.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  common.PauseView
	manager [20]byte
}

// NewEngine constructs a ledger with a discarding emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the pause view consulted before every mutation.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetManager configures the ledger management authority allowed to call
// ManagerTransfer.
func (e *Engine) SetManager(addr [20]byte) { e.manager = addr }

// Manager returns the configured management authority.
func (e *Engine) Manager() [20]byte { return e.manager }

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return nil
}

func (e *Engine) mutable() error {
	if err := e.ready(); err != nil {
		return err
	}
	return common.Guard(e.pauses, moduleName)
}

// BalanceOf returns the balance of addr.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.Balance(addr)
}

// TotalSupply returns the amount minted at genesis.
func (e *Engine) TotalSupply() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.TotalSupply()
}

// Mint credits new supply to addr. Only the genesis loader mints.
func (e *Engine) Mint(to [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	if to == [20]byte{} {
		return ErrZeroAddress
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return err
	}
	bal, err := e.state.Balance(to)
	if err != nil {
		return err
	}
	if err := e.state.SetTotalSupply(new(big.Int).Add(supply, amount)); err != nil {
		return err
	}
	if err := e.state.SetBalance(to, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	e.emit(events.Mint{To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Transfer moves amount from the caller to to.
func (e *Engine) Transfer(bc types.BlockContext, from, to [20]byte, amount *big.Int) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	if to == [20]byte{} {
		return ErrZeroAddress
	}
	if err := e.move(from, to, amount); err != nil {
		return err
	}
	e.emit(events.Transfer{From: from, To: to, Amount: new(big.Int).Set(amount), Height: bc.Height})
	return nil
}

// Approve sets (replacing) the one-shot allowance owner grants spender. A
// zero amount clears it.
func (e *Engine) Approve(bc types.BlockContext, owner, spender [20]byte, amount *big.Int) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if spender == [20]byte{} {
		return ErrZeroAddress
	}
	if err := e.putAllowance(owner, spender, amount); err != nil {
		return err
	}
	e.emit(events.Approval{Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount), Height: bc.Height})
	return nil
}

// ApproveRecurrent installs a periodic allowance whose first period opens at
// the current height. A zero cap revokes it.
func (e *Engine) ApproveRecurrent(bc types.BlockContext, owner, spender [20]byte, cap *big.Int, periodLength uint64) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if cap == nil || cap.Sign() < 0 {
		return ErrInvalidAmount
	}
	if spender == [20]byte{} {
		return ErrZeroAddress
	}
	key := pairKey(recurrentPrefix, owner, spender)
	if cap.Sign() == 0 {
		if err := e.state.KVDelete(key); err != nil {
			return err
		}
	} else {
		if periodLength == 0 {
			return ErrInvalidPeriod
		}
		record := &RecurrentAllowance{
			Cap:           new(big.Int).Set(cap),
			PeriodLength:  periodLength,
			SpentInPeriod: new(big.Int),
			PeriodStart:   bc.Height,
		}
		if err := e.state.KVPut(key, record); err != nil {
			return err
		}
	}
	e.emit(events.RecurrentApproval{Owner: owner, Spender: spender, Cap: new(big.Int).Set(cap), Period: periodLength, Height: bc.Height})
	return nil
}

// TransferFrom lets spender move funds out of from. A non-zero one-shot
// allowance takes precedence; otherwise the recurrent allowance is consumed
// after being rolled forward to the current height. Nothing is persisted when
// the draw fails.
func (e *Engine) TransferFrom(bc types.BlockContext, spender, from, to [20]byte, amount *big.Int) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	if to == [20]byte{} {
		return ErrZeroAddress
	}
	apply, err := e.authorize(bc, spender, from, amount)
	if err != nil {
		return err
	}
	bal, err := e.state.Balance(from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s below %s", coreerrors.ErrInsufficientBalance, bal, amount)
	}
	if err := apply(); err != nil {
		return err
	}
	if err := e.move(from, to, amount); err != nil {
		return err
	}
	value := new(big.Int).Set(amount)
	e.emit(events.Transfer{From: from, To: to, Amount: value, Height: bc.Height})
	e.emit(events.ExternalTransfer{Spender: spender, From: from, To: to, Amount: new(big.Int).Set(value), Height: bc.Height})
	return nil
}

// ManagerTransfer moves funds between arbitrary accounts on behalf of the
// ledger management authority.
func (e *Engine) ManagerTransfer(bc types.BlockContext, caller, from, to [20]byte, amount *big.Int) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if e.manager == ([20]byte{}) || caller != e.manager {
		return fmt.Errorf("%w: ledger management is restricted", coreerrors.ErrNotAuthorized)
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	if to == [20]byte{} {
		return ErrZeroAddress
	}
	if err := e.move(from, to, amount); err != nil {
		return err
	}
	value := new(big.Int).Set(amount)
	e.emit(events.Transfer{From: from, To: to, Amount: value, Height: bc.Height})
	e.emit(events.ExternalTransfer{Spender: caller, From: from, To: to, Amount: new(big.Int).Set(value), Height: bc.Height})
	return nil
}

// Allowance returns the one-shot allowance owner granted spender.
func (e *Engine) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	out := new(big.Int)
	if _, err := e.state.KVGet(pairKey(allowancePrefix, owner, spender), out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecurrentAllowance returns the stored periodic allowance, if any. The
// record is returned as persisted; use Remaining to observe a height.
func (e *Engine) RecurrentAllowance(owner, spender [20]byte) (*RecurrentAllowance, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	record := new(RecurrentAllowance)
	ok, err := e.state.KVGet(pairKey(recurrentPrefix, owner, spender), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record.ensure(), true, nil
}

// authorize checks that spender may draw amount from owner and returns the
// write that records the draw. The write is deferred so a later balance
// failure leaves allowances untouched.
func (e *Engine) authorize(bc types.BlockContext, spender, owner [20]byte, amount *big.Int) (func() error, error) {
	oneShot, err := e.Allowance(owner, spender)
	if err != nil {
		return nil, err
	}
	if oneShot.Sign() > 0 {
		if oneShot.Cmp(amount) < 0 {
			return nil, fmt.Errorf("%w: allowance %s below %s", coreerrors.ErrAllowanceExceeded, oneShot, amount)
		}
		left := new(big.Int).Sub(oneShot, amount)
		return func() error { return e.putAllowance(owner, spender, left) }, nil
	}

	record, ok, err := e.RecurrentAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no allowance", coreerrors.ErrAllowanceExceeded)
	}
	next, err := common.ConsumeWindow(record.window(), bc.Height, amount)
	if err != nil {
		if errors.Is(err, common.ErrWindowExceeded) || errors.Is(err, common.ErrWindowDisabled) {
			return nil, fmt.Errorf("%w: recurrent cap %s reached in period starting at %d", coreerrors.ErrAllowanceExceeded, record.Cap, record.window().Roll(bc.Height).Start)
		}
		return nil, err
	}
	key := pairKey(recurrentPrefix, owner, spender)
	return func() error { return e.state.KVPut(key, recurrentFromWindow(next)) }, nil
}

func (e *Engine) putAllowance(owner, spender [20]byte, amount *big.Int) error {
	key := pairKey(allowancePrefix, owner, spender)
	if amount.Sign() == 0 {
		return e.state.KVDelete(key)
	}
	return e.state.KVPut(key, new(big.Int).Set(amount))
}

func (e *Engine) move(from, to [20]byte, amount *big.Int) error {
	fromBal, err := e.state.Balance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s below %s", coreerrors.ErrInsufficientBalance, fromBal, amount)
	}
	if from == to {
		return nil
	}
	toBal, err := e.state.Balance(to)
	if err != nil {
		return err
	}
	if err := e.state.SetBalance(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return e.state.SetBalance(to, new(big.Int).Add(toBal, amount))
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func pairKey(prefix []byte, owner, spender [20]byte) []byte {
	buf := make([]byte, 0, len(prefix)+40)
	buf = append(buf, prefix...)
	buf = append(buf, owner[:]...)
	return append(buf, spender[:]...)
}
