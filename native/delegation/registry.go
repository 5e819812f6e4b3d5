package delegation

import (
	"errors"
	"fmt"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
)

var (
	masterProposalPrefix   = []byte("delegation/master/")
	delegateProposalPrefix = []byte("delegation/delegate/")

	ErrNilState       = errors.New("delegation: state not configured")
	ErrSelfDelegation = errors.New("delegation: account cannot delegate to itself")
	ErrZeroAddress    = errors.New("delegation: zero address")
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Registry tracks two-phase master/delegate pairings. A pairing is active only
// when the master proposed the delegate and the delegate proposed the same
// master. A delegate has at most one master.
type Registry struct {
	st      registryState
	emitter events.Emitter
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets the emitter to
// a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func masterKey(master, delegate [20]byte) []byte {
	buf := make([]byte, 0, len(masterProposalPrefix)+40)
	buf = append(buf, masterProposalPrefix...)
	buf = append(buf, master[:]...)
	return append(buf, delegate[:]...)
}

func delegateKey(delegate [20]byte) []byte {
	return append(append([]byte(nil), delegateProposalPrefix...), delegate[:]...)
}

func (r *Registry) ready() error {
	if r == nil || r.st == nil {
		return ErrNilState
	}
	return nil
}

func validPair(master, delegate [20]byte) error {
	if master == [20]byte{} || delegate == [20]byte{} {
		return ErrZeroAddress
	}
	if master == delegate {
		return ErrSelfDelegation
	}
	return nil
}

// ProposeDelegation records that master (the caller) accepts delegate acting
// on its behalf.
func (r *Registry) ProposeDelegation(master, delegate [20]byte) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := validPair(master, delegate); err != nil {
		return err
	}
	if err := r.st.KVPut(masterKey(master, delegate), true); err != nil {
		return err
	}
	active, err := r.isActive(master, delegate)
	if err != nil {
		return err
	}
	r.emit(events.Delegation{Master: master, Delegate: delegate, Side: "master", Active: active})
	return nil
}

// ProposeMaster records that delegate (the caller) names master as the
// identity its actions are attributed to. A delegate that is already paired
// must withdraw before naming another master.
func (r *Registry) ProposeMaster(delegate, master [20]byte) error {
	if err := r.ready(); err != nil {
		return err
	}
	if err := validPair(master, delegate); err != nil {
		return err
	}
	current, ok, err := r.proposedMaster(delegate)
	if err != nil {
		return err
	}
	if ok && current != master {
		paired, err := r.isActive(current, delegate)
		if err != nil {
			return err
		}
		if paired {
			return fmt.Errorf("%w: delegate already paired with another master", coreerrors.ErrNotAuthorized)
		}
	}
	if err := r.st.KVPut(delegateKey(delegate), master[:]); err != nil {
		return err
	}
	active, err := r.isActive(master, delegate)
	if err != nil {
		return err
	}
	r.emit(events.Delegation{Master: master, Delegate: delegate, Side: "delegate", Active: active})
	return nil
}

// WithdrawDelegation removes the master side consent.
func (r *Registry) WithdrawDelegation(master, delegate [20]byte) error {
	if err := r.ready(); err != nil {
		return err
	}
	ok, err := r.st.KVGet(masterKey(master, delegate), nil)
	if err != nil || !ok {
		return err
	}
	if err := r.st.KVDelete(masterKey(master, delegate)); err != nil {
		return err
	}
	r.emit(events.Delegation{Master: master, Delegate: delegate, Side: "master", Withdrawn: true})
	return nil
}

// WithdrawMaster removes the delegate side consent.
func (r *Registry) WithdrawMaster(delegate [20]byte) error {
	if err := r.ready(); err != nil {
		return err
	}
	master, ok, err := r.proposedMaster(delegate)
	if err != nil || !ok {
		return err
	}
	if err := r.st.KVDelete(delegateKey(delegate)); err != nil {
		return err
	}
	r.emit(events.Delegation{Master: master, Delegate: delegate, Side: "delegate", Withdrawn: true})
	return nil
}

// MasterOf returns the master of delegate when the pairing is active.
func (r *Registry) MasterOf(delegate [20]byte) ([20]byte, bool, error) {
	if err := r.ready(); err != nil {
		return [20]byte{}, false, err
	}
	master, ok, err := r.proposedMaster(delegate)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	active, err := r.isActive(master, delegate)
	if err != nil || !active {
		return [20]byte{}, false, err
	}
	return master, true, nil
}

// Resolve maps an actor to the identity it acts for: its master when an
// active pairing exists, otherwise itself.
func (r *Registry) Resolve(actor [20]byte) ([20]byte, error) {
	master, ok, err := r.MasterOf(actor)
	if err != nil {
		return [20]byte{}, err
	}
	if ok {
		return master, nil
	}
	return actor, nil
}

func (r *Registry) proposedMaster(delegate [20]byte) ([20]byte, bool, error) {
	var raw []byte
	ok, err := r.st.KVGet(delegateKey(delegate), &raw)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	var master [20]byte
	copy(master[:], raw)
	return master, true, nil
}

func (r *Registry) isActive(master, delegate [20]byte) (bool, error) {
	ok, err := r.st.KVGet(masterKey(master, delegate), nil)
	if err != nil || !ok {
		return false, err
	}
	proposed, ok, err := r.proposedMaster(delegate)
	if err != nil || !ok {
		return false, err
	}
	return proposed == master, nil
}

func (r *Registry) emit(evt events.Event) {
	if r.emitter != nil {
		r.emitter.Emit(evt)
	}
}
