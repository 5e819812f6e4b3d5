package identity

import (
	"errors"
	"fmt"
	"strings"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
	"mediachain/native/common"
)

const maxServiceNameLength = 64

var (
	ErrNilState           = errors.New("identity: state not configured")
	ErrInvalidServiceName = errors.New("identity: invalid service name")
	ErrZeroAddress        = errors.New("identity: zero address")
)

// Implementation is the upgradeable logic behind the registry handle.
type Implementation interface {
	RegisterService(s *Store, caller [20]byte, name string) error
	AddUserVerification(s *Store, caller, user [20]byte) error
	RevokeUserVerification(s *Store, caller, user [20]byte) error
	IsVerified(s *Store, service string, user [20]byte) (bool, error)
}

// Registry is the stable verification registry handle. Calls are forwarded to
// the implementation currently installed in the dispatcher.
type Registry struct {
	store    *Store
	dispatch *common.Dispatcher[Implementation]
}

// NewRegistry creates a registry backed by st whose upgrades are controlled
// by owner.
func NewRegistry(st registryState, owner [20]byte) *Registry {
	return &Registry{
		store:    &Store{st: st, emitter: events.NoopEmitter{}},
		dispatch: common.NewDispatcher[Implementation](owner, V1{}, "verification-v1"),
	}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.store.emitter = events.NoopEmitter{}
		return
	}
	r.store.emitter = emitter
}

// Upgrade installs a new implementation. Existing services and attestations
// are preserved.
func (r *Registry) Upgrade(caller [20]byte, impl Implementation, label string) error {
	return r.dispatch.Upgrade(caller, impl, label)
}

// Version reports the installed implementation.
func (r *Registry) Version() common.Version { return r.dispatch.Version() }

func (r *Registry) impl() (Implementation, error) {
	if r == nil || r.store == nil || r.store.st == nil {
		return nil, ErrNilState
	}
	return r.dispatch.Current(), nil
}

func (r *Registry) RegisterService(caller [20]byte, name string) error {
	impl, err := r.impl()
	if err != nil {
		return err
	}
	return impl.RegisterService(r.store, caller, name)
}

func (r *Registry) AddUserVerification(caller, user [20]byte) error {
	impl, err := r.impl()
	if err != nil {
		return err
	}
	return impl.AddUserVerification(r.store, caller, user)
}

func (r *Registry) RevokeUserVerification(caller, user [20]byte) error {
	impl, err := r.impl()
	if err != nil {
		return err
	}
	return impl.RevokeUserVerification(r.store, caller, user)
}

// IsVerified reports whether user holds an attestation from the issuer
// behind service. Unknown services verify nobody.
func (r *Registry) IsVerified(service string, user [20]byte) (bool, error) {
	impl, err := r.impl()
	if err != nil {
		return false, err
	}
	return impl.IsVerified(r.store, service, user)
}

// ServiceOwner exposes the issuer bound to a service name.
func (r *Registry) ServiceOwner(name string) ([20]byte, bool, error) {
	if _, err := r.impl(); err != nil {
		return [20]byte{}, false, err
	}
	return r.store.ServiceOwner(normalizeServiceName(name))
}

// V1 is the initial verification logic: service names are first come first
// served and attestations are scoped to the issuing account.
type V1 struct{}

func (V1) RegisterService(s *Store, caller [20]byte, name string) error {
	name = normalizeServiceName(name)
	if name == "" || len(name) > maxServiceNameLength {
		return ErrInvalidServiceName
	}
	owner, exists, err := s.ServiceOwner(name)
	if err != nil {
		return err
	}
	if exists {
		if owner != caller {
			return fmt.Errorf("%w: service %q is owned by another issuer", coreerrors.ErrNotAuthorized, name)
		}
		return nil
	}
	if err := s.PutService(name, caller); err != nil {
		return err
	}
	s.Emit(events.ServiceRegistered{Name: name, Owner: caller})
	return nil
}

func (V1) AddUserVerification(s *Store, caller, user [20]byte) error {
	if user == [20]byte{} {
		return ErrZeroAddress
	}
	if err := requireIssuer(s, caller); err != nil {
		return err
	}
	if err := s.SetAttestation(caller, user, true); err != nil {
		return err
	}
	s.Emit(events.UserVerification{Issuer: caller, User: user})
	return nil
}

func (V1) RevokeUserVerification(s *Store, caller, user [20]byte) error {
	if err := requireIssuer(s, caller); err != nil {
		return err
	}
	attested, err := s.Attested(caller, user)
	if err != nil || !attested {
		return err
	}
	if err := s.SetAttestation(caller, user, false); err != nil {
		return err
	}
	s.Emit(events.UserVerification{Issuer: caller, User: user, Revoked: true})
	return nil
}

func (V1) IsVerified(s *Store, service string, user [20]byte) (bool, error) {
	owner, ok, err := s.ServiceOwner(normalizeServiceName(service))
	if err != nil || !ok {
		return false, err
	}
	return s.Attested(owner, user)
}

func requireIssuer(s *Store, caller [20]byte) error {
	services, err := s.ServicesOf(caller)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		return fmt.Errorf("%w: caller has not registered a verification service", coreerrors.ErrNotAuthorized)
	}
	return nil
}

func normalizeServiceName(name string) string {
	return strings.TrimSpace(name)
}
