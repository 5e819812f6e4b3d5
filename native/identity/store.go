package identity

import (
	"mediachain/core/events"
)

var (
	servicePrefix       = []byte("identity/service/")
	issuerServicePrefix = []byte("identity/issuer-services/")
	attestationPrefix   = []byte("identity/attestation/")
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Store is the persistence handle handed to registry implementations. All
// verification records live here, so upgrading the implementation keeps them.
type Store struct {
	st      registryState
	emitter events.Emitter
}

func serviceKey(name string) []byte {
	return append(append([]byte(nil), servicePrefix...), name...)
}

func issuerServicesKey(issuer [20]byte) []byte {
	return append(append([]byte(nil), issuerServicePrefix...), issuer[:]...)
}

func attestationKey(issuer, user [20]byte) []byte {
	buf := make([]byte, 0, len(attestationPrefix)+40)
	buf = append(buf, attestationPrefix...)
	buf = append(buf, issuer[:]...)
	return append(buf, user[:]...)
}

// ServiceOwner resolves the issuer account behind a service name.
func (s *Store) ServiceOwner(name string) ([20]byte, bool, error) {
	var raw []byte
	ok, err := s.st.KVGet(serviceKey(name), &raw)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	var owner [20]byte
	copy(owner[:], raw)
	return owner, true, nil
}

// PutService binds name to owner and indexes it under the owner.
func (s *Store) PutService(name string, owner [20]byte) error {
	if err := s.st.KVPut(serviceKey(name), owner[:]); err != nil {
		return err
	}
	return s.st.KVAppend(issuerServicesKey(owner), []byte(name))
}

// ServicesOf lists the services registered by issuer.
func (s *Store) ServicesOf(issuer [20]byte) ([]string, error) {
	var raw [][]byte
	if err := s.st.KVGetList(issuerServicesKey(issuer), &raw); err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, name := range raw {
		out[i] = string(name)
	}
	return out, nil
}

// Attested reports whether issuer vouched for user.
func (s *Store) Attested(issuer, user [20]byte) (bool, error) {
	var flag bool
	ok, err := s.st.KVGet(attestationKey(issuer, user), &flag)
	if err != nil || !ok {
		return false, err
	}
	return flag, nil
}

// SetAttestation records or clears issuer's attestation for user.
func (s *Store) SetAttestation(issuer, user [20]byte, attested bool) error {
	if !attested {
		return s.st.KVDelete(attestationKey(issuer, user))
	}
	return s.st.KVPut(attestationKey(issuer, user), true)
}

// Emit forwards evt to the registry emitter.
func (s *Store) Emit(evt events.Event) {
	if s == nil || s.emitter == nil || evt == nil {
		return
	}
	s.emitter.Emit(evt)
}
