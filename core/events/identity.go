package events

import "mediachain/core/types"

const (
	TypeServiceRegistered    = "identity.service.registered"
	TypeUserVerified         = "identity.user.verified"
	TypeUserVerificationDrop = "identity.user.revoked"
)

type ServiceRegistered struct {
	Name  string
	Owner [20]byte
}

func (ServiceRegistered) EventType() string { return TypeServiceRegistered }

func (e ServiceRegistered) Event() *types.Event {
	return &types.Event{Type: TypeServiceRegistered, Attributes: map[string]string{
		"service": e.Name,
		"owner":   formatAccount(e.Owner),
	}}
}

// UserVerification covers both attestation and revocation.
type UserVerification struct {
	Issuer  [20]byte
	User    [20]byte
	Revoked bool
}

func (e UserVerification) EventType() string {
	if e.Revoked {
		return TypeUserVerificationDrop
	}
	return TypeUserVerified
}

func (e UserVerification) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"issuer": formatAccount(e.Issuer),
		"user":   formatAccount(e.User),
	}}
}
