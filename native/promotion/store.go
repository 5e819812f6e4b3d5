package promotion

import (
	"encoding/binary"

	"mediachain/crypto"
)

var (
	campaignPrefix    = []byte("promotion/campaign/")
	interactionPrefix = []byte("promotion/interaction/")
	claimPrefix       = []byte("promotion/claim/")
	campaignIndexKey  = []byte("promotion/index")
	offerPrefix       = []byte("subscription/offer/")
	memberPrefix      = []byte("subscription/member/")
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// EscrowAddress is the keyless account holding a campaign's budget.
func EscrowAddress(contentID string) [20]byte {
	return crypto.DeriveAccount("promotion/escrow/", []byte(contentID))
}

// RegistryAddress is the spender account through which the registry pulls
// budgets and purchases. Owners approve this account on the ledger.
func RegistryAddress() [20]byte {
	return crypto.DeriveAccount("promotion/registry")
}

func campaignKey(id string) []byte {
	return append(append([]byte(nil), campaignPrefix...), id...)
}

func roundScope(prefix []byte, id string, round uint64) []byte {
	buf := make([]byte, 0, len(prefix)+len(id)+12)
	buf = append(buf, prefix...)
	buf = binary.BigEndian.AppendUint64(buf, round)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(id)))
	return append(buf, id...)
}

func interactionKey(id string, round, index uint64) []byte {
	key := roundScope(interactionPrefix, id, round)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, index)
}

func claimKey(id string, round uint64, account [20]byte) []byte {
	key := roundScope(claimPrefix, id, round)
	key = append(key, '/')
	return append(key, account[:]...)
}

func offerKey(uri string) []byte {
	return append(append([]byte(nil), offerPrefix...), uri...)
}

func memberKey(uri string, account [20]byte) []byte {
	buf := make([]byte, 0, len(memberPrefix)+20+len(uri))
	buf = append(buf, memberPrefix...)
	buf = append(buf, account[:]...)
	return append(buf, uri...)
}

// store wraps the registry state with typed accessors.
type store struct {
	st registryState
}

func (s store) campaign(id string) (*Promotion, bool, error) {
	record := new(Promotion)
	ok, err := s.st.KVGet(campaignKey(id), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record.ensure(), true, nil
}

func (s store) putCampaign(p *Promotion) error {
	return s.st.KVPut(campaignKey(p.ContentID), p.ensure())
}

func (s store) indexCampaign(id string) error {
	return s.st.KVAppend(campaignIndexKey, []byte(id))
}

func (s store) campaignIDs() ([]string, error) {
	var raw [][]byte
	if err := s.st.KVGetList(campaignIndexKey, &raw); err != nil {
		return nil, err
	}
	ids := make([]string, len(raw))
	for i, id := range raw {
		ids[i] = string(id)
	}
	return ids, nil
}

// appendInteraction stores entry at the next log index of p.
func (s store) appendInteraction(p *Promotion, entry Interaction) error {
	if err := s.st.KVPut(interactionKey(p.ContentID, p.Round, p.InteractionCount), entry); err != nil {
		return err
	}
	p.InteractionCount++
	return nil
}

func (s store) interactions(p *Promotion) ([]Interaction, error) {
	out := make([]Interaction, 0, p.InteractionCount)
	for i := uint64(0); i < p.InteractionCount; i++ {
		var entry Interaction
		ok, err := s.st.KVGet(interactionKey(p.ContentID, p.Round, i), &entry)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s store) claim(p *Promotion, account [20]byte) (*claimRecord, error) {
	record := new(claimRecord)
	if _, err := s.st.KVGet(claimKey(p.ContentID, p.Round, account), record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s store) putClaim(p *Promotion, account [20]byte, record *claimRecord) error {
	return s.st.KVPut(claimKey(p.ContentID, p.Round, account), record)
}

func (s store) offer(uri string) (*Offer, bool, error) {
	record := new(Offer)
	ok, err := s.st.KVGet(offerKey(uri), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record.ensure(), true, nil
}

func (s store) putOffer(o *Offer) error {
	return s.st.KVPut(offerKey(o.URI), o.ensure())
}

func (s store) membership(uri string, account [20]byte) (uint64, bool, error) {
	var expires uint64
	ok, err := s.st.KVGet(memberKey(uri, account), &expires)
	return expires, ok, err
}

func (s store) putMembership(uri string, account [20]byte, expires uint64) error {
	return s.st.KVPut(memberKey(uri, account), expires)
}
