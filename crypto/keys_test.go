package crypto

import (
	"path/filepath"
	"testing"
)

func TestAccountRoundTrip(t *testing.T) {
	raw := [20]byte{0xde, 0xad, 0xbe, 0xef}
	encoded := FormatAccount(raw)
	if encoded[:4] != "mdt1" {
		t.Fatalf("unexpected encoding %s", encoded)
	}
	decoded, err := ParseAccount(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decoded != raw {
		t.Fatalf("round trip mismatch: %x", decoded)
	}
}

func TestParseAccountRejectsForeignPrefix(t *testing.T) {
	other := MustNewAddress("nhb", make([]byte, 20)).String()
	if _, err := ParseAccount(other); err == nil {
		t.Fatalf("expected prefix error")
	}
	if _, err := NewAddress(MediaPrefix, []byte{1, 2}); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestDeriveAccountDeterministic(t *testing.T) {
	a := DeriveAccount("promotion/escrow", []byte("http://abc"))
	b := DeriveAccount("promotion/escrow", []byte("http://abc"))
	c := DeriveAccount("promotion/escrow", []byte("http://abd"))
	if a != b {
		t.Fatalf("derivation must be deterministic")
	}
	if a == c {
		t.Fatalf("distinct inputs must yield distinct accounts")
	}
}

func TestLoadOrCreateKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "operator.json")
	key, created, err := LoadOrCreateKeystore(path, "secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created {
		t.Fatalf("expected a new key")
	}
	again, created, err := LoadOrCreateKeystore(path, "secret")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if created {
		t.Fatalf("expected existing key to be reused")
	}
	if again.PubKey().Address().String() != key.PubKey().Address().String() {
		t.Fatalf("reloaded key mismatch")
	}
	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("expected decrypt failure with wrong passphrase")
	}
}
