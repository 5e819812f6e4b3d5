// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mediachain/crypto"
)

// Spec is the operator supplied genesis file. Amounts are decimal strings so
// allocations above 2^64 survive both encodings.
type Spec struct {
	Alloc         map[string]string `json:"alloc" yaml:"alloc"` // addr -> amount
	RegistryOwner string            `json:"registryOwner,omitempty" yaml:"registryOwner,omitempty"`
	LedgerManager string            `json:"ledgerManager,omitempty" yaml:"ledgerManager,omitempty"`
}

// Allocation is a single resolved genesis balance.
type Allocation struct {
	Account [20]byte
	Amount  *big.Int
}

// Resolved is the validated form of a Spec with allocations sorted by
// account.
type Resolved struct {
	Alloc         []Allocation
	RegistryOwner [20]byte
	LedgerManager [20]byte
}

// LoadSpec reads a genesis spec from disk. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func LoadSpec(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec Spec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
		}
	}
	if _, err := spec.Resolve(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

// Resolve validates the spec and decodes every address and amount.
func (s *Spec) Resolve() (*Resolved, error) {
	if s == nil {
		return nil, fmt.Errorf("genesis spec must not be nil")
	}
	out := &Resolved{Alloc: make([]Allocation, 0, len(s.Alloc))}
	for addrStr, amountStr := range s.Alloc {
		account, err := crypto.ParseAccount(strings.TrimSpace(addrStr))
		if err != nil {
			return nil, fmt.Errorf("alloc[%q]: %w", addrStr, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(amountStr), 10)
		if !ok || amount.Sign() < 0 {
			return nil, fmt.Errorf("alloc[%q]: invalid amount %q", addrStr, amountStr)
		}
		out.Alloc = append(out.Alloc, Allocation{Account: account, Amount: amount})
	}
	sort.Slice(out.Alloc, func(i, j int) bool {
		return bytes.Compare(out.Alloc[i].Account[:], out.Alloc[j].Account[:]) < 0
	})
	for i := 1; i < len(out.Alloc); i++ {
		if out.Alloc[i].Account == out.Alloc[i-1].Account {
			return nil, fmt.Errorf("alloc: duplicate account %s", crypto.FormatAccount(out.Alloc[i].Account))
		}
	}
	if strings.TrimSpace(s.RegistryOwner) != "" {
		owner, err := crypto.ParseAccount(strings.TrimSpace(s.RegistryOwner))
		if err != nil {
			return nil, fmt.Errorf("registryOwner: %w", err)
		}
		out.RegistryOwner = owner
	}
	if strings.TrimSpace(s.LedgerManager) != "" {
		manager, err := crypto.ParseAccount(strings.TrimSpace(s.LedgerManager))
		if err != nil {
			return nil, fmt.Errorf("ledgerManager: %w", err)
		}
		out.LedgerManager = manager
	}
	return out, nil
}
