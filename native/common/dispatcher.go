package common

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	coreerrors "mediachain/core/errors"
)

var ErrNilImplementation = errors.New("dispatcher: implementation required")

// Version describes one installed implementation of a dispatched module.
type Version struct {
	Number uint64
	Label  string
}

// Dispatcher is the stable handle callers hold for an upgradeable module. The
// module's persistent records live in state, so swapping the implementation
// preserves them.
type Dispatcher[T any] struct {
	mu       sync.RWMutex
	owner    [20]byte
	current  T
	versions []Version
}

// NewDispatcher installs impl as version 1 owned by owner.
func NewDispatcher[T any](owner [20]byte, impl T, label string) *Dispatcher[T] {
	return &Dispatcher[T]{
		owner:    owner,
		current:  impl,
		versions: []Version{{Number: 1, Label: normalizeLabel(label)}},
	}
}

// Current returns the active implementation.
func (d *Dispatcher[T]) Current() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Owner returns the upgrade authority.
func (d *Dispatcher[T]) Owner() [20]byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.owner
}

// Version returns the active version descriptor.
func (d *Dispatcher[T]) Version() Version {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.versions[len(d.versions)-1]
}

// History lists every installed version, oldest first.
func (d *Dispatcher[T]) History() []Version {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Version(nil), d.versions...)
}

// Upgrade swaps the implementation. Only the owner may upgrade.
func (d *Dispatcher[T]) Upgrade(caller [20]byte, impl T, label string) error {
	if any(impl) == nil {
		return ErrNilImplementation
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if caller != d.owner {
		return fmt.Errorf("%w: only the dispatcher owner may upgrade", coreerrors.ErrNotAuthorized)
	}
	d.current = impl
	d.versions = append(d.versions, Version{Number: uint64(len(d.versions) + 1), Label: normalizeLabel(label)})
	return nil
}

// TransferOwnership hands the upgrade authority to next.
func (d *Dispatcher[T]) TransferOwnership(caller, next [20]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if caller != d.owner {
		return fmt.Errorf("%w: only the dispatcher owner may transfer ownership", coreerrors.ErrNotAuthorized)
	}
	d.owner = next
	return nil
}

func normalizeLabel(label string) string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "unnamed"
	}
	return trimmed
}
