package common

import (
	"errors"
	"fmt"
	"sync"
)

var ErrReentrantCall = errors.New("reentrant call")

// EntityGuard rejects nested entry into an entity that is already executing a
// mutating operation. Keys are released by the function Enter returns, which
// callers defer so every exit path unlocks.
type EntityGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewEntityGuard returns an empty guard.
func NewEntityGuard() *EntityGuard {
	return &EntityGuard{held: make(map[string]struct{})}
}

// Enter marks key as executing.
func (g *EntityGuard) Enter(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		g.held = make(map[string]struct{})
	}
	if _, busy := g.held[key]; busy {
		return nil, fmt.Errorf("%w: %s", ErrReentrantCall, key)
	}
	g.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently entered.
func (g *EntityGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.held[key]
	return busy
}
