// Package wallet provides a trivial implementation of scheduler.WalletResolver.
// It stands in for the distilled spec's payment-policy engine collaborator,
// which SPEC_FULL §13 keeps explicitly out of scope (persistent payment
// accounting is a Non-goal).
package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/rezkam/mono/internal/domain"
)

// Handle is the opaque resolved form of a WalletRef that StaticResolver hands
// back to the invoker. Its contents are never inspected by the core.
type Handle struct {
	WalletRef domain.WalletRef
	Data      map[string]string
}

// StaticResolver resolves a WalletRef to a Handle via a fixed, in-memory
// lookup table keyed by WalletRef.ID. It never performs I/O.
type StaticResolver struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

// NewStaticResolver builds a resolver pre-populated with handles keyed by
// wallet reference ID.
func NewStaticResolver(handles map[string]Handle) *StaticResolver {
	cp := make(map[string]Handle, len(handles))
	for k, v := range handles {
		cp[k] = v
	}
	return &StaticResolver{handles: cp}
}

// Resolve implements scheduler.WalletResolver.
func (s *StaticResolver) Resolve(_ context.Context, ref domain.WalletRef) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[ref.ID]
	if !ok {
		return nil, fmt.Errorf("wallet %s: no static handle registered", ref.ID)
	}
	return h, nil
}

// Set registers or replaces the handle for a wallet reference ID.
func (s *StaticResolver) Set(id string, h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles == nil {
		s.handles = make(map[string]Handle)
	}
	s.handles[id] = h
}
