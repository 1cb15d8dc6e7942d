package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Key identifies a numeric policy limit.
type Key string

const (
	// KeyGrantMin is the smallest amount a single grant may carry.
	KeyGrantMin Key = "grant_min"
	// KeyGrantMax is the largest amount a single grant may carry.
	KeyGrantMax Key = "grant_max"
	// KeyBalanceMax caps a member's total holding.
	KeyBalanceMax Key = "balance_max"
)

// ErrNotFound indicates a policy key has no configured value. Callers treat
// this as a configuration error, fatal to the operation.
var ErrNotFound = errors.New("policy value not found")

// Provider resolves numeric policy limits by key.
type Provider interface {
	Get(ctx context.Context, key Key) (int64, error)
}

// Static serves policy values from an in-memory table. Used in development
// mode and tests.
type Static struct {
	mu     sync.RWMutex
	values map[Key]int64
}

// NewStatic builds a static provider from the given table.
func NewStatic(values map[Key]int64) *Static {
	copied := make(map[Key]int64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Static{values: copied}
}

// Defaults returns the development-mode policy table.
func Defaults() map[Key]int64 {
	return map[Key]int64{
		KeyGrantMin:   1,
		KeyGrantMax:   100_000,
		KeyBalanceMax: 1_000_000,
	}
}

// Get returns the configured value for key.
func (s *Static) Get(_ context.Context, key Key) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

// Set overrides a value. Test helper.
func (s *Static) Set(key Key, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}
