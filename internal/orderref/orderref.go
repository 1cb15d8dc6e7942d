package orderref

import (
	"crypto/rand"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

const prefix = "ORD"

// Generator produces globally unique, opaque order references linking a
// spend to its future reversals.
type Generator interface {
	Next() string
}

// ULID issues lexically sortable order references backed by a monotonic
// ULID source. Safe for concurrent use.
type ULID struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULID constructs a ULID-backed generator.
func NewULID() *ULID {
	return &ULID{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns the next order reference.
func (g *ULID) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return prefix + "-" + id.String()
}

// Sequential hands out predictable references for tests.
type Sequential struct {
	n atomic.Int64
}

// NewSequential constructs a deterministic test generator.
func NewSequential() *Sequential {
	return &Sequential{}
}

// Next returns ORD-1, ORD-2, and so on.
func (g *Sequential) Next() string {
	return fmt.Sprintf("%s-%d", prefix, g.n.Add(1))
}
