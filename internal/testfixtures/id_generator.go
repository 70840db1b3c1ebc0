package testfixtures

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator hands out deterministic sequential identifiers with a fixed
// prefix, replacing uuid generation in tests.
type IDGenerator struct {
	prefix  string
	counter uint64
}

// NewIDGenerator creates a generator producing "<prefix>-001", "<prefix>-002"
// and so on.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	idx := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-%03d", g.prefix, idx)
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	return g.Next
}
