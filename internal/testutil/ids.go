package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates predictable run identifiers: "<prefix>-0001",
// "<prefix>-0002", ...
//
// This keeps stored runs and golden traces byte-identical between test
// executions. Use it wherever a UUIDv7 would otherwise be generated.
//
// Thread-safety: safe for concurrent use.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix means "run".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
