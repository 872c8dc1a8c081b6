package target

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces identities for target nodes and flows.
// It is the only non-deterministic input of a conversion; tests pin it
// with a SequenceGenerator.
//
// Implementations must be safe for concurrent use.
type IDGenerator interface {
	// NodeID returns a fresh id for a node cloned from componentType.
	NodeID(componentType string) string

	// FlowID returns a fresh id for an emitted flow.
	FlowID() string
}

// UUIDGenerator generates ids from random UUIDs.
// Node ids have the platform's "<Type>-<5 hex>" shape; the short suffix is
// checked against previously issued ids so a single generator never repeats.
type UUIDGenerator struct {
	mu     sync.Mutex
	issued map[string]struct{}
}

// NewUUIDGenerator creates a UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{issued: make(map[string]struct{})}
}

// NodeID implements IDGenerator.
func (g *UUIDGenerator) NodeID(componentType string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		u := uuid.New()
		id := componentType + "-" + hex.EncodeToString(u[:])[:5]
		if _, dup := g.issued[id]; dup {
			continue
		}
		g.issued[id] = struct{}{}
		return id
	}
}

// FlowID implements IDGenerator.
func (g *UUIDGenerator) FlowID() string {
	return uuid.NewString()
}

// SequenceGenerator issues deterministic ids: "<Type>-00001", "<Type>-00002", ...
// and "flow-00003" for flows, sharing one counter.
type SequenceGenerator struct {
	mu sync.Mutex
	n  int
}

// NewSequenceGenerator creates a SequenceGenerator starting at 1.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// NodeID implements IDGenerator.
func (g *SequenceGenerator) NodeID(componentType string) string {
	return fmt.Sprintf("%s-%05d", componentType, g.next())
}

// FlowID implements IDGenerator.
func (g *SequenceGenerator) FlowID() string {
	return fmt.Sprintf("flow-%05d", g.next())
}

func (g *SequenceGenerator) next() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

// Compile-time interface checks.
var (
	_ IDGenerator = (*UUIDGenerator)(nil)
	_ IDGenerator = (*SequenceGenerator)(nil)
)
