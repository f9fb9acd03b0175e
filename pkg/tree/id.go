package tree

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// NodeID is the opaque identifier of a node.
type NodeID string

// IDGenerator allocates node identifiers. A store calls Next until it gets an
// id that is neither live nor retired, so generators need not track history.
type IDGenerator interface {
	Next() NodeID
}

type uuidGenerator struct{}

// NewUUIDGenerator returns a generator of random version 4 UUIDs.
func NewUUIDGenerator() IDGenerator { return uuidGenerator{} }

func (uuidGenerator) Next() NodeID { return NodeID(uuid.NewString()) }

type sequenceGenerator struct {
	prefix string
	n      atomic.Uint64
}

// NewSequenceGenerator returns a generator producing prefix1, prefix2, ...
// Useful for tests and examples where ids must be predictable.
func NewSequenceGenerator(prefix string) IDGenerator {
	return &sequenceGenerator{prefix: prefix}
}

func (g *sequenceGenerator) Next() NodeID {
	return NodeID(fmt.Sprintf("%s%d", g.prefix, g.n.Add(1)))
}
