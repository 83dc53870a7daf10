package tlb

import (
	"github.com/sarchlab/mmusim/mem/vm/tlb/internal"
	"github.com/sarchlab/mmusim/sim"
)

// DefaultNumWays is the number of entries of a TLB if not configured.
const DefaultNumWays = 16

// A Builder can build TLBs
type Builder struct {
	numWays int
}

// MakeBuilder returns a Builder
func MakeBuilder() Builder {
	return Builder{
		numWays: DefaultNumWays,
	}
}

// WithNumWays sets the number of entries of the TLB.
func (b Builder) WithNumWays(n int) Builder {
	b.numWays = n
	return b
}

// Build creates a new TLB
func (b Builder) Build(name string) *Comp {
	sim.NameMustBeValid(name)

	if b.numWays <= 0 {
		panic("a TLB must have at least one entry")
	}

	return &Comp{
		name:    name,
		numWays: b.numWays,
		Set:     internal.NewSet(b.numWays),
	}
}
