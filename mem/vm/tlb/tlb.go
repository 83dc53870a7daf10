// Package tlb provides a fully-associative translation lookaside buffer with
// second-chance replacement.
package tlb

import (
	"github.com/sarchlab/mmusim/mem/vm/tlb/internal"
)

// A Mapping is a translation held by the TLB.
type Mapping struct {
	VPN    uint64
	Frame  uint64
	UseBit bool
}

// Comp is a TLB that caches virtual page number to frame mappings.
type Comp struct {
	name    string
	numWays int

	Set internal.Set
}

// Name returns the name of the TLB.
func (c *Comp) Name() string {
	return c.name
}

// Capacity returns the maximum number of entries.
func (c *Comp) Capacity() int {
	return c.numWays
}

// Len returns the number of entries currently held.
func (c *Comp) Len() int {
	return len(c.Set.Blocks())
}

// Lookup returns the frame of the virtual page. A hit marks the entry as
// recently used. A miss changes nothing.
func (c *Comp) Lookup(vpn uint64) (frame uint64, found bool) {
	wayID, block, found := c.Set.Lookup(vpn)
	if !found {
		return 0, false
	}

	c.Set.Visit(wayID)

	return block.Frame, true
}

// Insert adds a mapping. An existing mapping of the same page is updated in
// place. Otherwise the mapping takes a free entry, or replaces the entry the
// second-chance scan settles on.
func (c *Comp) Insert(vpn, frame uint64) {
	block := internal.Block{VPN: vpn, Frame: frame, UseBit: true}

	wayID, _, found := c.Set.Lookup(vpn)
	if found {
		c.Set.Update(wayID, block)
		return
	}

	if _, ok := c.Set.Append(block); ok {
		return
	}

	wayID = c.Set.Evict()
	c.Set.Update(wayID, block)
}

// Entries returns a copy of the entries, in way order.
func (c *Comp) Entries() []Mapping {
	blocks := c.Set.Blocks()

	entries := make([]Mapping, len(blocks))
	for i, b := range blocks {
		entries[i] = Mapping{VPN: b.VPN, Frame: b.Frame, UseBit: b.UseBit}
	}

	return entries
}

// Cursor returns the entry where the next replacement scan starts.
func (c *Comp) Cursor() int {
	return c.Set.Cursor()
}

// Reset removes all the entries.
func (c *Comp) Reset() {
	c.Set.Reset()
}
