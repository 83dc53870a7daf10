package vm

import "fmt"

// DefaultFlatPageTableEntries is the number of entries of the page table that
// serves the 16-bit address space.
const DefaultFlatPageTableEntries = 32

// FlatPageTable is a single-level page table indexed directly by the virtual
// page number.
type FlatPageTable struct {
	entries []PTE
}

// NewFlatPageTable creates a page table with numEntries invalid entries.
func NewFlatPageTable(numEntries int) *FlatPageTable {
	if numEntries <= 0 {
		panic("flat page table must have at least one entry")
	}

	return &FlatPageTable{
		entries: make([]PTE, numEntries),
	}
}

// Entry returns the entry of the virtual page. Page numbers beyond the table
// are rejected rather than wrapped.
func (t *FlatPageTable) Entry(vpn uint64) (*PTE, error) {
	if vpn >= uint64(len(t.entries)) {
		return nil, fmt.Errorf("page %d, table has %d entries: %w",
			vpn, len(t.entries), ErrPageOutOfRange)
	}

	return &t.entries[vpn], nil
}

// NumEntries returns the capacity of the table.
func (t *FlatPageTable) NumEntries() uint64 {
	return uint64(len(t.entries))
}

// MapIdentity makes page i resident in frame i for every i below numFrames
// that the table can hold. The pages are marked valid but not accessed. It
// returns the number of pages mapped.
func (t *FlatPageTable) MapIdentity(numFrames uint64) int {
	n := 0
	for i := range t.entries {
		if uint64(i) >= numFrames {
			break
		}

		t.entries[i] = PTE{Valid: true, Frame: uint64(i)}
		n++
	}

	return n
}

// Entries returns a copy of all the entries.
func (t *FlatPageTable) Entries() []PTE {
	entries := make([]PTE, len(t.entries))
	copy(entries, t.entries)

	return entries
}

// NumValid returns the number of resident pages.
func (t *FlatPageTable) NumValid() int {
	n := 0
	for _, e := range t.entries {
		if e.Valid {
			n++
		}
	}

	return n
}
