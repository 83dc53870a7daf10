package vm

import "fmt"

// DefaultLog2EntriesPerLevel is the number of index bits of each level of the
// two-level page table. With 4 KiB pages, 10+10+12 bits cover a 32-bit space.
const DefaultLog2EntriesPerLevel = 10

// TwoLevelPageTable is a sparse page table. The first level is a directory
// whose slots point to second-level tables. A second-level table is allocated
// the first time any page under its slot is walked and is never freed.
type TwoLevelPageTable struct {
	log2EntriesPerLevel uint64
	directory           [][]PTE
	numAllocated        int
}

// NewTwoLevelPageTable creates a two-level page table where each level is
// indexed by log2EntriesPerLevel bits.
func NewTwoLevelPageTable(log2EntriesPerLevel uint64) *TwoLevelPageTable {
	if log2EntriesPerLevel == 0 || log2EntriesPerLevel > 16 {
		panic("log2 entries per level must be in [1, 16]")
	}

	return &TwoLevelPageTable{
		log2EntriesPerLevel: log2EntriesPerLevel,
		directory:           make([][]PTE, 1<<log2EntriesPerLevel),
	}
}

// EntriesPerLevel returns the number of slots of the directory, which is also
// the number of entries of a second-level table.
func (t *TwoLevelPageTable) EntriesPerLevel() uint64 {
	return 1 << t.log2EntriesPerLevel
}

// NumEntries returns the number of virtual pages the table can describe.
func (t *TwoLevelPageTable) NumEntries() uint64 {
	return 1 << (2 * t.log2EntriesPerLevel)
}

// Split returns the directory index and the second-level index of a virtual
// page number.
func (t *TwoLevelPageTable) Split(vpn uint64) (level1, level2 uint64) {
	mask := t.EntriesPerLevel() - 1
	level1 = (vpn >> t.log2EntriesPerLevel) & mask
	level2 = vpn & mask

	return level1, level2
}

// Join is the inverse of Split.
func (t *TwoLevelPageTable) Join(level1, level2 uint64) uint64 {
	return level1<<t.log2EntriesPerLevel | level2
}

// Walk returns the entry at the given indices. If the directory slot has no
// second-level table yet, one is allocated with all entries invalid and
// allocated is reported as true.
func (t *TwoLevelPageTable) Walk(
	level1, level2 uint64,
) (entry *PTE, allocated bool, err error) {
	n := t.EntriesPerLevel()
	if level1 >= n || level2 >= n {
		return nil, false, fmt.Errorf("indices (%d, %d), %d entries per level: %w",
			level1, level2, n, ErrPageOutOfRange)
	}

	if t.directory[level1] == nil {
		t.directory[level1] = make([]PTE, n)
		t.numAllocated++
		allocated = true
	}

	return &t.directory[level1][level2], allocated, nil
}

// Entry returns the entry of the virtual page, allocating its second-level
// table if needed.
func (t *TwoLevelPageTable) Entry(vpn uint64) (*PTE, error) {
	if vpn >= t.NumEntries() {
		return nil, fmt.Errorf("page %d, table has %d entries: %w",
			vpn, t.NumEntries(), ErrPageOutOfRange)
	}

	level1, level2 := t.Split(vpn)
	entry, _, err := t.Walk(level1, level2)

	return entry, err
}

// IsAllocated tells if the directory slot already has a second-level table.
func (t *TwoLevelPageTable) IsAllocated(level1 uint64) bool {
	if level1 >= t.EntriesPerLevel() {
		return false
	}

	return t.directory[level1] != nil
}

// NumAllocatedTables returns the number of second-level tables allocated so
// far.
func (t *TwoLevelPageTable) NumAllocatedTables() int {
	return t.numAllocated
}

// AllocatedSlots returns the directory indices that have a second-level table,
// in increasing order.
func (t *TwoLevelPageTable) AllocatedSlots() []uint64 {
	slots := make([]uint64, 0, t.numAllocated)
	for i, table := range t.directory {
		if table != nil {
			slots = append(slots, uint64(i))
		}
	}

	return slots
}

// ValidEntries returns the valid entries of a second-level table keyed by their
// second-level index. It returns nil if the slot is not allocated.
func (t *TwoLevelPageTable) ValidEntries(level1 uint64) map[uint64]PTE {
	if !t.IsAllocated(level1) {
		return nil
	}

	entries := make(map[uint64]PTE)
	for i, e := range t.directory[level1] {
		if e.Valid {
			entries[uint64(i)] = e
		}
	}

	return entries
}
