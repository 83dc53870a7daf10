package mmu

import "github.com/sarchlab/mmusim/mem/vm"

// AddressWidth tells which translation path serves an address.
type AddressWidth int

// The two address widths supported.
const (
	Width16 AddressWidth = 16
	Width32 AddressWidth = 32
)

// Step names reported to tracers, in the order they can happen.
const (
	StepTLBHit         = "tlb_hit"
	StepTLBMiss        = "tlb_miss"
	StepTableAllocated = "table_allocated"
	StepPageHit        = "page_hit"
	StepPageFault      = "page_fault"
	StepPageLoaded     = "page_loaded"
	StepDirty          = "dirty"
	StepOutOfBounds    = "out_of_bounds"
)

// TaskKind is the kind of the tasks the MMU reports.
const TaskKind = "translation"

// Result describes one translation, from the decoded virtual address to the
// word read from physical memory.
type Result struct {
	VAddr  uint64
	Width  AddressWidth
	Access vm.AccessKind

	VPN    uint64
	Level1 uint64
	Level2 uint64
	Offset uint64

	TLBHit         bool
	TableAllocated bool
	PageFault      bool
	LoadedValue    int64

	Frame    uint64
	Dirty    bool
	PAddr    uint64
	Value    int64
	InBounds bool
}
