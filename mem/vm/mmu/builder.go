package mmu

import (
	"github.com/sarchlab/mmusim/mem/backingstore"
	"github.com/sarchlab/mmusim/mem/vm"
	"github.com/sarchlab/mmusim/mem/vm/tlb"
	"github.com/sarchlab/mmusim/sim"
)

// A Builder can build MMU component
type Builder struct {
	log2PageSize        uint64
	numFrames           uint64
	numFlatEntries      int
	log2EntriesPerLevel uint64

	tlb            TLB
	backingStore   backingstore.Store
	memory         Memory
	frameAllocator vm.FrameAllocator
	flatTable      *vm.FlatPageTable
	twoLevelTable  *vm.TwoLevelPageTable
	idGenerator    sim.IDGenerator
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{
		log2PageSize:        12,
		numFrames:           vm.DefaultMaxFrames,
		numFlatEntries:      vm.DefaultFlatPageTableEntries,
		log2EntriesPerLevel: vm.DefaultLog2EntriesPerLevel,
	}
}

// WithLog2PageSize sets the page size that the mmu support.
func (b Builder) WithLog2PageSize(log2PageSize uint64) Builder {
	b.log2PageSize = log2PageSize
	return b
}

// WithNumFrames sets the number of frames page numbers are folded into.
func (b Builder) WithNumFrames(n uint64) Builder {
	b.numFrames = n
	return b
}

// WithNumFlatPageTableEntries sets the size of the page table of the 16-bit
// path. It is ignored if a page table is given with WithFlatPageTable.
func (b Builder) WithNumFlatPageTableEntries(n int) Builder {
	b.numFlatEntries = n
	return b
}

// WithFlatPageTable sets the page table of the 16-bit path.
func (b Builder) WithFlatPageTable(t *vm.FlatPageTable) Builder {
	b.flatTable = t
	return b
}

// WithTwoLevelPageTable sets the page table of the 32-bit path.
func (b Builder) WithTwoLevelPageTable(t *vm.TwoLevelPageTable) Builder {
	b.twoLevelTable = t
	return b
}

// WithTLB sets the TLB consulted before the page tables.
func (b Builder) WithTLB(t TLB) Builder {
	b.tlb = t
	return b
}

// WithBackingStore sets where the content of faulting pages comes from.
func (b Builder) WithBackingStore(s backingstore.Store) Builder {
	b.backingStore = s
	return b
}

// WithMemory sets the physical memory.
func (b Builder) WithMemory(m Memory) Builder {
	b.memory = m
	return b
}

// WithFrameAllocator replaces the default modulo frame allocator.
func (b Builder) WithFrameAllocator(a vm.FrameAllocator) Builder {
	b.frameAllocator = a
	return b
}

// WithIDGenerator sets the generator of the task IDs reported to tracers.
func (b Builder) WithIDGenerator(g sim.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.backingStore == nil {
		panic("an MMU requires a backing store")
	}

	if b.memory == nil {
		panic("an MMU requires a physical memory")
	}

	if b.log2PageSize == 0 || b.log2PageSize > 20 {
		panic("log2 page size must be in [1, 20]")
	}
}

// Build returns a newly created MMU component
func (b Builder) Build(name string) *Comp {
	sim.NameMustBeValid(name)
	b.parametersMustBeValid()

	c := &Comp{
		name:           name,
		log2PageSize:   b.log2PageSize,
		tlb:            b.tlb,
		backingStore:   b.backingStore,
		memory:         b.memory,
		frameAllocator: b.frameAllocator,
		flatTable:      b.flatTable,
		twoLevelTable:  b.twoLevelTable,
		idGenerator:    b.idGenerator,
	}

	b.fillDefaults(c)

	c.narrow = narrowPath{log2PageSize: b.log2PageSize, table: c.flatTable}
	c.wide = widePath{log2PageSize: b.log2PageSize, table: c.twoLevelTable}

	return c
}

func (b Builder) fillDefaults(c *Comp) {
	if c.tlb == nil {
		c.tlb = tlb.MakeBuilder().Build(c.name + ".TLB")
	}

	if c.frameAllocator == nil {
		c.frameAllocator = vm.NewModuloFrameAllocator(
			c.memory, b.numFrames, b.log2PageSize)
	}

	if c.flatTable == nil {
		c.flatTable = vm.NewFlatPageTable(b.numFlatEntries)
	}

	if c.twoLevelTable == nil {
		c.twoLevelTable = vm.NewTwoLevelPageTable(b.log2EntriesPerLevel)
	}

	if c.idGenerator == nil {
		c.idGenerator = sim.NewSequentialIDGenerator()
	}
}
