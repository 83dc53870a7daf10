// Package mmu provides the translation pipeline that turns virtual addresses
// into physical memory reads.
package mmu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mmusim/mem/backingstore"
	"github.com/sarchlab/mmusim/mem/vm"
	"github.com/sarchlab/mmusim/sim"
	"github.com/sarchlab/mmusim/tracing"
)

// ErrAddressTooWide is returned for virtual addresses that do not fit in 32
// bits.
var ErrAddressTooWide = errors.New("virtual address does not fit in 32 bits")

// NarrowAddressLimit is the first address served by the 32-bit path.
const NarrowAddressLimit = 1 << 16

const wideAddressLimit = 1 << 32

// A TLB caches the frames of recently translated pages.
type TLB interface {
	Lookup(vpn uint64) (frame uint64, found bool)
	Insert(vpn, frame uint64)
}

// Memory is the physical memory translated addresses are read from.
type Memory interface {
	vm.WordWriter
	Read(addr uint64) (int64, bool)
}

// Comp is the MMU. It owns the page tables and drives the TLB, the backing
// store and the frame allocator for every translation.
type Comp struct {
	sim.HookableBase

	name         string
	log2PageSize uint64

	tlb            TLB
	backingStore   backingstore.Store
	frameAllocator vm.FrameAllocator
	memory         Memory
	idGenerator    sim.IDGenerator

	flatTable     *vm.FlatPageTable
	twoLevelTable *vm.TwoLevelPageTable

	narrow path
	wide   path
}

// Name returns the name of the MMU.
func (c *Comp) Name() string {
	return c.name
}

// Log2PageSize returns the page size as a power of 2.
func (c *Comp) Log2PageSize() uint64 {
	return c.log2PageSize
}

// FlatPageTable returns the page table of the 16-bit path.
func (c *Comp) FlatPageTable() *vm.FlatPageTable {
	return c.flatTable
}

// TwoLevelPageTable returns the page table of the 32-bit path.
func (c *Comp) TwoLevelPageTable() *vm.TwoLevelPageTable {
	return c.twoLevelTable
}

// Translate reads the word at a virtual address.
func (c *Comp) Translate(vAddr uint64) (Result, error) {
	return c.TranslateAccess(vAddr, vm.AccessRead)
}

// TranslateAccess translates a virtual address for a read or a write access.
// A write marks the page dirty. An address that lands outside the physical
// memory is not an error; the result reports it with InBounds unset. Errors
// are returned only when the simulation cannot continue.
func (c *Comp) TranslateAccess(
	vAddr uint64,
	kind vm.AccessKind,
) (Result, error) {
	if vAddr >= wideAddressLimit {
		return Result{VAddr: vAddr, Access: kind},
			fmt.Errorf("address 0x%x: %w", vAddr, ErrAddressTooWide)
	}

	p := c.wide
	if vAddr < NarrowAddressLimit {
		p = c.narrow
	}

	return c.translate(p, vAddr, kind)
}

func (c *Comp) translate(
	p path,
	vAddr uint64,
	kind vm.AccessKind,
) (Result, error) {
	res := p.decode(vAddr)
	res.Access = kind

	id := c.idGenerator.Generate()
	tracing.StartTask(id, c, TaskKind, kind.String(), res)

	frame, hit := c.tlb.Lookup(res.VPN)
	res.TLBHit = hit
	if hit {
		tracing.AddTaskStep(id, c, StepTLBHit)
	} else {
		tracing.AddTaskStep(id, c, StepTLBMiss)
	}

	entry, err := p.entry(&res)
	if err != nil {
		return res, err
	}

	if res.TableAllocated {
		tracing.AddTaskStep(id, c, StepTableAllocated)
	}

	if !hit {
		frame, err = c.walk(id, entry, &res)
		if err != nil {
			return res, err
		}

		c.tlb.Insert(res.VPN, frame)
	}

	entry.Touch(kind)
	if kind == vm.AccessWrite {
		tracing.AddTaskStep(id, c, StepDirty)
	}

	res.Frame = frame
	res.Dirty = entry.Dirty
	res.PAddr = frame<<c.log2PageSize + res.Offset
	res.Value, res.InBounds = c.memory.Read(res.PAddr)

	if !res.InBounds {
		tracing.AddTaskStep(id, c, StepOutOfBounds)
	}

	tracing.EndTask(id, c, res)

	return res, nil
}

// walk resolves the frame from the page table entry, loading the page from
// the backing store if it is not resident.
func (c *Comp) walk(
	id string,
	entry *vm.PTE,
	res *Result,
) (uint64, error) {
	if entry.Valid {
		tracing.AddTaskStep(id, c, StepPageHit)
		return entry.Frame, nil
	}

	res.PageFault = true
	tracing.AddTaskStep(id, c, StepPageFault)

	value, err := c.backingStore.Fetch(res.VPN)
	if err != nil {
		return 0, err
	}

	frame := c.frameAllocator.Allocate(res.VPN, value)
	entry.Map(frame)
	res.LoadedValue = value

	tracing.AddTaskStep(id, c, StepPageLoaded)

	return frame, nil
}
