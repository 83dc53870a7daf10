package mmu

import (
	"github.com/sarchlab/mmusim/mem/vm"
)

// A path decodes the addresses of one width and finds their page table
// entries.
type path interface {
	decode(vAddr uint64) Result
	entry(res *Result) (*vm.PTE, error)
}

// narrowPath serves 16-bit addresses with a flat page table.
type narrowPath struct {
	log2PageSize uint64
	table        *vm.FlatPageTable
}

func (p narrowPath) decode(vAddr uint64) Result {
	return Result{
		VAddr:  vAddr,
		Width:  Width16,
		VPN:    vAddr >> p.log2PageSize,
		Offset: vAddr & (1<<p.log2PageSize - 1),
	}
}

func (p narrowPath) entry(res *Result) (*vm.PTE, error) {
	return p.table.Entry(res.VPN)
}

// widePath serves 32-bit addresses with a two-level page table.
type widePath struct {
	log2PageSize uint64
	table        *vm.TwoLevelPageTable
}

func (p widePath) decode(vAddr uint64) Result {
	vpn := vAddr >> p.log2PageSize
	level1, level2 := p.table.Split(vpn)

	return Result{
		VAddr:  vAddr,
		Width:  Width32,
		VPN:    p.table.Join(level1, level2),
		Level1: level1,
		Level2: level2,
		Offset: vAddr & (1<<p.log2PageSize - 1),
	}
}

func (p widePath) entry(res *Result) (*vm.PTE, error) {
	entry, allocated, err := p.table.Walk(res.Level1, res.Level2)
	res.TableAllocated = allocated

	return entry, err
}
