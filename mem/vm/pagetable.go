// Package vm models the virtual memory structures of the simulator: page
// table entries, the flat and the two-level page tables, and the frame
// allocation policy.
package vm

import (
	"errors"
)

// ErrPageOutOfRange is returned when a virtual page number cannot be indexed
// by a page table.
var ErrPageOutOfRange = errors.New("virtual page number out of page table range")

// AccessKind tells if an access reads or writes the page.
type AccessKind int

// The kinds of accesses the MMU serves.
const (
	AccessRead AccessKind = iota
	AccessWrite
)

func (k AccessKind) String() string {
	switch k {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "unknown"
	}
}

// A PTE is an entry in the page table. Frame is only meaningful when Valid is
// set.
type PTE struct {
	Valid    bool
	Accessed bool
	Dirty    bool
	Frame    uint64
}

// Map makes the page resident in the given frame. The page is considered just
// loaded, so it is accessed but clean.
func (e *PTE) Map(frame uint64) {
	e.Valid = true
	e.Accessed = true
	e.Dirty = false
	e.Frame = frame
}

// Touch records an access to the page. Only write accesses make the page
// dirty.
func (e *PTE) Touch(kind AccessKind) {
	e.Accessed = true

	if kind == AccessWrite {
		e.Dirty = true
	}
}

// A PageTable finds the entry that describes a virtual page.
type PageTable interface {
	// Entry returns the entry of the virtual page. The returned pointer stays
	// valid for the lifetime of the table.
	Entry(vpn uint64) (*PTE, error)

	// NumEntries returns the number of virtual pages the table can describe.
	NumEntries() uint64
}
