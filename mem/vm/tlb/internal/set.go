// Package internal provides the definition required for defining TLB.
package internal

// A Block is one way of a set. It maps a virtual page number to a frame.
type Block struct {
	VPN    uint64
	Frame  uint64
	UseBit bool
}

// A Set holds a certain number of blocks and decides which block to replace
// with a second-chance (clock) policy.
type Set interface {
	// Lookup finds the way that holds the virtual page.
	Lookup(vpn uint64) (wayID int, block Block, found bool)

	// Visit marks the way as recently used.
	Visit(wayID int)

	// Update overwrites a way. The block is marked as recently used.
	Update(wayID int, block Block)

	// Append places the block in a free way. It returns false if all the ways
	// are occupied.
	Append(block Block) (wayID int, ok bool)

	// Evict chooses the way to be overwritten when the set is full.
	Evict() (wayID int)

	// Blocks returns a copy of the occupied ways, in way order.
	Blocks() []Block

	// Cursor returns the way where the next eviction scan starts.
	Cursor() int

	// Reset empties the set.
	Reset()
}

// NewSet creates a new TLB set.
func NewSet(numWays int) Set {
	if numWays <= 0 {
		panic("a set must have at least one way")
	}

	s := &setImpl{numWays: numWays}
	s.Reset()

	return s
}

type setImpl struct {
	numWays     int
	blocks      []Block
	vpnWayIDMap map[uint64]int
	cursor      int
}

func (s *setImpl) Lookup(vpn uint64) (wayID int, block Block, found bool) {
	wayID, ok := s.vpnWayIDMap[vpn]
	if !ok {
		return 0, Block{}, false
	}

	return wayID, s.blocks[wayID], true
}

func (s *setImpl) Visit(wayID int) {
	s.blocks[wayID].UseBit = true
}

func (s *setImpl) Update(wayID int, block Block) {
	old := s.blocks[wayID]
	if s.vpnWayIDMap[old.VPN] == wayID {
		delete(s.vpnWayIDMap, old.VPN)
	}

	block.UseBit = true
	s.blocks[wayID] = block
	s.vpnWayIDMap[block.VPN] = wayID
}

func (s *setImpl) Append(block Block) (wayID int, ok bool) {
	if len(s.blocks) >= s.numWays {
		return 0, false
	}

	block.UseBit = true
	wayID = len(s.blocks)
	s.blocks = append(s.blocks, block)
	s.vpnWayIDMap[block.VPN] = wayID

	return wayID, true
}

// Evict scans from the cursor. A used block loses its use bit and is skipped;
// the first block found unused is the victim and the cursor moves past it.
// Clearing bits along the way bounds the scan to two rounds.
func (s *setImpl) Evict() (wayID int) {
	if len(s.blocks) < s.numWays {
		panic("evicting from a set that is not full")
	}

	for {
		wayID = s.cursor
		s.cursor = (s.cursor + 1) % s.numWays

		if !s.blocks[wayID].UseBit {
			return wayID
		}

		s.blocks[wayID].UseBit = false
	}
}

func (s *setImpl) Blocks() []Block {
	blocks := make([]Block, len(s.blocks))
	copy(blocks, s.blocks)

	return blocks
}

func (s *setImpl) Cursor() int {
	return s.cursor
}

func (s *setImpl) Reset() {
	s.blocks = make([]Block, 0, s.numWays)
	s.vpnWayIDMap = make(map[uint64]int)
	s.cursor = 0
}
