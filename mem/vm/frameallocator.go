package vm

// DefaultMaxFrames is the number of physical frames page numbers are folded
// into.
const DefaultMaxFrames = 256

// A WordWriter is a storage that frames are carved from. Write reports false
// when the address is outside the storage.
type WordWriter interface {
	Write(addr uint64, value int64) bool
}

// A FrameAllocator decides which physical frame holds a page and stores the
// page content there.
type FrameAllocator interface {
	Allocate(vpn uint64, value int64) (frame uint64)
}

// NewModuloFrameAllocator creates an allocator that places page vpn in frame
// vpn mod numFrames. Frames are never freed and several pages may share a
// frame.
func NewModuloFrameAllocator(
	storage WordWriter,
	numFrames uint64,
	log2PageSize uint64,
) FrameAllocator {
	if numFrames == 0 {
		panic("number of frames must be positive")
	}

	return &moduloFrameAllocator{
		storage:      storage,
		numFrames:    numFrames,
		log2PageSize: log2PageSize,
	}
}

type moduloFrameAllocator struct {
	storage      WordWriter
	numFrames    uint64
	log2PageSize uint64
}

// Allocate writes the page content to the first word of the frame. If the
// frame lies beyond the storage, the content is dropped and the frame number
// is still returned.
func (a *moduloFrameAllocator) Allocate(vpn uint64, value int64) uint64 {
	frame := vpn % a.numFrames
	a.storage.Write(frame<<a.log2PageSize, value)

	return frame
}
