package simulation

import (
	"io"
	"log"
	"os"

	"github.com/sarchlab/mmusim/datarecording"
	"github.com/sarchlab/mmusim/mem/backingstore"
	"github.com/sarchlab/mmusim/mem/mem"
	"github.com/sarchlab/mmusim/mem/vm"
	"github.com/sarchlab/mmusim/mem/vm/mmu"
	"github.com/sarchlab/mmusim/mem/vm/tlb"
	"github.com/sarchlab/mmusim/monitoring"
	"github.com/sarchlab/mmusim/sim"
	"github.com/sarchlab/mmusim/tracing"
	"go.uber.org/zap"
)

// Builder can be used to build a simulation session.
type Builder struct {
	log2PageSize  uint64
	numFrames     uint64
	numTLBEntries int
	numFlatPages  int
	premap        bool

	memory       *mem.Storage
	backingStore backingstore.Store
	output       io.Writer
	logger       *zap.Logger
	recorder     datarecording.DataRecorder
	monitor      *monitoring.Monitor
	idGenerator  sim.IDGenerator
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		log2PageSize:  12,
		numFrames:     vm.DefaultMaxFrames,
		numTLBEntries: tlb.DefaultNumWays,
		numFlatPages:  vm.DefaultFlatPageTableEntries,
		premap:        true,
		output:        os.Stdout,
		logger:        zap.NewNop(),
	}
}

// WithMemory sets the physical memory, usually loaded from a memory image.
func (b Builder) WithMemory(m *mem.Storage) Builder {
	b.memory = m
	return b
}

// WithBackingStore sets where the content of faulting pages comes from.
func (b Builder) WithBackingStore(s backingstore.Store) Builder {
	b.backingStore = s
	return b
}

// WithOutput sets where the per-address report is printed. Passing nil
// disables the report.
func (b Builder) WithOutput(w io.Writer) Builder {
	b.output = w
	return b
}

// WithLogger sets the diagnostic logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// WithNumTLBEntries sets the capacity of the TLB.
func (b Builder) WithNumTLBEntries(n int) Builder {
	b.numTLBEntries = n
	return b
}

// WithNumFrames sets the number of frames page numbers are folded into.
func (b Builder) WithNumFrames(n uint64) Builder {
	b.numFrames = n
	return b
}

// WithNumFlatPages sets the number of entries of the 16-bit page table.
func (b Builder) WithNumFlatPages(n int) Builder {
	b.numFlatPages = n
	return b
}

// WithoutImagePremap leaves the 16-bit page table empty at start. By default,
// the pages covered by the memory image are resident in the frames of the
// same number.
func (b Builder) WithoutImagePremap() Builder {
	b.premap = false
	return b
}

// WithDataRecorder records every translation with the given recorder.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithMonitor exposes the session through the given monitor. The server is
// not started by the session.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithIDGenerator sets the generator of translation IDs.
func (b Builder) WithIDGenerator(g sim.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.memory == nil {
		panic("a simulation requires a physical memory")
	}

	if b.backingStore == nil {
		panic("a simulation requires a backing store")
	}
}

// Build builds the session.
func (b Builder) Build(name string) *Session {
	sim.NameMustBeValid(name)
	b.parametersMustBeValid()

	s := &Session{
		name:     name,
		logger:   b.logger,
		recorder: b.recorder,
		monitor:  b.monitor,
	}

	s.tlb = tlb.MakeBuilder().
		WithNumWays(b.numTLBEntries).
		Build(name + ".TLB")

	mmuBuilder := mmu.MakeBuilder().
		WithLog2PageSize(b.log2PageSize).
		WithNumFrames(b.numFrames).
		WithNumFlatPageTableEntries(b.numFlatPages).
		WithTLB(s.tlb).
		WithBackingStore(b.backingStore).
		WithMemory(b.memory)
	if b.idGenerator != nil {
		mmuBuilder = mmuBuilder.WithIDGenerator(b.idGenerator)
	}
	s.mmu = mmuBuilder.Build(name + ".MMU")

	if b.premap {
		n := s.mmu.FlatPageTable().MapIdentity(
			b.memory.NumFrames(b.log2PageSize))
		b.logger.Debug("pages premapped from the memory image",
			zap.Int("pages", n))
	}

	b.attachTracers(s)
	b.attachMonitor(s)

	return s
}

func (b Builder) attachTracers(s *Session) {
	if b.output != nil {
		tracing.CollectTrace(s.mmu, mmu.NewTraceLogger(log.New(b.output, "", 0)))
	}

	s.stats = mmu.NewStatsTracer()
	tracing.CollectTrace(s.mmu, s.stats)

	if b.recorder != nil {
		tracing.CollectTrace(s.mmu, mmu.NewDBTracer(b.recorder))
	}
}

func (b Builder) attachMonitor(s *Session) {
	if b.monitor == nil {
		return
	}

	b.monitor.RegisterTarget(s)
	b.monitor.RegisterComponent(s.mmu)
	b.monitor.RegisterComponent(s.tlb)

	s.progress = b.monitor.CreateProgressBar(s.name+".Translations", 0)
}
