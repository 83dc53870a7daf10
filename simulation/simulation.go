// Package simulation runs address traces through a simulated MMU.
package simulation

import (
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/mmusim/datarecording"
	"github.com/sarchlab/mmusim/mem/trace"
	"github.com/sarchlab/mmusim/mem/vm"
	"github.com/sarchlab/mmusim/mem/vm/mmu"
	"github.com/sarchlab/mmusim/mem/vm/tlb"
	"github.com/sarchlab/mmusim/monitoring"
	"github.com/sarchlab/mmusim/tracing"
	"go.uber.org/zap"
)

// A Session owns everything a run needs: the physical memory, the TLB, the
// page tables and the tracers that observe the translations. Translations
// are performed one at a time.
type Session struct {
	lock sync.Mutex

	name   string
	logger *zap.Logger

	tlb    *tlb.Comp
	mmu    *mmu.Comp
	stats  *tracing.StepCountTracer

	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
	progress *monitoring.ProgressBar
}

// Name returns the name of the session.
func (s *Session) Name() string {
	return s.name
}

// MMU returns the MMU of the session.
func (s *Session) MMU() *mmu.Comp {
	return s.mmu
}

// TLB returns the TLB of the session.
func (s *Session) TLB() *tlb.Comp {
	return s.tlb
}

// Translate reads the word at a virtual address.
func (s *Session) Translate(vAddr uint64) (mmu.Result, error) {
	return s.TranslateAccess(vAddr, vm.AccessRead)
}

// TranslateAccess translates a virtual address for a read or a write access.
func (s *Session) TranslateAccess(
	vAddr uint64,
	kind vm.AccessKind,
) (mmu.Result, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.progress == nil {
		return s.mmu.TranslateAccess(vAddr, kind)
	}

	s.progress.IncrementInProgress(1)
	defer s.progress.MoveInProgressToFinished(1)

	return s.mmu.TranslateAccess(vAddr, kind)
}

// Run translates every address of a trace in order. It stops at the first
// address that cannot be parsed or translated.
func (s *Session) Run(r io.Reader) error {
	reader := trace.NewReader(r)

	for reader.Next() {
		_, err := s.Translate(reader.Address())
		if err != nil {
			s.logger.Debug("translation aborted",
				zap.Int("line", reader.Line()),
				zap.Uint64("address", reader.Address()),
				zap.Error(err))

			return fmt.Errorf("line %d: %w", reader.Line(), err)
		}
	}

	if err := reader.Err(); err != nil {
		s.logger.Debug("trace aborted", zap.Error(err))
		return err
	}

	s.logger.Debug("trace completed",
		zap.Uint64("translations", s.Stats().Translations))

	return nil
}

// Stats returns the counts of the translations performed so far.
func (s *Session) Stats() mmu.Stats {
	return mmu.CollectStats(s.stats)
}

// PrintSummary writes the counts of the translations performed so far.
func (s *Session) PrintSummary(w io.Writer) {
	st := s.Stats()

	fmt.Fprintf(w, "Translations: %d\n", st.Translations)
	fmt.Fprintf(w, "TLB hits: %d\n", st.TLBHits)
	fmt.Fprintf(w, "TLB misses: %d\n", st.TLBMisses)
	fmt.Fprintf(w, "TLB hit rate: %.2f%%\n", st.HitRate()*100)
	fmt.Fprintf(w, "Page hits: %d\n", st.PageHits)
	fmt.Fprintf(w, "Page faults: %d\n", st.PageFaults)
	fmt.Fprintf(w, "Second-level tables allocated: %d\n", st.TablesAllocated)
	fmt.Fprintf(w, "Invalid physical addresses: %d\n", st.OutOfBounds)
}

// Inspect runs f while no translation is in progress.
func (s *Session) Inspect(f func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	f()
}

// Snapshot returns a copy of the translation state.
func (s *Session) Snapshot() monitoring.Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()

	twoLevel := s.mmu.TwoLevelPageTable()

	snapshot := monitoring.Snapshot{
		TLBCapacity:   s.tlb.Capacity(),
		TLBCursor:     s.tlb.Cursor(),
		TLB:           s.tlb.Entries(),
		FlatPageTable: s.mmu.FlatPageTable().Entries(),
		Directory:     []monitoring.DirectorySlot{},
		Stats:         s.Stats(),
	}

	for _, l1 := range twoLevel.AllocatedSlots() {
		snapshot.Directory = append(snapshot.Directory,
			monitoring.DirectorySlot{
				Level1:  l1,
				Entries: twoLevel.ValidEntries(l1),
			})
	}

	return snapshot
}

// Terminate flushes and closes the data recorder, if any.
func (s *Session) Terminate() error {
	if s.monitor != nil && s.progress != nil {
		s.monitor.CompleteProgressBar(s.progress)
		s.progress = nil
	}

	if s.recorder == nil {
		return nil
	}

	return s.recorder.Close()
}
