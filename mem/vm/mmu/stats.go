package mmu

import "github.com/sarchlab/mmusim/tracing"

// Stats summarizes the translations performed by an MMU.
type Stats struct {
	Translations    uint64 `json:"translations"`
	TLBHits         uint64 `json:"tlb_hits"`
	TLBMisses       uint64 `json:"tlb_misses"`
	PageHits        uint64 `json:"page_hits"`
	PageFaults      uint64 `json:"page_faults"`
	TablesAllocated uint64 `json:"tables_allocated"`
	DirtyMarks      uint64 `json:"dirty_marks"`
	OutOfBounds     uint64 `json:"out_of_bounds"`
}

// NewStatsTracer creates a tracer that counts the steps of translations. Its
// counts are read with CollectStats.
func NewStatsTracer() *tracing.StepCountTracer {
	return tracing.NewStepCountTracer(func(t tracing.Task) bool {
		return t.Kind == TaskKind
	})
}

// CollectStats reads the counts of a tracer created by NewStatsTracer.
func CollectStats(t *tracing.StepCountTracer) Stats {
	return Stats{
		Translations:    t.NumCompletedTasks(),
		TLBHits:         t.GetStepCount(StepTLBHit),
		TLBMisses:       t.GetStepCount(StepTLBMiss),
		PageHits:        t.GetStepCount(StepPageHit),
		PageFaults:      t.GetStepCount(StepPageFault),
		TablesAllocated: t.GetStepCount(StepTableAllocated),
		DirtyMarks:      t.GetStepCount(StepDirty),
		OutOfBounds:     t.GetStepCount(StepOutOfBounds),
	}
}

// HitRate returns the fraction of translations served by the TLB.
func (s Stats) HitRate() float64 {
	lookups := s.TLBHits + s.TLBMisses
	if lookups == 0 {
		return 0
	}

	return float64(s.TLBHits) / float64(lookups)
}
