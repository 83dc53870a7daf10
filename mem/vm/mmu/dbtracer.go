package mmu

import (
	"github.com/sarchlab/mmusim/datarecording"
	"github.com/sarchlab/mmusim/tracing"
)

// TranslationTable is the name of the table translations are recorded into.
const TranslationTable = "mmu_translation"

// TranslationEntry is the row recorded for each translation.
type TranslationEntry struct {
	ID             string
	Location       string
	Access         string
	VAddr          uint64
	Width          int
	VPN            uint64
	Level1         uint64
	Level2         uint64
	Offset         uint64
	TLBHit         bool
	TableAllocated bool
	PageFault      bool
	Frame          uint64
	Dirty          bool
	PAddr          uint64
	Value          int64
	InBounds       bool
}

type dbTracer struct {
	recorder datarecording.DataRecorder
}

// NewDBTracer creates a tracer that records every completed translation as a
// row of the translation table.
func NewDBTracer(recorder datarecording.DataRecorder) tracing.Tracer {
	recorder.CreateTable(TranslationTable, TranslationEntry{})

	return &dbTracer{recorder: recorder}
}

func (t *dbTracer) StartTask(_ tracing.Task) {
	// Do nothing
}

func (t *dbTracer) StepTask(_ tracing.Task) {
	// Do nothing
}

func (t *dbTracer) EndTask(task tracing.Task) {
	res, ok := task.Detail.(Result)
	if !ok {
		return
	}

	t.recorder.InsertData(TranslationTable, TranslationEntry{
		ID:             task.ID,
		Location:       task.Where,
		Access:         res.Access.String(),
		VAddr:          res.VAddr,
		Width:          int(res.Width),
		VPN:            res.VPN,
		Level1:         res.Level1,
		Level2:         res.Level2,
		Offset:         res.Offset,
		TLBHit:         res.TLBHit,
		TableAllocated: res.TableAllocated,
		PageFault:      res.PageFault,
		Frame:          res.Frame,
		Dirty:          res.Dirty,
		PAddr:          res.PAddr,
		Value:          res.Value,
		InBounds:       res.InBounds,
	})
}
