package mmu

import (
	"log"

	"github.com/sarchlab/mmusim/tracing"
)

// A traceLogger prints a human-readable account of every translation.
type traceLogger struct {
	logger *log.Logger
}

// NewTraceLogger creates a tracer that prints each translation as it goes:
// the decoded address when it starts, a line per notable step and the word
// read when it ends. Output of a translation that aborts stops after the last
// step reached.
func NewTraceLogger(logger *log.Logger) tracing.Tracer {
	return &traceLogger{logger: logger}
}

func (t *traceLogger) StartTask(task tracing.Task) {
	res, ok := task.Detail.(Result)
	if !ok {
		return
	}

	switch res.Width {
	case Width16:
		t.logger.Printf("Virtual address (16 bits): %d\n", res.VAddr)
		t.logger.Printf("Page: %d | Offset: %d\n", res.VPN, res.Offset)
	case Width32:
		t.logger.Printf("Virtual address (32 bits): %d\n", res.VAddr)
		t.logger.Printf("Level 1: %d | Level 2: %d | Offset: %d\n",
			res.Level1, res.Level2, res.Offset)
	}
}

var stepMessages = map[string]string{
	StepTLBHit:     "TLB hit",
	StepTLBMiss:    "TLB miss",
	StepPageHit:    "Page hit",
	StepPageFault:  "Page fault",
	StepPageLoaded: "Loaded from backing store",
	StepDirty:      "Write simulated: dirty bit set.",
}

func (t *traceLogger) StepTask(task tracing.Task) {
	msg, ok := stepMessages[task.Steps[0].What]
	if !ok {
		return
	}

	t.logger.Println(msg)
}

func (t *traceLogger) EndTask(task tracing.Task) {
	res, ok := task.Detail.(Result)
	if !ok {
		return
	}

	if res.InBounds {
		t.logger.Printf("Physical memory value: %d\n\n", res.Value)
	} else {
		t.logger.Print("Invalid physical address\n\n")
	}
}
