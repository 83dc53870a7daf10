package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/mmusim/sim"
)

type testDomain struct {
	sim.HookableBase
	name string
}

func (d *testDomain) Name() string {
	return d.name
}

type recordingTracer struct {
	events []string
	tasks  []Task
}

func (t *recordingTracer) StartTask(task Task) {
	t.events = append(t.events, "start")
	t.tasks = append(t.tasks, task)
}

func (t *recordingTracer) StepTask(task Task) {
	t.events = append(t.events, "step:"+task.Steps[0].What)
	t.tasks = append(t.tasks, task)
}

func (t *recordingTracer) EndTask(task Task) {
	t.events = append(t.events, "end")
	t.tasks = append(t.tasks, task)
}

var _ = Describe("Api", func() {
	var (
		domain *testDomain
		tracer *recordingTracer
	)

	BeforeEach(func() {
		domain = &testDomain{name: "domain"}
		tracer = &recordingTracer{}
		CollectTrace(domain, tracer)
	})

	It("should panic if ID is not given", func() {
		Expect(func() {
			StartTask("", domain, "kind", "what", nil)
		}).Should(Panic())
	})

	It("should be panic if domain's name is empty.", func() {
		domain.name = ""
		Expect(func() {
			StartTask("id", domain, "kind", "what", nil)
		}).Should(Panic())
	})

	It("should be panic if kind is empty.", func() {
		Expect(func() {
			StartTask("id", domain, "", "what", nil)
		}).Should(Panic())
	})

	It("should be panic if what is empty.", func() {
		Expect(func() {
			StartTask("id", domain, "kind", "", nil)
		}).Should(Panic())
	})

	It("should skip validation when nothing is hooked", func() {
		bare := &testDomain{}
		Expect(func() {
			StartTask("", bare, "", "", nil)
		}).ShouldNot(Panic())
	})

	It("should deliver the task events in order", func() {
		StartTask("1", domain, "kind", "what", "start detail")
		AddTaskStep("1", domain, "step_a")
		AddTaskStep("1", domain, "step_b")
		EndTask("1", domain, "end detail")

		Expect(tracer.events).To(Equal([]string{
			"start", "step:step_a", "step:step_b", "end",
		}))

		start := tracer.tasks[0]
		Expect(start.ID).To(Equal("1"))
		Expect(start.Kind).To(Equal("kind"))
		Expect(start.What).To(Equal("what"))
		Expect(start.Where).To(Equal("domain"))
		Expect(start.Detail).To(Equal("start detail"))
		Expect(tracer.tasks[3].Detail).To(Equal("end detail"))
	})

	It("should not attach the same tracer twice", func() {
		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
	})
})

var _ = Describe("StepCountTracer", func() {
	var (
		domain *testDomain
		tracer *StepCountTracer
	)

	BeforeEach(func() {
		domain = &testDomain{name: "domain"}
		tracer = NewStepCountTracer(func(t Task) bool {
			return t.Kind == "counted"
		})
		CollectTrace(domain, tracer)
	})

	It("should count steps and tasks with steps", func() {
		StartTask("1", domain, "counted", "what", nil)
		AddTaskStep("1", domain, "a")
		AddTaskStep("1", domain, "a")
		AddTaskStep("1", domain, "b")
		EndTask("1", domain, nil)

		StartTask("2", domain, "counted", "what", nil)
		AddTaskStep("2", domain, "b")
		EndTask("2", domain, nil)

		Expect(tracer.GetStepNames()).To(Equal([]string{"a", "b"}))
		Expect(tracer.GetStepCount("a")).To(Equal(uint64(2)))
		Expect(tracer.GetTaskCount("a")).To(Equal(uint64(1)))
		Expect(tracer.GetStepCount("b")).To(Equal(uint64(2)))
		Expect(tracer.GetTaskCount("b")).To(Equal(uint64(2)))
		Expect(tracer.NumCompletedTasks()).To(Equal(uint64(2)))
	})

	It("should ignore filtered tasks", func() {
		StartTask("1", domain, "other", "what", nil)
		AddTaskStep("1", domain, "a")
		EndTask("1", domain, nil)

		Expect(tracer.GetStepCount("a")).To(Equal(uint64(0)))
		Expect(tracer.NumCompletedTasks()).To(Equal(uint64(0)))
	})

	It("should not count tasks that never end", func() {
		StartTask("1", domain, "counted", "what", nil)
		AddTaskStep("1", domain, "a")

		Expect(tracer.GetStepCount("a")).To(Equal(uint64(1)))
		Expect(tracer.NumCompletedTasks()).To(Equal(uint64(0)))
	})
})
