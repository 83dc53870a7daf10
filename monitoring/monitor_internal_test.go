package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/mmusim/mem/vm"
	"github.com/sarchlab/mmusim/mem/vm/mmu"
	"github.com/sarchlab/mmusim/mem/vm/tlb"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

type sampleComponent struct {
	name  string
	Count int
}

func (c *sampleComponent) Name() string {
	return c.name
}

type fakeTarget struct {
	snapshot  Snapshot
	inspected int
}

func (t *fakeTarget) Snapshot() Snapshot {
	return t.snapshot
}

func (t *fakeTarget) Inspect(f func()) {
	t.inspected++
	f()
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		target *fakeTarget
	)

	BeforeEach(func() {
		m = NewMonitor()
		target = &fakeTarget{
			snapshot: Snapshot{
				TLBCapacity: 16,
				TLBCursor:   3,
				TLB: []tlb.Mapping{
					{VPN: 1, Frame: 1, UseBit: true},
				},
				FlatPageTable: []vm.PTE{{Valid: true, Frame: 0}},
				Directory: []DirectorySlot{
					{Level1: 2, Entries: map[uint64]vm.PTE{
						5: {Valid: true, Accessed: true, Frame: 7},
					}},
				},
				Stats: mmu.Stats{Translations: 4, TLBHits: 1},
			},
		}
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.Handler().ServeHTTP(rec, req)

		return rec
	}

	It("should list the registered components", func() {
		m.RegisterComponent(&sampleComponent{name: "A"})
		m.RegisterComponent(&sampleComponent{name: "B"})

		rec := get("/api/list_components")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`["A","B"]`))
	})

	It("should return 404 for unknown components", func() {
		rec := get("/api/component/nothing")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize a component while no translation runs", func() {
		m.RegisterTarget(target)
		m.RegisterComponent(&sampleComponent{name: "A", Count: 3})

		rec := get("/api/component/A")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(target.inspected).To(Equal(1))
	})

	It("should reject unknown fields", func() {
		m.RegisterComponent(&sampleComponent{name: "A"})

		q := url.PathEscape(`{"comp_name":"A","field_name":"Missing"}`)
		rec := get("/api/field/" + q)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should serve the TLB", func() {
		m.RegisterTarget(target)

		rec := get("/api/tlb")

		rsp := struct {
			Capacity int         `json:"capacity"`
			Cursor   int         `json:"cursor"`
			Entries  []tlb.Mapping `json:"entries"`
		}{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Capacity).To(Equal(16))
		Expect(rsp.Cursor).To(Equal(3))
		Expect(rsp.Entries).To(Equal(target.snapshot.TLB))
	})

	It("should serve the page tables", func() {
		m.RegisterTarget(target)

		flat := []vm.PTE{}
		rec := get("/api/pagetable/flat")
		Expect(json.Unmarshal(rec.Body.Bytes(), &flat)).To(Succeed())
		Expect(flat).To(Equal(target.snapshot.FlatPageTable))

		dir := []DirectorySlot{}
		rec = get("/api/pagetable/directory")
		Expect(json.Unmarshal(rec.Body.Bytes(), &dir)).To(Succeed())
		Expect(dir).To(Equal(target.snapshot.Directory))
	})

	It("should serve the stats", func() {
		m.RegisterTarget(target)

		stats := mmu.Stats{}
		rec := get("/api/stats")

		Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
		Expect(stats).To(Equal(target.snapshot.Stats))
	})

	It("should answer 503 without a simulation", func() {
		rec := get("/api/stats")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should list the progress bars", func() {
		bar := m.CreateProgressBar("Translations", 10)
		bar.IncrementInProgress(5)
		bar.MoveInProgressToFinished(4)
		done := m.CreateProgressBar("Done", 1)
		m.CompleteProgressBar(done)

		rec := get("/api/progress")

		bars := []progressBarState{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("Translations"))
		Expect(bars[0].Finished).To(Equal(uint64(4)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))
	})

	It("should start and stop the server", func() {
		u, err := m.StartServer()

		Expect(err).ToNot(HaveOccurred())
		Expect(u).To(HavePrefix("http://localhost:"))
		Expect(m.URL()).To(Equal(u))

		rsp, err := http.Get(u + "/api/list_components")
		Expect(err).ToNot(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		Expect(m.StopServer(context.Background())).To(Succeed())
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := m.walkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := m.walkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			field3: &sampleStruct{
				field1: 1,
			},
		}

		elem, err := m.walkFields(s, "field3.field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should fail on missing fields and indices", func() {
		s := &sampleStruct{field4: []sampleStruct{{}}}

		_, err := m.walkFields(s, "nothing")
		Expect(err).To(HaveOccurred())

		_, err = m.walkFields(s, "field4.3")
		Expect(err).To(HaveOccurred())

		_, err = m.walkFields(s, "field1.x")
		Expect(err).To(HaveOccurred())
	})
})
