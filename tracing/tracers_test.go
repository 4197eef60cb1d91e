package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bankcheck/datarecording"
	"github.com/sarchlab/bankcheck/sim"
)

type testTimeTeller struct {
	currentTime sim.VTimeInSec
}

func (t *testTimeTeller) CurrentTime() sim.VTimeInSec {
	return t.currentTime
}

type testDomain struct {
	sim.HookableBase
}

func (d *testDomain) Name() string {
	return "Domain"
}

var _ = Describe("Tracers", func() {
	var (
		timeTeller *testTimeTeller
		domain     *testDomain
	)

	BeforeEach(func() {
		timeTeller = &testTimeTeller{}
		domain = &testDomain{}
	})

	It("should not attach the same tracer twice", func() {
		tracer := NewStepCountTracer(KindIs("dma"))
		CollectTrace(domain, tracer)

		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
	})

	It("should sum the time of the filtered tasks", func() {
		tracer := NewTotalTimeTracer(timeTeller, KindIs("dma"))
		CollectTrace(domain, tracer)

		timeTeller.currentTime = 1
		StartTask("1", "", domain, "dma", "transfer", nil)
		StartTask("2", "", domain, "check", "verify", nil)

		timeTeller.currentTime = 3
		EndTask("1", domain)
		EndTask("2", domain)

		timeTeller.currentTime = 4
		StartTask("3", "", domain, "dma", "transfer", nil)
		timeTeller.currentTime = 4.5
		EndTask("3", domain)

		Expect(tracer.TotalTime()).To(BeNumerically("~", 2.5, 1e-9))
		Expect(tracer.TaskCount()).To(Equal(uint64(2)))
	})

	It("should count steps", func() {
		tracer := NewStepCountTracer(KindIs("dma"))
		CollectTrace(domain, tracer)

		StartTask("1", "", domain, "dma", "transfer", nil)
		AddTaskStep("1", domain, "poll")
		AddTaskStep("1", domain, "poll")
		StartTask("2", "", domain, "dma", "transfer", nil)
		AddTaskStep("2", domain, "poll")
		AddTaskStep("2", domain, "fault")
		EndTask("1", domain)
		EndTask("2", domain)

		Expect(tracer.GetStepNames()).To(Equal([]string{"poll", "fault"}))
		Expect(tracer.GetStepCount("poll")).To(Equal(uint64(3)))
		Expect(tracer.GetTaskCount("poll")).To(Equal(uint64(2)))
		Expect(tracer.GetTaskCount("fault")).To(Equal(uint64(1)))
	})

	It("should store tasks into a database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "trace")
		recorder := datarecording.New(path)
		tracer := NewDBTracer(timeTeller, recorder)
		CollectTrace(domain, tracer)

		timeTeller.currentTime = 1
		StartTask("1", "", domain, "dma", "transfer", nil)
		AddTaskStep("1", domain, "poll")
		StartTask("2", "1", domain, "dma", "never ends", nil)
		timeTeller.currentTime = 2
		EndTask("1", domain)
		tracer.Terminate()

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable("trace", taskTableEntry{})
		tasks, total, err := reader.Query(context.Background(), "trace",
			datarecording.QueryParams{OrderBy: "ID"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))

		first := tasks[0].(*taskTableEntry)
		Expect(first.Location).To(Equal("Domain"))
		Expect(first.StartTime).To(BeNumerically("==", 1))
		Expect(first.EndTime).To(BeNumerically("==", 2))

		second := tasks[1].(*taskTableEntry)
		Expect(second.ParentID).To(Equal("1"))
		Expect(second.EndTime).To(BeNumerically("==", 2))

		reader.MapTable("trace_steps", stepTableEntry{})
		_, steps, err := reader.Query(context.Background(), "trace_steps",
			datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(steps).To(Equal(1))

		Expect(recorder.Close()).To(Succeed())
	})
})
