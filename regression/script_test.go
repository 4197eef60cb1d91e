package regression

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bankcheck/device"
)

var _ = Describe("Script", func() {
	It("should follow the nine phases", func() {
		steps := Script(DefaultSeeds(), RestoreFilters)

		Expect(steps).To(HaveLen(26))

		phases := map[int]int{}
		for _, s := range steps {
			phases[s.Phase]++
		}

		Expect(phases).To(Equal(map[int]int{
			1: 4, 2: 4, 3: 1, 4: 4, 5: 2, 6: 4, 7: 1, 8: 4, 9: 2,
		}))
	})

	It("should use the reference seeds", func() {
		steps := Script(DefaultSeeds(), RestoreFilters)

		Expect(steps[0]).To(Equal(Step{
			Phase: 1, Kind: StepWrite, Region: device.Input, Seed: 14,
		}))
		Expect(steps[4]).To(Equal(Step{
			Phase: 2, Kind: StepWrite, Region: device.Filter0, Seed: 10,
		}))
		Expect(steps[8]).To(Equal(Step{Phase: 3, Kind: StepSwap, Swap: SwapFilters}))
		Expect(steps[12]).To(Equal(Step{
			Phase: 4, Kind: StepWrite, Region: device.Filter3, Seed: 23,
		}))
		Expect(steps[19]).To(Equal(Step{Phase: 7, Kind: StepSwap, Swap: SwapFilters}))
		Expect(steps[20]).To(Equal(Step{
			Phase: 8, Kind: StepVerify, Region: device.Filter0, Seed: 10,
		}))
	})

	It("should expect only the cross check to mismatch", func() {
		steps := Script(DefaultSeeds(), RestoreFilters)

		for _, s := range steps[:24] {
			Expect(s.Expect).To(Equal(ExpectPass), s.String())
		}

		Expect(steps[24]).To(Equal(Step{
			Phase: 9, Kind: StepVerify, Region: device.Input, Seed: 15,
			Expect: ExpectMismatch,
		}))
		Expect(steps[25]).To(Equal(Step{
			Phase: 9, Kind: StepVerify, Region: device.Output, Seed: 14,
			Expect: ExpectMismatch,
		}))
		Expect(steps[25].String()).To(Equal("9: verify Output seed 14 (expect mismatch)"))
	})

	It("should restore with an activation swap in legacy mode", func() {
		steps := Script(DefaultSeeds(), RestoreActivations)

		Expect(steps[8].Swap).To(Equal(SwapFilters))
		Expect(steps[19]).To(Equal(Step{Phase: 7, Kind: StepSwap, Swap: SwapActivations}))
		Expect(steps[19].String()).To(Equal("7: swap activations"))
	})

	It("should parse restore modes", func() {
		m, err := ParseRestoreMode("Activations")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(RestoreActivations))

		m, err = ParseRestoreMode("")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(RestoreFilters))

		_, err = ParseRestoreMode("both")
		Expect(err).To(HaveOccurred())
	})
})
