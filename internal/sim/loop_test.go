package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Loop", func() {
	var (
		steps int
		loop  *Loop
	)

	count := func(dt float64) { steps++ }

	BeforeEach(func() {
		steps = 0
		loop = NewLoop(0.001, 1, count)
	})

	It("takes the same number of steps regardless of frame partition", func() {
		for i := 0; i < 3; i++ {
			loop.Advance(16)
		}
		split := steps

		steps = 0
		other := NewLoop(0.001, 1, count)
		other.Advance(48)

		Expect(split).To(Equal(48))
		Expect(steps).To(Equal(split))
	})

	It("carries the remainder between frames", func() {
		loop = NewLoop(0.01, 1, count)

		Expect(loop.Advance(16)).To(Equal(1))
		Expect(loop.Advance(16)).To(Equal(2))
		Expect(loop.Advance(16)).To(Equal(1))
		Expect(loop.Pending()).To(BeNumerically("~", 8, 1e-9))
	})

	It("caps a stalled frame at MaxFrameMs", func() {
		Expect(loop.Advance(1000)).To(Equal(50))
		Expect(loop.Pending()).To(BeNumerically("~", 0, 1e-9))
	})

	It("ignores negative deltas", func() {
		Expect(loop.Advance(-20)).To(Equal(0))
		Expect(loop.Pending()).To(BeZero())
	})

	It("scales wall time after the stall cap", func() {
		loop.TimeScale = 2
		Expect(loop.Advance(10)).To(Equal(20))
		Expect(loop.Advance(100)).To(Equal(100))
	})

	It("treats a zero time scale as real time", func() {
		loop.TimeScale = 0
		Expect(loop.Advance(10)).To(Equal(10))
	})

	It("passes the fixed dt to every step", func() {
		var seen []float64
		l := NewLoop(0.005, 1, func(dt float64) { seen = append(seen, dt) })
		l.Advance(20)
		Expect(seen).To(Equal([]float64{0.005, 0.005, 0.005, 0.005}))
	})

	It("drops pending time on reset", func() {
		loop = NewLoop(0.01, 1, count)
		loop.Advance(7)
		loop.Reset()
		Expect(loop.Pending()).To(BeZero())
		Expect(loop.Advance(7)).To(Equal(0))
	})
})
