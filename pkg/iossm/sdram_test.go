// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/Seagate/iossm-lib/pkg/iossm/sim"
)

var _ = Describe("DDR init", func() {
	var (
		a, b    *sim.Interface
		model   *sim.Model
		handoff iossm.Handoff
		trace   *traceLog
		scratch *iossm.RegisterScratch
	)

	cold8 := func() uint32 {
		return model.Peek(sysmgr + iossm.SYSMGR_SOC64_BOOT_SCRATCH_COLD8)
	}

	run := func() (*iossm.Report, error) {
		c, err := iossm.NewController(model, handoff, iossm.WithTiming(fastTiming()), iossm.WithTracer(trace))
		Expect(err).NotTo(HaveOccurred())
		return c.Init(context.Background(), scratch)
	}

	BeforeEach(func() {
		a = ddrInterface(1, 0, uint8(iossm.DDR5), 8)
		b = ddrInterface(1, 0, uint8(iossm.DDR5), 8)
		model = twoInstanceModel(a, b)
		model.SetPLLLocked(true)
		model.SetScratch(iossm.ScratchFlags{Reset: iossm.POR_RESET})
		handoff = simHandoff(model)
		trace = &traceLog{}
		scratch = iossm.NewRegisterScratch(model, sysmgr)
	})

	Context("when every instance calibrates", func() {
		It("reports the memory configuration and runs the full init after power on", func() {
			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.CalPassed).To(BeTrue())
			Expect(rep.Recalibrated).To(BeFalse())
			Expect(rep.Technology).To(Equal(iossm.DDR5))
			Expect(rep.OverallSize).To(Equal(uint32(16)))
			Expect(rep.InstanceSizes).To(Equal([]uint16{8, 8}))
			Expect(rep.SizeBytes).To(Equal(uint64(2 << 30)))
			Expect(rep.ClockKHz).To(Equal(uint32(1066000)))
			Expect(rep.ECC).To(BeTrue())
			Expect(rep.FullInit).To(BeTrue())
			Expect(rep.RunID).NotTo(BeEmpty())
			Expect(a.BISTStarts).To(Equal(1))
			Expect(b.BISTStarts).To(Equal(1))
			Expect(*trace).NotTo(BeEmpty())
		})

		It("clears the init in progress flag on success", func() {
			_, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(cold8() & (1 << 29)).To(BeZero())
			Expect((cold8() >> 27) & 0x3).To(Equal(uint32(2)))
		})

		It("checks the PLLs and the NOC PLL when asked to", func() {
			handoff.CheckPLL = true
			handoff.PLLMask = iossm.IO96B0_PLL_A | iossm.IO96B1_PLL_B
			handoff.CheckNOCPLL = true
			_, err := run()
			Expect(err).NotTo(HaveOccurred())
		})
	})

	DescribeTable("full memory init decision",
		func(reset iossm.ResetType, ecc uint8, fullInit bool) {
			a.ECC, b.ECC = ecc, ecc
			model.SetScratch(iossm.ScratchFlags{Reset: reset})
			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.FullInit).To(Equal(fullInit))
			Expect(a.BISTStarts > 0).To(Equal(fullInit))
		},
		Entry("power on reset", iossm.POR_RESET, uint8(1), true),
		Entry("warm reset", iossm.WARM_RESET, uint8(1), false),
		Entry("cold reset", iossm.COLD_RESET, uint8(1), false),
		Entry("RSU reconfiguration", iossm.RSU_RECONFIG, uint8(1), true),
		Entry("ECC disabled", iossm.POR_RESET, uint8(0), false),
	)

	Context("after an interrupted boot attempt", func() {
		It("reports the hang and reinitializes memory on a warm reset", func() {
			model.SetScratch(iossm.ScratchFlags{Reset: iossm.WARM_RESET, InitInProgress: true})
			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.HangBeforeBoot).To(BeTrue())
			Expect(rep.FullInit).To(BeTrue())
		})
	})

	Context("when an instance fails the initial calibration", func() {
		BeforeEach(func() {
			model.Instances()[1].Cal = sim.CalFail
		})

		It("recovers through the re-calibration protocol", func() {
			b.CalSuccessAfter = 1
			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Recalibrated).To(BeTrue())
			Expect(rep.Triggers).To(Equal(1))
			Expect(rep.CalPassed).To(BeTrue())
			Expect(a.Triggers).To(BeZero())
		})

		It("fails after the retry bound and leaves the progress flag set", func() {
			b.CalSuccessAfter = -1
			rep, err := run()
			Expect(err).To(MatchError(iossm.ErrCalibrationFailed))
			Expect(rep.CalPassed).To(BeFalse())
			Expect(rep.Triggers).To(Equal(iossm.MAX_RETRY_COUNT))
			Expect(cold8() & (1 << 29)).NotTo(BeZero())
			Expect(a.BISTStarts).To(BeZero())
		})
	})

	Context("with a single instance that recovers on the second attempt", func() {
		It("sends one calibration trigger", func() {
			only := ddrInterface(1, 0, uint8(iossm.DDR4), 8)
			only.CalSuccessAfter = 1
			model = sim.NewModel(sysmgr, &sim.Instance{Base: io96b0Base, Cal: sim.CalFail, Interfaces: []*sim.Interface{only}})
			model.SetScratch(iossm.ScratchFlags{Reset: iossm.COLD_RESET})
			handoff = simHandoff(model)
			scratch = iossm.NewRegisterScratch(model, sysmgr)

			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.CalPassed).To(BeTrue())
			Expect(rep.Triggers).To(Equal(1))
			Expect(countRequests(model.Instances()[0], iossm.TRIG_MEM_CAL)).To(Equal(1))
			Expect(rep.OverallSize).To(Equal(uint32(8)))
		})
	})

	Context("when a DDR double bit error was recorded", func() {
		It("re-calibrates every instance and reinitializes memory", func() {
			model.SetScratch(iossm.ScratchFlags{Reset: iossm.WARM_RESET, DDRDoubleBitError: true})
			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Recalibrated).To(BeTrue())
			Expect(rep.Triggers).To(BeZero())
			Expect(rep.FullInit).To(BeTrue())
			for _, inst := range model.Instances() {
				Expect(countRequests(inst, iossm.GET_MEM_CAL_STATUS)).To(Equal(1))
			}
		})
	})

	Context("when the configuration is inconsistent", func() {
		It("rejects mixed DDR types", func() {
			b.Technology = uint8(iossm.DDR4)
			rep, err := run()
			Expect(err).To(MatchError(iossm.ErrMismatch))
			Expect(rep.CalPassed).To(BeTrue())
			Expect(a.BISTStarts).To(BeZero())
		})

		It("rejects a device tree larger than the hardware", func() {
			handoff.DTRAMSize = 4 << 30
			_, err := run()
			Expect(err).To(MatchError(iossm.ErrRAMSize))
		})

		It("accepts a device tree smaller than the hardware", func() {
			handoff.DTRAMSize = 1 << 30
			_, err := run()
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("when the instances run different memory clocks", func() {
		It("records each clock and still boots", func() {
			b.ClockKHz = 800000
			model.SetScratch(iossm.ScratchFlags{Reset: iossm.COLD_RESET})
			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.ClockKHz).To(Equal(uint32(1066000)))
			Expect(rep.InstanceClocks).To(Equal([]uint32{1066000, 800000}))
			Expect(rep.Technology).To(Equal(iossm.DDR5))
			Expect(rep.OverallSize).To(Equal(uint32(16)))
			Expect(rep.ECC).To(BeTrue())
			Expect(cold8() & (1 << 29)).To(BeZero())
		})
	})

	Context("when configuring the MPFE", func() {
		status := func() uint32 {
			return model.Peek(model.F2SDRAM() + iossm.F2SDRAM_SIDEBAND_FLAGOUTSTATUS0)
		}

		It("selects multichannel mode by default", func() {
			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Interleaving).To(BeFalse())
			Expect(status()).To(Equal(uint32(iossm.SIDEBANDMGR_FLAGOUTSET0_MULTICHANNEL)))
		})

		It("selects interleaving when the handoff asks for it", func() {
			handoff.Interleaving = true
			rep, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Interleaving).To(BeTrue())
			Expect(status()).To(Equal(uint32(iossm.SIDEBANDMGR_FLAGOUTSET0_INTERLEAVING)))
		})

		It("stops before discovery when the mode does not latch", func() {
			model.MPFEStuck = iossm.SIDEBANDMGR_FLAGOUTSET0_MULTICHANNEL
			_, err := run()
			Expect(err).To(MatchError(iossm.ErrMPFEConfig))
			Expect(countRequests(model.Instances()[0], iossm.GET_MEM_INTF_INFO)).To(BeZero())
			Expect(cold8() & (1 << 29)).NotTo(BeZero())
		})

		It("configures the MPFE before waiting on the NOC PLL", func() {
			handoff.CheckNOCPLL = true
			_, err := run()
			Expect(err).NotTo(HaveOccurred())
			mpfe, noc := -1, -1
			for i, acc := range model.Log {
				if mpfe < 0 && acc.Write && acc.Addr == model.F2SDRAM()+iossm.F2SDRAM_SIDEBAND_FLAGOUTSET0 {
					mpfe = i
				}
				if noc < 0 && acc.Addr == sysmgr+iossm.SYSMGR_HMC_CLK {
					noc = i
				}
			}
			Expect(mpfe).To(BeNumerically(">=", 0))
			Expect(mpfe).To(BeNumerically("<", noc))
		})
	})

	Context("when the NOC PLL never locks", func() {
		It("stops before discovery", func() {
			model.SetPLLLocked(false)
			handoff.CheckNOCPLL = true
			_, err := run()
			Expect(err).To(MatchError(iossm.ErrPLLNotLocked))
			Expect(model.Instances()[0].Requests).To(BeEmpty())
		})
	})

	It("uses an in-memory scratch store", func() {
		mem := &iossm.MemScratch{Flags: iossm.ScratchFlags{Reset: iossm.COLD_RESET}}
		c, err := iossm.NewController(model, handoff, iossm.WithTiming(fastTiming()))
		Expect(err).NotTo(HaveOccurred())
		rep, err := c.Init(context.Background(), mem)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.FullInit).To(BeFalse())
		Expect(mem.Stores).To(HaveLen(2))
		Expect(mem.Stores[0].InitInProgress).To(BeTrue())
		Expect(mem.Stores[1].InitInProgress).To(BeFalse())
		Expect(mem.Stores[1].AssignedInstances).To(Equal(uint8(2)))
	})
})
