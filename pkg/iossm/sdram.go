// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements the DDR bring-up sequence on top of the IOSSM mailbox
package iossm

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"k8s.io/klog/v2"
)

// Report is the outcome of one DDR init run.
type Report struct {
	RunID          string     `json:"run_id"`
	Reset          ResetType  `json:"reset"`
	CalPassed      bool       `json:"cal_passed"`
	Recalibrated   bool       `json:"recalibrated"`
	Triggers       int        `json:"triggers"`
	Technology     Technology `json:"technology"`
	OverallSize    uint32     `json:"overall_size"`
	InstanceSizes  []uint16   `json:"instance_sizes"`
	SizeBytes      uint64     `json:"size_bytes"`
	ClockKHz       uint32     `json:"clock_khz"`
	InstanceClocks []uint32   `json:"instance_clocks_khz"`
	Interleaving   bool       `json:"interleaving"`
	ECC            bool       `json:"ecc"`
	FullInit       bool       `json:"full_init"`
	HangBeforeBoot bool       `json:"hang_before_boot"`
}

// Init brings the DDR subsystem to a calibrated, sized and (when needed) fully
// initialized state. The scratch "init in progress" flag stays set unless Init
// returns without error, so the next boot attempt can detect a hang.
func (c *Controller) Init(ctx context.Context, scratch ScratchStore) (*Report, error) {
	flags, err := scratch.Load()
	if err != nil {
		return nil, fmt.Errorf("load scratch: %w", err)
	}
	rep := &Report{
		RunID:          xid.New().String(),
		Reset:          flags.Reset,
		HangBeforeBoot: flags.InitInProgress,
	}
	klog.V(DBG_LVL_BASIC).InfoS("DDR: SDRAM init in progress", "run", rep.RunID, "reset", flags.Reset,
		"hang_before_reset", flags.InitInProgress)

	flags.InitInProgress = true
	flags.AssignedInstances = uint8(len(c.Instances))
	if err := scratch.Store(flags); err != nil {
		return nil, fmt.Errorf("store scratch: %w", err)
	}

	// Ensure calibration status passing
	if err := c.InitialCalibration(ctx); err != nil {
		return rep, err
	}

	// Configure the MPFE sideband manager, multichannel or interleaving
	if err := c.ConfigMPFE(); err != nil {
		return rep, err
	}
	rep.Interleaving = c.handoff.Interleaving

	if c.handoff.CheckNOCPLL {
		klog.V(DBG_LVL_BASIC).Info("DDR: Waiting for NOCPLL locked ...")
		if err := c.WaitNOCPLL(ctx); err != nil {
			return rep, err
		}
	}

	if err := c.Discover(ctx); err != nil {
		return rep, err
	}

	// A double bit error requires re-calibration of every instance
	if flags.DDRDoubleBitError {
		if err := c.ForceRecalibration(); err != nil {
			return rep, err
		}
	}

	if !c.OverallCalPassed() {
		klog.V(DBG_LVL_BASIC).Info("DDR: Re-calibration in progress...")
		rep.Recalibrated = true
		err := c.Recalibrate(ctx)
		rep.Triggers = c.Triggers()
		if err != nil {
			return rep, err
		}
	}
	if !c.OverallCalPassed() {
		return rep, ErrCalibrationFailed
	}
	rep.CalPassed = true
	klog.V(DBG_LVL_BASIC).Info("DDR: Calibration success")

	if rep.Technology, err = c.MemTechnology(ctx); err != nil {
		return rep, fmt.Errorf("DDR: Failed to get DDR type: %w", err)
	}
	if rep.OverallSize, err = c.MemWidthInfo(ctx); err != nil {
		return rep, fmt.Errorf("DDR: Failed to get DDR size: %w", err)
	}
	for _, inst := range c.Instances {
		rep.InstanceSizes = append(rep.InstanceSizes, inst.Size)
	}
	rep.SizeBytes = SizeBytes(rep.OverallSize)
	if err := c.checkRAMSize(rep.SizeBytes); err != nil {
		return rep, err
	}
	if rep.ClockKHz, err = c.MemClockKHz(ctx); err != nil {
		return rep, fmt.Errorf("DDR: Failed to get memory clock: %w", err)
	}
	for _, inst := range c.Instances {
		rep.InstanceClocks = append(rep.InstanceClocks, inst.ClockKHz)
	}

	if rep.ECC, err = c.ECCEnabled(ctx); err != nil {
		return rep, fmt.Errorf("DDR: Failed to get DDR ECC status: %w", err)
	}

	// Skip full memory initialization on cold or warm reset to preserve memory content
	if NeedsFullInit(rep.ECC, flags, rep.HangBeforeBoot) {
		klog.V(DBG_LVL_BASIC).InfoS("DDR: Needed to fully initialize DDR memory", "ddr_type", rep.Technology)
		if err := c.BISTMemInit(ctx); err != nil {
			return rep, fmt.Errorf("%s: Failed to fully initialize DDR memory: %w", rep.Technology, err)
		}
		rep.FullInit = true
	}

	// Ending DDR driver initialization success tracking
	flags.InitInProgress = false
	if err := scratch.Store(flags); err != nil {
		return rep, fmt.Errorf("store scratch: %w", err)
	}
	klog.V(DBG_LVL_BASIC).InfoS("DDR init success", "ddr_type", rep.Technology, "size_mib", rep.SizeBytes>>20)
	return rep, nil
}

// checkRAMSize compares the device tree RAM size with the hardware size.
func (c *Controller) checkRAMSize(hwSize uint64) error {
	dt := c.handoff.DTRAMSize
	if dt == 0 {
		return nil
	}
	if dt != hwSize {
		klog.Warningf("DDR: DRAM size from device tree (%d MiB) mismatch with hardware (%d MiB)", dt>>20, hwSize>>20)
	}
	if dt > hwSize {
		return fmt.Errorf("%w: %d MiB > %d MiB", ErrRAMSize, dt>>20, hwSize>>20)
	}
	return nil
}

// ConfigMPFE selects interleaving or multichannel mode in the F2SDRAM sideband
// manager and checks that the status register reflects the selected mode.
func (c *Controller) ConfigMPFE() error {
	var mask uint32 = SIDEBANDMGR_FLAGOUTSET0_MULTICHANNEL
	mode := "multichannel"
	if c.handoff.Interleaving {
		mask, mode = SIDEBANDMGR_FLAGOUTSET0_INTERLEAVING, "interleaving"
	}
	setBits(c.bus, c.f2sdram+F2SDRAM_SIDEBAND_FLAGOUTSET0, mask)

	reg := c.bus.Read32(c.f2sdram + F2SDRAM_SIDEBAND_FLAGOUTSTATUS0)
	klog.V(DBG_LVL_INFO).InfoS("iossm.ConfigMPFE", "mode", mode, "flagoutstatus0", hex(reg))
	if reg&mask != mask {
		klog.ErrorS(ErrMPFEConfig, "DDR: Failed to configure multichannel/interleaving mode", "mode", mode,
			"flagoutstatus0", hex(reg))
		return fmt.Errorf("%w: %s, FLAGOUTSTATUS0 0x%X", ErrMPFEConfig, mode, reg)
	}
	return nil
}
