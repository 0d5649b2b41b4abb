// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements the calibration check and the bounded re-calibration protocol
package iossm

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"
)

const MAX_RETRY_COUNT = 3

type pllLock struct {
	sel  uint8
	reg  uint64
	mask uint32
	name string
}

var pllLocks = [...]pllLock{
	{IO96B0_PLL_A, SYSMGR_ECC_INTSTATUS_SERR, DDR_CSR_CLKGEN_LOCKED_IO96B0_MASK, "io96b_0 clkgenA"},
	{IO96B0_PLL_B, SYSMGR_ECC_INTSTATUS_DERR, DDR_CSR_CLKGEN_LOCKED_IO96B0_MASK, "io96b_0 clkgenB"},
	{IO96B1_PLL_A, SYSMGR_ECC_INTSTATUS_SERR, DDR_CSR_CLKGEN_LOCKED_IO96B1_MASK, "io96b_1 clkgenA"},
	{IO96B1_PLL_B, SYSMGR_ECC_INTSTATUS_DERR, DDR_CSR_CLKGEN_LOCKED_IO96B1_MASK, "io96b_1 clkgenB"},
}

// CheckPLLLocked waits for every clkgen PLL selected in mask to report lock.
func (c *Controller) CheckPLLLocked(ctx context.Context, mask uint8) error {
	p := c.timing.poller()
	for _, pll := range pllLocks {
		if mask&pll.sel == 0 {
			continue
		}
		err := p.WaitForBit(ctx, c.bus, c.sysmgr+pll.reg, pll.mask, true)
		if err != nil {
			klog.ErrorS(err, "iossm.CheckPLLLocked: lock timeout", "pll", pll.name)
			return fmt.Errorf("%w: ddr csr %s: %w", ErrPLLNotLocked, pll.name, err)
		}
		klog.V(DBG_LVL_INFO).InfoS("iossm.CheckPLLLocked: locked", "pll", pll.name)
	}
	return nil
}

// WaitNOCPLL waits for the NOC PLL feeding the MPFE to lock.
func (c *Controller) WaitNOCPLL(ctx context.Context) error {
	addr := c.sysmgr + SYSMGR_HMC_CLK
	err := c.timing.poller().WaitForBit(ctx, c.bus, addr, SYSMGR_HMC_CLK_NOCPLL, true)
	if err != nil {
		klog.ErrorS(err, "iossm.WaitNOCPLL: lock timeout", "addr", hex(addr), "hmc_clk", hex(c.bus.Read32(addr)))
		return fmt.Errorf("%w: NOCPLL: %w", ErrPLLNotLocked, err)
	}
	klog.V(DBG_LVL_INFO).Info("iossm.WaitNOCPLL: locked")
	return nil
}

// calStatus polls the IOSSM_STATUS register of one instance until calibration
// reports either success or failure.
func (c *Controller) calStatus(ctx context.Context, inst *ControllerInstance) (bool, error) {
	var status uint32
	addr := inst.Base + IOSSM_STATUS_OFFSET
	p := c.timing.poller().WithTimeout(c.timing.CalibrationTimeout)
	start := p.clock().Now()
	err := p.Until(ctx, func() (bool, error) {
		status = c.bus.Read32(addr)
		return status&(IOSSM_STATUS_CAL_SUCCESS|IOSSM_STATUS_CAL_FAIL) != 0, nil
	})
	if err != nil {
		klog.ErrorS(err, "iossm.calStatus: SDRAM calibration timeout", "addr", hex(addr), "status", hex(status))
		return false, fmt.Errorf("%w: IO96B 0x%X", ErrCalibrationTimeout, inst.Base)
	}
	klog.V(DBG_LVL_INFO).InfoS("iossm.calStatus: calibration done", "addr", hex(addr),
		"status", hex(status), "elapsed", p.clock().Now().Sub(start))
	return status&IOSSM_STATUS_CAL_SUCCESS != 0 && status&IOSSM_STATUS_CAL_FAIL == 0, nil
}

// InitialCalibration checks the calibration result of every instance. A failed
// calibration only marks the instance; timeouts and PLL lock failures are fatal.
func (c *Controller) InitialCalibration(ctx context.Context) error {
	if c.handoff.CheckPLL {
		if err := c.CheckPLLLocked(ctx, c.handoff.PLLMask); err != nil {
			return err
		}
	}

	for i, inst := range c.Instances {
		if err := inst.setState(CalChecking); err != nil {
			return err
		}
		ok, err := c.calStatus(ctx, inst)
		if err != nil {
			return err
		}
		next := CalFailed
		if ok {
			next = CalPassed
		}
		if err := inst.setState(next); err != nil {
			return err
		}
		klog.V(DBG_LVL_BASIC).InfoS("iossm.InitialCalibration", "io96b", i, "state", inst.State)
	}
	return nil
}

// OverallCalPassed reports whether every instance has passed calibration.
// It is always recomputed from the full instance list.
func (c *Controller) OverallCalPassed() bool {
	if len(c.Instances) == 0 {
		return false
	}
	for _, inst := range c.Instances {
		if !inst.CalPassed() {
			return false
		}
	}
	return true
}

// ForceRecalibration marks every instance as failed, so the next Recalibrate
// re-triggers calibration on all of them.
func (c *Controller) ForceRecalibration() error {
	for _, inst := range c.Instances {
		if inst.State == CalFailed {
			continue
		}
		if err := inst.setState(CalFailed); err != nil {
			return err
		}
	}
	return nil
}

// Recalibrate runs the re-calibration protocol on every failed instance. Each
// interface gets at most MAX_RETRY_COUNT calibration triggers.
func (c *Controller) Recalibrate(ctx context.Context) error {
	for i, inst := range c.Instances {
		if inst.State != CalFailed {
			continue
		}
		if err := inst.setState(CalRecalibrating); err != nil {
			return err
		}
		if len(inst.Interfaces) == 0 {
			_ = inst.setState(CalRecalFailed)
			return fmt.Errorf("%w: IO96B_%d has no memory interface to re-calibrate", ErrCalibrationFailed, i)
		}
		for j := range inst.Interfaces {
			err := c.recalibrateInterface(ctx, inst, j)
			if err != nil {
				if errors.Is(err, ErrCalibrationFailed) {
					_ = inst.setState(CalRecalFailed)
				}
				return &InterfaceError{Err: err, Instance: i, Interface: j}
			}
		}
		if err := inst.setState(CalPassed); err != nil {
			return err
		}
		klog.V(DBG_LVL_BASIC).InfoS("iossm.Recalibrate: DDR calibration succeed", "io96b", i)
	}
	if c.OverallCalPassed() {
		klog.V(DBG_LVL_BASIC).Info("iossm.Recalibrate: overall SDRAM calibration success")
	}
	return nil
}

func (c *Controller) calStatusOffset(ctx context.Context, inst *ControllerInstance, j int) (uint32, error) {
	resp, err := c.send(ctx, inst, nil, Request{
		CmdType:   CMD_TRIG_MEM_CAL_OP,
		Opcode:    GET_MEM_CAL_STATUS,
		RespWords: MAX_MEM_INTERFACE,
	})
	if err != nil {
		return 0, err
	}
	if j >= NUM_CMD_RESPONSE_DATA {
		return 0, nil
	}
	return resp.Data[j], nil
}

func (c *Controller) recalibrateInterface(ctx context.Context, inst *ControllerInstance, j int) error {
	intf := &inst.Interfaces[j]
	offset, err := c.calStatusOffset(ctx, inst, j)
	if err != nil {
		return err
	}

	for k := 0; k < MAX_RETRY_COUNT; k++ {
		intf.CalStatusOffset = offset
		calStat := read8(c.bus, inst.Base+uint64(offset))
		klog.V(DBG_LVL_DETAIL).InfoS("iossm.recalibrate", "intf", intf.String(), "attempt", k,
			"offset", hex(offset), "cal_stat", hex(calStat))
		if calStat == INTF_MEM_CAL_STATUS_SUCCESS {
			intf.Recovered = true
			return nil
		}

		resp, err := c.send(ctx, inst, intf, Request{
			CmdType:   CMD_TRIG_MEM_CAL_OP,
			Opcode:    TRIG_MEM_CAL,
			RespWords: MAX_MEM_INTERFACE,
		})
		if err != nil {
			return err
		}
		intf.Triggers++
		klog.V(DBG_LVL_INFO).InfoS("iossm.recalibrate: memory calibration triggered",
			"intf", intf.String(), "status", resp.Short()&0x1)

		offset, err = c.calStatusOffset(ctx, inst, j)
		if err != nil {
			return err
		}
	}

	klog.ErrorS(ErrCalibrationFailed, "iossm.recalibrate: SDRAM calibration failed", "base", hex(inst.Base),
		"intf", intf.String(), "triggers", intf.Triggers)
	return fmt.Errorf("%w after %d triggers", ErrCalibrationFailed, intf.Triggers)
}

// Triggers returns the TRIG_MEM_CAL commands issued across all interfaces.
func (c *Controller) Triggers() int {
	n := 0
	for _, inst := range c.Instances {
		for _, intf := range inst.Interfaces {
			n += intf.Triggers
		}
	}
	return n
}
