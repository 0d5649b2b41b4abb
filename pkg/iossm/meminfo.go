// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements the memory property queries. All interfaces of all
// instances must agree on technology and ECC configuration.
package iossm

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// forEachInterface issues req to every interface of every instance in order and
// stops at the first error.
func (c *Controller) forEachInterface(ctx context.Context, req Request,
	fn func(i, j int, inst *ControllerInstance, resp Response) error) error {
	for i, inst := range c.Instances {
		for j := range inst.Interfaces {
			resp, err := c.send(ctx, inst, &inst.Interfaces[j], req)
			if err != nil {
				return &InterfaceError{Err: err, Instance: i, Interface: j}
			}
			if err := fn(i, j, inst, resp); err != nil {
				return err
			}
		}
	}
	return nil
}

// MemTechnology returns the DDR type shared by every memory interface.
func (c *Controller) MemTechnology(ctx context.Context) (Technology, error) {
	c.Technology = UNKNOWN
	seeded := false
	tech := UNKNOWN

	err := c.forEachInterface(ctx, Request{CmdType: CMD_GET_MEM_INFO, Opcode: GET_MEM_TECHNOLOGY},
		func(i, j int, _ *ControllerInstance, resp Response) error {
			t := TechnologyFromCode(resp.Short())
			if !seeded {
				tech, seeded = t, true
			}
			if t != tech {
				klog.ErrorS(ErrMismatch, "iossm.MemTechnology: mismatch DDR type", "io96b", i, "expect", tech, "got", t)
				return &InterfaceError{Err: fmt.Errorf("%w: DDR type %s, expect %s", ErrMismatch, t, tech), Instance: i, Interface: j}
			}
			return nil
		})
	if err != nil {
		return UNKNOWN, err
	}
	c.Technology = tech
	klog.V(DBG_LVL_BASIC).InfoS("iossm.MemTechnology", "ddr_type", tech)
	return tech, nil
}

// MemWidthInfo sums the size units of all interfaces per instance and overall.
func (c *Controller) MemWidthInfo(ctx context.Context) (uint32, error) {
	var total uint32
	for i, inst := range c.Instances {
		var size uint16
		for j := range inst.Interfaces {
			resp, err := c.send(ctx, inst, &inst.Interfaces[j], Request{
				CmdType:   CMD_GET_MEM_INFO,
				Opcode:    GET_MEM_WIDTH_INFO,
				RespWords: 2,
			})
			if err != nil {
				return 0, &InterfaceError{Err: err, Instance: i, Interface: j}
			}
			size += uint16(resp.Data[1] & 0xFF)
		}
		if size == 0 {
			klog.ErrorS(ErrNoValidSize, "iossm.MemWidthInfo: failed to get valid memory size", "io96b", i)
			return 0, fmt.Errorf("%w on IO96B_%d", ErrNoValidSize, i)
		}
		inst.Size = size
		total += uint32(size)
	}
	if total == 0 {
		return 0, ErrNoValidSize
	}
	c.OverallSize = total
	klog.V(DBG_LVL_BASIC).InfoS("iossm.MemWidthInfo", "overall_size", total)
	return total, nil
}

// ECCEnabled returns the ECC enable state shared by every memory interface.
func (c *Controller) ECCEnabled(ctx context.Context) (bool, error) {
	c.ECC = false
	seeded := false
	ecc := false

	err := c.forEachInterface(ctx, Request{CmdType: CMD_TRIG_CONTROLLER_OP, Opcode: ECC_ENABLE_STATUS},
		func(i, j int, _ *ControllerInstance, resp Response) error {
			e := resp.Short()&0x3 != 0
			if !seeded {
				ecc, seeded = e, true
			}
			if e != ecc {
				klog.ErrorS(ErrMismatch, "iossm.ECCEnabled: mismatch DDR ECC status", "io96b", i)
				return &InterfaceError{Err: fmt.Errorf("%w: ECC enable %t, expect %t", ErrMismatch, e, ecc), Instance: i, Interface: j}
			}
			return nil
		})
	if err != nil {
		return false, err
	}
	c.ECC = ecc
	klog.V(DBG_LVL_BASIC).InfoS("iossm.ECCEnabled", "ecc_status", ecc)
	return ecc, nil
}

// MemClockKHz records the memory clock of every instance. The clock is
// informational: differing clocks are logged, never rejected. The clock of the
// first interface is returned.
func (c *Controller) MemClockKHz(ctx context.Context) (uint32, error) {
	c.ClockKHz = 0
	seeded := false

	err := c.forEachInterface(ctx, Request{CmdType: CMD_GET_MEM_INFO, Opcode: GET_MEMCLK_FREQ_KHZ, RespWords: 1},
		func(i, j int, inst *ControllerInstance, resp Response) error {
			f := resp.Data[0]
			if j == 0 {
				inst.ClockKHz = f
			}
			if !seeded {
				c.ClockKHz, seeded = f, true
			}
			if f != c.ClockKHz {
				klog.Warningf("iossm.MemClockKHz: IO96B_%d interface %d memclk %d kHz differs from %d kHz", i, j, f, c.ClockKHz)
			}
			return nil
		})
	if err != nil {
		return 0, err
	}
	klog.V(DBG_LVL_BASIC).InfoS("iossm.MemClockKHz", "memclk_khz", c.ClockKHz)
	return c.ClockKHz, nil
}

// SizeBytes converts size units to bytes; one unit is 1 GiB / 8.
func SizeBytes(units uint32) uint64 {
	return uint64(units) * (1 << 30) / 8
}
