// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"
)

// NeedsFullInit decides whether the destructive full memory init has to run.
// Memory content is kept on warm and cold resets unless a double bit error or an
// interrupted DDR init was recorded by an earlier boot attempt.
func NeedsFullInit(ecc bool, f ScratchFlags, hangBeforeReset bool) bool {
	if !ecc {
		return false
	}
	if f.OCRAMDoubleBitError || f.DDRDoubleBitError || hangBeforeReset {
		return true
	}
	return !(f.Reset == WARM_RESET || f.Reset == COLD_RESET)
}

// BISTMemInit runs the full memory initialization BIST on every memory interface.
func (c *Controller) BISTMemInit(ctx context.Context) error {
	for i, inst := range c.Instances {
		for j := range inst.Interfaces {
			if err := c.bistInterface(ctx, i, j, inst); err != nil {
				return err
			}
		}
		klog.V(DBG_LVL_BASIC).InfoS("iossm.BISTMemInit: memory initialized successfully", "io96b", i)
	}
	return nil
}

func (c *Controller) bistInterface(ctx context.Context, i, j int, inst *ControllerInstance) error {
	intf := &inst.Interfaces[j]

	// Start memory initialization BIST on full memory address
	req := Request{CmdType: CMD_TRIG_CONTROLLER_OP, Opcode: BIST_MEM_INIT_START}
	req.Params[0] = BIST_FULL_MEM_RANGE
	resp, err := c.send(ctx, inst, intf, req)
	if err != nil {
		return &InterfaceError{Err: err, Instance: i, Interface: j}
	}
	if resp.Short()&0x1 == 0 {
		code := (resp.Short() >> 1) & 0x3
		klog.ErrorS(ErrInitNotAccepted, "iossm.BISTMemInit: failed to initialize memory", "io96b", i,
			"intf", intf.String(), "error_code", hex(code), "cmd_error", hex(resp.CmdError()))
		return &InterfaceError{Err: ErrInitNotAccepted, Instance: i, Interface: j, Code: code}
	}

	// Poll for the initiated memory initialization BIST status
	var last Response
	err = c.timing.poller().Until(ctx, func() (bool, error) {
		r, err := c.send(ctx, inst, intf, Request{CmdType: CMD_TRIG_CONTROLLER_OP, Opcode: BIST_MEM_INIT_STATUS})
		if err != nil {
			return false, err
		}
		last = r
		return r.Short()&0x1 != 0, nil
	})
	if errors.Is(err, errPollTimeout) {
		code := (last.Short() >> 1) & 0x3
		klog.ErrorS(ErrInitTimeout, "iossm.BISTMemInit: timeout initializing memory", "io96b", i,
			"intf", intf.String(), "error_code", hex(code))
		return &InterfaceError{Err: fmt.Errorf("%w after %s", ErrInitTimeout, c.timing.MailboxTimeout), Instance: i, Interface: j, Code: code}
	}
	if err != nil {
		return &InterfaceError{Err: err, Instance: i, Interface: j}
	}
	return nil
}
