// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// Discover asks every IO96B instance for its memory interfaces and records their
// IP type and instance ID. Interfaces reporting IP type 0 are not populated and are
// skipped; the rest keep the order the IOSSM reports them in.
func (c *Controller) Discover(ctx context.Context) error {
	for i, inst := range c.Instances {
		klog.V(DBG_LVL_INFO).InfoS("iossm.Discover", "io96b", i, "base", hex(inst.Base))
		intfs, err := c.discoverInstance(ctx, inst)
		if err != nil {
			return fmt.Errorf("get memory interface IO96B_%d: %w", i, err)
		}
		inst.Interfaces = intfs
	}
	return nil
}

func (c *Controller) discoverInstance(ctx context.Context, inst *ControllerInstance) ([]MemoryInterface, error) {
	resp, err := c.send(ctx, inst, nil, Request{
		CmdType:   CMD_GET_SYS_INFO,
		Opcode:    GET_MEM_INTF_INFO,
		RespWords: MAX_MEM_INTERFACE,
	})
	if err != nil {
		return nil, err
	}

	num := int(resp.Short() & 0x3)
	klog.V(DBG_LVL_INFO).InfoS("iossm.Discover", "base", hex(inst.Base), "num_mem_interface", num)

	intfs := make([]MemoryInterface, 0, num)
	for k := 0; k < num && k < resp.Words; k++ {
		ipType := uint8(INTF_IP_TYPE.read(resp.Data[k]))
		if ipType == 0 {
			continue
		}
		m := MemoryInterface{
			ipType:     ipType,
			instanceID: uint8(INTF_INSTANCE_ID.read(resp.Data[k])),
		}
		klog.V(DBG_LVL_INFO).InfoS("iossm.Discover", "base", hex(inst.Base), "mem_interface", len(intfs), "intf", m.String())
		intfs = append(intfs, m)
	}
	return intfs, nil
}
