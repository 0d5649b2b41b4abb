// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm_test

import (
	"testing"
	"time"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/Seagate/iossm-lib/pkg/iossm/sim"
	"github.com/stretchr/testify/require"
)

const (
	io96b0Base = 0x18400000
	io96b1Base = 0x18800000
	sysmgr     = iossm.SOCFPGA_SYSMGR_ADDRESS
)

// fastTiming bounds every poll to a few virtual milliseconds.
func fastTiming() iossm.Timing {
	return iossm.Timing{
		PollInterval:       time.Millisecond,
		MailboxTimeout:     50 * time.Millisecond,
		CalibrationTimeout: 100 * time.Millisecond,
		Clock:              sim.NewClock(),
	}
}

func ddrInterface(ipType, id uint8, tech, width uint8) *sim.Interface {
	return &sim.Interface{
		IPType:          ipType,
		InstanceID:      id,
		Technology:      tech,
		Width:           width,
		ECC:             0x1,
		ClockKHz:        1066000,
		CalStatusOffset: 0x500 + uint32(id)*4,
	}
}

func simHandoff(m *sim.Model) iossm.Handoff {
	h := iossm.Handoff{SysmgrBase: m.Sysmgr(), F2SDRAMBase: m.F2SDRAM()}
	for _, inst := range m.Instances() {
		h.Instances = append(h.Instances, inst.Base)
	}
	return h
}

func newSimController(t *testing.T, m *sim.Model, opts ...iossm.Option) *iossm.Controller {
	t.Helper()
	opts = append([]iossm.Option{iossm.WithTiming(fastTiming())}, opts...)
	c, err := iossm.NewController(m, simHandoff(m), opts...)
	require.NoError(t, err)
	return c
}

// countRequests counts the mailbox commands an instance received with the given opcode.
func countRequests(inst *sim.Instance, op iossm.Opcode) int {
	n := 0
	for _, r := range inst.Requests {
		if r.Opcode == op {
			n++
		}
	}
	return n
}
