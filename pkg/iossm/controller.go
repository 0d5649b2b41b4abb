// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements the IO96B controller model shared by the DDR init steps
package iossm

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"
)

const MAX_IO96B_SUPPORTED = 2
const MAX_MEM_INTERFACE = 2

// MemoryInterface is one memory interface served by an IO96B instance.
// Its IP type / instance ID pair addresses every request targeting the interface.
type MemoryInterface struct {
	ipType     uint8
	instanceID uint8

	CalStatusOffset uint32 // runtime offset of the calibration status byte
	Recovered       bool   // passed calibration during the retry protocol
	Triggers        int    // TRIG_MEM_CAL commands issued
}

func (m *MemoryInterface) IPType() uint8     { return m.ipType }
func (m *MemoryInterface) InstanceID() uint8 { return m.instanceID }

func (m *MemoryInterface) String() string {
	return fmt.Sprintf("ip_type 0x%X instance_id 0x%X", m.ipType, m.instanceID)
}

// CalState : calibration state of an IO96B instance
type CalState int

const (
	CalUnknown CalState = iota
	CalChecking
	CalPassed
	CalFailed
	CalRecalibrating
	CalRecalFailed
)

var calStateNames = [...]string{"Unknown", "Checking", "Passed", "Failed", "Recalibrating", "RecalFailed"}

func (s CalState) String() string {
	if int(s) < len(calStateNames) {
		return calStateNames[s]
	}
	return fmt.Sprintf("CalState(%d)", int(s))
}

var calTransitions = map[CalState][]CalState{
	CalUnknown:       {CalChecking},
	CalChecking:      {CalPassed, CalFailed},
	CalPassed:        {CalChecking, CalFailed},
	CalFailed:        {CalChecking, CalRecalibrating},
	CalRecalibrating: {CalPassed, CalRecalFailed},
}

// ControllerInstance is one IO96B hard IP block.
type ControllerInstance struct {
	Base       uint64
	Interfaces []MemoryInterface
	State      CalState
	Size       uint16 // sum of the interface size units
	ClockKHz   uint32 // memory clock of the first interface
}

func (c *ControllerInstance) CalPassed() bool {
	return c.State == CalPassed
}

func (c *ControllerInstance) setState(to CalState) error {
	for _, next := range calTransitions[c.State] {
		if next == to {
			klog.V(DBG_LVL_INFO).InfoS("iossm.setState", "base", hex(c.Base), "from", c.State, "to", to)
			c.State = to
			return nil
		}
	}
	return fmt.Errorf("%w: IO96B 0x%X %s -> %s", ErrInvalidTransition, c.Base, c.State, to)
}

// Timing holds the polling bounds used by the controller.
type Timing struct {
	PollInterval       time.Duration
	MailboxTimeout     time.Duration
	CalibrationTimeout time.Duration
	Clock              Clock
}

func DefaultTiming() Timing {
	return Timing{
		PollInterval:       DEFAULT_POLL_INTERVAL,
		MailboxTimeout:     TIMEOUT,
		CalibrationTimeout: TIMEOUT_CAL,
	}
}

func (t Timing) poller() Poller {
	return Poller{Interval: t.PollInterval, Timeout: t.MailboxTimeout, Clock: t.Clock}
}

// Controller drives all IO96B instances assigned to the HPS for one boot attempt.
type Controller struct {
	bus       Bus
	mb        *Mailbox
	timing    Timing
	sysmgr    uint64
	f2sdram   uint64
	handoff   Handoff
	Instances []*ControllerInstance

	Technology  Technology
	OverallSize uint32
	ECC         bool
	ClockKHz    uint32
}

type Option func(*Controller)

func WithTiming(t Timing) Option {
	return func(c *Controller) { c.timing = t }
}

func WithTracer(t Tracer) Option {
	return func(c *Controller) { c.mb.SetTracer(t) }
}

func WithSysmgrBase(addr uint64) Option {
	return func(c *Controller) { c.sysmgr = addr }
}

// NewController creates the instance list from the handoff's IO96B addresses.
func NewController(bus Bus, h Handoff, opts ...Option) (*Controller, error) {
	if len(h.Instances) == 0 || len(h.Instances) > MAX_IO96B_SUPPORTED {
		return nil, fmt.Errorf("iossm: %d IO96B instances, expect 1..%d", len(h.Instances), MAX_IO96B_SUPPORTED)
	}
	c := &Controller{
		bus:        bus,
		timing:     DefaultTiming(),
		sysmgr:     SOCFPGA_SYSMGR_ADDRESS,
		f2sdram:    SOCFPGA_F2SDRAM_MGR_ADDRESS,
		handoff:    h,
		Technology: UNKNOWN,
	}
	if h.SysmgrBase != 0 {
		c.sysmgr = h.SysmgrBase
	}
	if h.F2SDRAMBase != 0 {
		c.f2sdram = h.F2SDRAMBase
	}
	c.mb = NewMailbox(bus, c.timing.poller())
	for _, o := range opts {
		o(c)
	}
	c.mb.poller = c.timing.poller()
	for _, addr := range h.Instances {
		c.Instances = append(c.Instances, &ControllerInstance{Base: addr})
	}
	klog.V(DBG_LVL_BASIC).InfoS("iossm.NewController", "num_instance", len(c.Instances), "sysmgr", hex(c.sysmgr))
	return c, nil
}

func (c *Controller) Mailbox() *Mailbox {
	return c.mb
}

func (c *Controller) send(ctx context.Context, inst *ControllerInstance, intf *MemoryInterface, req Request) (Response, error) {
	if intf != nil {
		req.IPType = intf.ipType
		req.InstanceID = intf.instanceID
	}
	return c.mb.Send(ctx, inst.Base, req)
}
