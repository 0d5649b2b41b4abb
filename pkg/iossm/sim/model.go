// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// Package sim models IOSSM hard IP blocks and the system manager registers at
// register level. A Model is an iossm.Bus.
package sim

import (
	"sync"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"k8s.io/klog/v2"
)

// Calibration results reported in IOSSM_STATUS
const (
	CalBusy     = "busy"
	CalPass     = "pass"
	CalFail     = "fail"
	CalConflict = "conflict" // success and fail both set
)

// Per interface calibration status byte values
const (
	IntfCalSuccess = iossm.INTF_MEM_CAL_STATUS_SUCCESS
	IntfCalFail    = 0x2
)

// Interface is one simulated memory interface.
type Interface struct {
	IPType          uint8  `yaml:"ip_type"`
	InstanceID      uint8  `yaml:"instance_id"`
	Technology      uint8  `yaml:"technology"`
	Width           uint8  `yaml:"width"`
	ECC             uint8  `yaml:"ecc"`
	ClockKHz        uint32 `yaml:"clock_khz"`
	CalStatusOffset uint32 `yaml:"cal_status_offset"`
	CalSuccessAfter int    `yaml:"cal_success_after"` // triggers needed before success; negative never succeeds
	BISTReject      bool   `yaml:"bist_reject"`
	BISTErrorCode   uint8  `yaml:"bist_error_code"`
	BISTPolls       int    `yaml:"bist_polls"` // status polls before completion; negative never completes

	Triggers   int `yaml:"-"`
	BISTStarts int `yaml:"-"`
	bistPolled int
	bistParam  uint32
}

func (intf *Interface) calStatus() uint32 {
	if intf.CalSuccessAfter >= 0 && intf.Triggers >= intf.CalSuccessAfter {
		return IntfCalSuccess
	}
	return IntfCalFail
}

// Instance is one simulated IO96B.
type Instance struct {
	Base       uint64       `yaml:"base"`
	Cal        string       `yaml:"cal"`
	Interfaces []*Interface `yaml:"interfaces"`

	StuckRequest bool `yaml:"stuck_request"` // CMD_REQ is never consumed
	NoResponse   bool `yaml:"no_response"`   // CMD_RESPONSE_READY is never set

	params   [iossm.NUM_CMD_PARAM]uint32
	regs     map[uint64]uint32
	Requests []iossm.Request `yaml:"-"`
}

// Access is one register access seen by the model.
type Access struct {
	Write bool
	Addr  uint64
	Val   uint32
}

// Model is a register map containing the system manager and the IO96B instances.
type Model struct {
	mu        sync.Mutex
	sysmgr    uint64
	f2sdram   uint64
	mem       map[uint64]uint32
	instances []*Instance
	Log       []Access

	// MPFEStuck holds FLAGOUTSET0 bits that never show up in FLAGOUTSTATUS0.
	MPFEStuck uint32
}

// NewModel creates a model with the system manager at sysmgr and the F2SDRAM
// manager at its default address.
func NewModel(sysmgr uint64, instances ...*Instance) *Model {
	m := &Model{sysmgr: sysmgr, f2sdram: iossm.SOCFPGA_F2SDRAM_MGR_ADDRESS, mem: map[uint64]uint32{}, instances: instances}
	for _, inst := range instances {
		inst.regs = map[uint64]uint32{}
	}
	return m
}

func (m *Model) Instances() []*Instance {
	return m.instances
}

func (m *Model) instanceFor(addr uint64) (*Instance, uint64) {
	for _, inst := range m.instances {
		if addr >= inst.Base && addr < inst.Base+0x1000 {
			return inst, addr - inst.Base
		}
	}
	return nil, 0
}

// Poke sets a register without logging the access or executing a command.
func (m *Model) Poke(addr uint64, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ofs := m.instanceFor(addr); inst != nil {
		inst.regs[ofs] = val
		return
	}
	m.mem[addr] = val
}

// SetPLLLocked sets or clears every clkgen and NOC PLL lock bit.
func (m *Model) SetPLLLocked(locked bool) {
	var v uint32
	if locked {
		v = iossm.DDR_CSR_CLKGEN_LOCKED_IO96B0_MASK | iossm.DDR_CSR_CLKGEN_LOCKED_IO96B1_MASK
	}
	m.Poke(m.sysmgr+iossm.SYSMGR_ECC_INTSTATUS_SERR, v)
	m.Poke(m.sysmgr+iossm.SYSMGR_ECC_INTSTATUS_DERR, v)
	if locked {
		m.Poke(m.sysmgr+iossm.SYSMGR_HMC_CLK, iossm.SYSMGR_HMC_CLK_NOCPLL)
	} else {
		m.Poke(m.sysmgr+iossm.SYSMGR_HMC_CLK, 0)
	}
}

// SetScratch writes the boot scratch registers as an earlier boot stage would.
func (m *Model) SetScratch(f iossm.ScratchFlags) {
	m.Poke(m.sysmgr+iossm.SYSMGR_SOC64_BOOT_SCRATCH_COLD0, uint32(f.Reset)<<29)
	var cold8 uint32
	if f.DDRDoubleBitError {
		cold8 |= 1 << 31
	}
	if f.OCRAMDoubleBitError {
		cold8 |= 1 << 30
	}
	if f.InitInProgress {
		cold8 |= 1 << 29
	}
	cold8 |= uint32(f.AssignedInstances&0x3) << 27
	m.Poke(m.sysmgr+iossm.SYSMGR_SOC64_BOOT_SCRATCH_COLD8, cold8)
}

// F2SDRAM returns the F2SDRAM manager base address.
func (m *Model) F2SDRAM() uint64 {
	return m.f2sdram
}

func (m *Model) SetF2SDRAM(base uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.f2sdram = base
}

// Sysmgr returns the system manager base address.
func (m *Model) Sysmgr() uint64 {
	return m.sysmgr
}

// Peek reads a register without logging the access.
func (m *Model) Peek(addr uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ofs := m.instanceFor(addr); inst != nil {
		return inst.read(ofs)
	}
	return m.mem[addr]
}

func (m *Model) Read32(addr uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var v uint32
	if inst, ofs := m.instanceFor(addr); inst != nil {
		v = inst.read(ofs)
	} else {
		v = m.mem[addr]
	}
	m.Log = append(m.Log, Access{Addr: addr, Val: v})
	return v
}

func (m *Model) Write32(addr uint64, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Log = append(m.Log, Access{Write: true, Addr: addr, Val: val})
	if inst, ofs := m.instanceFor(addr); inst != nil {
		inst.write(ofs, val)
		return
	}
	m.mem[addr] = val
	if addr == m.f2sdram+iossm.F2SDRAM_SIDEBAND_FLAGOUTSET0 {
		m.mem[m.f2sdram+iossm.F2SDRAM_SIDEBAND_FLAGOUTSTATUS0] |= val &^ m.MPFEStuck
	}
}

func (inst *Instance) read(ofs uint64) uint32 {
	if ofs == iossm.IOSSM_STATUS_OFFSET {
		switch inst.Cal {
		case CalPass:
			return iossm.IOSSM_STATUS_CAL_SUCCESS
		case CalFail:
			return iossm.IOSSM_STATUS_CAL_FAIL
		case CalConflict:
			return iossm.IOSSM_STATUS_CAL_SUCCESS | iossm.IOSSM_STATUS_CAL_FAIL
		default:
			return iossm.IOSSM_STATUS_CAL_BUSY
		}
	}
	for _, intf := range inst.Interfaces {
		if intf.CalStatusOffset != 0 && ofs == uint64(intf.CalStatusOffset&^0x3) {
			return intf.calStatus() << (8 * (intf.CalStatusOffset & 0x3))
		}
	}
	return inst.regs[ofs]
}

func (inst *Instance) write(ofs uint64, val uint32) {
	for i, p := range iossm.CMD_PARAM_OFFSETS {
		if ofs == p {
			inst.params[i] = val
			return
		}
	}
	inst.regs[ofs] = val
	if ofs == iossm.IOSSM_CMD_REQ_OFFSET && val != 0 {
		inst.execute(val)
	}
}

func (inst *Instance) findInterface(ipType, id uint8) *Interface {
	for _, intf := range inst.Interfaces {
		if intf.IPType == ipType && intf.InstanceID == id {
			return intf
		}
	}
	return nil
}

// execute consumes a CMD_REQ word and posts the response.
func (inst *Instance) execute(word uint32) {
	ipType, id, cmdType, opcode := iossm.DecodeRequest(word)
	req := iossm.Request{IPType: ipType, InstanceID: id, CmdType: cmdType, Opcode: opcode, Params: inst.params}
	inst.Requests = append(inst.Requests, req)
	inst.params = [iossm.NUM_CMD_PARAM]uint32{}
	klog.V(iossm.DBG_LVL_DEEP_DETAIL).InfoS("sim.execute", "base", inst.Base, "cmd", cmdType, "opcode", opcode)

	if inst.StuckRequest {
		return
	}
	inst.regs[iossm.IOSSM_CMD_REQ_OFFSET] = 0
	if inst.NoResponse {
		return
	}

	var short uint16
	var cmdErr uint8
	var data [iossm.NUM_CMD_RESPONSE_DATA]uint32

	intf := inst.findInterface(ipType, id)
	switch {
	case ipType == 0 && opcode == iossm.GET_MEM_INTF_INFO:
		short = uint16(len(inst.Interfaces) & 0x3)
		for k, it := range inst.Interfaces {
			if k < len(data) {
				data[k] = iossm.EncodeInterfaceInfo(it.IPType, it.InstanceID)
			}
		}
	case ipType == 0 && opcode == iossm.GET_MEM_CAL_STATUS:
		for k, it := range inst.Interfaces {
			if k < len(data) {
				data[k] = it.CalStatusOffset
			}
		}
	case intf == nil:
		cmdErr = 0x1
	case opcode == iossm.TRIG_MEM_CAL:
		intf.Triggers++
		short = 0x1
	case opcode == iossm.GET_MEM_TECHNOLOGY:
		short = uint16(intf.Technology & 0x7)
	case opcode == iossm.GET_MEM_WIDTH_INFO:
		data[1] = uint32(intf.Width)
	case opcode == iossm.GET_MEMCLK_FREQ_KHZ:
		data[0] = intf.ClockKHz
	case opcode == iossm.ECC_ENABLE_STATUS:
		short = uint16(intf.ECC & 0x3)
	case opcode == iossm.BIST_MEM_INIT_START:
		intf.BISTStarts++
		intf.bistPolled = 0
		intf.bistParam = req.Params[0]
		if intf.BISTReject {
			short = uint16(intf.BISTErrorCode&0x3) << 1
		} else {
			short = 0x1
		}
	case opcode == iossm.BIST_MEM_INIT_STATUS:
		intf.bistPolled++
		if intf.BISTPolls >= 0 && intf.bistPolled > intf.BISTPolls {
			short = 0x1
		}
	default:
		cmdErr = 0x2
	}

	for k, d := range data {
		inst.regs[iossm.CMD_RESPONSE_DATA_OFFSETS[k]] = d
	}
	inst.regs[iossm.IOSSM_CMD_RESPONSE_STATUS_OFFSET] = iossm.EncodeResponseStatus(true, 0, cmdErr, short)
}

// BISTParam returns the address range parameter of the last BIST_MEM_INIT_START.
func (intf *Interface) BISTParam() uint32 {
	return intf.bistParam
}
