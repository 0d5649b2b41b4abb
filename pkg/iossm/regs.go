// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements the IOSSM and system manager register layout
package iossm

const (
	DBG_LVL_DEFAULT     = iota //0
	DBG_LVL_BASIC              //1
	DBG_LVL_INFO               //2
	DBG_LVL_DETAIL             //3
	DBG_LVL_DEEP_DETAIL        //4
)

//go:generate mockgen -destination mock_bus_test.go -package iossm_test github.com/Seagate/iossm-lib/pkg/iossm Bus

// Bus is the register accessor used by every component of the library.
// Addresses are absolute physical addresses.
type Bus interface {
	Read32(addr uint64) uint32
	Write32(addr uint64, val uint32)
}

// IOSSM CSR offsets, relative to the base address of one IO96B instance
const (
	IOSSM_STATUS_OFFSET              = 0x400 // calibration status (R)
	IOSSM_CMD_PARAM_0_OFFSET         = 0x438 // command parameter 0 (W)
	IOSSM_CMD_PARAM_1_OFFSET         = 0x434
	IOSSM_CMD_PARAM_2_OFFSET         = 0x430
	IOSSM_CMD_PARAM_3_OFFSET         = 0x42C
	IOSSM_CMD_PARAM_4_OFFSET         = 0x428
	IOSSM_CMD_PARAM_5_OFFSET         = 0x424
	IOSSM_CMD_PARAM_6_OFFSET         = 0x420
	IOSSM_CMD_REQ_OFFSET             = 0x43C // command request word (RW, cleared by the IOSSM)
	IOSSM_CMD_RESPONSE_DATA_0_OFFSET = 0x458
	IOSSM_CMD_RESPONSE_DATA_1_OFFSET = 0x454
	IOSSM_CMD_RESPONSE_DATA_2_OFFSET = 0x450
	IOSSM_CMD_RESPONSE_STATUS_OFFSET = 0x45C // response status (RW)
)

const NUM_CMD_PARAM = 7
const NUM_CMD_RESPONSE_DATA = 3

// Parameter and response data registers in wire order.
var (
	CMD_PARAM_OFFSETS = [NUM_CMD_PARAM]uint64{
		IOSSM_CMD_PARAM_0_OFFSET,
		IOSSM_CMD_PARAM_1_OFFSET,
		IOSSM_CMD_PARAM_2_OFFSET,
		IOSSM_CMD_PARAM_3_OFFSET,
		IOSSM_CMD_PARAM_4_OFFSET,
		IOSSM_CMD_PARAM_5_OFFSET,
		IOSSM_CMD_PARAM_6_OFFSET,
	}
	CMD_RESPONSE_DATA_OFFSETS = [NUM_CMD_RESPONSE_DATA]uint64{
		IOSSM_CMD_RESPONSE_DATA_0_OFFSET,
		IOSSM_CMD_RESPONSE_DATA_1_OFFSET,
		IOSSM_CMD_RESPONSE_DATA_2_OFFSET,
	}
)

// IOSSM_STATUS bits
const (
	IOSSM_STATUS_CAL_SUCCESS = 1 << 0
	IOSSM_STATUS_CAL_FAIL    = 1 << 1
	IOSSM_STATUS_CAL_BUSY    = 1 << 2
)

// Per interface calibration status byte value reported at the runtime offset
const INTF_MEM_CAL_STATUS_SUCCESS = 0x1

// System manager registers consumed by the DDR init flow, relative to the system manager base
const (
	SOCFPGA_SYSMGR_ADDRESS          = 0x10D12000
	SYSMGR_ECC_INTSTATUS_SERR       = 0x9C  // clkgen A lock status
	SYSMGR_ECC_INTSTATUS_DERR       = 0xA0  // clkgen B lock status
	SYSMGR_HMC_CLK                  = 0xB4  // NOC PLL lock
	SYSMGR_SOC64_BOOT_SCRATCH_COLD0 = 0x200 // reset type
	SYSMGR_SOC64_BOOT_SCRATCH_COLD8 = 0x220 // DDR progress and DBE flags
)

const (
	DDR_CSR_CLKGEN_LOCKED_IO96B0_MASK = 1 << 16
	DDR_CSR_CLKGEN_LOCKED_IO96B1_MASK = 1 << 17
	SYSMGR_HMC_CLK_NOCPLL             = 1 << 8
)

// F2SDRAM sideband manager registers, relative to the F2SDRAM manager base
const (
	SOCFPGA_F2SDRAM_MGR_ADDRESS     = 0x18001000
	F2SDRAM_SIDEBAND_FLAGOUTSET0    = 0x50
	F2SDRAM_SIDEBAND_FLAGOUTSTATUS0 = 0x58

	SIDEBANDMGR_FLAGOUTSET0_MULTICHANNEL = 1 << 4
	SIDEBANDMGR_FLAGOUTSET0_INTERLEAVING = 1 << 5
)

// PLL selection mask, two PLLs on each of the two IO96B instances
const (
	IO96B0_PLL_A = 1 << 0
	IO96B0_PLL_B = 1 << 1
	IO96B1_PLL_A = 1 << 2
	IO96B1_PLL_B = 1 << 3
)

type u32field struct {
	offset   int
	bitwidth int
}

func (u u32field) mask() uint32 {
	return (1<<u.bitwidth - 1) << u.offset
}

func (u u32field) read(reg uint32) uint32 {
	return (reg >> u.offset) & (1<<u.bitwidth - 1)
}

func (u u32field) write(reg *uint32, val uint32) {
	*reg = (*reg &^ u.mask()) | ((val << u.offset) & u.mask())
}

var (
	CMD_REQ_OPCODE      = u32field{offset: 0, bitwidth: 16}
	CMD_REQ_CMD_TYPE    = u32field{offset: 16, bitwidth: 8}
	CMD_REQ_INSTANCE_ID = u32field{offset: 24, bitwidth: 5}
	CMD_REQ_IP_TYPE     = u32field{offset: 29, bitwidth: 3}

	CMD_RESPONSE_STATUS_READY         = u32field{offset: 0, bitwidth: 1}
	CMD_RESPONSE_STATUS_GENERAL_ERROR = u32field{offset: 1, bitwidth: 4}
	CMD_RESPONSE_STATUS_CMD_ERROR     = u32field{offset: 5, bitwidth: 3}
	CMD_RESPONSE_STATUS_DATA_SHORT    = u32field{offset: 16, bitwidth: 16}

	// GET_MEM_INTF_INFO response words
	INTF_IP_TYPE     = u32field{offset: 29, bitwidth: 3}
	INTF_INSTANCE_ID = u32field{offset: 24, bitwidth: 5}

	SCRATCH_COLD0_RESET_TYPE     = u32field{offset: 29, bitwidth: 3}
	SCRATCH_COLD8_DDR_DBE        = u32field{offset: 31, bitwidth: 1}
	SCRATCH_COLD8_OCRAM_DBE      = u32field{offset: 30, bitwidth: 1}
	SCRATCH_COLD8_DDR_PROGRESS   = u32field{offset: 29, bitwidth: 1}
	SCRATCH_COLD8_IO96B_HPS_MASK = u32field{offset: 27, bitwidth: 2}
)

// EncodeRequest composes the CMD_REQ word.
func EncodeRequest(ipType, instanceID uint8, cmdType CmdType, opcode Opcode) uint32 {
	var w uint32
	CMD_REQ_OPCODE.write(&w, uint32(opcode))
	CMD_REQ_CMD_TYPE.write(&w, uint32(cmdType))
	CMD_REQ_INSTANCE_ID.write(&w, uint32(instanceID))
	CMD_REQ_IP_TYPE.write(&w, uint32(ipType))
	return w
}

// DecodeRequest splits a CMD_REQ word into its fields.
func DecodeRequest(w uint32) (ipType, instanceID uint8, cmdType CmdType, opcode Opcode) {
	return uint8(CMD_REQ_IP_TYPE.read(w)), uint8(CMD_REQ_INSTANCE_ID.read(w)),
		CmdType(CMD_REQ_CMD_TYPE.read(w)), Opcode(CMD_REQ_OPCODE.read(w))
}

// EncodeInterfaceInfo packs an interface identifier the way GET_MEM_INTF_INFO reports it.
func EncodeInterfaceInfo(ipType, instanceID uint8) uint32 {
	var w uint32
	INTF_IP_TYPE.write(&w, uint32(ipType))
	INTF_INSTANCE_ID.write(&w, uint32(instanceID))
	return w
}

// EncodeResponseStatus builds a CMD_RESPONSE_STATUS word, used by register models.
func EncodeResponseStatus(ready bool, generalErr, cmdErr uint8, short uint16) uint32 {
	var w uint32
	if ready {
		CMD_RESPONSE_STATUS_READY.write(&w, 1)
	}
	CMD_RESPONSE_STATUS_GENERAL_ERROR.write(&w, uint32(generalErr))
	CMD_RESPONSE_STATUS_CMD_ERROR.write(&w, uint32(cmdErr))
	CMD_RESPONSE_STATUS_DATA_SHORT.write(&w, uint32(short))
	return w
}

func setBits(bus Bus, addr uint64, mask uint32) {
	bus.Write32(addr, bus.Read32(addr)|mask)
}

func clrBits(bus Bus, addr uint64, mask uint32) {
	bus.Write32(addr, bus.Read32(addr)&^mask)
}

// read8 reads one byte through the aligned 32-bit word containing it.
func read8(bus Bus, addr uint64) uint8 {
	w := bus.Read32(addr &^ 0x3)
	return uint8(w >> (8 * (addr & 0x3)))
}
