// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements the IOSSM mailbox command types and opcodes
package iossm

import "fmt"

// CmdType : IOSSM mailbox command type
type CmdType uint8

const (
	CMD_NOP CmdType = iota
	CMD_GET_SYS_INFO
	CMD_GET_MEM_INFO
	CMD_GET_MEM_CAL_INFO
	CMD_TRIG_CONTROLLER_OP
	CMD_TRIG_MEM_CAL_OP
)

var cmdTypeNames = map[CmdType]string{
	CMD_NOP:                "CMD_NOP",
	CMD_GET_SYS_INFO:       "CMD_GET_SYS_INFO",
	CMD_GET_MEM_INFO:       "CMD_GET_MEM_INFO",
	CMD_GET_MEM_CAL_INFO:   "CMD_GET_MEM_CAL_INFO",
	CMD_TRIG_CONTROLLER_OP: "CMD_TRIG_CONTROLLER_OP",
	CMD_TRIG_MEM_CAL_OP:    "CMD_TRIG_MEM_CAL_OP",
}

func (c CmdType) String() string {
	if s, ok := cmdTypeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CmdType(0x%X)", uint8(c))
}

// Opcode : IOSSM mailbox command opcode
type Opcode uint16

const (
	GET_MEM_INTF_INFO   Opcode = 0x0001
	GET_MEM_TECHNOLOGY  Opcode = 0x0002
	GET_MEMCLK_FREQ_KHZ Opcode = 0x0003
	GET_MEM_WIDTH_INFO  Opcode = 0x0004

	ECC_ENABLE_SET       Opcode = 0x0101
	ECC_ENABLE_STATUS    Opcode = 0x0102
	ECC_INTERRUPT_STATUS Opcode = 0x0103
	ECC_INTERRUPT_ACK    Opcode = 0x0104
	ECC_INTERRUPT_MASK   Opcode = 0x0105
	ECC_WRITEBACK_ENABLE Opcode = 0x0106

	ECC_SCRUB_IN_PROGRESS_STATUS Opcode = 0x0201
	ECC_SCRUB_MODE_0_START       Opcode = 0x0202
	ECC_SCRUB_MODE_1_START       Opcode = 0x0203

	BIST_STANDARD_MODE_START    Opcode = 0x0301
	BIST_RESULTS_STATUS         Opcode = 0x0302
	BIST_MEM_INIT_START         Opcode = 0x0303
	BIST_MEM_INIT_STATUS        Opcode = 0x0304
	BIST_SET_DATA_PATTERN_UPPER Opcode = 0x0305
	BIST_SET_DATA_PATTERN_LOWER Opcode = 0x0306

	TRIG_MEM_CAL       Opcode = 0x000A
	GET_MEM_CAL_STATUS Opcode = 0x000B
)

var opcodeNames = map[Opcode]string{
	GET_MEM_INTF_INFO:            "GET_MEM_INTF_INFO",
	GET_MEM_TECHNOLOGY:           "GET_MEM_TECHNOLOGY",
	GET_MEMCLK_FREQ_KHZ:          "GET_MEMCLK_FREQ_KHZ",
	GET_MEM_WIDTH_INFO:           "GET_MEM_WIDTH_INFO",
	ECC_ENABLE_SET:               "ECC_ENABLE_SET",
	ECC_ENABLE_STATUS:            "ECC_ENABLE_STATUS",
	ECC_INTERRUPT_STATUS:         "ECC_INTERRUPT_STATUS",
	ECC_INTERRUPT_ACK:            "ECC_INTERRUPT_ACK",
	ECC_INTERRUPT_MASK:           "ECC_INTERRUPT_MASK",
	ECC_WRITEBACK_ENABLE:         "ECC_WRITEBACK_ENABLE",
	ECC_SCRUB_IN_PROGRESS_STATUS: "ECC_SCRUB_IN_PROGRESS_STATUS",
	ECC_SCRUB_MODE_0_START:       "ECC_SCRUB_MODE_0_START",
	ECC_SCRUB_MODE_1_START:       "ECC_SCRUB_MODE_1_START",
	BIST_STANDARD_MODE_START:     "BIST_STANDARD_MODE_START",
	BIST_RESULTS_STATUS:          "BIST_RESULTS_STATUS",
	BIST_MEM_INIT_START:          "BIST_MEM_INIT_START",
	BIST_MEM_INIT_STATUS:         "BIST_MEM_INIT_STATUS",
	BIST_SET_DATA_PATTERN_UPPER:  "BIST_SET_DATA_PATTERN_UPPER",
	BIST_SET_DATA_PATTERN_LOWER:  "BIST_SET_DATA_PATTERN_LOWER",
	TRIG_MEM_CAL:                 "TRIG_MEM_CAL",
	GET_MEM_CAL_STATUS:           "GET_MEM_CAL_STATUS",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(0x%X)", uint16(o))
}

// Full address range parameter for BIST_MEM_INIT_START
const BIST_FULL_MEM_RANGE = 0x40

// Technology : memory technology reported by GET_MEM_TECHNOLOGY
type Technology uint8

const (
	DDR4 Technology = iota
	DDR5
	DDR5_RDIMM
	LPDDR4
	LPDDR5
	QDRIV
	UNKNOWN
)

// supported DDR type list
var ddrTypeList = [...]string{
	"DDR4", "DDR5", "DDR5_RDIMM", "LPDDR4", "LPDDR5", "QDRIV", "UNKNOWN",
}

// TechnologyFromCode maps the 3-bit technology code; codes past QDRIV are UNKNOWN.
func TechnologyFromCode(code uint32) Technology {
	code &= 0x7
	if code >= uint32(UNKNOWN) {
		return UNKNOWN
	}
	return Technology(code)
}

func (t Technology) String() string {
	if int(t) < len(ddrTypeList) {
		return ddrTypeList[t]
	}
	return "UNKNOWN"
}

func (t Technology) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
