// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// This file implements the boot scratch flags persisted across boot attempts
package iossm

import (
	"fmt"

	"k8s.io/klog/v2"
)

// ResetType : reset classification recorded by the boot firmware
type ResetType uint8

const (
	POR_RESET ResetType = iota
	WARM_RESET
	COLD_RESET
	NCONFIG
	JTAG_CONFIG
	RSU_RECONFIG
)

var resetTypeNames = [...]string{"POR_RESET", "WARM_RESET", "COLD_RESET", "NCONFIG", "JTAG_CONFIG", "RSU_RECONFIG"}

func (r ResetType) String() string {
	if int(r) < len(resetTypeNames) {
		return resetTypeNames[r]
	}
	return fmt.Sprintf("ResetType(%d)", uint8(r))
}

func (r ResetType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseResetType accepts the names returned by String.
func ParseResetType(s string) (ResetType, error) {
	for i, n := range resetTypeNames {
		if n == s {
			return ResetType(i), nil
		}
	}
	return POR_RESET, fmt.Errorf("unknown reset type %q", s)
}

// ScratchFlags is the boot progress record shared with earlier and later boot attempts.
type ScratchFlags struct {
	Reset               ResetType
	InitInProgress      bool // set at entry, cleared on a clean exit
	DDRDoubleBitError   bool
	OCRAMDoubleBitError bool
	AssignedInstances   uint8
}

// ScratchStore loads and persists ScratchFlags.
type ScratchStore interface {
	Load() (ScratchFlags, error)
	Store(f ScratchFlags) error
}

// RegisterScratch keeps the flags in the system manager boot scratch registers.
// The reset type in COLD0 is owned by the boot ROM and never written back.
type RegisterScratch struct {
	bus    Bus
	sysmgr uint64
}

func NewRegisterScratch(bus Bus, sysmgr uint64) *RegisterScratch {
	return &RegisterScratch{bus: bus, sysmgr: sysmgr}
}

func (s *RegisterScratch) Load() (ScratchFlags, error) {
	cold0 := s.bus.Read32(s.sysmgr + SYSMGR_SOC64_BOOT_SCRATCH_COLD0)
	cold8 := s.bus.Read32(s.sysmgr + SYSMGR_SOC64_BOOT_SCRATCH_COLD8)
	klog.V(DBG_LVL_DETAIL).InfoS("RegisterScratch.Load", "cold0", hex(cold0), "cold8", hex(cold8))
	return ScratchFlags{
		Reset:               ResetType(SCRATCH_COLD0_RESET_TYPE.read(cold0)),
		InitInProgress:      SCRATCH_COLD8_DDR_PROGRESS.read(cold8) != 0,
		DDRDoubleBitError:   SCRATCH_COLD8_DDR_DBE.read(cold8) != 0,
		OCRAMDoubleBitError: SCRATCH_COLD8_OCRAM_DBE.read(cold8) != 0,
		AssignedInstances:   uint8(SCRATCH_COLD8_IO96B_HPS_MASK.read(cold8)),
	}, nil
}

func (s *RegisterScratch) Store(f ScratchFlags) error {
	addr := s.sysmgr + SYSMGR_SOC64_BOOT_SCRATCH_COLD8
	reg := s.bus.Read32(addr)
	SCRATCH_COLD8_DDR_PROGRESS.write(&reg, boolToU32(f.InitInProgress))
	SCRATCH_COLD8_DDR_DBE.write(&reg, boolToU32(f.DDRDoubleBitError))
	SCRATCH_COLD8_OCRAM_DBE.write(&reg, boolToU32(f.OCRAMDoubleBitError))
	SCRATCH_COLD8_IO96B_HPS_MASK.write(&reg, uint32(f.AssignedInstances))
	s.bus.Write32(addr, reg)
	klog.V(DBG_LVL_DETAIL).InfoS("RegisterScratch.Store", "cold8", hex(reg))
	return nil
}

// MemScratch is an in-memory ScratchStore.
type MemScratch struct {
	Flags  ScratchFlags
	Stores []ScratchFlags // every stored record, oldest first
}

func (m *MemScratch) Load() (ScratchFlags, error) {
	return m.Flags, nil
}

func (m *MemScratch) Store(f ScratchFlags) error {
	m.Flags = f
	m.Stores = append(m.Stores, f)
	return nil
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
