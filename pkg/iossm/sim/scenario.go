// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package sim

import (
	"fmt"
	"os"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"gopkg.in/yaml.v3"
)

// Scenario describes a simulated board: the IO96B instances, the PLL state and
// the scratch flags left behind by the previous boot attempt.
type Scenario struct {
	Sysmgr     uint64      `yaml:"sysmgr"`
	F2SDRAM    uint64      `yaml:"f2sdram"`
	Reset      string      `yaml:"reset"`
	PLLLocked  bool        `yaml:"pll_locked"`
	CheckPLL   bool        `yaml:"check_pll"`
	PLLMask    uint8       `yaml:"pll_mask"`
	CheckNOC   bool        `yaml:"check_noc_pll"`
	DTRAMSize  uint64      `yaml:"dt_ram_size"`
	Interleave bool        `yaml:"interleaving"`
	MPFEStuck  uint32      `yaml:"mpfe_stuck"`
	InProgress bool        `yaml:"init_in_progress"`
	DDRDBE     bool        `yaml:"ddr_dbe"`
	OCRAMDBE   bool        `yaml:"ocram_dbe"`
	Instances  []*Instance `yaml:"instances"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(b)
}

func ParseScenario(b []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if s.Sysmgr == 0 {
		s.Sysmgr = iossm.SOCFPGA_SYSMGR_ADDRESS
	}
	if s.F2SDRAM == 0 {
		s.F2SDRAM = iossm.SOCFPGA_F2SDRAM_MGR_ADDRESS
	}
	if s.Reset == "" {
		s.Reset = iossm.POR_RESET.String()
	}
	if len(s.Instances) == 0 {
		return nil, fmt.Errorf("scenario: no IO96B instance")
	}
	return s, nil
}

// Build creates the register model and the matching handoff.
func (s *Scenario) Build() (*Model, iossm.Handoff, error) {
	reset, err := iossm.ParseResetType(s.Reset)
	if err != nil {
		return nil, iossm.Handoff{}, err
	}
	m := NewModel(s.Sysmgr, s.Instances...)
	m.SetF2SDRAM(s.F2SDRAM)
	m.MPFEStuck = s.MPFEStuck
	m.SetPLLLocked(s.PLLLocked)
	m.SetScratch(iossm.ScratchFlags{
		Reset:               reset,
		InitInProgress:      s.InProgress,
		DDRDoubleBitError:   s.DDRDBE,
		OCRAMDoubleBitError: s.OCRAMDBE,
	})

	h := iossm.Handoff{
		CheckPLL:     s.CheckPLL,
		PLLMask:      s.PLLMask,
		CheckNOCPLL:  s.CheckNOC,
		SysmgrBase:   s.Sysmgr,
		F2SDRAMBase:  s.F2SDRAM,
		DTRAMSize:    s.DTRAMSize,
		Interleaving: s.Interleave,
	}
	for _, inst := range s.Instances {
		h.Instances = append(h.Instances, inst.Base)
	}
	return m, h, nil
}
