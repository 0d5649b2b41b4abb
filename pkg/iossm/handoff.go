// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// Handoff is the platform input consumed by the DDR init flow: which IO96B
// instances are assigned to the HPS and how they are to be brought up.
type Handoff struct {
	Instances    []uint64 `yaml:"instances"`     // IO96B CSR base addresses, in order
	CheckPLL     bool     `yaml:"check_pll"`     // poll the IO96B clkgen lock bits first
	PLLMask      uint8    `yaml:"pll_mask"`      // IO96Bx_PLL_y selection
	CheckNOCPLL  bool     `yaml:"check_noc_pll"` // wait for the NOC PLL before the mailbox is used
	SysmgrBase   uint64   `yaml:"sysmgr_base"`
	F2SDRAMBase  uint64   `yaml:"f2sdram_base"`
	DTRAMSize    uint64   `yaml:"dt_ram_size"`  // bytes, 0 skips the size check
	Interleaving bool     `yaml:"interleaving"` // MPFE interleaving, multichannel otherwise
}

// LoadHandoff reads a handoff description from a YAML file.
func LoadHandoff(path string) (Handoff, error) {
	var h Handoff
	b, err := os.ReadFile(path)
	if err != nil {
		return h, err
	}
	if err := yaml.Unmarshal(b, &h); err != nil {
		return h, fmt.Errorf("handoff %s: %w", path, err)
	}
	if h.SysmgrBase == 0 {
		h.SysmgrBase = SOCFPGA_SYSMGR_ADDRESS
	}
	if h.F2SDRAMBase == 0 {
		h.F2SDRAMBase = SOCFPGA_F2SDRAM_MGR_ADDRESS
	}
	klog.V(DBG_LVL_INFO).InfoS("iossm.LoadHandoff", "path", path, "handoff", h)
	return h, nil
}
