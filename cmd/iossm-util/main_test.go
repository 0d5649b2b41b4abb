// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/Seagate/iossm-lib/pkg/iossm/sim"
	"github.com/Seagate/iossm-lib/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simTiming() iossm.Timing {
	t := iossm.DefaultTiming()
	t.PollInterval = time.Millisecond
	t.Clock = sim.NewClock()
	return t
}

func loadScenario(t *testing.T, name string) (*sim.Model, iossm.Handoff) {
	t.Helper()
	s, err := sim.LoadScenario(filepath.Join("testdata", name))
	require.NoError(t, err)
	m, h, err := s.Build()
	require.NoError(t, err)
	return m, h
}

func TestRunInit(t *testing.T) {
	settings.Record = filepath.Join(t.TempDir(), "run.sqlite3")
	defer func() { settings.Record = "" }()

	m, h := loadScenario(t, "agilex5_ddr5.yaml")
	require.NoError(t, runInit(context.Background(), m, h, simTiming()))
	for _, inst := range m.Instances() {
		assert.Equal(t, 1, inst.Interfaces[0].BISTStarts)
	}

	r := record.NewSQLiteRecorder(settings.Record)
	require.NoError(t, r.Init())
	defer r.Close()
	var reports, txns int
	require.NoError(t, r.QueryRow(`SELECT COUNT(*) FROM report WHERE ok`).Scan(&reports))
	require.NoError(t, r.QueryRow(`SELECT COUNT(*) FROM mailbox`).Scan(&txns))
	assert.Equal(t, 1, reports)
	assert.Greater(t, txns, 0)
}

func TestRunInitFailure(t *testing.T) {
	m, h := loadScenario(t, "recal_fail.yaml")
	err := runInit(context.Background(), m, h, simTiming())
	require.ErrorIs(t, err, iossm.ErrCalibrationFailed)
	assert.Contains(t, err.Error(), "DDR init failed")
}

func TestRunDiscover(t *testing.T) {
	m, h := loadScenario(t, "agilex5_ddr5.yaml")
	require.NoError(t, runDiscover(context.Background(), m, h, simTiming()))
	for _, inst := range m.Instances() {
		require.Len(t, inst.Requests, 1)
		assert.Equal(t, iossm.GET_MEM_INTF_INFO, inst.Requests[0].Opcode)
	}
}

func TestLoadHandoff(t *testing.T) {
	h, err := iossm.LoadHandoff(filepath.Join("testdata", "handoff.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x18400000, 0x18800000}, h.Instances)
	assert.Equal(t, uint64(iossm.SOCFPGA_SYSMGR_ADDRESS), h.SysmgrBase)
	assert.Equal(t, uint8(0xF), h.PLLMask)
	assert.True(t, h.CheckNOCPLL)
	assert.True(t, h.Interleaving)
	assert.Equal(t, uint64(iossm.SOCFPGA_F2SDRAM_MGR_ADDRESS), h.F2SDRAMBase)
}

func TestDecodeCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"decode", "cmd_response_status", "0x10001"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"decode", "no_such_layout", "0"})
	assert.Error(t, rootCmd.Execute())
}

func TestSimulateCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"simulate", "--discover", filepath.Join("testdata", "agilex5_ddr5.yaml")})
	require.NoError(t, rootCmd.Execute())
	discoverOnly = false
}
