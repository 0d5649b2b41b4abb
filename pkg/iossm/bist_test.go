// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/Seagate/iossm-lib/pkg/iossm/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsFullInit(t *testing.T) {
	tests := []struct {
		name   string
		ecc    bool
		flags  iossm.ScratchFlags
		hang   bool
		expect bool
	}{
		{"ecc off", false, iossm.ScratchFlags{Reset: iossm.POR_RESET, DDRDoubleBitError: true}, true, false},
		{"por", true, iossm.ScratchFlags{Reset: iossm.POR_RESET}, false, true},
		{"warm", true, iossm.ScratchFlags{Reset: iossm.WARM_RESET}, false, false},
		{"cold", true, iossm.ScratchFlags{Reset: iossm.COLD_RESET}, false, false},
		{"nconfig", true, iossm.ScratchFlags{Reset: iossm.NCONFIG}, false, true},
		{"jtag", true, iossm.ScratchFlags{Reset: iossm.JTAG_CONFIG}, false, true},
		{"rsu", true, iossm.ScratchFlags{Reset: iossm.RSU_RECONFIG}, false, true},
		{"warm ddr dbe", true, iossm.ScratchFlags{Reset: iossm.WARM_RESET, DDRDoubleBitError: true}, false, true},
		{"cold ocram dbe", true, iossm.ScratchFlags{Reset: iossm.COLD_RESET, OCRAMDoubleBitError: true}, false, true},
		{"warm hang", true, iossm.ScratchFlags{Reset: iossm.WARM_RESET}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, iossm.NeedsFullInit(tt.ecc, tt.flags, tt.hang))
		})
	}
}

func bistModel(intfs ...*sim.Interface) *sim.Model {
	return sim.NewModel(sysmgr, &sim.Instance{Base: io96b0Base, Cal: sim.CalPass, Interfaces: intfs})
}

func TestBISTMemInit(t *testing.T) {
	a := ddrInterface(1, 0, uint8(iossm.DDR5), 8)
	a.BISTPolls = 3
	b := ddrInterface(1, 1, uint8(iossm.DDR5), 8)
	m := bistModel(a, b)
	c := discovered(t, m)

	require.NoError(t, c.BISTMemInit(context.Background()))
	for _, intf := range []*sim.Interface{a, b} {
		assert.Equal(t, 1, intf.BISTStarts)
		assert.Equal(t, uint32(iossm.BIST_FULL_MEM_RANGE), intf.BISTParam())
	}
	// a completes on the 4th status poll, b on the first
	assert.Equal(t, 5, countRequests(m.Instances()[0], iossm.BIST_MEM_INIT_STATUS))
}

func TestBISTMemInitNotAccepted(t *testing.T) {
	a := ddrInterface(1, 0, uint8(iossm.DDR5), 8)
	a.BISTReject = true
	a.BISTErrorCode = 0x2
	b := ddrInterface(1, 1, uint8(iossm.DDR5), 8)
	m := bistModel(a, b)
	c := discovered(t, m)

	err := c.BISTMemInit(context.Background())
	require.ErrorIs(t, err, iossm.ErrInitNotAccepted)

	var intfErr *iossm.InterfaceError
	require.True(t, errors.As(err, &intfErr))
	assert.Equal(t, uint32(0x2), intfErr.Code)
	assert.Equal(t, 0, intfErr.Interface)

	assert.Zero(t, countRequests(m.Instances()[0], iossm.BIST_MEM_INIT_STATUS))
	assert.Zero(t, b.BISTStarts)
}

func TestBISTMemInitTimeout(t *testing.T) {
	a := ddrInterface(1, 0, uint8(iossm.DDR5), 8)
	a.BISTPolls = -1
	m := bistModel(a)
	c := discovered(t, m)

	err := c.BISTMemInit(context.Background())
	require.ErrorIs(t, err, iossm.ErrInitTimeout)
	assert.Greater(t, countRequests(m.Instances()[0], iossm.BIST_MEM_INIT_STATUS), 1)
}

func TestBISTMemInitMailboxError(t *testing.T) {
	a := ddrInterface(1, 0, uint8(iossm.DDR5), 8)
	m := bistModel(a)
	c := discovered(t, m)
	m.Instances()[0].NoResponse = true

	err := c.BISTMemInit(context.Background())
	require.ErrorIs(t, err, iossm.ErrResponseTimeout)
	assert.NotErrorIs(t, err, iossm.ErrInitNotAccepted)
}
