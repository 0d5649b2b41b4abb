// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package main

import (
	"context"
	"fmt"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/spf13/cobra"
)

var handoffPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Run the full DDR init sequence on this board through /dev/mem",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := iossm.LoadHandoff(handoffPath)
		if err != nil {
			return err
		}
		bus, err := openBoard(h)
		if err != nil {
			return err
		}
		defer bus.Close()

		if err := runInit(cmd.Context(), bus, h, iossm.DefaultTiming()); err != nil {
			return err
		}
		return bus.Err()
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the memory interfaces reported by each IO96B mailbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := iossm.LoadHandoff(handoffPath)
		if err != nil {
			return err
		}
		bus, err := openBoard(h)
		if err != nil {
			return err
		}
		defer bus.Close()

		if err := runDiscover(cmd.Context(), bus, h, iossm.DefaultTiming()); err != nil {
			return err
		}
		return bus.Err()
	},
}

// openBoard maps every register window the handoff names so a bad address
// fails here rather than mid-sequence.
func openBoard(h iossm.Handoff) (*iossm.DevMemBus, error) {
	bus, err := iossm.OpenDevMem()
	if err != nil {
		return nil, err
	}
	windows := append([]uint64{h.SysmgrBase, h.F2SDRAMBase}, h.Instances...)
	for _, base := range windows {
		if err := bus.Map(base, 0x1000); err != nil {
			bus.Close()
			return nil, err
		}
	}
	return bus, nil
}

func init() {
	for _, c := range []*cobra.Command{initCmd, discoverCmd} {
		c.Flags().StringVar(&handoffPath, "handoff", "handoff.yaml", "YAML handoff describing the IO96B instances")
		rootCmd.AddCommand(c)
	}
}

func runInit(ctx context.Context, bus iossm.Bus, h iossm.Handoff, t iossm.Timing) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := openRecorder()
	if err != nil {
		return err
	}
	if rec != nil {
		defer rec.Close()
	}

	opts := append(recorderOptions(rec), iossm.WithTiming(t))
	ctrl, err := iossm.NewController(bus, h, opts...)
	if err != nil {
		return err
	}
	scratch := iossm.NewRegisterScratch(bus, h.SysmgrBase)
	rep, runErr := ctrl.Init(ctx, scratch)
	if rec != nil {
		if err := rec.RecordReport(rep, runErr); err != nil {
			return err
		}
	}
	if rep != nil {
		PrintTableToStdout(rep, "", "   ")
	}
	if runErr != nil {
		return fmt.Errorf("DDR init failed: %w", runErr)
	}
	return nil
}

type interfaceInfo struct {
	IO96B      int    `json:"io96b"`
	Base       string `json:"base"`
	IPType     uint8  `json:"ip_type"`
	InstanceID uint8  `json:"instance_id"`
}

func runDiscover(ctx context.Context, bus iossm.Bus, h iossm.Handoff, t iossm.Timing) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := openRecorder()
	if err != nil {
		return err
	}
	if rec != nil {
		defer rec.Close()
	}

	opts := append(recorderOptions(rec), iossm.WithTiming(t))
	ctrl, err := iossm.NewController(bus, h, opts...)
	if err != nil {
		return err
	}
	if err := ctrl.Discover(ctx); err != nil {
		return err
	}
	var out []interfaceInfo
	for i, inst := range ctrl.Instances {
		for _, intf := range inst.Interfaces {
			out = append(out, interfaceInfo{
				IO96B:      i,
				Base:       fmt.Sprintf("0x%X", inst.Base),
				IPType:     intf.IPType(),
				InstanceID: intf.InstanceID(),
			})
		}
	}
	PrintTableToStdout(out, "", "   ")
	return nil
}
