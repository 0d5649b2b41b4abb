// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package main

import (
	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/Seagate/iossm-lib/pkg/iossm/sim"
	"github.com/spf13/cobra"
)

var discoverOnly bool

var simulateCmd = &cobra.Command{
	Use:   "simulate SCENARIO.yaml",
	Short: "Run the DDR init sequence against a simulated board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sim.LoadScenario(args[0])
		if err != nil {
			return err
		}
		model, h, err := s.Build()
		if err != nil {
			return err
		}

		// Simulated time: timeouts expire without waiting
		t := iossm.DefaultTiming()
		t.PollInterval = iossm.DEFAULT_POLL_INTERVAL * 100
		t.Clock = sim.NewClock()

		if discoverOnly {
			return runDiscover(cmd.Context(), model, h, t)
		}
		return runInit(cmd.Context(), model, h, t)
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&discoverOnly, "discover", false, "Only run memory interface discovery")
	rootCmd.AddCommand(simulateCmd)
}
