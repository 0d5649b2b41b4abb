// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode LAYOUT VALUE",
	Short: "Decode a raw register value, e.g. decode cmd_response_status 0x10001",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		newLayout, ok := iossm.RegisterLayouts[strings.ToLower(args[0])]
		if !ok {
			var names []string
			for n := range iossm.RegisterLayouts {
				names = append(names, n)
			}
			sort.Strings(names)
			return fmt.Errorf("unknown layout %q, expect one of %s", args[0], strings.Join(names, ", "))
		}
		v, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return err
		}
		out := newLayout()
		if err := iossm.BitFieldDecode(uint32(v), out); err != nil {
			return err
		}
		PrintTableToStdout(out, "", "   ")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
