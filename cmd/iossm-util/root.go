// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/Seagate/iossm-lib/pkg/record"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"k8s.io/klog/v2"
)

var Version = "1.0.0"

// This variable is filled in during the linker step - -ldflags "-X main.buildTime=`date -u '+%Y-%m-%dT%H:%M:%S'`"
var buildTime = ""

// Settings holds the flags shared by every sub command.
type Settings struct {
	Verbosity string // The log level verbosity, where 0 is no logging and 4 is very verbose
	Record    string // SQLite database receiving mailbox transactions and reports
}

var settings Settings

var rootCmd = &cobra.Command{
	Use:     "iossm-util",
	Short:   "iossm-util brings up and inspects DDR behind IO96B IOSSM mailboxes.",
	Version: Version,
	Long: `iossm-util drives the IO96B IOSSM mailbox from the host: it checks and retries ` +
		`DDR calibration, queries the memory configuration and runs the full memory init BIST. ` +
		`Every command can run against /dev/mem or a simulated board described in YAML.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set verbosity level according to the 'verbosity' flag
		var l klog.Level
		if err := l.Set(settings.Verbosity); err != nil {
			return err
		}
		klog.V(1).InfoS("iossm-util", "args", strings.Join(os.Args[1:], " "), "build", buildTime)
		klog.V(2).InfoS("iossm-util", "settings", settings)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settings.Verbosity, "verbosity", "0", "Log level verbosity, 0 (none) to 4 (very verbose)")
	rootCmd.PersistentFlags().StringVar(&settings.Record, "record", "", "Record mailbox transactions and reports to this SQLite file")
}

// Execute runs the root command and exits through atexit so recorders are flushed.
func Execute() {
	err := rootCmd.Execute()
	klog.Flush()
	if err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// openRecorder returns nil when --record is not set.
func openRecorder() (*record.SQLiteRecorder, error) {
	if settings.Record == "" {
		return nil, nil
	}
	r := record.NewSQLiteRecorder(settings.Record)
	if err := r.Init(); err != nil {
		return nil, err
	}
	return r, nil
}

func recorderOptions(r *record.SQLiteRecorder) []iossm.Option {
	if r == nil {
		return nil
	}
	return []iossm.Option{iossm.WithTracer(r)}
}

func PrintTableToStdout(table any, prefix, indent string) {
	s, _ := json.MarshalIndent(table, prefix, indent)
	fmt.Print(string(s), "\n")
}
