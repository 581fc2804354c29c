package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dTxn/cmd/bench"
	"github.com/ValentinKolb/dTxn/cmd/util"
	"github.com/ValentinKolb/dTxn/lib/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dtxn",
		Short: "in-memory transaction processing engine",
		Long: fmt.Sprintf(`dTxn (v%s)

An in-memory transaction processing engine written in Go, with
interchangeable concurrency-control schedulers: serial execution,
strict two-phase locking, optimistic concurrency control (serial and
parallel validation) and multi-version concurrency control.`, Version),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitLoggers(viper.GetString("log-level"))
		},
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dTxn",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dTxn v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "workers"
	RootCmd.PersistentFlags().Int(key, 0, util.WrapString("number of execution workers (0 = number of CPUs)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level (debug, info, warning, error, critical)"))

	util.InitConfig()
	cobra.CheckErr(viper.BindPFlags(RootCmd.PersistentFlags()))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
