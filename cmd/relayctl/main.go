package main

import (
	"fmt"
	"os"

	"github.com/mikey/llm-dm-relay/internal/di"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &di.CLIOptions{}

	rootCmd := &cobra.Command{
		Use:           "relayctl",
		Short:         "Operator and tenant tooling for the DM relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "Path to config file")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&opts.JSONLog, "json-log", false, "Output logs in JSON format")

	rootCmd.AddCommand(
		newKeygenCmd(),
		newDecryptCmd(),
		newClassifyCmd(opts),
	)
	return rootCmd
}
