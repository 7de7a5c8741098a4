package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

const version = "v0.1.0-dev"

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gradstate",
		Short: "Inspect per-parameter updater state of a layered network.",
		Long: `gradstate builds a reference convolutional network, attaches a ` +
			`gradient updater to it and reports the accumulator state kept ` +
			`for every parameter of every layer.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("env", "", "Read settings from this .env file (default: ./.env if present)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gradstate %s\n", version)
		},
	}
}

// Execute runs the root command and exits through atexit so open
// checkpoint stores are closed.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
