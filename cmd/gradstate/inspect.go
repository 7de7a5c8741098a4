package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Step the reference network and print updater state sizes.",
		Long: `inspect builds the reference network, initializes the updater, ` +
			`runs --steps synthetic updates and prints one line per layer: ` +
			`name, parameter count, parameter sizes and accumulator sizes. ` +
			`It fails if the accumulators no longer match the parameters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.run(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, summary := range s.updater.Summary() {
				fmt.Fprintln(out, summary)
			}

			if err := s.updater.Validate(); err != nil {
				return err
			}

			if s.store != nil {
				name, _ := cmd.Flags().GetString("run")
				id, err := s.store.Save(ctx, name, s.updater)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "saved run %s\n", id)
			}
			return nil
		},
	}

	addSessionFlags(inspectCmd.Flags())
	inspectCmd.Flags().String("run", "", "Name of the saved run (default: a new xid)")

	return inspectCmd
}
