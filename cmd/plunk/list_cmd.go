package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/tracker"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	var storeMode bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List linked packages in the current project, or the whole store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags, "list")
			if err != nil {
				return err
			}

			if storeMode {
				entries, err := app.store.ListStoreEntries()
				if err != nil {
					return err
				}
				for _, entry := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s@%s\t%s\t%s\n", entry.Name, entry.Version, entry.Meta.ContentHash, entry.Meta.PublishedAt)
				}
				return nil
			}

			consumerDir, err := filepath.Abs(".")
			if err != nil {
				return err
			}
			state, err := tracker.ReadState(consumerDir)
			if err != nil {
				return err
			}
			for name, link := range state.Links {
				fmt.Fprintf(cmd.OutOrStdout(), "%s@%s\t%s\t%s\n", name, link.Version, link.PackageManager, link.LinkedAt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&storeMode, "store", false, "list every entry in the local store instead of the current project's links")
	return cmd
}
