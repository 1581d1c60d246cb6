package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/inject"
	"github.com/etnz/plunk/internal/pmlayout"
	"github.com/etnz/plunk/internal/tracker"
)

func newUpdateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [name]",
		Short: "Re-inject the latest store entry for one or all linked packages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags, "update")
			if err != nil {
				return err
			}

			consumerDir, err := filepath.Abs(".")
			if err != nil {
				return err
			}

			state, err := tracker.ReadState(consumerDir)
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				for name := range state.Links {
					names = append(names, name)
				}
			}

			for _, name := range names {
				linkEntry, ok := state.Links[name]
				if !ok {
					return fmt.Errorf("%s is not linked in %s", name, consumerDir)
				}

				entry, err := app.store.FindStoreEntry(name)
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("no published entry found for %s", name)
				}

				pm := pmlayout.PackageManager(linkEntry.PackageManager)
				if pm == "" {
					pm = pmlayout.Detect(consumerDir)
				}

				result, err := inject.Inject(consumerDir, entry, pm, inject.Options{}, app.log)
				if err != nil {
					return err
				}

				linkEntry.Version = entry.Version
				linkEntry.ContentHash = entry.Meta.ContentHash
				linkEntry.LinkedAt = nowTimestamp()
				if err := tracker.AddLink(consumerDir, name, linkEntry); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s@%s updated (%d copied, %d removed)\n", name, entry.Version, result.Copied, result.Removed)
			}
			return nil
		},
	}
	return cmd
}
