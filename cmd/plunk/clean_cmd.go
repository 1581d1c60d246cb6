package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/tracker"
)

func newCleanCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Prune consumers registry entries that no longer exist or no longer link their package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags, "clean")
			if err != nil {
				return err
			}

			result, err := tracker.CleanStaleConsumers(app.ctx.ConsumersRegistryPath())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale consumers, %d empty package entries\n", result.RemovedConsumers, result.RemovedPackages)

			storeEntries, err := app.store.ListStoreEntries()
			if err != nil {
				return err
			}
			var unreferenced int
			for _, entry := range storeEntries {
				consumers, err := tracker.GetConsumers(app.ctx.ConsumersRegistryPath(), entry.Name)
				if err != nil {
					return err
				}
				if len(consumers) > 0 {
					continue
				}
				if err := app.store.RemoveStoreEntry(entry.Name, entry.Version); err != nil {
					return err
				}
				unreferenced++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d unreferenced store entries\n", unreferenced)
			return nil
		},
	}
	return cmd
}
