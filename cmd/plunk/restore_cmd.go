package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/inject"
	"github.com/etnz/plunk/internal/pmlayout"
	"github.com/etnz/plunk/internal/tracker"
)

func newRestoreCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore the pre-link backup for a package in the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			app, err := newAppContext(flags, "restore")
			if err != nil {
				return err
			}

			consumerDir, err := filepath.Abs(".")
			if err != nil {
				return err
			}

			linkEntry, ok, err := tracker.GetLink(consumerDir, name)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s is not linked in %s", name, consumerDir)
			}
			if !linkEntry.BackupExists {
				return fmt.Errorf("no backup exists for %s", name)
			}

			pm := pmlayout.PackageManager(linkEntry.PackageManager)
			if pm == "" {
				pm = pmlayout.Detect(consumerDir)
			}
			if err := inject.RestoreBackup(consumerDir, name, pm); err != nil {
				return err
			}

			if err := tracker.RemoveLink(consumerDir, name); err != nil {
				return err
			}
			if err := tracker.UnregisterConsumer(app.ctx.ConsumersRegistryPath(), name, consumerDir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s restored from backup in %s\n", name, consumerDir)
			return nil
		},
	}
	return cmd
}
