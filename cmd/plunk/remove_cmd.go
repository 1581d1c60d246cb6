package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/inject"
	"github.com/etnz/plunk/internal/pmlayout"
	"github.com/etnz/plunk/internal/tracker"
)

func newRemoveCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Unlink a package from the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			app, err := newAppContext(flags, "remove")
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

			pm := pmlayout.PackageManager(linkEntry.PackageManager)
			if pm == "" {
				pm = pmlayout.Detect(consumerDir)
			}
			if err := inject.RemoveInjected(consumerDir, name, pm); err != nil {
				return err
			}

			if err := tracker.RemoveLink(consumerDir, name); err != nil {
				return err
			}
			if err := tracker.UnregisterConsumer(app.ctx.ConsumersRegistryPath(), name, consumerDir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s unlinked from %s\n", name, consumerDir)
			return nil
		},
	}
	return cmd
}
