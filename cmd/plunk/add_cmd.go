package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/inject"
	"github.com/etnz/plunk/internal/pathenc"
	"github.com/etnz/plunk/internal/pmlayout"
	"github.com/etnz/plunk/internal/publish"
	"github.com/etnz/plunk/internal/tracker"
)

func newAddCmd(flags *globalFlags) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Publish a package from --from and link it into the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if from == "" {
				return fmt.Errorf("add requires --from <path>")
			}

			app, err := newAppContext(flags, "add")
			if err != nil {
				return err
			}

			sourceDir, err := filepath.Abs(from)
			if err != nil {
				return err
			}
			consumerDir, err := filepath.Abs(".")
			if err != nil {
				return err
			}

			pubResult, err := publish.Publish(app.store, sourceDir, publish.Options{RunScripts: true}, app.log)
			if err != nil {
				return err
			}
			if pubResult.Name != name {
				return fmt.Errorf("published package name %q does not match requested %q", pubResult.Name, name)
			}

			entry, err := app.store.GetStoreEntry(pubResult.Name, pubResult.Version)
			if err != nil {
				return err
			}

			pm := pmlayout.Detect(consumerDir)
			injectResult, err := inject.Inject(consumerDir, entry, pm, inject.Options{BackupExisting: true}, app.log)
			if err != nil {
				return err
			}

			_, backupErr := os.Stat(filepath.Join(consumerDir, ".plunk", "backup", pathenc.Encode(name)))

			linkEntry := tracker.LinkEntry{
				Version:        pubResult.Version,
				ContentHash:    pubResult.ContentHash,
				LinkedAt:       nowTimestamp(),
				SourcePath:     sourceDir,
				BackupExists:   backupErr == nil,
				PackageManager: string(pm),
			}

			if err := tracker.AddLink(consumerDir, name, linkEntry); err != nil {
				return err
			}
			if err := tracker.RegisterConsumer(app.ctx.ConsumersRegistryPath(), name, consumerDir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s@%s linked into %s (%d files)\n", name, pubResult.Version, consumerDir, injectResult.Copied)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "path to the package source directory")
	return cmd
}
