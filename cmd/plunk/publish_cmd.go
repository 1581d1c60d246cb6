package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/manifest"
	"github.com/etnz/plunk/internal/publish"
)

func newPublishCmd(flags *globalFlags) *cobra.Command {
	var (
		force     bool
		noScripts bool
		private   bool
		recursive bool
	)

	cmd := &cobra.Command{
		Use:   "publish [path]",
		Short: "Pack and store a package, skipping the write if nothing changed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags, "publish")
			if err != nil {
				return err
			}

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			dir, err = filepath.Abs(dir)
			if err != nil {
				return err
			}

			dirs := []string{dir}
			if recursive {
				dirs, err = findPackageDirs(dir)
				if err != nil {
					return err
				}
			}

			opts := publish.Options{AllowPrivate: private, RunScripts: !noScripts, Force: force}
			for _, d := range dirs {
				result, err := publish.Publish(app.store, d, opts, app.log)
				if err != nil {
					return fmt.Errorf("publishing %s: %w", d, err)
				}
				if result.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "%s@%s: unchanged, skipped\n", result.Name, result.Version)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s@%s: published (%s)\n", result.Name, result.Version, result.ContentHash)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "republish even if the content hash is unchanged")
	cmd.Flags().BoolVar(&noScripts, "no-scripts", false, "skip prepack/postpack lifecycle scripts")
	cmd.Flags().BoolVar(&private, "private", false, "allow publishing a package marked private")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "publish every package found under path")

	return cmd
}

// findPackageDirs walks root looking for directories containing a manifest,
// skipping node_modules.
func findPackageDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == "node_modules" {
			return filepath.SkipDir
		}
		if info.Name() == manifest.FileName {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	return dirs, err
}
