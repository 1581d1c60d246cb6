package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/publish"
	"github.com/etnz/plunk/internal/push"
	"github.com/etnz/plunk/internal/watch"
)

func newPushCmd(flags *globalFlags) *cobra.Command {
	var (
		watchMode  bool
		buildCmd   string
		debounceMs int
	)

	cmd := &cobra.Command{
		Use:   "push [path]",
		Short: "Publish a package and fan the result out to every linked consumer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags, "push")
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

			runOnce := func() error {
				result, err := push.Push(app.store, app.ctx.ConsumersRegistryPath(), dir, publish.Options{RunScripts: true}, app.log)
				if err != nil {
					return err
				}
				if result.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), "no changes to push")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pushed %s@%s to %d/%d consumers\n",
					result.Publish.Name, result.Publish.Version, result.Succeeded, result.Succeeded+result.Failed)
				return nil
			}

			if !watchMode {
				return runOnce()
			}

			w, err := watch.New(watch.Options{
				PackageDir: dir,
				Debounce:   time.Duration(debounceMs) * time.Millisecond,
				BuildCmd:   buildCmd,
				Push:       runOnce,
				Log:        app.log,
			})
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&watchMode, "watch", false, "keep pushing on every source change")
	cmd.Flags().StringVar(&buildCmd, "build", "", "build command to run before each push while watching")
	cmd.Flags().IntVar(&debounceMs, "debounce", int(watch.DefaultDebounce/time.Millisecond), "debounce window in milliseconds")

	return cmd
}
