package main

import (
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/publish"
	"github.com/etnz/plunk/internal/push"
	"github.com/etnz/plunk/internal/watch"
)

func newDevCmd(flags *globalFlags) *cobra.Command {
	var (
		buildCmd  string
		noScripts bool
		skipBuild bool
	)

	cmd := &cobra.Command{
		Use:   "dev [path]",
		Short: "Watch a package and keep its linked consumers in sync",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags, "dev")
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

			if skipBuild {
				buildCmd = ""
			}

			runOnce := func() error {
				_, err := push.Push(app.store, app.ctx.ConsumersRegistryPath(), dir, publish.Options{RunScripts: !noScripts}, app.log)
				return err
			}

			w, err := watch.New(watch.Options{
				PackageDir: dir,
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

	cmd.Flags().StringVar(&buildCmd, "build", "", "build command to run before each push cycle")
	cmd.Flags().BoolVar(&noScripts, "no-scripts", false, "skip prepack/postpack lifecycle scripts")
	cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "never run a build command, even if --build is set")

	return cmd
}
