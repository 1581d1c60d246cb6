package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/etnz/plunk/internal/plunkctx"
	"github.com/etnz/plunk/internal/plunklog"
	"github.com/etnz/plunk/internal/store"
)

// globalFlags holds the root command's persistent flags, read once at
// Execute time and threaded through every subcommand's RunE closure.
type globalFlags struct {
	verbose bool
	json    bool
	dryRun  bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "plunk",
		Short:         "Link locally built packages into consumer projects",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "format log output on stderr as JSON (command results stay plain text)")
	root.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "accepted but has no effect: commands still mutate state")

	root.AddCommand(
		newPublishCmd(flags),
		newAddCmd(flags),
		newRemoveCmd(flags),
		newPushCmd(flags),
		newDevCmd(flags),
		newUpdateCmd(flags),
		newListCmd(flags),
		newCleanCmd(flags),
		newRestoreCmd(flags),
	)

	return root
}

// appContext bundles the resolved plunk home directory, a logger, and a
// store handle, built identically by every subcommand.
type appContext struct {
	ctx   *plunkctx.Context
	log   *logrus.Entry
	store *store.Store
}

func newAppContext(flags *globalFlags, component string) (*appContext, error) {
	ctx, err := plunkctx.New(flags.verbose, flags.json, flags.dryRun)
	if err != nil {
		return nil, err
	}
	log := plunklog.New(component, flags.verbose, flags.json)
	s := store.New(ctx.StoreRoot(), log)
	return &appContext{ctx: ctx, log: log, store: s}, nil
}
