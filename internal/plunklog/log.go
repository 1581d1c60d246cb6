// Package plunklog configures the single logrus logger used across plunk's
// components. It is initialized once at startup from the verbose flag/env
// and read-only thereafter; components receive a *logrus.Entry rather than
// reaching for a global.
package plunklog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logger scoped to component, honoring verbose (or a non-empty
// VERBOSE env var) for level and jsonOutput (the CLI's --json flag) for
// output format.
func New(component string, verbose bool, jsonOutput bool) *logrus.Entry {
	l := logrus.New()
	l.Out = os.Stderr
	if verbose || os.Getenv("VERBOSE") != "" {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	if jsonOutput {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return l.WithField("component", component)
}
