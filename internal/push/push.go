// Package push implements the push engine (C11): publish a package, then
// fan the result out to every consumer the tracker's registry says has it
// linked.
package push

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/etnz/plunk/internal/inject"
	"github.com/etnz/plunk/internal/pmlayout"
	"github.com/etnz/plunk/internal/publish"
	"github.com/etnz/plunk/internal/store"
	"github.com/etnz/plunk/internal/tracker"
)

// ConsumerOutcome is one consumer's inject result or failure.
type ConsumerOutcome struct {
	ConsumerPath string
	Err          error
}

// Result reports a full push cycle's outcome.
type Result struct {
	Publish   publish.Result
	Skipped   bool
	Outcomes  []ConsumerOutcome
	Succeeded int
	Failed    int
}

// Push publishes packageDir, then for every consumer registered for the
// published package name with a live link entry, injects into it. Per-
// consumer failures are collected, logged, and do not abort the fan-out.
func Push(s *store.Store, registryPath, packageDir string, opts publish.Options, log *logrus.Entry) (Result, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	pubResult, err := publish.Publish(s, packageDir, opts, log)
	if err != nil {
		return Result{}, err
	}
	if pubResult.Skipped {
		log.WithField("name", pubResult.Name).Info("no changes to push")
		return Result{Publish: pubResult, Skipped: true}, nil
	}

	entry, err := s.GetStoreEntry(pubResult.Name, pubResult.Version)
	if err != nil {
		return Result{Publish: pubResult}, fmt.Errorf("reloading published entry: %w", err)
	}

	consumers, err := tracker.GetConsumers(registryPath, pubResult.Name)
	if err != nil {
		return Result{Publish: pubResult}, fmt.Errorf("reading consumers for %s: %w", pubResult.Name, err)
	}

	result := Result{Publish: pubResult}
	for _, consumerPath := range consumers {
		linkEntry, ok, err := tracker.GetLink(consumerPath, pubResult.Name)
		if err != nil {
			result.Outcomes = append(result.Outcomes, ConsumerOutcome{ConsumerPath: consumerPath, Err: err})
			result.Failed++
			log.WithFields(logrus.Fields{"consumer": consumerPath}).WithError(err).Warn("failed to read consumer link state")
			continue
		}
		if !ok {
			// Registry and consumer state can momentarily disagree between
			// remove and the next clean; skip rather than fail.
			continue
		}

		pm := pmlayout.PackageManager(linkEntry.PackageManager)
		if pm == "" {
			pm = pmlayout.Detect(consumerPath)
		}

		_, err = inject.Inject(consumerPath, entry, pm, inject.Options{}, log)
		if err != nil {
			result.Outcomes = append(result.Outcomes, ConsumerOutcome{ConsumerPath: consumerPath, Err: err})
			result.Failed++
			log.WithFields(logrus.Fields{"consumer": consumerPath}).WithError(err).Warn("inject failed for consumer")
			continue
		}

		linkEntry.ContentHash = pubResult.ContentHash
		linkEntry.Version = pubResult.Version
		linkEntry.LinkedAt = store.Now()
		if err := tracker.AddLink(consumerPath, pubResult.Name, linkEntry); err != nil {
			result.Outcomes = append(result.Outcomes, ConsumerOutcome{ConsumerPath: consumerPath, Err: err})
			result.Failed++
			continue
		}

		result.Outcomes = append(result.Outcomes, ConsumerOutcome{ConsumerPath: consumerPath})
		result.Succeeded++
	}

	return result, nil
}
