// Package services provides the business logic layer of the harmonization
// engine. This file implements the multi-framework orchestrator driving the
// matcher across every other known framework.
package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/security"
)

// DefaultFrameworkConcurrency bounds simultaneous framework pairs during a
// harmonize-all run. The scorer collaborator is assumed to have its own rate
// limits, so the fan-out stays small.
const DefaultFrameworkConcurrency = 3

// Orchestrator drives the matcher across every framework other than the
// source, merging results and tracking partial failures per framework pair.
type Orchestrator struct {
	matcher     *Matcher
	catalog     ControlCatalog
	logger      *security.Logger
	concurrency int
}

// NewOrchestrator creates an orchestrator around an existing matcher.
// A concurrency of 0 or less falls back to DefaultFrameworkConcurrency.
func NewOrchestrator(matcher *Matcher, catalog ControlCatalog, logger *security.Logger, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultFrameworkConcurrency
	}
	return &Orchestrator{
		matcher:     matcher,
		catalog:     catalog,
		logger:      logger,
		concurrency: concurrency,
	}
}

// frameworkOutcome is one target framework's slot in the fan-out.
type frameworkOutcome struct {
	framework string
	result    *models.AutoMapResult
	err       error
}

// HarmonizeAll matches sourceFramework against every other known framework.
//
// A failure on one target framework (catalog unavailable, scorer down) is
// recorded as a FrameworkFailure and does not stop the remaining frameworks:
// partial success is the expected outcome and is reported honestly through
// the Processed and Failed counts. The merged suggestion list is re-ranked
// globally with the same deterministic ordering the matcher uses.
func (o *Orchestrator) HarmonizeAll(ctx context.Context, sourceFramework string, clientID *int) (*models.HarmonizeAllResult, error) {
	frameworks, err := o.catalog.ListFrameworks(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list frameworks: %w", err)
	}

	known := false
	targets := make([]string, 0, len(frameworks))
	for _, f := range frameworks {
		if f == sourceFramework {
			known = true
			continue
		}
		targets = append(targets, f)
	}
	if !known {
		return nil, &repository.ValidationError{
			Field:  "source_framework",
			Reason: fmt.Sprintf("unknown framework %q", sourceFramework),
		}
	}

	result := &models.HarmonizeAllResult{
		Suggestions: []models.MappingSuggestion{},
		Failures:    []models.FrameworkFailure{},
	}
	if len(targets) == 0 {
		return result, nil
	}

	outcomes := make([]frameworkOutcome, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for k, framework := range targets {
		k, framework := k, framework
		g.Go(func() error {
			res, err := o.matcher.AutoMap(gctx, sourceFramework, framework, clientID)
			outcomes[k] = frameworkOutcome{framework: framework, result: res, err: err}
			// Per-framework failures are merged below, never propagated.
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge in the deterministic framework order returned by the catalog.
	for _, outcome := range outcomes {
		if outcome.err != nil {
			result.Failures = append(result.Failures, models.FrameworkFailure{
				Framework: outcome.framework,
				Cause:     outcome.err.Error(),
			})
			result.Failed++
			if o.logger != nil {
				o.logger.SecurityEvent(security.EventFrameworkSkipped, nil, "", "",
					map[string]interface{}{
						"source_framework": sourceFramework,
						"target_framework": outcome.framework,
						"cause":            outcome.err.Error(),
					})
			}
			continue
		}

		result.Processed++
		result.Suggestions = append(result.Suggestions, outcome.result.Suggestions...)
		result.ComparedPairs += outcome.result.ComparedPairs
		result.SkippedPairs += outcome.result.SkippedPairs
	}

	sortSuggestions(result.Suggestions)
	return result, nil
}
