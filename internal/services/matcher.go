// Package services provides the business logic layer of the harmonization
// engine. This file implements the matcher: the pairwise comparison pass that
// turns two framework catalogs into a ranked list of mapping suggestions.
package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/security"
)

// MinConfidence is the hard acceptance floor. Below this, false positives
// outweigh the value of a suggestion, so the pair is discarded entirely.
const MinConfidence = 75

// DefaultScorerConcurrency bounds concurrent scorer calls inside one
// auto-map run when no explicit limit is configured.
const DefaultScorerConcurrency = 8

// ControlCatalog is the read-only contract the engine requires from the
// control store. The repository layer satisfies it; tests substitute fakes.
type ControlCatalog interface {
	// ListByFramework returns the framework's visible controls ordered by
	// control code, so matching is reproducible across runs.
	ListByFramework(ctx context.Context, framework string, clientID *int) ([]models.Control, error)

	// ListFrameworks returns the distinct framework names currently present.
	ListFrameworks(ctx context.Context, clientID *int) ([]string, error)
}

// Matcher computes ranked equivalence suggestions for one framework pair.
//
// The pairwise scoring loop is O(n*m) scorer invocations and is the dominant
// cost; independent pairs are dispatched concurrently up to a bounded limit
// and reduced deterministically afterwards, so parallel dispatch order never
// affects output.
type Matcher struct {
	catalog     ControlCatalog
	scorer      Scorer
	logger      *security.Logger
	concurrency int
}

// NewMatcher creates a matcher over the given catalog and scorer.
// A concurrency of 0 or less falls back to DefaultScorerConcurrency.
func NewMatcher(catalog ControlCatalog, scorer Scorer, logger *security.Logger, concurrency int) *Matcher {
	if concurrency <= 0 {
		concurrency = DefaultScorerConcurrency
	}
	return &Matcher{
		catalog:     catalog,
		scorer:      scorer,
		logger:      logger,
		concurrency: concurrency,
	}
}

// AutoMap compares every control of sourceFramework against every control of
// targetFramework and returns suggestions with confidence >= MinConfidence,
// ranked by confidence descending (ties broken by source then target code).
//
// A framework with zero controls yields an empty suggestion list, not an
// error. Individual scorer failures (timeout, malformed input) skip that
// pair and increment SkippedPairs; a single failure never aborts the batch.
func (m *Matcher) AutoMap(ctx context.Context, sourceFramework, targetFramework string, clientID *int) (*models.AutoMapResult, error) {
	if sourceFramework == targetFramework {
		return nil, &repository.ValidationError{
			Field:  "target_framework",
			Reason: "must differ from source framework",
		}
	}

	sources, err := m.catalog.ListByFramework(ctx, sourceFramework, clientID)
	if err != nil {
		return nil, fmt.Errorf("load %s catalog: %w", sourceFramework, err)
	}
	targets, err := m.catalog.ListByFramework(ctx, targetFramework, clientID)
	if err != nil {
		return nil, fmt.Errorf("load %s catalog: %w", targetFramework, err)
	}

	result := &models.AutoMapResult{Suggestions: []models.MappingSuggestion{}}
	if len(sources) == 0 || len(targets) == 0 {
		return result, nil
	}
	result.ComparedPairs = len(sources) * len(targets)

	// Each pair writes into its own slot, so no mutex is needed; the sort
	// below restores determinism regardless of completion order.
	slots := make([]*models.MappingSuggestion, len(sources)*len(targets))
	var skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for i := range sources {
		for j := range targets {
			a, b := sources[i], targets[j]
			slot := i*len(targets) + j
			g.Go(func() error {
				score, err := m.scorer.Score(gctx, similarityText(a), similarityText(b))
				if err != nil {
					skipped.Add(1)
					return nil
				}

				confidence := int(math.Round(score * 100))
				if confidence < MinConfidence {
					return nil
				}

				slots[slot] = &models.MappingSuggestion{
					SourceID:        a.ID,
					TargetID:        b.ID,
					SourceCode:      a.ControlID,
					TargetCode:      b.ControlID,
					SourceFramework: a.Framework,
					TargetFramework: b.Framework,
					MappingType:     models.MappingTypeForConfidence(confidence),
					Confidence:      confidence,
				}
				return nil
			})
		}
	}

	// Workers only ever return nil; Wait is for completion, cancellation
	// shows up as skipped pairs and is checked on the parent context.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, s := range slots {
		if s != nil {
			result.Suggestions = append(result.Suggestions, *s)
		}
	}
	sortSuggestions(result.Suggestions)
	result.SkippedPairs = int(skipped.Load())

	if result.SkippedPairs > 0 && m.logger != nil {
		m.logger.Warn(fmt.Sprintf("auto-map %s -> %s skipped %d of %d pairs due to scorer failures",
			sourceFramework, targetFramework, result.SkippedPairs, result.ComparedPairs))
	}

	return result, nil
}

// similarityText builds the scorer input for a control.
func similarityText(c models.Control) string {
	if c.Description == "" {
		return c.Name
	}
	return c.Name + " " + c.Description
}

// sortSuggestions orders suggestions by confidence descending, ties broken
// by source control code then target control code. Deterministic output for
// a fixed scorer and catalog state.
func sortSuggestions(suggestions []models.MappingSuggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.SourceCode != b.SourceCode {
			return a.SourceCode < b.SourceCode
		}
		return a.TargetCode < b.TargetCode
	})
}
