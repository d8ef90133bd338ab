// Package services provides the business logic layer of the harmonization
// engine: the similarity scorer seam, the pairwise matcher, the
// multi-framework orchestrator and the harmonized-view aggregator.
package services

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Scorer is the external similarity oracle. Given two control texts it
// returns a score in [0,1]. Implementations may be slow or remote
// (embeddings + cosine, a rule engine); the matcher treats every call as
// fallible and recovers per pair.
type Scorer interface {
	Score(ctx context.Context, textA, textB string) (float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, textA, textB string) (float64, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ctx context.Context, textA, textB string) (float64, error) {
	return f(ctx, textA, textB)
}

// ScorerWithTimeout wraps a scorer with a per-call deadline so one slow
// comparison cannot stall a whole harmonization run. A non-positive timeout
// returns the scorer unchanged.
//
// The call runs in its own goroutine so even scorers that ignore their
// context are bounded; a call that never returns leaks its goroutine, which
// is the accepted cost of not stalling the batch.
func ScorerWithTimeout(scorer Scorer, timeout time.Duration) Scorer {
	if timeout <= 0 {
		return scorer
	}
	return &timeoutScorer{inner: scorer, timeout: timeout}
}

type timeoutScorer struct {
	inner   Scorer
	timeout time.Duration
}

type scoreResult struct {
	score float64
	err   error
}

func (t *timeoutScorer) Score(ctx context.Context, textA, textB string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan scoreResult, 1)
	go func() {
		score, err := t.inner.Score(ctx, textA, textB)
		done <- scoreResult{score: score, err: err}
	}()

	select {
	case res := <-done:
		return res.score, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// LexicalScorer is the in-repo default oracle: token-set overlap (Jaccard)
// over lowercased words. It is deterministic, needs no external service, and
// serves development and testing; production deployments plug a real model
// in behind the Scorer interface.
type LexicalScorer struct{}

// NewLexicalScorer creates a LexicalScorer.
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

// Score implements Scorer. Never returns an error.
func (s *LexicalScorer) Score(_ context.Context, textA, textB string) (float64, error) {
	a := tokenSet(textA)
	b := tokenSet(textB)
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union), nil
}

func tokenSet(text string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		// Single characters are noise (clause numbering, list markers).
		if len(token) < 2 {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}
