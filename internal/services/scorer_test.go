// Package services_test provides unit tests for the harmonization engine's
// business logic layer. Scorer tests verify the built-in lexical oracle and
// the per-call timeout wrapper.
package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/services"
)

// TestLexicalScorer verifies the token-overlap scoring behavior.
func TestLexicalScorer(t *testing.T) {
	scorer := services.NewLexicalScorer()

	tests := []struct {
		name  string
		textA string
		textB string
		want  float64
	}{
		{
			name:  "identical text",
			textA: "access control policy",
			textB: "access control policy",
			want:  1.0,
		},
		{
			name:  "no overlap",
			textA: "encryption at rest",
			textB: "background screening",
			want:  0.0,
		},
		{
			name: "partial overlap",
			// {access, control, policy} vs {access, control}: 2 of 3.
			textA: "access control policy",
			textB: "access control",
			want:  2.0 / 3.0,
		},
		{
			name:  "case and punctuation insensitive",
			textA: "Access Control!",
			textB: "access, control",
			want:  1.0,
		},
		{
			name:  "empty input",
			textA: "",
			textB: "access control",
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := scorer.Score(context.Background(), tt.textA, tt.textB)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, score, 0.001)
		})
	}
}

// TestScorerWithTimeout verifies that a stalled scorer call is cut off at
// the configured deadline instead of blocking the batch.
func TestScorerWithTimeout(t *testing.T) {
	stalled := services.ScorerFunc(func(ctx context.Context, _, _ string) (float64, error) {
		select {
		case <-time.After(5 * time.Second):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	scorer := services.ScorerWithTimeout(stalled, 20*time.Millisecond)

	start := time.Now()
	_, err := scorer.Score(context.Background(), "a", "b")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second, "deadline must cut the call short")
}

// TestScorerWithTimeout_FastCall verifies that a scorer finishing inside the
// deadline passes its result through unchanged.
func TestScorerWithTimeout_FastCall(t *testing.T) {
	scorer := services.ScorerWithTimeout(services.NewLexicalScorer(), time.Second)

	score, err := scorer.Score(context.Background(), "access control", "access control")

	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 0.001)
}

// TestScorerWithTimeout_IgnoresContext verifies the wrapper bounds even
// scorers that never look at their context.
func TestScorerWithTimeout_IgnoresContext(t *testing.T) {
	rude := services.ScorerFunc(func(_ context.Context, _, _ string) (float64, error) {
		time.Sleep(5 * time.Second)
		return 1, nil
	})

	scorer := services.ScorerWithTimeout(rude, 20*time.Millisecond)

	start := time.Now()
	_, err := scorer.Score(context.Background(), "a", "b")

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

// TestScorerWithTimeout_Disabled verifies that a non-positive timeout leaves
// the scorer unwrapped.
func TestScorerWithTimeout_Disabled(t *testing.T) {
	inner := services.NewLexicalScorer()
	assert.Equal(t, services.Scorer(inner), services.ScorerWithTimeout(inner, 0))
}
