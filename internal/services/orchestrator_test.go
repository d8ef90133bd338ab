// Package services_test provides unit tests for the harmonization engine's
// business logic layer. Orchestrator tests verify the harmonize-all fan-out
// and its partial-failure reporting.
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/services"
)

// TestOrchestrator_HarmonizeAll verifies the full fan-out: the source
// framework is compared against every other known framework and the merged
// suggestion list is re-ranked globally.
func TestOrchestrator_HarmonizeAll(t *testing.T) {
	catalog := &fakeCatalog{controls: map[string][]models.Control{
		"NIST CSF":  {{ID: 1, ControlID: "AC-1", Name: "alpha", Framework: "NIST CSF"}},
		"ISO 27001": {{ID: 2, ControlID: "A.5.1", Name: "gamma", Framework: "ISO 27001"}},
		"SOC 2":     {{ID: 3, ControlID: "CC6.1", Name: "delta", Framework: "SOC 2"}},
	}}

	scores := map[string]float64{
		"alpha|gamma": 0.80,
		"alpha|delta": 0.95,
	}
	scorer := services.ScorerFunc(func(_ context.Context, a, b string) (float64, error) {
		return scores[a+"|"+b], nil
	})

	matcher := services.NewMatcher(catalog, scorer, nil, 2)
	orchestrator := services.NewOrchestrator(matcher, catalog, nil, 2)

	result, err := orchestrator.HarmonizeAll(context.Background(), "NIST CSF", nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Suggestions, 2)

	// Globally ranked: the SOC 2 hit outranks the ISO 27001 hit.
	assert.Equal(t, "SOC 2", result.Suggestions[0].TargetFramework)
	assert.Equal(t, 95, result.Suggestions[0].Confidence)
	assert.Equal(t, "ISO 27001", result.Suggestions[1].TargetFramework)
	assert.Equal(t, 2, result.ComparedPairs)
}

// TestOrchestrator_HarmonizeAll_PartialFailure verifies failure isolation:
// one framework's catalog being unavailable is recorded as a failure while
// the remaining frameworks still produce suggestions.
func TestOrchestrator_HarmonizeAll_PartialFailure(t *testing.T) {
	catalog := &fakeCatalog{
		controls: map[string][]models.Control{
			"NIST CSF":  {{ID: 1, ControlID: "AC-1", Name: "alpha", Framework: "NIST CSF"}},
			"ISO 27001": {{ID: 2, ControlID: "A.5.1", Name: "alpha", Framework: "ISO 27001"}},
			"SOC 2":     {{ID: 3, ControlID: "CC6.1", Name: "delta", Framework: "SOC 2"}},
		},
		failFor: map[string]error{"SOC 2": errors.New("connection refused")},
	}

	matcher := services.NewMatcher(catalog, fixedScorer(0.92), nil, 2)
	orchestrator := services.NewOrchestrator(matcher, catalog, nil, 2)

	result, err := orchestrator.HarmonizeAll(context.Background(), "NIST CSF", nil)

	require.NoError(t, err, "partial failure is a result, not an error")
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "SOC 2", result.Failures[0].Framework)
	assert.Contains(t, result.Failures[0].Cause, "connection refused")

	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "ISO 27001", result.Suggestions[0].TargetFramework)
}

// TestOrchestrator_HarmonizeAll_UnknownSource verifies that a source
// framework absent from the catalog is rejected as invalid input.
func TestOrchestrator_HarmonizeAll_UnknownSource(t *testing.T) {
	catalog := &fakeCatalog{controls: map[string][]models.Control{
		"NIST CSF": {{ID: 1, ControlID: "AC-1", Framework: "NIST CSF"}},
	}}

	matcher := services.NewMatcher(catalog, fixedScorer(1), nil, 1)
	orchestrator := services.NewOrchestrator(matcher, catalog, nil, 1)

	_, err := orchestrator.HarmonizeAll(context.Background(), "PCI DSS", nil)

	var validation *repository.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "source_framework", validation.Field)
}

// TestOrchestrator_HarmonizeAll_SingleFramework verifies that a catalog with
// only the source framework yields an empty result.
func TestOrchestrator_HarmonizeAll_SingleFramework(t *testing.T) {
	catalog := &fakeCatalog{controls: map[string][]models.Control{
		"NIST CSF": {{ID: 1, ControlID: "AC-1", Framework: "NIST CSF"}},
	}}

	matcher := services.NewMatcher(catalog, fixedScorer(1), nil, 1)
	orchestrator := services.NewOrchestrator(matcher, catalog, nil, 1)

	result, err := orchestrator.HarmonizeAll(context.Background(), "NIST CSF", nil)

	require.NoError(t, err)
	assert.Empty(t, result.Suggestions)
	assert.Zero(t, result.Processed)
	assert.Zero(t, result.Failed)
}
