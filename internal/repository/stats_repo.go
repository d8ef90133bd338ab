// Package repository implements the database access layer for the control
// harmonization engine. This file provides aggregation queries for the
// harmonization statistics endpoint.
package repository

import (
	"context"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/database"
)

// StatsRepository handles statistical queries over the mapping graph.
// These aggregates power the harmonization dashboard: how much of the
// catalog is linked, and which framework pairs carry the links.
type StatsRepository struct{}

// NewStatsRepository creates a new instance of StatsRepository.
func NewStatsRepository() *StatsRepository {
	return &StatsRepository{}
}

// HarmonizationStats represents aggregated mapping-graph metrics.
type HarmonizationStats struct {
	TotalMappings   int     // All mappings in scope
	EquivalentCount int     // Mappings typed equivalent
	PartialCount    int     // Mappings typed partial
	RelatedCount    int     // Mappings typed related
	MappedControls  int     // Distinct controls appearing on either side of a mapping
	TotalControls   int     // Controls in the visible catalog
	CoverageRate    float64 // MappedControls / TotalControls * 100 (0 when catalog empty)
}

// FrameworkPairStats counts mappings between one ordered framework pair as
// stored (source framework -> target framework).
type FrameworkPairStats struct {
	SourceFramework string `json:"source_framework"`
	TargetFramework string `json:"target_framework"`
	MappingCount    int    `json:"mapping_count"`
}

// GetHarmonizationStats retrieves the aggregate mapping metrics for the given
// tenant scope (nil = system-wide).
func (r *StatsRepository) GetHarmonizationStats(ctx context.Context, clientID *int) (*HarmonizationStats, error) {
	query := `
		SELECT
			COUNT(cm.id) AS total_mappings,
			COUNT(CASE WHEN cm.mapping_type = 'equivalent' THEN 1 END) AS equivalent_count,
			COUNT(CASE WHEN cm.mapping_type = 'partial' THEN 1 END) AS partial_count,
			COUNT(CASE WHEN cm.mapping_type = 'related' THEN 1 END) AS related_count,
			(SELECT COUNT(DISTINCT c.id) FROM controls c
			 JOIN control_mappings m ON c.id IN (m.source_control_id, m.target_control_id)
			 WHERE c.client_id IS NULL OR c.client_id = $1) AS mapped_controls,
			(SELECT COUNT(*) FROM controls
			 WHERE client_id IS NULL OR client_id = $1) AS total_controls
		FROM control_mappings cm
	`

	var stats HarmonizationStats
	err := database.DB.QueryRow(ctx, query, clientID).Scan(
		&stats.TotalMappings,
		&stats.EquivalentCount,
		&stats.PartialCount,
		&stats.RelatedCount,
		&stats.MappedControls,
		&stats.TotalControls,
	)
	if err != nil {
		return nil, err
	}

	if stats.TotalControls > 0 {
		stats.CoverageRate = float64(stats.MappedControls) / float64(stats.TotalControls) * 100
	}

	return &stats, nil
}

// ListFrameworkPairStats retrieves mapping counts grouped by the stored
// (source framework, target framework) pair, largest first.
func (r *StatsRepository) ListFrameworkPairStats(ctx context.Context) ([]FrameworkPairStats, error) {
	query := `
		SELECT sc.framework, tc.framework, COUNT(cm.id)
		FROM control_mappings cm
		JOIN controls sc ON sc.id = cm.source_control_id
		JOIN controls tc ON tc.id = cm.target_control_id
		GROUP BY sc.framework, tc.framework
		ORDER BY COUNT(cm.id) DESC, sc.framework, tc.framework
	`

	rows, err := database.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []FrameworkPairStats
	for rows.Next() {
		var p FrameworkPairStats
		if err := rows.Scan(&p.SourceFramework, &p.TargetFramework, &p.MappingCount); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}

	return pairs, nil
}
