// Package repository implements the database access layer for the control
// harmonization engine. This file is the mapping store: single and bulk
// creation with unordered-pair uniqueness, deletion, and the enriched listing
// the aggregator consumes.
package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/database"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
)

// MappingRepository handles all database operations on the control mapping
// graph. Uniqueness of the unordered {source, target} pair is enforced by a
// database index on (LEAST, GREATEST), so concurrent writers racing on the
// same pair resolve safely inside PostgreSQL rather than in application code.
type MappingRepository struct{}

// NewMappingRepository creates a new instance of MappingRepository.
func NewMappingRepository() *MappingRepository {
	return &MappingRepository{}
}

// FindByPair looks up the mapping covering the unordered pair {a, b}.
// Returns the mapping id and true when one exists in either direction.
func (r *MappingRepository) FindByPair(ctx context.Context, a, b int) (int, bool, error) {
	query := `
		SELECT id FROM control_mappings
		WHERE (source_control_id = $1 AND target_control_id = $2)
		   OR (source_control_id = $2 AND target_control_id = $1)
	`

	var id int
	err := database.DB.QueryRow(ctx, query, a, b).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return id, true, nil
}

// Create inserts a single mapping after validating it.
//
// Failure Modes:
//   - ValidationError: self-mapping, missing ids, unknown mapping type,
//     confidence outside 0-100
//   - ConflictError: the unordered pair already has a mapping (in either
//     direction); carries the existing mapping's id
//
// Existence is re-checked at write time, never assumed from an earlier read:
// suggestions are reviewed asynchronously and the store may have changed.
// The ON CONFLICT clause closes the remaining race window against concurrent
// creators.
//
// Side Effects:
//   - Sets mapping.ID and mapping.CreatedAt with database-generated values
func (r *MappingRepository) Create(ctx context.Context, mapping *models.ControlMapping) error {
	if err := validateMapping(mapping.SourceControlID, mapping.TargetControlID, string(mapping.MappingType), mapping.Confidence); err != nil {
		return err
	}

	if existing, found, err := r.FindByPair(ctx, mapping.SourceControlID, mapping.TargetControlID); err != nil {
		return err
	} else if found {
		return &ConflictError{ExistingID: existing}
	}

	query := `
		INSERT INTO control_mappings (source_control_id, target_control_id, mapping_type, confidence, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (LEAST(source_control_id, target_control_id), GREATEST(source_control_id, target_control_id)) DO NOTHING
		RETURNING id, created_at
	`

	err := database.DB.QueryRow(ctx, query,
		mapping.SourceControlID, mapping.TargetControlID,
		mapping.MappingType, mapping.Confidence, mapping.Notes,
	).Scan(&mapping.ID, &mapping.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race with a concurrent creator; resolve the winner's id.
		existing, found, lookupErr := r.FindByPair(ctx, mapping.SourceControlID, mapping.TargetControlID)
		if lookupErr != nil {
			return lookupErr
		}
		if found {
			return &ConflictError{ExistingID: existing}
		}
		return err
	}

	return err
}

// BulkCreate inserts a batch of mappings, tolerating duplicates both inside
// the batch and against existing rows. Each candidate is checked
// independently: invalid rows and duplicates are counted as skipped, never
// treated as fatal. This makes the typical flow -- generate suggestions, user
// deselects a few, bulk-save the rest, possibly re-run later -- idempotent.
//
// A store-level failure (connectivity, constraint other than the pair index)
// aborts the batch and is returned as a hard error together with the counts
// committed so far; nothing partially committed is reported as full success.
func (r *MappingRepository) BulkCreate(ctx context.Context, items []models.MappingInput) (*models.BulkCreateResult, error) {
	result := &models.BulkCreateResult{}

	query := `
		INSERT INTO control_mappings (source_control_id, target_control_id, mapping_type, confidence, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (LEAST(source_control_id, target_control_id), GREATEST(source_control_id, target_control_id)) DO NOTHING
		RETURNING id
	`

	for _, item := range items {
		confidence := confidencePtr(item.Confidence)
		if err := validateMapping(item.SourceControlID, item.TargetControlID, item.MappingType, confidence); err != nil {
			result.Skipped++
			continue
		}

		var id int
		err := database.DB.QueryRow(ctx, query,
			item.SourceControlID, item.TargetControlID,
			item.MappingType, confidence, item.Notes,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			// The pair already has a mapping, here or in a previous run.
			result.Skipped++
			continue
		}
		if err != nil {
			return result, err
		}
		result.Created++
	}

	return result, nil
}

// Delete removes a mapping by id. Hard delete, no tombstone.
// Returns ErrNotFound when the id does not exist.
func (r *MappingRepository) Delete(ctx context.Context, id int) error {
	tag, err := database.DB.Exec(ctx, `DELETE FROM control_mappings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List retrieves all mappings enriched with both controls' code, name and
// framework, in creation order. The stable insertion order is what the
// aggregator's first-seen grouping relies on.
//
// Scope: a mapping is visible when both of its controls are visible to the
// caller -- global controls always, tenant controls only to their own tenant.
// A nil clientID (system scope) sees everything.
func (r *MappingRepository) List(ctx context.Context, clientID *int) ([]models.MappingView, error) {
	query := `
		SELECT
			cm.id, cm.source_control_id, cm.target_control_id,
			cm.mapping_type, cm.confidence, cm.notes, cm.created_at,
			sc.control_id AS source_code, sc.name AS source_name, sc.framework AS source_framework,
			tc.control_id AS target_code, tc.name AS target_name, tc.framework AS target_framework
		FROM control_mappings cm
		JOIN controls sc ON sc.id = cm.source_control_id
		JOIN controls tc ON tc.id = cm.target_control_id
		WHERE ($1::int IS NULL OR (
			(sc.client_id IS NULL OR sc.client_id = $1) AND
			(tc.client_id IS NULL OR tc.client_id = $1)
		))
		ORDER BY cm.id
	`

	rows, err := database.DB.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []models.MappingView
	for rows.Next() {
		var m models.MappingView
		if err := rows.Scan(
			&m.ID, &m.SourceControlID, &m.TargetControlID,
			&m.MappingType, &m.Confidence, &m.Notes, &m.CreatedAt,
			&m.SourceCode, &m.SourceName, &m.SourceFramework,
			&m.TargetCode, &m.TargetName, &m.TargetFramework,
		); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	return mappings, nil
}

// validateMapping applies the input rules shared by Create and BulkCreate.
func validateMapping(sourceID, targetID int, mappingType string, confidence *string) error {
	if sourceID <= 0 {
		return &ValidationError{Field: "source_control_id", Reason: "required"}
	}
	if targetID <= 0 {
		return &ValidationError{Field: "target_control_id", Reason: "required"}
	}
	if sourceID == targetID {
		return &ValidationError{Field: "target_control_id", Reason: "a control cannot map to itself"}
	}
	if !models.MappingType(mappingType).Valid() {
		return &ValidationError{Field: "mapping_type", Reason: "must be equivalent, partial or related"}
	}
	if confidence != nil {
		value, err := strconv.ParseFloat(*confidence, 64)
		if err != nil || value < 0 || value > 100 {
			return &ValidationError{Field: "confidence", Reason: "must be a decimal between 0 and 100"}
		}
	}
	return nil
}

// confidencePtr converts the wire form of confidence (empty string = absent)
// into the nullable column form.
func confidencePtr(confidence string) *string {
	if confidence == "" {
		return nil
	}
	return &confidence
}
