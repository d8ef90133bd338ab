// Package repository implements the database access layer for the control
// harmonization engine. This file handles the control catalog: framework
// listings, ordered control retrieval for matching, and catalog maintenance.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/database"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
)

// ControlRepository handles control-catalog database operations.
// The matcher consumes it read-only; the catalog API also uses the write path
// for manual entry and CSV import.
type ControlRepository struct{}

// NewControlRepository creates a new instance of ControlRepository.
func NewControlRepository() *ControlRepository {
	return &ControlRepository{}
}

// ListByFramework retrieves all controls of one framework visible to the
// given tenant, ordered by control code. The stable ordering makes matching
// and scoring reproducible across runs.
//
// Scope: a nil clientID sees only the global catalog; a non-nil clientID sees
// the global catalog plus its own tenant controls.
func (r *ControlRepository) ListByFramework(ctx context.Context, framework string, clientID *int) ([]models.Control, error) {
	query := `
		SELECT id, control_id, name, description, framework, category, client_id, created_at
		FROM controls
		WHERE framework = $1 AND (client_id IS NULL OR client_id = $2)
		ORDER BY control_id, id
	`

	rows, err := database.DB.Query(ctx, query, framework, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var controls []models.Control
	for rows.Next() {
		var c models.Control
		if err := rows.Scan(
			&c.ID, &c.ControlID, &c.Name, &c.Description,
			&c.Framework, &c.Category, &c.ClientID, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		controls = append(controls, c)
	}

	return controls, nil
}

// ListFrameworks retrieves the distinct framework names currently present in
// the visible catalog, sorted alphabetically. Used to enumerate "map against
// all frameworks".
func (r *ControlRepository) ListFrameworks(ctx context.Context, clientID *int) ([]string, error) {
	query := `
		SELECT DISTINCT framework
		FROM controls
		WHERE client_id IS NULL OR client_id = $1
		ORDER BY framework
	`

	rows, err := database.DB.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frameworks []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		frameworks = append(frameworks, f)
	}

	return frameworks, nil
}

// GetByIDs retrieves controls by id for display and enrichment after
// matching. Missing ids are simply absent from the result map.
func (r *ControlRepository) GetByIDs(ctx context.Context, ids []int) (map[int]models.Control, error) {
	controls := make(map[int]models.Control, len(ids))
	if len(ids) == 0 {
		return controls, nil
	}

	query := `
		SELECT id, control_id, name, description, framework, category, client_id, created_at
		FROM controls
		WHERE id = ANY($1)
	`

	rows, err := database.DB.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Control
		if err := rows.Scan(
			&c.ID, &c.ControlID, &c.Name, &c.Description,
			&c.Framework, &c.Category, &c.ClientID, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		controls[c.ID] = c
	}

	return controls, nil
}

// GetByID retrieves a single control by primary key.
// Returns ErrNotFound when the id does not exist.
func (r *ControlRepository) GetByID(ctx context.Context, id int) (*models.Control, error) {
	query := `
		SELECT id, control_id, name, description, framework, category, client_id, created_at
		FROM controls
		WHERE id = $1
	`

	var c models.Control
	err := database.DB.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.ControlID, &c.Name, &c.Description,
		&c.Framework, &c.Category, &c.ClientID, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// Create inserts a new control into the catalog.
// The unique (framework, control_id, client_id) index rejects duplicates;
// the conflicting insert surfaces as a ConflictError.
//
// Side Effects:
//   - Sets control.ID and control.CreatedAt with database-generated values
func (r *ControlRepository) Create(ctx context.Context, control *models.Control) error {
	query := `
		INSERT INTO controls (control_id, name, description, framework, category, client_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (framework, control_id, COALESCE(client_id, 0)) DO NOTHING
		RETURNING id, created_at
	`

	err := database.DB.QueryRow(ctx, query,
		control.ControlID, control.Name, control.Description,
		control.Framework, control.Category, control.ClientID,
	).Scan(&control.ID, &control.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict consumed the insert; report the existing row.
		existing := 0
		lookup := `
			SELECT id FROM controls
			WHERE framework = $1 AND control_id = $2 AND COALESCE(client_id, 0) = COALESCE($3, 0)
		`
		if lookupErr := database.DB.QueryRow(ctx, lookup,
			control.Framework, control.ControlID, control.ClientID,
		).Scan(&existing); lookupErr != nil {
			return lookupErr
		}
		return &ConflictError{ExistingID: existing}
	}

	return err
}

// BulkImport inserts a batch of controls, skipping duplicates against both the
// batch itself and existing catalog rows. Used by CSV framework seeding.
func (r *ControlRepository) BulkImport(ctx context.Context, controls []models.Control) (*models.ImportResult, error) {
	result := &models.ImportResult{}

	query := `
		INSERT INTO controls (control_id, name, description, framework, category, client_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (framework, control_id, COALESCE(client_id, 0)) DO NOTHING
		RETURNING id
	`

	for i := range controls {
		c := &controls[i]
		var id int
		err := database.DB.QueryRow(ctx, query,
			c.ControlID, c.Name, c.Description, c.Framework, c.Category, c.ClientID,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			result.Skipped++
			continue
		}
		if err != nil {
			// Connectivity-level failure: abort, report what was committed.
			return result, err
		}
		c.ID = id
		result.Created++
	}

	return result, nil
}

// Delete removes a control from the catalog. Controls still referenced by
// mappings are rejected with ErrControlReferenced rather than cascaded: the
// mapping graph is a reviewed artifact and must be dismantled explicitly.
func (r *ControlRepository) Delete(ctx context.Context, id int) error {
	var refs int
	countQuery := `
		SELECT COUNT(*) FROM control_mappings
		WHERE source_control_id = $1 OR target_control_id = $1
	`
	if err := database.DB.QueryRow(ctx, countQuery, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrControlReferenced
	}

	tag, err := database.DB.Exec(ctx, `DELETE FROM controls WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// CountByFramework returns the number of visible controls per framework.
// Used by the harmonization stats endpoint for coverage reporting.
func (r *ControlRepository) CountByFramework(ctx context.Context, clientID *int) (map[string]int, error) {
	query := `
		SELECT framework, COUNT(*)
		FROM controls
		WHERE client_id IS NULL OR client_id = $1
		GROUP BY framework
	`

	rows, err := database.DB.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var framework string
		var count int
		if err := rows.Scan(&framework, &count); err != nil {
			return nil, err
		}
		counts[framework] = count
	}

	return counts, nil
}
