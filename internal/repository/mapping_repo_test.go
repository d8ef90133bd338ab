// Package repository_test provides unit tests for the repository layer.
// Tests use pgxmock v4 for database mocking and follow table-driven testing
// patterns. Mapping repository tests verify the mapping graph write path,
// including unordered-pair uniqueness behavior.
package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/database"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
)

// TestMappingRepository_Create verifies single mapping creation.
//
// Database Operation:
//   - SELECT against control_mappings to detect an existing pair
//   - INSERT into control_mappings with RETURNING clause
//
// Side Effects:
//   - Sets mapping.ID and mapping.CreatedAt with database-generated values
func TestMappingRepository_Create(t *testing.T) {
	testTime := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	// Arrange - Create and configure mock database
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Inject mock into database package
	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	confidence := "93"
	mapping := &models.ControlMapping{
		SourceControlID: 1,
		TargetControlID: 2,
		MappingType:     models.MappingEquivalent,
		Confidence:      &confidence,
		Notes:           "auto-mapped",
	}

	// No existing mapping for the pair in either direction
	mock.ExpectQuery("SELECT id FROM control_mappings").
		WithArgs(1, 2).
		WillReturnError(pgx.ErrNoRows)

	// Successful INSERT with RETURNING clause
	rows := pgxmock.NewRows([]string{"id", "created_at"}).
		AddRow(10, testTime)
	mock.ExpectQuery("INSERT INTO control_mappings").
		WithArgs(1, 2, models.MappingEquivalent, &confidence, "auto-mapped").
		WillReturnRows(rows)

	repo := repository.NewMappingRepository()

	// Act
	err = repo.Create(context.Background(), mapping)

	// Assert
	assert.NoError(t, err, "Mapping creation should succeed")
	assert.Equal(t, 10, mapping.ID, "Mapping ID should be set after creation")
	assert.Equal(t, testTime, mapping.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMappingRepository_Create_ReversedDuplicate verifies that a mapping
// whose pair already exists in the opposite direction is rejected with a
// conflict carrying the existing mapping's id. The pair {A, B} is unordered:
// A->B and B->A are the same mapping.
func TestMappingRepository_Create_ReversedDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	mapping := &models.ControlMapping{
		SourceControlID: 2,
		TargetControlID: 1,
		MappingType:     models.MappingPartial,
	}

	// The pair lookup matches the existing 1->2 mapping
	rows := pgxmock.NewRows([]string{"id"}).AddRow(7)
	mock.ExpectQuery("SELECT id FROM control_mappings").
		WithArgs(2, 1).
		WillReturnRows(rows)

	repo := repository.NewMappingRepository()

	err = repo.Create(context.Background(), mapping)

	var conflict *repository.ConflictError
	require.ErrorAs(t, err, &conflict, "Reversed duplicate should be a conflict")
	assert.Equal(t, 7, conflict.ExistingID, "Conflict should carry the existing mapping id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMappingRepository_Create_RaceLostToConcurrentWriter verifies the
// ON CONFLICT fallback: the pre-check sees no mapping, but the insert
// returns no row because a concurrent writer won the race. The repository
// re-resolves the winner's id and reports a conflict.
func TestMappingRepository_Create_RaceLostToConcurrentWriter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	mapping := &models.ControlMapping{
		SourceControlID: 1,
		TargetControlID: 2,
		MappingType:     models.MappingEquivalent,
	}

	// Pre-check finds nothing
	mock.ExpectQuery("SELECT id FROM control_mappings").
		WithArgs(1, 2).
		WillReturnError(pgx.ErrNoRows)

	// INSERT is consumed by ON CONFLICT DO NOTHING
	mock.ExpectQuery("INSERT INTO control_mappings").
		WithArgs(1, 2, models.MappingEquivalent, (*string)(nil), "").
		WillReturnError(pgx.ErrNoRows)

	// Re-lookup resolves the concurrent winner
	rows := pgxmock.NewRows([]string{"id"}).AddRow(42)
	mock.ExpectQuery("SELECT id FROM control_mappings").
		WithArgs(1, 2).
		WillReturnRows(rows)

	repo := repository.NewMappingRepository()

	err = repo.Create(context.Background(), mapping)

	var conflict *repository.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 42, conflict.ExistingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMappingRepository_Create_Validation verifies the input rules shared by
// the single and bulk write paths: self-mappings, missing ids, unknown
// mapping types and out-of-range confidence are all rejected before any
// database round trip.
func TestMappingRepository_Create_Validation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	badConfidence := "150"

	tests := []struct {
		name    string
		mapping *models.ControlMapping
		field   string
	}{
		{
			name: "self mapping",
			mapping: &models.ControlMapping{
				SourceControlID: 5, TargetControlID: 5,
				MappingType: models.MappingEquivalent,
			},
			field: "target_control_id",
		},
		{
			name: "missing source",
			mapping: &models.ControlMapping{
				TargetControlID: 2,
				MappingType:     models.MappingEquivalent,
			},
			field: "source_control_id",
		},
		{
			name: "unknown mapping type",
			mapping: &models.ControlMapping{
				SourceControlID: 1, TargetControlID: 2,
				MappingType: "identical",
			},
			field: "mapping_type",
		},
		{
			name: "confidence out of range",
			mapping: &models.ControlMapping{
				SourceControlID: 1, TargetControlID: 2,
				MappingType: models.MappingPartial,
				Confidence:  &badConfidence,
			},
			field: "confidence",
		},
	}

	repo := repository.NewMappingRepository()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(context.Background(), tt.mapping)

			var validation *repository.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
		})
	}

	// No queries should have reached the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMappingRepository_BulkCreate verifies batch insertion tolerance:
// valid rows are created, duplicates (consumed by ON CONFLICT) and invalid
// rows are skipped, and the result reports both counts. Re-running the same
// batch must never fail, only skip.
func TestMappingRepository_BulkCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	confidence := "91"
	items := []models.MappingInput{
		{SourceControlID: 1, TargetControlID: 2, MappingType: "equivalent", Confidence: "91"},
		{SourceControlID: 3, TargetControlID: 4, MappingType: "partial"},
		{SourceControlID: 5, TargetControlID: 5, MappingType: "equivalent"}, // invalid: self-map
	}

	// First row inserts cleanly
	mock.ExpectQuery("INSERT INTO control_mappings").
		WithArgs(1, 2, "equivalent", &confidence, "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(11))

	// Second row hits the unordered-pair index
	mock.ExpectQuery("INSERT INTO control_mappings").
		WithArgs(3, 4, "partial", (*string)(nil), "").
		WillReturnError(pgx.ErrNoRows)

	repo := repository.NewMappingRepository()

	result, err := repo.BulkCreate(context.Background(), items)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created, "One row should be created")
	assert.Equal(t, 2, result.Skipped, "Duplicate and invalid rows should be skipped")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMappingRepository_BulkCreate_HardErrorAborts verifies that a
// store-level failure aborts the batch and surfaces as an error together
// with the counts committed so far.
func TestMappingRepository_BulkCreate_HardErrorAborts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	items := []models.MappingInput{
		{SourceControlID: 1, TargetControlID: 2, MappingType: "equivalent"},
		{SourceControlID: 3, TargetControlID: 4, MappingType: "partial"},
	}

	mock.ExpectQuery("INSERT INTO control_mappings").
		WithArgs(1, 2, "equivalent", (*string)(nil), "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(11))

	mock.ExpectQuery("INSERT INTO control_mappings").
		WithArgs(3, 4, "partial", (*string)(nil), "").
		WillReturnError(assert.AnError)

	repo := repository.NewMappingRepository()

	result, err := repo.BulkCreate(context.Background(), items)

	require.Error(t, err, "Store-level failure should abort the batch")
	assert.Equal(t, 1, result.Created, "Counts committed before the failure are reported")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMappingRepository_Delete verifies mapping deletion, including the
// not-found case when the id does not exist.
func TestMappingRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	mock.ExpectExec("DELETE FROM control_mappings").
		WithArgs(10).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	mock.ExpectExec("DELETE FROM control_mappings").
		WithArgs(99).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := repository.NewMappingRepository()

	assert.NoError(t, repo.Delete(context.Background(), 10))
	assert.ErrorIs(t, repo.Delete(context.Background(), 99), repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMappingRepository_List verifies the enriched mapping listing used by
// the dashboard and the aggregator: both controls' code, name and framework
// are joined in, in creation order.
func TestMappingRepository_List(t *testing.T) {
	testTime := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	oldDB := database.DB
	database.DB = mock
	defer func() { database.DB = oldDB }()

	confidence := "93"
	columns := []string{
		"id", "source_control_id", "target_control_id",
		"mapping_type", "confidence", "notes", "created_at",
		"source_code", "source_name", "source_framework",
		"target_code", "target_name", "target_framework",
	}
	rows := pgxmock.NewRows(columns).
		AddRow(1, 10, 20, models.MappingEquivalent, &confidence, "", testTime,
			"AC-2", "Account Management", "NIST CSF",
			"A.9.2.1", "User registration", "ISO 27001").
		AddRow(2, 11, 21, models.MappingPartial, (*string)(nil), "manual", testTime,
			"AC-3", "Access Enforcement", "NIST CSF",
			"CC6.1", "Logical access", "SOC 2")

	var clientID *int
	mock.ExpectQuery("FROM control_mappings cm").
		WithArgs(clientID).
		WillReturnRows(rows)

	repo := repository.NewMappingRepository()

	mappings, err := repo.List(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, "AC-2", mappings[0].SourceCode)
	assert.Equal(t, "ISO 27001", mappings[0].TargetFramework)
	assert.Equal(t, "93", *mappings[0].Confidence)
	assert.Nil(t, mappings[1].Confidence, "Manual mappings may have no confidence")
	assert.NoError(t, mock.ExpectationsWereMet())
}
