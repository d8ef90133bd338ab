// Package repository implements the database access layer for the control
// harmonization engine. This file implements the audit repository for
// compliance logging of mutating operations.
package repository

import (
	"context"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/database"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
)

// AuditRepository handles all database operations related to audit logging.
//
// Purpose:
//   - Compliance reporting and regulatory requirements
//   - Tracking every change to the mapping graph and catalog
//
// Immutability Note:
//
//	Audit logs are never modified or deleted once created. They provide a
//	permanent record of harmonization activity.
type AuditRepository struct{}

// NewAuditRepository creates and returns a new AuditRepository instance.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Log creates a new audit log entry in the database.
//
// Called after any significant action such as:
//   - Mapping creation, bulk creation, or deletion
//   - Auto-map and harmonize-all runs
//   - Control creation, deletion, or CSV import
//
// Side Effects:
//   - Sets log.ID and log.CreatedAt with database-generated values
//
// Common Action Types:
//   - "CREATE_MAPPING", "BULK_CREATE_MAPPINGS", "DELETE_MAPPING"
//   - "AUTO_MAP", "HARMONIZE_ALL"
//   - "CREATE_CONTROL", "DELETE_CONTROL", "IMPORT_CONTROLS"
func (r *AuditRepository) Log(ctx context.Context, log *models.AuditLog) error {
	query := `
        INSERT INTO audit_logs (actor_id, action, object_type, object_id, ip_address, user_agent)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `

	return database.DB.QueryRow(ctx, query,
		log.ActorID, log.Action, log.ObjectType, log.ObjectID, log.IPAddress, log.UserAgent,
	).Scan(&log.ID, &log.CreatedAt)
}

// ListRecent retrieves the most recent audit log entries, newest first.
// Typical limits: 50 for a dashboard, 500 for a full audit view.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	query := `
        SELECT
            id, actor_id, action, object_type, object_id,
            ip_address, user_agent, created_at
        FROM audit_logs
        ORDER BY created_at DESC
        LIMIT $1
    `

	rows, err := database.DB.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var entry models.AuditLog

		// ActorID and ObjectID are pointers to handle NULL values.
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.ObjectType,
			&entry.ObjectID,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}

	return logs, nil
}
