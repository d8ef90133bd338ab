// Package models defines the domain entities and data transfer objects for the
// control harmonization engine. It includes database models mapped to PostgreSQL
// tables, request DTOs for the JSON API, and derived view models for the
// harmonized "master control" groupings.
package models

import "time"

// ============================================================================
// Domain Models (Database Entities)
// ============================================================================

// Control represents a single compliance requirement belonging to exactly one
// framework (e.g. ISO 27001 clause A.9.1). Controls are the nodes of the
// mapping graph; their name and description text are the similarity input.
//
// Database Table: controls
// Invariant: (framework, control_id, client_id) is unique. Framework and
// ClientID are immutable after creation; re-scoping requires delete+recreate.
type Control struct {
	ID          int       `db:"id" json:"id"`                   // Primary key, auto-increment
	ControlID   string    `db:"control_id" json:"control_id"`   // Human code, e.g. "AC-1", unique within a framework
	Name        string    `db:"name" json:"name"`               // Short control name
	Description string    `db:"description" json:"description"` // Free text, similarity input
	Framework   string    `db:"framework" json:"framework"`     // Owning framework, e.g. "ISO 27001"
	Category    string    `db:"category" json:"category"`       // Grouping within the framework
	ClientID    *int      `db:"client_id" json:"client_id"`     // nil = global/system catalog, non-nil = tenant-scoped
	CreatedAt   time.Time `db:"created_at" json:"created_at"`   // Creation timestamp
}

// MappingType classifies the strength of an equivalence link between two controls.
type MappingType string

const (
	// MappingEquivalent marks controls that satisfy each other's requirements.
	// Auto-map assigns this for confidence >= 90.
	MappingEquivalent MappingType = "equivalent"

	// MappingPartial marks controls with meaningful but incomplete overlap.
	// Auto-map assigns this for confidence in [75, 90).
	MappingPartial MappingType = "partial"

	// MappingRelated marks a looser association. Never emitted by auto-map;
	// reserved for manually created mappings.
	MappingRelated MappingType = "related"
)

// Valid reports whether m is one of the closed set of mapping types.
func (m MappingType) Valid() bool {
	switch m {
	case MappingEquivalent, MappingPartial, MappingRelated:
		return true
	}
	return false
}

// MappingTypeForConfidence derives the mapping type auto-map assigns for an
// integer confidence percentage. Pairs below the acceptance floor are never
// emitted, so "related" is unreachable from this path.
func MappingTypeForConfidence(confidence int) MappingType {
	if confidence >= 90 {
		return MappingEquivalent
	}
	return MappingPartial
}

// ControlMapping represents a directed equivalence link between two controls,
// typically from different frameworks.
//
// Database Table: control_mappings
// Invariants:
//   - source_control_id != target_control_id (no self-mapping)
//   - at most one mapping per unordered pair {source, target}; A->B and B->A
//     are the same mapping for uniqueness purposes
//
// Lifecycle: created by manual single-create or bulk-create from accepted
// auto-map suggestions; deleted by id; never mutated in place. An edit is
// modeled as delete+recreate so confidence and notes always reflect the
// operation that produced them.
type ControlMapping struct {
	ID              int         `db:"id" json:"id"`                               // Primary key
	SourceControlID int         `db:"source_control_id" json:"source_control_id"` // FK -> controls.id
	TargetControlID int         `db:"target_control_id" json:"target_control_id"` // FK -> controls.id
	MappingType     MappingType `db:"mapping_type" json:"mapping_type"`           // equivalent | partial | related
	Confidence      *string     `db:"confidence" json:"confidence"`               // String-encoded decimal 0-100, nil for manual mappings
	Notes           string      `db:"notes" json:"notes"`                         // Free text
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`               // Creation timestamp
}

// AuditLog represents an audit trail entry for compliance and security monitoring.
// All mutating operations (mapping create/delete, bulk saves, auto-map runs,
// catalog imports) are logged here.
//
// Database Table: audit_logs
// Immutability: entries are never modified or deleted once created.
type AuditLog struct {
	ID         int       `json:"id"`          // Primary key
	ActorID    *int      `json:"actor_id"`    // Acting user, nil for system actions
	Action     string    `json:"action"`      // Action type (e.g. "CREATE_MAPPING", "AUTO_MAP")
	ObjectType string    `json:"object_type"` // Affected object type (e.g. "mapping", "control")
	ObjectID   *int      `json:"object_id"`   // Affected object id, nil when not applicable
	IPAddress  string    `json:"ip_address"`  // Source IP for the audit trail
	UserAgent  string    `json:"user_agent"`  // Client identifier
	CreatedAt  time.Time `json:"created_at"`  // When the action occurred
}

// ============================================================================
// Engine Output (transient, never persisted until accepted)
// ============================================================================

// MappingSuggestion is a candidate mapping produced in memory by the matcher.
// It becomes a ControlMapping only if selected and passed to bulk-create.
//
// SourceCode and TargetCode carry the human control codes so ranked output is
// deterministic (ties broken by code) and reviewable without a second catalog
// lookup.
type MappingSuggestion struct {
	SourceID        int         `json:"source_id"`
	TargetID        int         `json:"target_id"`
	SourceCode      string      `json:"source_code"`
	TargetCode      string      `json:"target_code"`
	SourceFramework string      `json:"source_framework"`
	TargetFramework string      `json:"target_framework"`
	MappingType     MappingType `json:"mapping_type"`
	Confidence      int         `json:"confidence"` // Integer percentage, always >= the acceptance floor
}

// FrameworkFailure records a target framework the orchestrator could not
// process during a harmonize-all run. Partial success is the expected
// outcome; failures are reported alongside the gathered suggestions.
type FrameworkFailure struct {
	Framework string `json:"framework"`
	Cause     string `json:"cause"`
}

// AutoMapResult is the outcome of a single framework-pair matching run.
// SkippedPairs counts individual scorer failures (timeouts, malformed input)
// recovered by skipping the pair; it is a soft warning, not an error.
type AutoMapResult struct {
	Suggestions   []MappingSuggestion `json:"suggestions"`
	ComparedPairs int                 `json:"compared_pairs"`
	SkippedPairs  int                 `json:"skipped_pairs"`
}

// HarmonizeAllResult is the merged outcome of matching one source framework
// against every other known framework.
type HarmonizeAllResult struct {
	Suggestions   []MappingSuggestion `json:"suggestions"`
	Failures      []FrameworkFailure  `json:"failures"`
	Processed     int                 `json:"frameworks_processed"`
	Failed        int                 `json:"frameworks_failed"`
	ComparedPairs int                 `json:"compared_pairs"`
	SkippedPairs  int                 `json:"skipped_pairs"`
}

// ============================================================================
// Data Transfer Objects (API Input)
// ============================================================================

// MappingInput is one row of a bulk-create request. Confidence is the
// string-encoded decimal form used by the store; empty means no confidence
// (manual mapping).
type MappingInput struct {
	SourceControlID int    `json:"source_control_id"`
	TargetControlID int    `json:"target_control_id"`
	MappingType     string `json:"mapping_type"`
	Confidence      string `json:"confidence"`
	Notes           string `json:"notes"`
}

// AutoMapRequest is the body of POST /api/harmonize/auto-map.
// When Save is false (the common case) suggestions are returned for human
// review and nothing is persisted.
type AutoMapRequest struct {
	SourceFramework string `json:"source_framework"`
	TargetFramework string `json:"target_framework"`
	ClientID        *int   `json:"client_id"`
	Save            bool   `json:"save"`
}

// HarmonizeAllRequest is the body of POST /api/harmonize/all.
type HarmonizeAllRequest struct {
	SourceFramework string `json:"source_framework"`
	ClientID        *int   `json:"client_id"`
}

// ControlForm is the body of POST /api/controls.
type ControlForm struct {
	ControlID   string `json:"control_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Framework   string `json:"framework"`
	Category    string `json:"category"`
	ClientID    *int   `json:"client_id"`
}

// ============================================================================
// View Models (Derived, read-only)
// ============================================================================

// MappingView is a ControlMapping enriched with both controls' code, name and
// framework, as returned by the mapping store's list query. Used directly by
// the harmonization aggregator and the mappings API.
type MappingView struct {
	ControlMapping
	SourceCode      string `db:"source_code" json:"source_code"`
	SourceName      string `db:"source_name" json:"source_name"`
	SourceFramework string `db:"source_framework" json:"source_framework"`
	TargetCode      string `db:"target_code" json:"target_code"`
	TargetName      string `db:"target_name" json:"target_name"`
	TargetFramework string `db:"target_framework" json:"target_framework"`
}

// HarmonizedTarget is one mapped counterpart inside a harmonized group.
// Direction is "forward" when the group's control is the mapping source and
// "reverse" when the counterpart was reached through the symmetric view.
type HarmonizedTarget struct {
	MappingID   int         `json:"mapping_id"`
	ControlID   int         `json:"control_id"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Framework   string      `json:"framework"`
	MappingType MappingType `json:"mapping_type"`
	Confidence  *string     `json:"confidence"`
	Direction   string      `json:"direction"`
}

// HarmonizedGroup is the "master control" view: one source control fanning
// out to its mapped counterparts across frameworks. It is derived by grouping
// the flat mapping list by source control and is never stored.
type HarmonizedGroup struct {
	ControlID int                `json:"control_id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Framework string             `json:"framework"`
	Targets   []HarmonizedTarget `json:"targets"`
}

// BulkCreateResult reports how many rows of a bulk-create batch were actually
// inserted versus skipped as duplicates or invalid. Re-running a batch after
// partial acceptance is idempotent: the second run reports created 0.
type BulkCreateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// ImportResult reports the outcome of a CSV catalog import.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
