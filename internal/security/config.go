// Package security provides centralized configuration, structured logging,
// input validation and rate limiting for the harmonization engine.
package security

import (
	"time"
)

// SecurityConfig holds all engine tuning and protection configuration values.
type SecurityConfig struct {
	// Engine concurrency and timeouts. The scorer is assumed to be a slow,
	// possibly remote collaborator with its own rate limits; the per-call
	// timeout turns a stalled comparison into a skipped pair instead of a
	// stalled harmonization run.
	ScorerTimeout           time.Duration // Per-pair scoring deadline
	MaxScorerConcurrency    int           // Concurrent scorer calls inside one auto-map run
	MaxFrameworkConcurrency int           // Concurrent framework pairs in harmonize-all
	QueryTimeout            time.Duration // Database query deadline per request

	// Rate limiting (requests per time window per client IP).
	RateLimitAutoMap      int // Auto-map endpoint, O(n*m) scorer calls each
	RateLimitHarmonizeAll int // Harmonize-all endpoint, a full fan-out each
	RateLimitImport       int // CSV catalog import
	RateLimitMutations    int // Mapping create/bulk-create/delete

	// Input validation limits.
	MaxFrameworkNameLength int // Maximum characters in a framework name
	MaxControlCodeLength   int // Maximum characters in a control code
	MaxControlNameLength   int // Maximum characters in a control name
	MaxDescriptionSize     int // Maximum bytes of control description text
	MaxNotesLength         int // Maximum characters in mapping notes
	MaxCSVRows             int // Maximum rows in a CSV import
	MaxBulkItems           int // Maximum items in one bulk-create batch
}

// DefaultSecurityConfig returns configuration with recommended defaults.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		ScorerTimeout:           5 * time.Second,
		MaxScorerConcurrency:    8,
		MaxFrameworkConcurrency: 3,
		QueryTimeout:            30 * time.Second,

		// Auto-map is the expensive path; keep it to a handful per minute.
		RateLimitAutoMap:      6,  // per minute
		RateLimitHarmonizeAll: 2,  // per minute
		RateLimitImport:       5,  // per hour
		RateLimitMutations:    60, // per minute

		MaxFrameworkNameLength: 128,
		MaxControlCodeLength:   64,
		MaxControlNameLength:   255,
		MaxDescriptionSize:     64 * 1024,
		MaxNotesLength:         2000,
		MaxCSVRows:             10000,
		MaxBulkItems:           1000,
	}
}
