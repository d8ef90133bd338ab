// Package security provides input validation functionality for the
// harmonization API surface.
package security

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ValidationService provides centralized input validation functions.
// Limits come from SecurityConfig so they stay consistent across handlers.
type ValidationService struct {
	config *SecurityConfig
}

// NewValidationService creates a validation service with the given config.
func NewValidationService(config *SecurityConfig) *ValidationService {
	return &ValidationService{config: config}
}

// ValidateRequired checks that a required field is non-empty after trimming.
func (v *ValidationService) ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateFrameworkName checks a framework name for presence, length and
// printable content.
func (v *ValidationService) ValidateFrameworkName(name string) error {
	if err := v.ValidateRequired("framework", name); err != nil {
		return err
	}
	if len(name) > v.config.MaxFrameworkNameLength {
		return fmt.Errorf("framework name exceeds %d characters", v.config.MaxFrameworkNameLength)
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("framework name contains non-printable characters")
		}
	}
	return nil
}

// ValidateControlCode checks a human control code (e.g. "AC-1", "CC6.1").
func (v *ValidationService) ValidateControlCode(code string) error {
	if err := v.ValidateRequired("control_id", code); err != nil {
		return err
	}
	if len(code) > v.config.MaxControlCodeLength {
		return fmt.Errorf("control code exceeds %d characters", v.config.MaxControlCodeLength)
	}
	return nil
}

// ValidateControlName checks a control's display name.
func (v *ValidationService) ValidateControlName(name string) error {
	if err := v.ValidateRequired("name", name); err != nil {
		return err
	}
	if len(name) > v.config.MaxControlNameLength {
		return fmt.Errorf("control name exceeds %d characters", v.config.MaxControlNameLength)
	}
	return nil
}

// ValidateDescription checks control description size.
func (v *ValidationService) ValidateDescription(description string) error {
	if len(description) > v.config.MaxDescriptionSize {
		return fmt.Errorf("description exceeds %d bytes", v.config.MaxDescriptionSize)
	}
	return nil
}

// ValidateNotes checks mapping notes length.
func (v *ValidationService) ValidateNotes(notes string) error {
	if len(notes) > v.config.MaxNotesLength {
		return fmt.Errorf("notes exceed %d characters", v.config.MaxNotesLength)
	}
	return nil
}

// ValidateConfidence checks the string-encoded decimal confidence used by
// the mapping store. Empty is valid (manual mapping, no confidence).
func (v *ValidationService) ValidateConfidence(confidence string) error {
	if confidence == "" {
		return nil
	}
	value, err := strconv.ParseFloat(confidence, 64)
	if err != nil {
		return fmt.Errorf("confidence must be a decimal number")
	}
	if value < 0 || value > 100 {
		return fmt.Errorf("confidence must be between 0 and 100")
	}
	return nil
}

// ValidateCSVRowCount checks a CSV import against the configured row cap.
func (v *ValidationService) ValidateCSVRowCount(rowCount int) error {
	if rowCount > v.config.MaxCSVRows {
		return fmt.Errorf("CSV import exceeds maximum of %d rows", v.config.MaxCSVRows)
	}
	return nil
}

// ValidateBulkSize checks a bulk-create batch against the configured cap.
func (v *ValidationService) ValidateBulkSize(itemCount int) error {
	if itemCount == 0 {
		return fmt.Errorf("at least one mapping is required")
	}
	if itemCount > v.config.MaxBulkItems {
		return fmt.Errorf("bulk create exceeds maximum of %d items", v.config.MaxBulkItems)
	}
	return nil
}

// ValidateClientID checks an optional tenant id.
func (v *ValidationService) ValidateClientID(clientID *int) error {
	if clientID != nil && *clientID <= 0 {
		return fmt.Errorf("client_id must be a positive integer")
	}
	return nil
}

// SanitizeString removes control characters and trims whitespace.
func (v *ValidationService) SanitizeString(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}
