// Package handlers implements HTTP request handlers for the harmonization
// API. This file serves the mapping store: listing, single and bulk creation,
// and deletion of confirmed control mappings.
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/security"
)

// MappingHandler serves the /api/mappings endpoints.
type MappingHandler struct {
	mappingRepo *repository.MappingRepository
	auditRepo   *repository.AuditRepository
	validate    *security.ValidationService
	logger      *security.Logger
}

// NewMappingHandler creates a MappingHandler with initialized repositories.
func NewMappingHandler(validate *security.ValidationService, logger *security.Logger) *MappingHandler {
	return &MappingHandler{
		mappingRepo: repository.NewMappingRepository(),
		auditRepo:   repository.NewAuditRepository(),
		validate:    validate,
		logger:      logger,
	}
}

// List handles GET /api/mappings.
// Returns mappings enriched with both controls' framework/code/name, scoped
// to the caller's tenant via the optional client_id query parameter.
func (h *MappingHandler) List(c *fiber.Ctx) error {
	clientID, err := queryClientID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	mappings, err := h.mappingRepo.List(c.Context(), clientID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"mappings": mappings,
		"count":    len(mappings),
	})
}

// Create handles POST /api/mappings.
//
// Manual single-create: any mapping type is allowed regardless of
// confidence, and confidence may be absent entirely. Duplicate unordered
// pairs are rejected with 409 carrying the existing mapping's id.
func (h *MappingHandler) Create(c *fiber.Ctx) error {
	var input models.MappingInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validate.ValidateNotes(input.Notes); err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.validate.ValidateConfidence(input.Confidence); err != nil {
		return badRequest(c, err.Error())
	}

	mapping := &models.ControlMapping{
		SourceControlID: input.SourceControlID,
		TargetControlID: input.TargetControlID,
		MappingType:     models.MappingType(input.MappingType),
		Notes:           h.validate.SanitizeString(input.Notes),
	}
	if input.Confidence != "" {
		confidence := input.Confidence
		mapping.Confidence = &confidence
	}

	if err := h.mappingRepo.Create(c.Context(), mapping); err != nil {
		return writeError(c, err)
	}

	h.audit(c, "CREATE_MAPPING", "mapping", &mapping.ID)
	return c.Status(fiber.StatusCreated).JSON(mapping)
}

// BulkCreate handles POST /api/mappings/bulk.
//
// The typical caller flow is "generate suggestions, user deselects a few,
// bulk-save the rest"; duplicates inside the batch and against existing rows
// are skipped, not fatal, and the response reports created versus skipped.
func (h *MappingHandler) BulkCreate(c *fiber.Ctx) error {
	var req struct {
		Items []models.MappingInput `json:"items"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validate.ValidateBulkSize(len(req.Items)); err != nil {
		return badRequest(c, err.Error())
	}
	for _, item := range req.Items {
		if err := h.validate.ValidateNotes(item.Notes); err != nil {
			return badRequest(c, err.Error())
		}
	}

	result, err := h.mappingRepo.BulkCreate(c.Context(), req.Items)
	if err != nil {
		// Connectivity-level failure: nothing partially committed is
		// reported as success.
		return writeError(c, err)
	}

	h.audit(c, "BULK_CREATE_MAPPINGS", "mapping", nil)
	return c.JSON(result)
}

// Delete handles DELETE /api/mappings/:id. Hard delete; an edit is modeled
// as delete+recreate.
func (h *MappingHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.mappingRepo.Delete(c.Context(), id); err != nil {
		return writeError(c, err)
	}

	h.audit(c, "DELETE_MAPPING", "mapping", &id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MappingHandler) audit(c *fiber.Ctx, action, objectType string, objectID *int) {
	entry := &models.AuditLog{
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
	}
	if err := h.auditRepo.Log(c.Context(), entry); err != nil {
		h.logger.Error("failed to write audit log", err)
	}
}
