package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
)

// defaultAuditLimit caps the audit listing when no limit is given.
const defaultAuditLimit = 50

// maxAuditLimit is the hard ceiling for one audit page.
const maxAuditLimit = 500

// AuditHandler serves the read-only audit trail.
type AuditHandler struct {
	auditRepo *repository.AuditRepository
}

// NewAuditHandler creates an AuditHandler with an initialized repository.
func NewAuditHandler() *AuditHandler {
	return &AuditHandler{auditRepo: repository.NewAuditRepository()}
}

// ListRecent handles GET /api/audit?limit=N. Entries come back newest first.
func (h *AuditHandler) ListRecent(c *fiber.Ctx) error {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		if parsed > maxAuditLimit {
			parsed = maxAuditLimit
		}
		limit = parsed
	}

	logs, err := h.auditRepo.ListRecent(c.Context(), limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"entries": logs,
		"count":   len(logs),
	})
}
