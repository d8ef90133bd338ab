// Package handlers implements HTTP request handlers for the harmonization
// API. This file exposes the engine itself: auto-map for one framework pair,
// harmonize-all across every known framework, the grouped "master control"
// views, and harmonization statistics.
package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/security"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/services"
)

// HarmonizeHandler serves the harmonization engine endpoints.
type HarmonizeHandler struct {
	matcher      *services.Matcher
	orchestrator *services.Orchestrator
	aggregator   *services.Aggregator
	mappingRepo  *repository.MappingRepository
	statsRepo    *repository.StatsRepository
	auditRepo    *repository.AuditRepository
	validate     *security.ValidationService
	logger       *security.Logger
}

// NewHarmonizeHandler creates a handler around an existing matcher and
// orchestrator.
func NewHarmonizeHandler(matcher *services.Matcher, orchestrator *services.Orchestrator, validate *security.ValidationService, logger *security.Logger) *HarmonizeHandler {
	return &HarmonizeHandler{
		matcher:      matcher,
		orchestrator: orchestrator,
		aggregator:   services.NewAggregator(),
		mappingRepo:  repository.NewMappingRepository(),
		statsRepo:    repository.NewStatsRepository(),
		auditRepo:    repository.NewAuditRepository(),
		validate:     validate,
		logger:       logger,
	}
}

// AutoMap handles POST /api/harmonize/auto-map.
//
// Runs the matcher for one framework pair and returns ranked suggestions.
// With save=false (the common case) nothing is persisted; the caller reviews
// and bulk-creates separately. With save=true the suggestions are persisted
// through the same duplicate-tolerant bulk path and the created/skipped
// counts are included in the response.
func (h *HarmonizeHandler) AutoMap(c *fiber.Ctx) error {
	var req models.AutoMapRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validate.ValidateFrameworkName(req.SourceFramework); err != nil {
		return badRequest(c, "source_framework: "+err.Error())
	}
	if err := h.validate.ValidateFrameworkName(req.TargetFramework); err != nil {
		return badRequest(c, "target_framework: "+err.Error())
	}
	if err := h.validate.ValidateClientID(req.ClientID); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.matcher.AutoMap(c.Context(), req.SourceFramework, req.TargetFramework, req.ClientID)
	if err != nil {
		return writeError(c, err)
	}

	response := fiber.Map{
		"suggestions":    result.Suggestions,
		"count":          len(result.Suggestions),
		"compared_pairs": result.ComparedPairs,
		"skipped_pairs":  result.SkippedPairs,
	}

	if req.Save && len(result.Suggestions) > 0 {
		saved, err := h.mappingRepo.BulkCreate(c.Context(), suggestionInputs(result.Suggestions))
		if err != nil {
			return writeError(c, err)
		}
		response["created"] = saved.Created
		response["skipped"] = saved.Skipped
	}

	h.audit(c, "AUTO_MAP", "framework_pair", nil)
	return c.JSON(response)
}

// HarmonizeAll handles POST /api/harmonize/all.
//
// Matches the source framework against every other known framework. One
// framework's failure never fails the request: the response always carries
// the gathered suggestions plus an explicit processed/failed summary, so the
// caller is never shown a bare failure when partial results exist.
func (h *HarmonizeHandler) HarmonizeAll(c *fiber.Ctx) error {
	var req models.HarmonizeAllRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validate.ValidateFrameworkName(req.SourceFramework); err != nil {
		return badRequest(c, "source_framework: "+err.Error())
	}
	if err := h.validate.ValidateClientID(req.ClientID); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.orchestrator.HarmonizeAll(c.Context(), req.SourceFramework, req.ClientID)
	if err != nil {
		return writeError(c, err)
	}

	h.audit(c, "HARMONIZE_ALL", "framework", nil)
	return c.JSON(fiber.Map{
		"suggestions":          result.Suggestions,
		"count":                len(result.Suggestions),
		"failures":             result.Failures,
		"frameworks_processed": result.Processed,
		"frameworks_failed":    result.Failed,
		"compared_pairs":       result.ComparedPairs,
		"skipped_pairs":        result.SkippedPairs,
	})
}

// Groups handles GET /api/harmonize/groups.
//
// Returns the "master control" groupings. The default view groups by mapping
// source; ?view=symmetric adds reverse visibility for controls reachable
// only as targets of equivalent/related mappings.
func (h *HarmonizeHandler) Groups(c *fiber.Ctx) error {
	clientID, err := queryClientID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	mappings, err := h.mappingRepo.List(c.Context(), clientID)
	if err != nil {
		return writeError(c, err)
	}

	var groups []models.HarmonizedGroup
	switch c.Query("view") {
	case "", "source":
		groups = h.aggregator.GroupBySource(mappings)
	case "symmetric":
		groups = h.aggregator.GroupSymmetric(mappings)
	default:
		return badRequest(c, "view must be source or symmetric")
	}

	return c.JSON(fiber.Map{
		"groups": groups,
		"count":  len(groups),
	})
}

// Stats handles GET /api/harmonize/stats.
func (h *HarmonizeHandler) Stats(c *fiber.Ctx) error {
	clientID, err := queryClientID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	stats, err := h.statsRepo.GetHarmonizationStats(c.Context(), clientID)
	if err != nil {
		return writeError(c, err)
	}

	pairs, err := h.statsRepo.ListFrameworkPairStats(c.Context())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"total_mappings":   stats.TotalMappings,
		"equivalent_count": stats.EquivalentCount,
		"partial_count":    stats.PartialCount,
		"related_count":    stats.RelatedCount,
		"mapped_controls":  stats.MappedControls,
		"total_controls":   stats.TotalControls,
		"coverage_rate":    stats.CoverageRate,
		"framework_pairs":  pairs,
	})
}

// suggestionInputs converts accepted suggestions into the bulk-create wire
// form, carrying the integer confidence as the store's string encoding.
func suggestionInputs(suggestions []models.MappingSuggestion) []models.MappingInput {
	items := make([]models.MappingInput, 0, len(suggestions))
	for _, s := range suggestions {
		items = append(items, models.MappingInput{
			SourceControlID: s.SourceID,
			TargetControlID: s.TargetID,
			MappingType:     string(s.MappingType),
			Confidence:      strconv.Itoa(s.Confidence),
		})
	}
	return items
}

// audit records a mutating operation. Audit failures are logged but never
// fail the request that triggered them.
func (h *HarmonizeHandler) audit(c *fiber.Ctx, action, objectType string, objectID *int) {
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
