package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/models"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/security"
)

// ControlHandler serves the /api/controls and /api/frameworks endpoints.
type ControlHandler struct {
	controlRepo *repository.ControlRepository
	auditRepo   *repository.AuditRepository
	validate    *security.ValidationService
	logger      *security.Logger
}

// NewControlHandler creates a ControlHandler with initialized repositories.
func NewControlHandler(validate *security.ValidationService, logger *security.Logger) *ControlHandler {
	return &ControlHandler{
		controlRepo: repository.NewControlRepository(),
		auditRepo:   repository.NewAuditRepository(),
		validate:    validate,
		logger:      logger,
	}
}

// ListFrameworks handles GET /api/frameworks. Returns the distinct framework
// names visible to the caller's scope.
func (h *ControlHandler) ListFrameworks(c *fiber.Ctx) error {
	clientID, err := queryClientID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	frameworks, err := h.controlRepo.ListFrameworks(c.Context(), clientID)
	if err != nil {
		return writeError(c, err)
	}

	counts, err := h.controlRepo.CountByFramework(c.Context(), clientID)
	if err != nil {
		return writeError(c, err)
	}

	type frameworkSummary struct {
		Name         string `json:"name"`
		ControlCount int    `json:"control_count"`
	}
	summaries := make([]frameworkSummary, 0, len(frameworks))
	for _, name := range frameworks {
		summaries = append(summaries, frameworkSummary{Name: name, ControlCount: counts[name]})
	}

	return c.JSON(fiber.Map{"frameworks": summaries})
}

// ListControls handles GET /api/controls?framework=X. Controls are returned
// in catalog order (control code, then id).
func (h *ControlHandler) ListControls(c *fiber.Ctx) error {
	framework := c.Query("framework")
	if err := h.validate.ValidateFrameworkName(framework); err != nil {
		return badRequest(c, err.Error())
	}

	clientID, err := queryClientID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	controls, err := h.controlRepo.ListByFramework(c.Context(), framework, clientID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"framework": framework,
		"controls":  controls,
		"count":     len(controls),
	})
}

// CreateControl handles POST /api/controls.
func (h *ControlHandler) CreateControl(c *fiber.Ctx) error {
	var form models.ControlForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.validateControlForm(&form); err != nil {
		return badRequest(c, err.Error())
	}

	control := &models.Control{
		ControlID:   h.validate.SanitizeString(form.ControlID),
		Name:        h.validate.SanitizeString(form.Name),
		Description: h.validate.SanitizeString(form.Description),
		Framework:   h.validate.SanitizeString(form.Framework),
		Category:    h.validate.SanitizeString(form.Category),
		ClientID:    form.ClientID,
	}

	if err := h.controlRepo.Create(c.Context(), control); err != nil {
		return writeError(c, err)
	}

	h.audit(c, "CREATE_CONTROL", "control", &control.ID)
	return c.Status(fiber.StatusCreated).JSON(control)
}

// DeleteControl handles DELETE /api/controls/:id. Deletion is refused while
// the control still participates in any mapping.
func (h *ControlHandler) DeleteControl(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.controlRepo.Delete(c.Context(), id); err != nil {
		return writeError(c, err)
	}

	h.audit(c, "DELETE_CONTROL", "control", &id)
	return c.SendStatus(fiber.StatusNoContent)
}

// ImportCSV handles POST /api/controls/import?framework=X.
//
// The request body is CSV with a header row of
// control_id,name,description,category. Rows whose (framework, control_id)
// already exist in the caller's scope are skipped so imports can be re-run.
func (h *ControlHandler) ImportCSV(c *fiber.Ctx) error {
	framework := c.Query("framework")
	if err := h.validate.ValidateFrameworkName(framework); err != nil {
		return badRequest(c, err.Error())
	}

	clientID, err := queryClientID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	controls, err := h.parseControlCSV(c.Body(), framework, clientID)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.controlRepo.BulkImport(c.Context(), controls)
	if err != nil {
		return writeError(c, err)
	}

	h.audit(c, "IMPORT_CONTROLS", "control", nil)
	return c.JSON(fiber.Map{
		"framework": framework,
		"created":   result.Created,
		"skipped":   result.Skipped,
	})
}

// parseControlCSV reads and validates the import payload. The header row is
// matched by name so column order does not matter.
func (h *ControlHandler) parseControlCSV(body []byte, framework string, clientID *int) ([]models.Control, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New("missing CSV header row")
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"control_id", "name"} {
		if _, ok := columns[required]; !ok {
			return nil, errors.New("CSV header must include control_id and name columns")
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var controls []models.Control
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New("malformed CSV row")
		}

		if err := h.validate.ValidateCSVRowCount(len(controls) + 1); err != nil {
			return nil, err
		}

		code := field(record, "control_id")
		name := field(record, "name")
		if err := h.validate.ValidateControlCode(code); err != nil {
			return nil, err
		}
		if err := h.validate.ValidateControlName(name); err != nil {
			return nil, err
		}
		description := field(record, "description")
		if err := h.validate.ValidateDescription(description); err != nil {
			return nil, err
		}

		controls = append(controls, models.Control{
			ControlID:   h.validate.SanitizeString(code),
			Name:        h.validate.SanitizeString(name),
			Description: h.validate.SanitizeString(description),
			Framework:   framework,
			Category:    h.validate.SanitizeString(field(record, "category")),
			ClientID:    clientID,
		})
	}

	if len(controls) == 0 {
		return nil, errors.New("CSV contains no data rows")
	}
	return controls, nil
}

func (h *ControlHandler) validateControlForm(form *models.ControlForm) error {
	if err := h.validate.ValidateFrameworkName(form.Framework); err != nil {
		return err
	}
	if err := h.validate.ValidateControlCode(form.ControlID); err != nil {
		return err
	}
	if err := h.validate.ValidateControlName(form.Name); err != nil {
		return err
	}
	if err := h.validate.ValidateDescription(form.Description); err != nil {
		return err
	}
	return h.validate.ValidateClientID(form.ClientID)
}

func (h *ControlHandler) audit(c *fiber.Ctx, action, objectType string, objectID *int) {
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
