// Package handlers implements HTTP request handlers for the harmonization
// API. This file maps the repository and engine error taxonomy onto HTTP
// statuses and provides small request-parsing helpers shared by all handlers.
package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
)

// writeError translates a domain error into the JSON error response.
//
// Mapping:
//   - ValidationError        -> 400 with the offending field
//   - ConflictError          -> 409 with the existing mapping's id
//   - ErrControlReferenced   -> 409
//   - ErrNotFound            -> 404
//   - anything else          -> 500 without internal detail
func writeError(c *fiber.Ctx, err error) error {
	var validationErr *repository.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	}

	var conflictErr *repository.ConflictError
	if errors.As(err, &conflictErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":       conflictErr.Error(),
			"existing_id": conflictErr.ExistingID,
		})
	}

	if errors.Is(err, repository.ErrControlReferenced) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if errors.Is(err, repository.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

// badRequest writes a 400 with the given message.
func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// queryClientID parses the optional client_id query parameter.
// Absent means system/global scope (nil).
func queryClientID(c *fiber.Ctx) (*int, error) {
	raw := c.Query("client_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return nil, errors.New("client_id must be a positive integer")
	}
	return &id, nil
}

// pathID parses a numeric :id path parameter.
func pathID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}
