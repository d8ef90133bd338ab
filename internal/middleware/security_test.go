// Package middleware provides tests for the security middleware suite:
// rate limiting, security headers and input screening.
package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/security"
)

func newTestMiddleware() *SecurityMiddleware {
	logger := security.NewLogger()
	config := security.DefaultSecurityConfig()
	return NewSecurityMiddleware(logger, config)
}

// TestRateLimit_AllowsThenBlocks tests that the rate limit middleware lets
// requests through until the bucket is exhausted, then returns 429 with a
// Retry-After header.
func TestRateLimit_AllowsThenBlocks(t *testing.T) {
	app := fiber.New()
	sm := newTestMiddleware()

	limiter := security.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()

	app.Post("/test", sm.RateLimit(limiter, "test_endpoint"), func(c *fiber.Ctx) error {
		return c.SendString("success")
	})

	// First two requests pass
	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/test", nil))
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	// Third request is throttled
	resp, err := app.Test(httptest.NewRequest("POST", "/test", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on throttled response")
	}
}

// TestSecureHeaders tests that standard security headers are set on every
// response.
func TestSecureHeaders(t *testing.T) {
	app := fiber.New()
	sm := newTestMiddleware()

	app.Use(sm.SecureHeaders())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	for name, want := range headers {
		if got := resp.Header.Get(name); got != want {
			t.Errorf("Expected %s=%q, got %q", name, want, got)
		}
	}

	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("Expected Content-Security-Policy header")
	}
	if resp.Header.Get("Strict-Transport-Security") == "" {
		t.Error("Expected Strict-Transport-Security header")
	}
}

// TestInputValidation_SQLInjection tests that injection-looking bodies are
// rejected before reaching the handler.
func TestInputValidation_SQLInjection(t *testing.T) {
	app := fiber.New()
	sm := newTestMiddleware()

	handlerCalled := false
	app.Use(sm.InputValidation())
	app.Post("/test", func(c *fiber.Ctx) error {
		handlerCalled = true
		return c.SendString("ok")
	})

	body := strings.NewReader(`{"name": "x' OR '1'='1"}`)
	req := httptest.NewRequest("POST", "/test", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
	if handlerCalled {
		t.Error("Handler should not run for rejected input")
	}
}

// TestInputValidation_XSS tests rejection of script-injection payloads.
func TestInputValidation_XSS(t *testing.T) {
	app := fiber.New()
	sm := newTestMiddleware()

	app.Use(sm.InputValidation())
	app.Post("/test", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	body := strings.NewReader(`{"notes": "<script>alert(1)</script>"}`)
	req := httptest.NewRequest("POST", "/test", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

// TestInputValidation_CleanBody tests that normal control text passes.
func TestInputValidation_CleanBody(t *testing.T) {
	app := fiber.New()
	sm := newTestMiddleware()

	app.Use(sm.InputValidation())
	app.Post("/test", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	body := strings.NewReader(`{"name": "Account Management", "description": "Manage system accounts"}`)
	req := httptest.NewRequest("POST", "/test", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}
