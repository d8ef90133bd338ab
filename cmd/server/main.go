// Package main is the entry point for the harmonization engine.
// It initializes the database connection pool, runs migrations, wires the
// matching engine and registers all HTTP routes.
package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/database"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/handlers"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/middleware"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/repository"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/security"
	"github.com/Sectutor/ComplianceOS-Core-sub012/internal/services"
)

func main() {
	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	cfg, err := database.DefaultConfig()
	if err != nil {
		log.Fatalf("Failed to load database configuration: %v", err)
	}
	database.MustConnect(cfg)
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	securityConfig := security.DefaultSecurityConfig()
	securityLogger := security.NewLogger()
	securityLogger.Info("harmonization engine starting")

	validate := security.NewValidationService(securityConfig)
	securityMiddleware := middleware.NewSecurityMiddleware(securityLogger, securityConfig)

	// Rate limiters per endpoint class. Refill interval is the window
	// divided by the allowance, so tokens trickle back evenly.
	autoMapLimiter := security.NewRateLimiter(
		securityConfig.RateLimitAutoMap,
		time.Minute/time.Duration(securityConfig.RateLimitAutoMap),
	)
	defer autoMapLimiter.Stop()

	harmonizeAllLimiter := security.NewRateLimiter(
		securityConfig.RateLimitHarmonizeAll,
		time.Minute/time.Duration(securityConfig.RateLimitHarmonizeAll),
	)
	defer harmonizeAllLimiter.Stop()

	importLimiter := security.NewRateLimiter(
		securityConfig.RateLimitImport,
		time.Hour/time.Duration(securityConfig.RateLimitImport),
	)
	defer importLimiter.Stop()

	mutationLimiter := security.NewRateLimiter(
		securityConfig.RateLimitMutations,
		time.Minute/time.Duration(securityConfig.RateLimitMutations),
	)
	defer mutationLimiter.Stop()

	// Matching engine. The lexical scorer is the built-in default; a remote
	// semantic scorer can be swapped in behind the same interface, which is
	// why every call is wrapped with a per-pair timeout.
	catalog := repository.NewControlRepository()
	scorer := services.ScorerWithTimeout(services.NewLexicalScorer(), securityConfig.ScorerTimeout)
	matcher := services.NewMatcher(catalog, scorer, securityLogger, securityConfig.MaxScorerConcurrency)
	orchestrator := services.NewOrchestrator(matcher, catalog, securityLogger, securityConfig.MaxFrameworkConcurrency)

	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Panic recovery first, then logging, headers and injection detection.
	app.Use(recover.New())
	app.Use(securityMiddleware.RequestLogger())
	app.Use(securityMiddleware.SecureHeaders())
	app.Use(securityMiddleware.InputValidation())

	controlHandler := handlers.NewControlHandler(validate, securityLogger)
	mappingHandler := handlers.NewMappingHandler(validate, securityLogger)
	harmonizeHandler := handlers.NewHarmonizeHandler(matcher, orchestrator, validate, securityLogger)
	auditHandler := handlers.NewAuditHandler()

	api := app.Group("/api")

	api.Get("/frameworks", controlHandler.ListFrameworks)

	api.Get("/controls", controlHandler.ListControls)
	api.Post("/controls", securityMiddleware.RateLimit(mutationLimiter, "create_control"), controlHandler.CreateControl)
	api.Post("/controls/import", securityMiddleware.RateLimit(importLimiter, "import_controls"), controlHandler.ImportCSV)
	api.Delete("/controls/:id", securityMiddleware.RateLimit(mutationLimiter, "delete_control"), controlHandler.DeleteControl)

	api.Get("/mappings", mappingHandler.List)
	api.Post("/mappings", securityMiddleware.RateLimit(mutationLimiter, "create_mapping"), mappingHandler.Create)
	api.Post("/mappings/bulk", securityMiddleware.RateLimit(mutationLimiter, "bulk_create_mappings"), mappingHandler.BulkCreate)
	api.Delete("/mappings/:id", securityMiddleware.RateLimit(mutationLimiter, "delete_mapping"), mappingHandler.Delete)

	api.Post("/harmonize/auto-map", securityMiddleware.RateLimit(autoMapLimiter, "auto_map"), harmonizeHandler.AutoMap)
	api.Post("/harmonize/all", securityMiddleware.RateLimit(harmonizeAllLimiter, "harmonize_all"), harmonizeHandler.HarmonizeAll)
	api.Get("/harmonize/groups", harmonizeHandler.Groups)
	api.Get("/harmonize/stats", harmonizeHandler.Stats)

	api.Get("/audit", auditHandler.ListRecent)

	app.Get("/health", func(c *fiber.Ctx) error {
		if !database.IsConnected() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	securityLogger.Info("listening on port " + port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
