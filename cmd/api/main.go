package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cyberpaas/tenantdock/internal/adapters/builder"
	"github.com/cyberpaas/tenantdock/internal/adapters/docker"
	httpadapter "github.com/cyberpaas/tenantdock/internal/adapters/http"
	"github.com/cyberpaas/tenantdock/internal/adapters/metrics"
	"github.com/cyberpaas/tenantdock/internal/adapters/postgres"
	"github.com/cyberpaas/tenantdock/internal/config"
	"github.com/cyberpaas/tenantdock/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// 1. Infrastructure: one Docker client shared by every adapter.
	cli, err := docker.NewClient()
	if err != nil {
		logger.Error("Failed to initialize Docker client", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Open(context.Background(), cfg.PostgresURL)
	if err != nil {
		logger.Error("Failed to connect to Postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	runtime := docker.NewAdapter(cli, logger, cfg.StopTimeout)
	imageBuilder := builder.NewAdapter(cli, logger)
	repo := postgres.NewRecordRepository(db, logger)
	m := metrics.New(prometheus.DefaultRegisterer)

	// 2. Core services, dependency-injected.
	provisioner := services.NewProvisioner(runtime, imageBuilder, repo, cfg, logger, m)
	lifecycle := services.NewLifecycleManager(runtime, repo, logger, m)
	telemetry := services.NewTelemetryReader(runtime, logger)

	reconciler := services.NewReconciler(runtime, repo, logger)
	sched, err := reconciler.Schedule(cfg.ReconcileInterval)
	if err != nil {
		logger.Error("Failed to start reconciler", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sched.Shutdown() }()

	// 3. Transport.
	handler := httpadapter.NewHandler(provisioner, lifecycle, telemetry, repo, cfg)
	proxy := httpadapter.NewProxyHandler(repo, cfg.ProjectPrefix)

	app := fiber.New()

	// Tenant subdomains are proxied before the API routes match.
	app.Use(proxy.ProxyRequest)

	app.Get("/healthz", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Post("/environments", handler.CreateEnvironment)
	v1.Get("/tenants/:id/containers", handler.ListTenantContainers)

	containers := v1.Group("/containers")
	containers.Post("/:id/actions", handler.ApplyAction)
	containers.Get("/:id/status", handler.GetStatus)
	containers.Get("/:id/stats", handler.GetStats)
	containers.Get("/:id/logs", handler.GetLogs)

	v1.Get("/ports/free", handler.FreePort)

	logger.Info("Server starting", "addr", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
