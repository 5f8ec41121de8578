package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/cyberpaas/tenantdock/internal/config"
	"github.com/cyberpaas/tenantdock/internal/core/domain"
	"github.com/cyberpaas/tenantdock/internal/core/ports"
	"github.com/cyberpaas/tenantdock/internal/core/services"
)

// Handler exposes the provisioning, lifecycle and telemetry services over
// HTTP. It is transport only: it parses, delegates and maps errors.
type Handler struct {
	provisioner *services.Provisioner
	lifecycle   *services.LifecycleManager
	telemetry   *services.TelemetryReader
	repo        ports.RecordRepository
	cfg         *config.Config
}

func NewHandler(p *services.Provisioner, l *services.LifecycleManager, t *services.TelemetryReader, repo ports.RecordRepository, cfg *config.Config) *Handler {
	return &Handler{provisioner: p, lifecycle: l, telemetry: t, repo: repo, cfg: cfg}
}

type createEnvironmentRequest struct {
	UserID int64  `json:"user_id"`
	Plan   string `json:"plan"`
}

func (h *Handler) CreateEnvironment(c *fiber.Ctx) error {
	var req createEnvironmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.UserID <= 0 || req.Plan == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and plan are required",
		})
	}

	// Blocking call: may take seconds when the image has to be built.
	containerID, err := h.provisioner.CreateTenantEnvironment(c.Context(), req.UserID, req.Plan)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	tc := h.provisioner.TenantConfigFor(req.UserID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"container_id": containerID,
		"port":         tc.Port,
		"db_name":      tc.DBName,
	})
}

func (h *Handler) ListTenantContainers(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid tenant id",
		})
	}

	records, err := h.repo.ListByUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(records)
}

type actionRequest struct {
	Action string `json:"action"`
}

func (h *Handler) ApplyAction(c *fiber.Ctx) error {
	id := c.Params("id")
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	action, err := domain.ParseAction(req.Action)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.lifecycle.Apply(c.Context(), id, action); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"container_id": id,
		"action":       action,
	})
}

func (h *Handler) GetStatus(c *fiber.Ctx) error {
	result := h.telemetry.Status(c.Context(), c.Params("id"))
	switch result.Kind {
	case domain.StatusKindOK:
		return c.JSON(fiber.Map{"status": result.Status})
	case domain.StatusKindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Container not found",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to query container status",
		})
	}
}

func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats := h.telemetry.Stats(c.Context(), c.Params("id"))
	if stats == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Stats unavailable",
		})
	}
	return c.JSON(stats)
}

func (h *Handler) GetLogs(c *fiber.Ctx) error {
	tail := c.QueryInt("tail", 5)
	lines := h.telemetry.Logs(c.Context(), c.Params("id"), tail)
	return c.JSON(fiber.Map{"lines": lines})
}

func (h *Handler) FreePort(c *fiber.Ctx) error {
	start := c.QueryInt("start", h.cfg.PortScanStart)
	window := c.QueryInt("max", h.cfg.PortScanAttempts)

	port, err := services.FindFreePort(start, window)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"port": port})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
