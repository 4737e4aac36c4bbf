package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/eventix/internal/observability"
)

// Pinger is a dependency whose connectivity is reported by readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegistryStatus reports which registry store is serving calls.
type RegistryStatus interface {
	Mode() string
}

// HealthConfig bundles what the health endpoints report on.
type HealthConfig struct {
	ServiceName  string
	Version      string
	Registry     RegistryStatus
	LedgerMode   string
	Dependencies map[string]Pinger
	Metrics      *observability.Metrics
}

// HealthHandler responds to liveness, readiness and metrics checks.
type HealthHandler struct {
	cfg HealthConfig
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(cfg HealthConfig) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.cfg.ServiceName,
		"version": h.cfg.Version,
	})
}

// Ready reports the registry and ledger modes. The service stays ready while
// the registry is degraded since the volatile fallback keeps serving; the
// dependency map is informational.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	for name, dep := range h.cfg.Dependencies {
		if err := dep.Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			continue
		}
		depStatus[name] = "ok"
	}

	registryMode := "unknown"
	if h.cfg.Registry != nil {
		registryMode = h.cfg.Registry.Mode()
	}

	return c.JSON(fiber.Map{
		"status":       "ready",
		"registry":     registryMode,
		"ledger":       h.cfg.LedgerMode,
		"dependencies": depStatus,
	})
}

// Metrics reports in-process counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.cfg.Metrics.Snapshot())
}
