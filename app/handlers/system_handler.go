package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SystemHandlerInterface defines liveness and connectivity endpoints
type SystemHandlerInterface interface {
	Health(c fiber.Ctx) error
	TestConnection(c fiber.Ctx) error
}

// SystemHandler implements liveness and connectivity endpoints
type SystemHandler struct {
	baseHandler
	db      Pinger
	version string
	env     string
}

func NewSystemHandler(db Pinger, version, env string, logger *zap.Logger, exposeErrors bool) SystemHandlerInterface {
	return &SystemHandler{
		baseHandler: newBaseHandler(logger, exposeErrors),
		db:          db,
		version:     version,
		env:         env,
	}
}

// Health reports that the process is up
// @Summary Health Check
// @Tags System
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /health [get]
func (h *SystemHandler) Health(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "Service is healthy", fiber.Map{
		"status":      "ok",
		"timestamp":   utils.FormatTime(utils.UTCNow()),
		"version":     h.version,
		"environment": h.env,
	})
}

// TestConnection pings the database
// @Summary Test Database Connection
// @Tags System
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse "Database unreachable"
// @Router /api/test-connection [get]
func (h *SystemHandler) TestConnection(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/test-connection")
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return h.FlowErrorResponse(c, err, "Database connection failed", "DATABASE_UNAVAILABLE")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Database connection succeeded", fiber.Map{"connected": true})
}
