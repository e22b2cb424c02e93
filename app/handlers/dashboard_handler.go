package handlers

import (
	"github.com/gofiber/fiber/v3"
	businessflow "github.com/kimmokhwa/beautiful-management-app/business_flow"
	"go.uber.org/zap"
)

// DashboardHandlerInterface defines handler methods for dashboard endpoints
type DashboardHandlerInterface interface {
	Stats(c fiber.Ctx) error
	TopMargin(c fiber.Ctx) error
	TopMarginRate(c fiber.Ctx) error
	Recommended(c fiber.Ctx) error
	CategoryStats(c fiber.Ctx) error
}

// DashboardHandler implements dashboard endpoints
type DashboardHandler struct {
	baseHandler
	flow businessflow.DashboardFlow
}

func NewDashboardHandler(flow businessflow.DashboardFlow, logger *zap.Logger, exposeErrors bool) DashboardHandlerInterface {
	return &DashboardHandler{
		baseHandler: newBaseHandler(logger, exposeErrors),
		flow:        flow,
	}
}

// Stats returns catalogue totals and margin averages
// @Summary Dashboard Stats
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.DashboardStatsDTO}
// @Failure 500 {object} dto.APIResponse "Query failed"
// @Router /api/dashboard/stats [get]
func (h *DashboardHandler) Stats(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/dashboard/stats")
	defer cancel()

	res, err := h.flow.Stats(ctx, h.clientMetadata(c, "/api/dashboard/stats"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to load dashboard statistics", "DASHBOARD_STATS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Dashboard statistics retrieved", res)
}

// TopMargin returns the five procedures with the highest margin
// @Summary Top Procedures by Margin
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.TopProcedureDTO}
// @Router /api/dashboard/top-margin [get]
func (h *DashboardHandler) TopMargin(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/dashboard/top-margin")
	defer cancel()

	res, err := h.flow.TopMargin(ctx, h.clientMetadata(c, "/api/dashboard/top-margin"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to load top procedures", "DASHBOARD_TOP_FAILED")
	}
	return h.ListResponse(c, "Top procedures by margin retrieved", res, len(res))
}

// TopMarginRate returns the five procedures with the highest margin rate
// @Summary Top Procedures by Margin Rate
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.TopProcedureDTO}
// @Router /api/dashboard/top-margin-rate [get]
func (h *DashboardHandler) TopMarginRate(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/dashboard/top-margin-rate")
	defer cancel()

	res, err := h.flow.TopMarginRate(ctx, h.clientMetadata(c, "/api/dashboard/top-margin-rate"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to load top procedures", "DASHBOARD_TOP_FAILED")
	}
	return h.ListResponse(c, "Top procedures by margin rate retrieved", res, len(res))
}

// Recommended returns every recommended procedure
// @Summary Recommended Procedures
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.ProcedureDTO}
// @Router /api/dashboard/recommended [get]
func (h *DashboardHandler) Recommended(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/dashboard/recommended")
	defer cancel()

	res, err := h.flow.Recommended(ctx, h.clientMetadata(c, "/api/dashboard/recommended"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to load recommended procedures", "DASHBOARD_RECOMMENDED_FAILED")
	}
	return h.ListResponse(c, "Recommended procedures retrieved", res, len(res))
}

// CategoryStats returns per-category procedure counts and margins
// @Summary Category Stats
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.CategoryStatDTO}
// @Router /api/dashboard/categories [get]
func (h *DashboardHandler) CategoryStats(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/dashboard/categories")
	defer cancel()

	res, err := h.flow.CategoryStats(ctx, h.clientMetadata(c, "/api/dashboard/categories"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to load category statistics", "DASHBOARD_CATEGORIES_FAILED")
	}
	return h.ListResponse(c, "Category statistics retrieved", res, len(res))
}
