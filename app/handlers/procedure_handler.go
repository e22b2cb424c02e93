package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	businessflow "github.com/kimmokhwa/beautiful-management-app/business_flow"
	"go.uber.org/zap"
)

// ProcedureHandlerInterface defines handler methods for procedure endpoints
type ProcedureHandlerInterface interface {
	ListProcedures(c fiber.Ctx) error
	GetProcedure(c fiber.Ctx) error
	CreateProcedure(c fiber.Ctx) error
	UpdateProcedure(c fiber.Ctx) error
	DeleteProcedure(c fiber.Ctx) error
	ToggleRecommendation(c fiber.Ctx) error
}

// ProcedureHandler implements procedure endpoints
type ProcedureHandler struct {
	baseHandler
	flow businessflow.ProcedureFlow
}

func NewProcedureHandler(flow businessflow.ProcedureFlow, logger *zap.Logger, exposeErrors bool) ProcedureHandlerInterface {
	return &ProcedureHandler{
		baseHandler: newBaseHandler(logger, exposeErrors),
		flow:        flow,
	}
}

// ListProcedures returns procedures with their computed cost and margin
// @Summary List Procedures
// @Description Each entry carries totalCost, margin and marginRate computed from its material lines
// @Tags Procedures
// @Produce json
// @Param search query string false "Name contains"
// @Param category query string false "Category name; 기타 selects uncategorized"
// @Param sortBy query string false "marginRate, margin, totalCost, customerPrice, name or createdAt"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} dto.APIResponse{data=[]dto.ProcedureDTO}
// @Failure 400 {object} dto.APIResponse "Invalid sort"
// @Failure 500 {object} dto.APIResponse "List failed"
// @Router /api/procedures [get]
func (h *ProcedureHandler) ListProcedures(c fiber.Ctx) error {
	var query dto.ListProceduresQuery
	if err := c.Bind().Query(&query); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/procedures")
	defer cancel()

	res, err := h.flow.List(ctx, query, h.clientMetadata(c, "/api/procedures"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to list procedures", "PROCEDURE_LIST_FAILED")
	}
	return h.ListResponse(c, "Procedures retrieved", res, len(res))
}

// GetProcedure returns one procedure with its material lines
// @Summary Get Procedure
// @Tags Procedures
// @Produce json
// @Param id path int true "Procedure ID"
// @Success 200 {object} dto.APIResponse{data=dto.ProcedureDTO}
// @Failure 404 {object} dto.APIResponse "Procedure not found"
// @Router /api/procedures/{id} [get]
func (h *ProcedureHandler) GetProcedure(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid procedure id", "INVALID_ID", nil)
	}
	ctx, cancel := h.createRequestContext(c, "/api/procedures/:id")
	defer cancel()

	res, err := h.flow.Get(ctx, id, h.clientMetadata(c, "/api/procedures/:id"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to load procedure", "PROCEDURE_LOOKUP_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Procedure retrieved", res)
}

// CreateProcedure creates a procedure and links its materials
// @Summary Create Procedure
// @Tags Procedures
// @Accept json
// @Produce json
// @Param request body dto.CreateProcedureRequest true "Procedure payload"
// @Success 201 {object} dto.APIResponse{data=dto.ProcedureDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Creation failed"
// @Router /api/procedures [post]
func (h *ProcedureHandler) CreateProcedure(c fiber.Ctx) error {
	var req dto.CreateProcedureRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if msgs := h.validate(&req); msgs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs)
	}

	ctx, cancel := h.createRequestContext(c, "/api/procedures")
	defer cancel()

	res, err := h.flow.Create(ctx, &req, h.clientMetadata(c, "/api/procedures"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to create procedure", "PROCEDURE_CREATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Procedure created", res)
}

// UpdateProcedure applies a partial update; a materials array replaces all links
// @Summary Update Procedure
// @Tags Procedures
// @Accept json
// @Produce json
// @Param id path int true "Procedure ID"
// @Param request body dto.UpdateProcedureRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.ProcedureDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Procedure not found"
// @Router /api/procedures/{id} [put]
func (h *ProcedureHandler) UpdateProcedure(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid procedure id", "INVALID_ID", nil)
	}
	var req dto.UpdateProcedureRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if msgs := h.validate(&req); msgs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs)
	}

	ctx, cancel := h.createRequestContext(c, "/api/procedures/:id")
	defer cancel()

	res, err := h.flow.Update(ctx, id, &req, h.clientMetadata(c, "/api/procedures/:id"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to update procedure", "PROCEDURE_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Procedure updated", res)
}

// DeleteProcedure deletes a procedure and its material links
// @Summary Delete Procedure
// @Tags Procedures
// @Produce json
// @Param id path int true "Procedure ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Procedure not found"
// @Router /api/procedures/{id} [delete]
func (h *ProcedureHandler) DeleteProcedure(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid procedure id", "INVALID_ID", nil)
	}
	ctx, cancel := h.createRequestContext(c, "/api/procedures/:id")
	defer cancel()

	if err := h.flow.Delete(ctx, id, h.clientMetadata(c, "/api/procedures/:id")); err != nil {
		return h.FlowErrorResponse(c, err, "Failed to delete procedure", "PROCEDURE_DELETE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Procedure deleted", nil)
}

// ToggleRecommendation flips the recommended flag
// @Summary Toggle Recommendation
// @Tags Procedures
// @Produce json
// @Param id path int true "Procedure ID"
// @Success 200 {object} dto.APIResponse{data=dto.ProcedureDTO}
// @Failure 404 {object} dto.APIResponse "Procedure not found"
// @Router /api/procedures/{id}/recommend [put]
func (h *ProcedureHandler) ToggleRecommendation(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid procedure id", "INVALID_ID", nil)
	}
	ctx, cancel := h.createRequestContext(c, "/api/procedures/:id/recommend")
	defer cancel()

	res, err := h.flow.ToggleRecommendation(ctx, id, h.clientMetadata(c, "/api/procedures/:id/recommend"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to toggle recommendation", "PROCEDURE_TOGGLE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Recommendation updated", res)
}
