package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	businessflow "github.com/kimmokhwa/beautiful-management-app/business_flow"
	"go.uber.org/zap"
)

// MaterialHandlerInterface defines handler methods for material endpoints
type MaterialHandlerInterface interface {
	ListMaterials(c fiber.Ctx) error
	GetMaterial(c fiber.Ctx) error
	CreateMaterial(c fiber.Ctx) error
	UpdateMaterial(c fiber.Ctx) error
	DeleteMaterial(c fiber.Ctx) error
}

// MaterialHandler implements material endpoints
type MaterialHandler struct {
	baseHandler
	flow businessflow.MaterialFlow
}

func NewMaterialHandler(flow businessflow.MaterialFlow, logger *zap.Logger, exposeErrors bool) MaterialHandlerInterface {
	return &MaterialHandler{
		baseHandler: newBaseHandler(logger, exposeErrors),
		flow:        flow,
	}
}

// ListMaterials returns all materials ordered by name
// @Summary List Materials
// @Description List materials, optionally filtered by a case-insensitive name search
// @Tags Materials
// @Produce json
// @Param search query string false "Name contains"
// @Success 200 {object} dto.APIResponse{data=[]dto.MaterialDTO}
// @Failure 500 {object} dto.APIResponse "List failed"
// @Router /api/materials [get]
func (h *MaterialHandler) ListMaterials(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/materials")
	defer cancel()

	res, err := h.flow.List(ctx, c.Query("search"), h.clientMetadata(c, "/api/materials"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to list materials", "MATERIAL_LIST_FAILED")
	}
	return h.ListResponse(c, "Materials retrieved", res, len(res))
}

// GetMaterial returns one material
// @Summary Get Material
// @Tags Materials
// @Produce json
// @Param id path int true "Material ID"
// @Success 200 {object} dto.APIResponse{data=dto.MaterialDTO}
// @Failure 400 {object} dto.APIResponse "Invalid id"
// @Failure 404 {object} dto.APIResponse "Material not found"
// @Router /api/materials/{id} [get]
func (h *MaterialHandler) GetMaterial(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid material id", "INVALID_ID", nil)
	}
	ctx, cancel := h.createRequestContext(c, "/api/materials/:id")
	defer cancel()

	res, err := h.flow.Get(ctx, id, h.clientMetadata(c, "/api/materials/:id"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to load material", "MATERIAL_LOOKUP_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Material retrieved", res)
}

// CreateMaterial creates a material
// @Summary Create Material
// @Tags Materials
// @Accept json
// @Produce json
// @Param request body dto.CreateMaterialRequest true "Material payload"
// @Success 201 {object} dto.APIResponse{data=dto.MaterialDTO}
// @Failure 400 {object} dto.APIResponse "Validation error or duplicate name"
// @Failure 500 {object} dto.APIResponse "Creation failed"
// @Router /api/materials [post]
func (h *MaterialHandler) CreateMaterial(c fiber.Ctx) error {
	var req dto.CreateMaterialRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if msgs := h.validate(&req); msgs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs)
	}

	ctx, cancel := h.createRequestContext(c, "/api/materials")
	defer cancel()

	res, err := h.flow.Create(ctx, &req, h.clientMetadata(c, "/api/materials"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to create material", "MATERIAL_CREATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Material created", res)
}

// UpdateMaterial applies a partial update to a material
// @Summary Update Material
// @Description Only the fields present in the body change; description and supplier accept null to clear
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path int true "Material ID"
// @Param request body dto.UpdateMaterialRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.MaterialDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Material not found"
// @Router /api/materials/{id} [put]
func (h *MaterialHandler) UpdateMaterial(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid material id", "INVALID_ID", nil)
	}
	var req dto.UpdateMaterialRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if msgs := h.validate(&req); msgs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs)
	}

	ctx, cancel := h.createRequestContext(c, "/api/materials/:id")
	defer cancel()

	res, err := h.flow.Update(ctx, id, &req, h.clientMetadata(c, "/api/materials/:id"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to update material", "MATERIAL_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Material updated", res)
}

// DeleteMaterial deletes a material that no procedure uses
// @Summary Delete Material
// @Tags Materials
// @Produce json
// @Param id path int true "Material ID"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail{details=dto.MaterialInUseDetails}} "Material in use"
// @Failure 404 {object} dto.APIResponse "Material not found"
// @Router /api/materials/{id} [delete]
func (h *MaterialHandler) DeleteMaterial(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid material id", "INVALID_ID", nil)
	}
	ctx, cancel := h.createRequestContext(c, "/api/materials/:id")
	defer cancel()

	if err := h.flow.Delete(ctx, id, h.clientMetadata(c, "/api/materials/:id")); err != nil {
		return h.FlowErrorResponse(c, err, "Failed to delete material", "MATERIAL_DELETE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Material deleted", nil)
}
