package businessflow

import (
	"context"
	"strings"

	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaterialFlow handles material CRUD
type MaterialFlow interface {
	List(ctx context.Context, search string, metadata *ClientMetadata) ([]dto.MaterialDTO, error)
	Get(ctx context.Context, id uint, metadata *ClientMetadata) (*dto.MaterialDTO, error)
	Create(ctx context.Context, req *dto.CreateMaterialRequest, metadata *ClientMetadata) (*dto.MaterialDTO, error)
	Update(ctx context.Context, id uint, req *dto.UpdateMaterialRequest, metadata *ClientMetadata) (*dto.MaterialDTO, error)
	Delete(ctx context.Context, id uint, metadata *ClientMetadata) error
}

type MaterialFlowImpl struct {
	materialRepo repository.MaterialRepository
	linkRepo     repository.ProcedureMaterialRepository
	cache        *DashboardCache
	logger       *zap.Logger
}

func NewMaterialFlow(
	materialRepo repository.MaterialRepository,
	linkRepo repository.ProcedureMaterialRepository,
	cache *DashboardCache,
	logger *zap.Logger,
) MaterialFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialFlowImpl{
		materialRepo: materialRepo,
		linkRepo:     linkRepo,
		cache:        cache,
		logger:       logger,
	}
}

func (f *MaterialFlowImpl) List(ctx context.Context, search string, metadata *ClientMetadata) ([]dto.MaterialDTO, error) {
	filter := models.MaterialFilter{}
	if s := strings.TrimSpace(search); s != "" {
		filter.NameSearch = &s
	}

	materials, err := f.materialRepo.ByFilter(ctx, filter, "name ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_LIST_FAILED", "Failed to list materials", err)
	}

	result := make([]dto.MaterialDTO, 0, len(materials))
	for _, m := range materials {
		result = append(result, ToMaterialDTO(*m))
	}
	return result, nil
}

func (f *MaterialFlowImpl) Get(ctx context.Context, id uint, metadata *ClientMetadata) (*dto.MaterialDTO, error) {
	material, err := f.materialRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_LOOKUP_FAILED", "Failed to load material", err)
	}
	if material == nil {
		return nil, NewBusinessError("MATERIAL_NOT_FOUND", "Material not found", ErrMaterialNotFound)
	}

	resp := ToMaterialDTO(*material)
	return &resp, nil
}

func (f *MaterialFlowImpl) Create(ctx context.Context, req *dto.CreateMaterialRequest, metadata *ClientMetadata) (*dto.MaterialDTO, error) {
	if req == nil {
		return nil, NewBusinessError("MATERIAL_VALIDATION_FAILED", "Material name is required", ErrMaterialNameRequired)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("MATERIAL_NAME_REQUIRED", "Material name is required", ErrMaterialNameRequired)
	}
	if req.Cost == nil {
		return nil, NewBusinessError("MATERIAL_COST_REQUIRED", "Material cost is required", ErrMaterialCostRequired)
	}
	cost := decimal.NewFromFloat(*req.Cost)
	if cost.IsNegative() {
		return nil, NewBusinessError("MATERIAL_COST_NEGATIVE", "Material cost must not be negative", ErrMaterialCostNegative)
	}

	existing, err := f.materialRepo.ByName(ctx, name)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_LOOKUP_FAILED", "Failed to check material name", err)
	}
	if existing != nil {
		return nil, NewBusinessError("MATERIAL_NAME_EXISTS", "Material name already exists", ErrMaterialNameExists)
	}

	now := utils.UTCNow()
	material := models.Material{
		Name:        name,
		Cost:        cost,
		Description: utils.TrimmedOrNil(req.Description),
		Supplier:    utils.TrimmedOrNil(req.Supplier),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.materialRepo.Save(ctx, &material); err != nil {
		return nil, NewBusinessError("MATERIAL_CREATE_FAILED", "Failed to create material", err)
	}

	f.cache.Invalidate(ctx)
	f.logger.Info("material created",
		zap.Uint("material_id", material.ID),
		zap.String("request_id", metadata.requestID()))

	resp := ToMaterialDTO(material)
	return &resp, nil
}

func (f *MaterialFlowImpl) Update(ctx context.Context, id uint, req *dto.UpdateMaterialRequest, metadata *ClientMetadata) (*dto.MaterialDTO, error) {
	if req == nil {
		return nil, NewBusinessError("MATERIAL_UPDATE_REQUIRED", "At least one field must be provided", ErrMaterialUpdateMissing)
	}

	material, err := f.materialRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_LOOKUP_FAILED", "Failed to load material", err)
	}
	if material == nil {
		return nil, NewBusinessError("MATERIAL_NOT_FOUND", "Material not found", ErrMaterialNotFound)
	}

	update := models.MaterialUpdate{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewBusinessError("MATERIAL_NAME_REQUIRED", "Material name must not be empty", ErrMaterialNameRequired)
		}
		if name != material.Name {
			other, err := f.materialRepo.ByName(ctx, name)
			if err != nil {
				return nil, NewBusinessError("MATERIAL_LOOKUP_FAILED", "Failed to check material name", err)
			}
			if other != nil {
				return nil, NewBusinessError("MATERIAL_NAME_EXISTS", "Material name already exists", ErrMaterialNameExists)
			}
		}
		update.Name = &name
	}
	if req.Cost != nil {
		cost := decimal.NewFromFloat(*req.Cost)
		if cost.IsNegative() {
			return nil, NewBusinessError("MATERIAL_COST_NEGATIVE", "Material cost must not be negative", ErrMaterialCostNegative)
		}
		update.Cost = &cost
	}
	if req.Description.Set {
		update.SetDescription = true
		update.Description = utils.TrimmedOrNil(req.Description.Ptr())
	}
	if req.Supplier.Set {
		update.SetSupplier = true
		update.Supplier = utils.TrimmedOrNil(req.Supplier.Ptr())
	}
	if update.IsEmpty() {
		return nil, NewBusinessError("MATERIAL_UPDATE_REQUIRED", "At least one field must be provided", ErrMaterialUpdateMissing)
	}

	if err := f.materialRepo.Update(ctx, id, update); err != nil {
		return nil, NewBusinessError("MATERIAL_UPDATE_FAILED", "Failed to update material", err)
	}
	f.cache.Invalidate(ctx)

	updated, err := f.materialRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_LOOKUP_FAILED", "Failed to load material", err)
	}
	if updated == nil {
		return nil, NewBusinessError("MATERIAL_NOT_FOUND", "Material not found", ErrMaterialNotFound)
	}

	resp := ToMaterialDTO(*updated)
	return &resp, nil
}

func (f *MaterialFlowImpl) Delete(ctx context.Context, id uint, metadata *ClientMetadata) error {
	material, err := f.materialRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("MATERIAL_LOOKUP_FAILED", "Failed to load material", err)
	}
	if material == nil {
		return NewBusinessError("MATERIAL_NOT_FOUND", "Material not found", ErrMaterialNotFound)
	}

	used, err := f.linkRepo.CountProceduresUsingMaterial(ctx, id)
	if err != nil {
		return NewBusinessError("MATERIAL_USAGE_CHECK_FAILED", "Failed to check material usage", err)
	}
	if used > 0 {
		return NewDetailedError(
			"MATERIAL_IN_USE",
			"Material is used by procedures and cannot be deleted",
			ErrMaterialInUse,
			dto.MaterialInUseDetails{UsedInProcedures: used},
		)
	}

	if err := f.materialRepo.Delete(ctx, id); err != nil {
		return NewBusinessError("MATERIAL_DELETE_FAILED", "Failed to delete material", err)
	}

	f.cache.Invalidate(ctx)
	f.logger.Info("material deleted",
		zap.Uint("material_id", id),
		zap.String("request_id", metadata.requestID()))
	return nil
}
