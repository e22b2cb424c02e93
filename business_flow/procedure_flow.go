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
	"gorm.io/gorm"
)

// ProcedureFlow handles procedure CRUD and the procedure list with derived margins
type ProcedureFlow interface {
	List(ctx context.Context, query dto.ListProceduresQuery, metadata *ClientMetadata) ([]dto.ProcedureDTO, error)
	Get(ctx context.Context, id uint, metadata *ClientMetadata) (*dto.ProcedureDTO, error)
	Create(ctx context.Context, req *dto.CreateProcedureRequest, metadata *ClientMetadata) (*dto.ProcedureDTO, error)
	Update(ctx context.Context, id uint, req *dto.UpdateProcedureRequest, metadata *ClientMetadata) (*dto.ProcedureDTO, error)
	Delete(ctx context.Context, id uint, metadata *ClientMetadata) error
	ToggleRecommendation(ctx context.Context, id uint, metadata *ClientMetadata) (*dto.ProcedureDTO, error)
}

type ProcedureFlowImpl struct {
	procedureRepo repository.ProcedureRepository
	categoryRepo  repository.CategoryRepository
	materialRepo  repository.MaterialRepository
	linkRepo      repository.ProcedureMaterialRepository
	costReader    repository.ProcedureCostReader
	cache         *DashboardCache
	logger        *zap.Logger
	db            *gorm.DB
}

func NewProcedureFlow(
	procedureRepo repository.ProcedureRepository,
	categoryRepo repository.CategoryRepository,
	materialRepo repository.MaterialRepository,
	linkRepo repository.ProcedureMaterialRepository,
	costReader repository.ProcedureCostReader,
	cache *DashboardCache,
	logger *zap.Logger,
	db *gorm.DB,
) ProcedureFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcedureFlowImpl{
		procedureRepo: procedureRepo,
		categoryRepo:  categoryRepo,
		materialRepo:  materialRepo,
		linkRepo:      linkRepo,
		costReader:    costReader,
		cache:         cache,
		logger:        logger,
		db:            db,
	}
}

func (f *ProcedureFlowImpl) List(ctx context.Context, query dto.ListProceduresQuery, metadata *ClientMetadata) ([]dto.ProcedureDTO, error) {
	sortBy := strings.TrimSpace(query.SortBy)
	if sortBy == "" {
		sortBy = SortByMarginRate
	}
	if !validSortField(sortBy) {
		return nil, NewBusinessErrorf("INVALID_SORT_FIELD", "Unsupported sortBy %q", ErrInvalidSortField, sortBy)
	}

	desc := true
	switch strings.ToLower(strings.TrimSpace(query.SortOrder)) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return nil, NewBusinessErrorf("INVALID_SORT_ORDER", "Unsupported sortOrder %q", ErrInvalidSortOrder, query.SortOrder)
	}

	costQuery := repository.ProcedureCostQuery{}
	if s := strings.TrimSpace(query.Search); s != "" {
		costQuery.Search = &s
	}
	if c := strings.TrimSpace(query.Category); c != "" {
		costQuery.CategoryName = &c
	}

	rows, err := f.costReader.List(ctx, costQuery)
	if err != nil {
		return nil, NewBusinessError("PROCEDURE_LIST_FAILED", "Failed to list procedures", err)
	}

	views := newProcedureViews(rows)
	sortViews(views, sortBy, desc)

	result := make([]dto.ProcedureDTO, 0, len(views))
	for _, v := range views {
		result = append(result, v.toDTO())
	}
	return result, nil
}

func (f *ProcedureFlowImpl) Get(ctx context.Context, id uint, metadata *ClientMetadata) (*dto.ProcedureDTO, error) {
	return f.loadOne(ctx, id)
}

func (f *ProcedureFlowImpl) Create(ctx context.Context, req *dto.CreateProcedureRequest, metadata *ClientMetadata) (*dto.ProcedureDTO, error) {
	if req == nil {
		return nil, NewBusinessError("PROCEDURE_VALIDATION_FAILED", "Procedure name is required", ErrProcedureNameRequired)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("PROCEDURE_NAME_REQUIRED", "Procedure name is required", ErrProcedureNameRequired)
	}
	if req.CustomerPrice == nil {
		return nil, NewBusinessError("CUSTOMER_PRICE_REQUIRED", "Customer price is required", ErrCustomerPriceRequired)
	}
	price := decimal.NewFromFloat(*req.CustomerPrice)
	if price.IsNegative() {
		return nil, NewBusinessError("CUSTOMER_PRICE_NEGATIVE", "Customer price must not be negative", ErrCustomerPriceNegative)
	}

	links, err := f.resolveMaterialInputs(ctx, req.Materials)
	if err != nil {
		return nil, err
	}

	var procedureID uint
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		categoryID, err := f.resolveCategory(txCtx, req.CategoryID, req.Category)
		if err != nil {
			return err
		}

		now := utils.UTCNow()
		procedure := models.Procedure{
			Name:          name,
			CategoryID:    categoryID,
			CustomerPrice: price,
			IsRecommended: utils.IsTrue(req.IsRecommended),
			Notes:         utils.TrimmedOrNil(req.Notes),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := f.procedureRepo.Save(txCtx, &procedure); err != nil {
			return NewBusinessError("PROCEDURE_CREATE_FAILED", "Failed to create procedure", err)
		}
		procedureID = procedure.ID

		if len(links) > 0 {
			if err := f.linkRepo.ReplaceForProcedure(txCtx, procedure.ID, links); err != nil {
				return NewBusinessError("PROCEDURE_MATERIALS_FAILED", "Failed to link materials", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.cache.Invalidate(ctx)
	f.logger.Info("procedure created",
		zap.Uint("procedure_id", procedureID),
		zap.Int("materials", len(links)),
		zap.String("request_id", metadata.requestID()))

	return f.loadOne(ctx, procedureID)
}

func (f *ProcedureFlowImpl) Update(ctx context.Context, id uint, req *dto.UpdateProcedureRequest, metadata *ClientMetadata) (*dto.ProcedureDTO, error) {
	if req == nil {
		return nil, NewBusinessError("PROCEDURE_UPDATE_REQUIRED", "At least one field must be provided", ErrProcedureUpdateMissing)
	}

	existing, err := f.procedureRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("PROCEDURE_LOOKUP_FAILED", "Failed to load procedure", err)
	}
	if existing == nil {
		return nil, NewBusinessError("PROCEDURE_NOT_FOUND", "Procedure not found", ErrProcedureNotFound)
	}

	update := models.ProcedureUpdate{IsRecommended: req.IsRecommended}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewBusinessError("PROCEDURE_NAME_REQUIRED", "Procedure name must not be empty", ErrProcedureNameRequired)
		}
		update.Name = &name
	}
	if req.CustomerPrice != nil {
		price := decimal.NewFromFloat(*req.CustomerPrice)
		if price.IsNegative() {
			return nil, NewBusinessError("CUSTOMER_PRICE_NEGATIVE", "Customer price must not be negative", ErrCustomerPriceNegative)
		}
		update.CustomerPrice = &price
	}
	if req.Notes.Set {
		update.SetNotes = true
		update.Notes = utils.TrimmedOrNil(req.Notes.Ptr())
	}

	var links []*models.ProcedureMaterial
	if req.Materials != nil {
		links, err = f.resolveMaterialInputs(ctx, *req.Materials)
		if err != nil {
			return nil, err
		}
	}

	categoryTouched := req.CategoryID.Set || req.Category.Set
	if update.IsEmpty() && !categoryTouched && req.Materials == nil {
		return nil, NewBusinessError("PROCEDURE_UPDATE_REQUIRED", "At least one field must be provided", ErrProcedureUpdateMissing)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if categoryTouched {
			categoryID, err := f.resolveCategory(txCtx, req.CategoryID.Ptr(), req.Category.Ptr())
			if err != nil {
				return err
			}
			update.SetCategoryID = true
			update.CategoryID = categoryID
		}

		if err := f.procedureRepo.Update(txCtx, id, update); err != nil {
			return NewBusinessError("PROCEDURE_UPDATE_FAILED", "Failed to update procedure", err)
		}

		if req.Materials != nil {
			if err := f.linkRepo.ReplaceForProcedure(txCtx, id, links); err != nil {
				return NewBusinessError("PROCEDURE_MATERIALS_FAILED", "Failed to replace procedure materials", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.cache.Invalidate(ctx)
	return f.loadOne(ctx, id)
}

func (f *ProcedureFlowImpl) Delete(ctx context.Context, id uint, metadata *ClientMetadata) error {
	existing, err := f.procedureRepo.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("PROCEDURE_LOOKUP_FAILED", "Failed to load procedure", err)
	}
	if existing == nil {
		return NewBusinessError("PROCEDURE_NOT_FOUND", "Procedure not found", ErrProcedureNotFound)
	}

	// links go first; the procedure row is only removed when that succeeded
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if _, err := f.linkRepo.DeleteByProcedureID(txCtx, id); err != nil {
			return NewBusinessError("PROCEDURE_MATERIALS_DELETE_FAILED", "Failed to delete procedure materials", err)
		}
		if err := f.procedureRepo.Delete(txCtx, id); err != nil {
			return NewBusinessError("PROCEDURE_DELETE_FAILED", "Failed to delete procedure", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	f.cache.Invalidate(ctx)
	f.logger.Info("procedure deleted",
		zap.Uint("procedure_id", id),
		zap.String("request_id", metadata.requestID()))
	return nil
}

func (f *ProcedureFlowImpl) ToggleRecommendation(ctx context.Context, id uint, metadata *ClientMetadata) (*dto.ProcedureDTO, error) {
	procedure, err := f.procedureRepo.ToggleRecommended(ctx, id)
	if err != nil {
		return nil, NewBusinessError("PROCEDURE_TOGGLE_FAILED", "Failed to toggle recommendation", err)
	}
	if procedure == nil {
		return nil, NewBusinessError("PROCEDURE_NOT_FOUND", "Procedure not found", ErrProcedureNotFound)
	}

	f.cache.Invalidate(ctx)
	return f.loadOne(ctx, id)
}

func (f *ProcedureFlowImpl) loadOne(ctx context.Context, id uint) (*dto.ProcedureDTO, error) {
	rows, err := f.costReader.List(ctx, repository.ProcedureCostQuery{ID: &id})
	if err != nil {
		return nil, NewBusinessError("PROCEDURE_LOOKUP_FAILED", "Failed to load procedure", err)
	}
	if len(rows) == 0 {
		return nil, NewBusinessError("PROCEDURE_NOT_FOUND", "Procedure not found", ErrProcedureNotFound)
	}

	resp := newProcedureViews(rows)[0].toDTO()
	return &resp, nil
}

// resolveCategory prefers an explicit id, then a name (find-or-create). Both empty means no category.
func (f *ProcedureFlowImpl) resolveCategory(ctx context.Context, categoryID *uint, categoryName *string) (*uint, error) {
	if categoryID != nil {
		category, err := f.categoryRepo.ByID(ctx, *categoryID)
		if err != nil {
			return nil, NewBusinessError("CATEGORY_LOOKUP_FAILED", "Failed to load category", err)
		}
		if category == nil {
			return nil, NewBusinessErrorf("CATEGORY_NOT_FOUND", "Category %d not found", ErrCategoryNotFound, *categoryID)
		}
		return &category.ID, nil
	}

	name := utils.TrimmedOrNil(categoryName)
	if name == nil || *name == models.UncategorizedName {
		return nil, nil
	}
	category, err := f.categoryRepo.FindOrCreate(ctx, *name)
	if err != nil {
		return nil, NewBusinessError("CATEGORY_RESOLVE_FAILED", "Failed to resolve category", err)
	}
	return &category.ID, nil
}

// resolveMaterialInputs validates the requested links. Quantity defaults to 1 and must be positive.
func (f *ProcedureFlowImpl) resolveMaterialInputs(ctx context.Context, inputs []dto.ProcedureMaterialInput) ([]*models.ProcedureMaterial, error) {
	links := make([]*models.ProcedureMaterial, 0, len(inputs))
	if len(inputs) == 0 {
		return links, nil
	}

	seen := make(map[uint]struct{}, len(inputs))
	ids := make([]uint, 0, len(inputs))
	for _, in := range inputs {
		if in.MaterialID == 0 {
			return nil, NewBusinessError("PROCEDURE_MATERIAL_NOT_FOUND", "Material id is required", ErrProcedureMaterialNotFound)
		}
		if _, dup := seen[in.MaterialID]; dup {
			return nil, NewBusinessErrorf("DUPLICATE_PROCEDURE_MATERIAL", "Material %d is listed more than once", ErrDuplicateProcedureMaterial, in.MaterialID)
		}
		seen[in.MaterialID] = struct{}{}

		qty := decimal.NewFromInt(1)
		if in.Quantity != nil {
			qty = decimal.NewFromFloat(*in.Quantity)
			if !qty.IsPositive() {
				return nil, NewBusinessErrorf("QUANTITY_INVALID", "Quantity of material %d must be greater than zero", ErrQuantityInvalid, in.MaterialID)
			}
		}

		ids = append(ids, in.MaterialID)
		links = append(links, &models.ProcedureMaterial{MaterialID: in.MaterialID, Quantity: qty})
	}

	found, err := f.materialRepo.ByFilter(ctx, models.MaterialFilter{IDs: ids}, "", 0, 0)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_LOOKUP_FAILED", "Failed to load materials", err)
	}
	if len(found) != len(ids) {
		known := make(map[uint]struct{}, len(found))
		for _, m := range found {
			known[m.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return nil, NewBusinessErrorf("PROCEDURE_MATERIAL_NOT_FOUND", "Material %d not found", ErrProcedureMaterialNotFound, id)
			}
		}
	}
	return links, nil
}
