package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	"github.com/kimmokhwa/beautiful-management-app/config"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UploadFlow runs spreadsheet imports and manages their job records
type UploadFlow interface {
	Import(ctx context.Context, req dto.UploadRequest, file io.Reader, metadata *ClientMetadata) (*dto.UploadResultDTO, error)
	ImportMaterials(ctx context.Context, req dto.UploadRequest, file io.Reader, metadata *ClientMetadata) (*dto.UploadResultDTO, error)
	ImportProcedures(ctx context.Context, req dto.UploadRequest, file io.Reader, metadata *ClientMetadata) (*dto.UploadResultDTO, error)
	History(ctx context.Context, query dto.UploadHistoryQuery, metadata *ClientMetadata) ([]dto.UploadJobDTO, error)
	Template(ctx context.Context, uploadType string) ([]byte, string, error)
	ErrorReport(ctx context.Context, jobID uint, metadata *ClientMetadata) ([]byte, string, error)
	Rollback(ctx context.Context, jobID uint, metadata *ClientMetadata) (*dto.RollbackResultDTO, error)
}

type UploadFlowImpl struct {
	jobRepo       repository.UploadJobRepository
	materialRepo  repository.MaterialRepository
	categoryRepo  repository.CategoryRepository
	procedureRepo repository.ProcedureRepository
	linkRepo      repository.ProcedureMaterialRepository
	cache         *DashboardCache
	cfg           config.UploadConfig
	logger        *zap.Logger
	db            *gorm.DB
}

func NewUploadFlow(
	jobRepo repository.UploadJobRepository,
	materialRepo repository.MaterialRepository,
	categoryRepo repository.CategoryRepository,
	procedureRepo repository.ProcedureRepository,
	linkRepo repository.ProcedureMaterialRepository,
	cache *DashboardCache,
	cfg config.UploadConfig,
	logger *zap.Logger,
	db *gorm.DB,
) UploadFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = utils.MaxUploadFileSize
	}
	if cfg.MaxResponseErrors <= 0 {
		cfg.MaxResponseErrors = utils.MaxResponseRowErrors
	}
	if cfg.DefaultHistoryLimit <= 0 {
		cfg.DefaultHistoryLimit = utils.DefaultUploadHistoryLimit
	}
	if cfg.MaxHistoryLimit <= 0 {
		cfg.MaxHistoryLimit = utils.MaxUploadHistoryLimit
	}
	return &UploadFlowImpl{
		jobRepo:       jobRepo,
		materialRepo:  materialRepo,
		categoryRepo:  categoryRepo,
		procedureRepo: procedureRepo,
		linkRepo:      linkRepo,
		cache:         cache,
		cfg:           cfg,
		logger:        logger,
		db:            db,
	}
}

// importOutcome accumulates per-row results of one import
type importOutcome struct {
	total    int
	success  int
	errors   []models.RowError
	warnings []models.RowError
	snapshot []models.Material
}

func (o *importOutcome) fail(row int, format string, args ...any) {
	o.errors = append(o.errors, models.RowError{Row: row, Message: fmt.Sprintf(format, args...)})
}

func (o *importOutcome) warn(row int, format string, args ...any) {
	o.warnings = append(o.warnings, models.RowError{Row: row, Message: fmt.Sprintf(format, args...)})
}

func (f *UploadFlowImpl) validateRequest(req *dto.UploadRequest) error {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if req.Mode == "" {
		req.Mode = models.UploadModeAdd
	}

	switch req.Type {
	case models.UploadTypeMaterials, models.UploadTypeProcedures:
	default:
		return NewBusinessErrorf("UPLOAD_TYPE_INVALID", "Unsupported upload type %q", ErrUploadTypeInvalid, req.Type)
	}
	switch req.Mode {
	case models.UploadModeAdd, models.UploadModeUpdate, models.UploadModeReplace:
	default:
		return NewBusinessErrorf("UPLOAD_MODE_INVALID", "Unsupported upload mode %q", ErrUploadModeInvalid, req.Mode)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return NewBusinessError("UPLOAD_FILE_REQUIRED", "File is required", ErrUploadFileRequired)
	}
	if UploadExtension(req.FileName) == "" {
		return NewBusinessError("UPLOAD_EXTENSION_INVALID", "Only .xlsx and .csv files are accepted", ErrUploadExtensionInvalid)
	}
	if req.FileSize > f.cfg.MaxFileSize {
		return NewBusinessErrorf("UPLOAD_FILE_TOO_LARGE", "File exceeds the %d byte limit", ErrUploadFileTooLarge, f.cfg.MaxFileSize)
	}
	return nil
}

func (f *UploadFlowImpl) Import(ctx context.Context, req dto.UploadRequest, file io.Reader, metadata *ClientMetadata) (*dto.UploadResultDTO, error) {
	if file == nil {
		return nil, NewBusinessError("UPLOAD_FILE_REQUIRED", "File is required", ErrUploadFileRequired)
	}
	if err := f.validateRequest(&req); err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	job := &models.UploadJob{
		UUID:      uuid.New(),
		Type:      req.Type,
		Mode:      req.Mode,
		FileName:  req.FileName,
		FileSize:  req.FileSize,
		Status:    models.UploadStatusProcessing,
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.jobRepo.Save(ctx, job); err != nil {
		return nil, NewBusinessError("UPLOAD_JOB_CREATE_FAILED", "Failed to create upload job", err)
	}

	log := f.logger.With(
		zap.Uint("job_id", job.ID),
		zap.String("type", job.Type),
		zap.String("mode", job.Mode),
		zap.String("request_id", metadata.requestID()),
	)

	rows, err := ParseSpreadsheet(file, req.FileName)
	if err != nil {
		log.Warn("upload file could not be parsed", zap.Error(err))
		outcome := &importOutcome{}
		outcome.fail(0, "file could not be parsed: %v", err)
		if ferr := f.finalize(ctx, job, outcome, models.UploadStatusFailed); ferr != nil {
			return nil, ferr
		}
		return nil, NewBusinessError("UPLOAD_FILE_UNREADABLE", "The file could not be parsed", fmt.Errorf("%w: %v", ErrUploadFileUnreadable, err))
	}

	var outcome *importOutcome
	if job.Type == models.UploadTypeMaterials {
		outcome, err = f.importMaterials(ctx, job.Mode, rows)
	} else {
		outcome = f.importProcedures(ctx, rows, log)
	}
	if err != nil {
		log.Warn("upload aborted", zap.Error(err))
		failed := &importOutcome{total: len(rows)}
		failed.fail(0, "%s", importAbortMessage(err))
		if ferr := f.finalize(ctx, job, failed, models.UploadStatusFailed); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	status := models.UploadStatusCompleted
	if len(outcome.errors) > 0 {
		status = models.UploadStatusFailed
	}
	if err := f.finalize(ctx, job, outcome, status); err != nil {
		return nil, err
	}
	if outcome.success > 0 {
		f.cache.Invalidate(context.WithoutCancel(ctx))
	}

	log.Info("upload finished",
		zap.String("status", status),
		zap.Int("total_rows", outcome.total),
		zap.Int("success_rows", outcome.success),
		zap.Int("error_rows", len(outcome.errors)),
		zap.Int("warnings", len(outcome.warnings)))

	return f.toResult(job, outcome), nil
}

func (f *UploadFlowImpl) ImportMaterials(ctx context.Context, req dto.UploadRequest, file io.Reader, metadata *ClientMetadata) (*dto.UploadResultDTO, error) {
	req.Type = models.UploadTypeMaterials
	return f.Import(ctx, req, file, metadata)
}

func (f *UploadFlowImpl) ImportProcedures(ctx context.Context, req dto.UploadRequest, file io.Reader, metadata *ClientMetadata) (*dto.UploadResultDTO, error) {
	req.Type = models.UploadTypeProcedures
	return f.Import(ctx, req, file, metadata)
}

func importAbortMessage(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

// finalize writes totals, the full row error list and the final status
func (f *UploadFlowImpl) finalize(ctx context.Context, job *models.UploadJob, outcome *importOutcome, status string) error {
	details, err := json.Marshal(models.UploadErrorDetails{
		Errors:   nonNilRowErrors(outcome.errors),
		Warnings: outcome.warnings,
	})
	if err != nil {
		return NewBusinessError("UPLOAD_JOB_FINALIZE_FAILED", "Failed to encode upload errors", err)
	}

	job.Status = status
	job.TotalRows = outcome.total
	job.SuccessRows = outcome.success
	job.ErrorRows = len(outcome.errors)
	job.ErrorDetails = datatypes.JSON(details)
	job.CompletedAt = utils.UTCNowPtr()
	if outcome.snapshot != nil {
		snapshot, err := json.Marshal(models.MaterialSnapshot{Data: outcome.snapshot})
		if err != nil {
			return NewBusinessError("UPLOAD_JOB_FINALIZE_FAILED", "Failed to encode material snapshot", err)
		}
		job.OriginalData = datatypes.JSON(snapshot)
	}

	// The request may already be cancelled; the job must still leave processing.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.UploadFinalizeTimeout)
	defer cancel()
	if err := f.jobRepo.Update(fctx, job); err != nil {
		return NewBusinessError("UPLOAD_JOB_FINALIZE_FAILED", "Failed to finalize upload job", err)
	}

	recordUploadMetrics(job.Type, status, outcome.success, len(outcome.errors), len(outcome.warnings))
	return nil
}

func nonNilRowErrors(rows []models.RowError) []models.RowError {
	if rows == nil {
		return []models.RowError{}
	}
	return rows
}

func (f *UploadFlowImpl) toResult(job *models.UploadJob, outcome *importOutcome) *dto.UploadResultDTO {
	errs := outcome.errors
	truncated := false
	if len(errs) > f.cfg.MaxResponseErrors {
		errs = errs[:f.cfg.MaxResponseErrors]
		truncated = true
	}
	warnings := outcome.warnings
	if len(warnings) > f.cfg.MaxResponseErrors {
		warnings = warnings[:f.cfg.MaxResponseErrors]
	}

	result := &dto.UploadResultDTO{
		JobID:           job.ID,
		JobUUID:         job.UUID.String(),
		Type:            job.Type,
		Mode:            job.Mode,
		Status:          job.Status,
		TotalRows:       job.TotalRows,
		SuccessRows:     job.SuccessRows,
		ErrorRows:       job.ErrorRows,
		Errors:          toRowErrorDTOs(nonNilRowErrors(errs)),
		ErrorsTruncated: truncated,
		Warnings:        toRowErrorDTOs(warnings),
	}
	return result
}

// materialRow is a validated materials row
type materialRow struct {
	number int
	model  models.Material
}

func parseMaterialRow(row SheetRow) (*materialRow, string) {
	name := row.Cell(0)
	if name == "" {
		return nil, "material name is required"
	}
	rawCost := row.Cell(1)
	if rawCost == "" {
		return nil, "cost is required"
	}
	cost, err := ParseAmount(rawCost)
	if err != nil {
		return nil, fmt.Sprintf("invalid price: %v", err)
	}
	if cost.IsNegative() {
		return nil, fmt.Sprintf("invalid price: %s is negative", rawCost)
	}

	now := utils.UTCNow()
	return &materialRow{
		number: row.Number,
		model: models.Material{
			Name:      name,
			Cost:      cost,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}, ""
}

func (f *UploadFlowImpl) importMaterials(ctx context.Context, mode string, rows []SheetRow) (*importOutcome, error) {
	if mode == models.UploadModeReplace {
		return f.replaceMaterials(ctx, rows)
	}

	outcome := &importOutcome{total: len(rows)}
	for _, row := range rows {
		parsed, msg := parseMaterialRow(row)
		if parsed == nil {
			outcome.fail(row.Number, "%s", msg)
			continue
		}
		material := parsed.model

		switch mode {
		case models.UploadModeAdd:
			existing, err := f.materialRepo.ByName(ctx, material.Name)
			if err != nil {
				outcome.fail(row.Number, "failed to check material %q: %v", material.Name, err)
				continue
			}
			if existing != nil {
				outcome.fail(row.Number, "material %q already exists", material.Name)
				continue
			}
			if err := f.materialRepo.Save(ctx, &material); err != nil {
				outcome.fail(row.Number, "failed to save material %q: %v", material.Name, err)
				continue
			}
		case models.UploadModeUpdate:
			if err := f.materialRepo.UpsertByName(ctx, &material); err != nil {
				outcome.fail(row.Number, "failed to save material %q: %v", material.Name, err)
				continue
			}
		}
		outcome.success++
	}
	return outcome, nil
}

// replaceMaterials swaps the whole materials table in one transaction.
// The previous rows are kept on the job so the import can be rolled back.
func (f *UploadFlowImpl) replaceMaterials(ctx context.Context, rows []SheetRow) (*importOutcome, error) {
	var outcome *importOutcome
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		outcome = &importOutcome{total: len(rows)}

		linked, err := f.linkRepo.CountLinkedMaterials(txCtx)
		if err != nil {
			return NewBusinessError("MATERIAL_USAGE_CHECK_FAILED", "Failed to check material usage", err)
		}
		if linked > 0 {
			return NewDetailedError(
				"UPLOAD_REPLACE_BLOCKED",
				fmt.Sprintf("%d materials are linked to procedures; replace mode is not allowed", linked),
				ErrUploadReplaceBlocked,
				map[string]int64{"linkedMaterials": linked},
			)
		}

		existing, err := f.materialRepo.ByFilter(txCtx, models.MaterialFilter{}, "id ASC", 0, 0)
		if err != nil {
			return NewBusinessError("MATERIAL_SNAPSHOT_FAILED", "Failed to snapshot materials", err)
		}
		outcome.snapshot = make([]models.Material, 0, len(existing))
		for _, m := range existing {
			outcome.snapshot = append(outcome.snapshot, *m)
		}

		if _, err := f.materialRepo.DeleteAll(txCtx); err != nil {
			return NewBusinessError("MATERIAL_DELETE_FAILED", "Failed to clear materials", err)
		}

		seen := make(map[string]int, len(rows))
		for _, row := range rows {
			parsed, msg := parseMaterialRow(row)
			if parsed == nil {
				outcome.fail(row.Number, "%s", msg)
				continue
			}
			material := parsed.model
			if first, dup := seen[material.Name]; dup {
				outcome.fail(row.Number, "material %q is duplicated (first seen on row %d)", material.Name, first)
				continue
			}
			seen[material.Name] = row.Number

			if err := f.materialRepo.Save(txCtx, &material); err != nil {
				return NewBusinessErrorf("MATERIAL_REPLACE_FAILED", "Failed to insert material on row %d", err, row.Number)
			}
			outcome.success++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (f *UploadFlowImpl) importProcedures(ctx context.Context, rows []SheetRow, log *zap.Logger) *importOutcome {
	outcome := &importOutcome{total: len(rows)}

	for _, row := range rows {
		name := row.Cell(0)
		if name == "" {
			outcome.fail(row.Number, "procedure name is required")
			continue
		}
		rawPrice := row.Cell(2)
		if rawPrice == "" {
			outcome.fail(row.Number, "customer price is required")
			continue
		}
		price, err := ParseAmount(rawPrice)
		if err != nil {
			outcome.fail(row.Number, "invalid price: %v", err)
			continue
		}
		if price.IsNegative() {
			outcome.fail(row.Number, "invalid price: %s is negative", rawPrice)
			continue
		}
		categoryName := row.Cell(1)
		materialNames := SplitNames(row.Cell(3))

		var missing []string
		err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
			missing = nil

			var categoryID *uint
			if categoryName != "" && categoryName != models.UncategorizedName {
				category, err := f.categoryRepo.FindOrCreate(txCtx, categoryName)
				if err != nil {
					return fmt.Errorf("failed to resolve category %q: %w", categoryName, err)
				}
				categoryID = &category.ID
			}

			now := utils.UTCNow()
			procedure := models.Procedure{
				Name:          name,
				CategoryID:    categoryID,
				CustomerPrice: price,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := f.procedureRepo.Save(txCtx, &procedure); err != nil {
				return fmt.Errorf("failed to save procedure %q: %w", name, err)
			}

			if len(materialNames) == 0 {
				return nil
			}
			found, err := f.materialRepo.ByNames(txCtx, materialNames)
			if err != nil {
				return fmt.Errorf("failed to resolve materials: %w", err)
			}

			linked := make(map[uint]struct{}, len(found))
			links := make([]*models.ProcedureMaterial, 0, len(found))
			for _, materialName := range materialNames {
				m, ok := found[materialName]
				if !ok {
					missing = append(missing, materialName)
					continue
				}
				if _, dup := linked[m.ID]; dup {
					continue
				}
				linked[m.ID] = struct{}{}
				links = append(links, &models.ProcedureMaterial{MaterialID: m.ID, Quantity: oneQuantity()})
			}
			if len(links) == 0 {
				return nil
			}
			if err := f.linkRepo.ReplaceForProcedure(txCtx, procedure.ID, links); err != nil {
				return fmt.Errorf("failed to link materials: %w", err)
			}
			return nil
		})
		if err != nil {
			outcome.fail(row.Number, "%v", err)
			continue
		}

		outcome.success++
		for _, materialName := range missing {
			outcome.warn(row.Number, "material %q not found", materialName)
			log.Warn("procedure material not found",
				zap.Int("row", row.Number),
				zap.String("procedure", name),
				zap.String("material", materialName))
		}
	}
	return outcome
}

func (f *UploadFlowImpl) History(ctx context.Context, query dto.UploadHistoryQuery, metadata *ClientMetadata) ([]dto.UploadJobDTO, error) {
	filter := models.UploadJobFilter{}
	if t := strings.ToLower(strings.TrimSpace(query.Type)); t != "" {
		if t != models.UploadTypeMaterials && t != models.UploadTypeProcedures {
			return nil, NewBusinessErrorf("UPLOAD_TYPE_INVALID", "Unsupported upload type %q", ErrUploadTypeInvalid, query.Type)
		}
		filter.Type = &t
	}

	limit := query.Limit
	if limit <= 0 {
		limit = f.cfg.DefaultHistoryLimit
	}
	if limit > f.cfg.MaxHistoryLimit {
		limit = f.cfg.MaxHistoryLimit
	}

	jobs, err := f.jobRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, 0)
	if err != nil {
		return nil, NewBusinessError("UPLOAD_HISTORY_FAILED", "Failed to load upload history", err)
	}

	result := make([]dto.UploadJobDTO, 0, len(jobs))
	for _, job := range jobs {
		result = append(result, ToUploadJobDTO(*job))
	}
	return result, nil
}

func (f *UploadFlowImpl) Template(ctx context.Context, uploadType string) ([]byte, string, error) {
	return BuildTemplate(strings.ToLower(strings.TrimSpace(uploadType)))
}

func (f *UploadFlowImpl) ErrorReport(ctx context.Context, jobID uint, metadata *ClientMetadata) ([]byte, string, error) {
	job, err := f.jobRepo.ByID(ctx, jobID)
	if err != nil {
		return nil, "", NewBusinessError("UPLOAD_JOB_LOOKUP_FAILED", "Failed to load upload job", err)
	}
	if job == nil {
		return nil, "", NewBusinessError("UPLOAD_JOB_NOT_FOUND", "Upload job not found", ErrUploadJobNotFound)
	}

	content, name, err := buildErrorReport(*job)
	if err != nil {
		return nil, "", NewBusinessError("UPLOAD_REPORT_FAILED", "Failed to build error report", err)
	}
	return content, name, nil
}

func canRollback(job models.UploadJob) bool {
	return job.Type == models.UploadTypeMaterials &&
		job.Mode == models.UploadModeReplace &&
		job.Status == models.UploadStatusCompleted &&
		len(job.OriginalData) > 0
}

// Rollback restores the materials captured before a replace import
func (f *UploadFlowImpl) Rollback(ctx context.Context, jobID uint, metadata *ClientMetadata) (*dto.RollbackResultDTO, error) {
	job, err := f.jobRepo.ByID(ctx, jobID)
	if err != nil {
		return nil, NewBusinessError("UPLOAD_JOB_LOOKUP_FAILED", "Failed to load upload job", err)
	}
	if job == nil {
		return nil, NewBusinessError("UPLOAD_JOB_NOT_FOUND", "Upload job not found", ErrUploadJobNotFound)
	}
	if !canRollback(*job) {
		return nil, NewBusinessError("UPLOAD_ROLLBACK_NOT_ALLOWED", "Only completed replace imports of materials can be rolled back", ErrUploadRollbackNotAllowed)
	}

	var snapshot models.MaterialSnapshot
	if err := json.Unmarshal(job.OriginalData, &snapshot); err != nil {
		return nil, NewBusinessError("UPLOAD_SNAPSHOT_INVALID", "Stored material snapshot is unreadable", err)
	}

	result := &dto.RollbackResultDTO{JobID: job.ID}
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		linked, err := f.linkRepo.CountLinkedMaterials(txCtx)
		if err != nil {
			return NewBusinessError("MATERIAL_USAGE_CHECK_FAILED", "Failed to check material usage", err)
		}
		if linked > 0 {
			return NewDetailedError(
				"UPLOAD_ROLLBACK_BLOCKED",
				fmt.Sprintf("%d materials are linked to procedures; rollback is not allowed", linked),
				ErrUploadReplaceBlocked,
				map[string]int64{"linkedMaterials": linked},
			)
		}

		removed, err := f.materialRepo.DeleteAll(txCtx)
		if err != nil {
			return NewBusinessError("MATERIAL_DELETE_FAILED", "Failed to clear materials", err)
		}
		result.RemovedMaterials = removed

		restored := make([]*models.Material, 0, len(snapshot.Data))
		now := utils.UTCNow()
		for _, m := range snapshot.Data {
			restored = append(restored, &models.Material{
				Name:        m.Name,
				Cost:        m.Cost,
				Description: m.Description,
				Supplier:    m.Supplier,
				CreatedAt:   m.CreatedAt,
				UpdatedAt:   now,
			})
		}
		if err := f.materialRepo.SaveBatch(txCtx, restored); err != nil {
			return NewBusinessError("MATERIAL_RESTORE_FAILED", "Failed to restore materials", err)
		}
		result.RestoredMaterials = len(restored)

		job.Status = models.UploadStatusRollback
		if err := f.jobRepo.Update(txCtx, job); err != nil {
			return NewBusinessError("UPLOAD_JOB_UPDATE_FAILED", "Failed to update upload job", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.cache.Invalidate(ctx)
	f.logger.Info("upload rolled back",
		zap.Uint("job_id", job.ID),
		zap.Int("restored", result.RestoredMaterials),
		zap.Int64("removed", result.RemovedMaterials),
		zap.String("request_id", metadata.requestID()))

	result.Status = job.Status
	return result, nil
}
