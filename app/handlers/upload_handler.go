package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	businessflow "github.com/kimmokhwa/beautiful-management-app/business_flow"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"go.uber.org/zap"
)

// UploadHandlerInterface defines handler methods for spreadsheet import endpoints
type UploadHandlerInterface interface {
	UploadMaterials(c fiber.Ctx) error
	UploadProcedures(c fiber.Ctx) error
	History(c fiber.Ctx) error
	Template(c fiber.Ctx) error
	ErrorReport(c fiber.Ctx) error
	Rollback(c fiber.Ctx) error
}

// UploadHandler implements spreadsheet import endpoints
type UploadHandler struct {
	baseHandler
	flow businessflow.UploadFlow
}

func NewUploadHandler(flow businessflow.UploadFlow, logger *zap.Logger, exposeErrors bool) UploadHandlerInterface {
	return &UploadHandler{
		baseHandler: newBaseHandler(logger, exposeErrors),
		flow:        flow,
	}
}

// UploadMaterials imports materials from an xlsx or csv file
// @Summary Import Materials
// @Description Columns: 재료명, 원가. Row errors are reported per row and never abort the batch.
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx or .csv, max 10MB)"
// @Param mode formData string false "add (default), update or replace"
// @Success 200 {object} dto.APIResponse{data=dto.UploadResultDTO}
// @Failure 400 {object} dto.APIResponse "Invalid file or mode"
// @Failure 500 {object} dto.APIResponse "Import failed"
// @Router /api/upload/materials [post]
func (h *UploadHandler) UploadMaterials(c fiber.Ctx) error {
	return h.upload(c, models.UploadTypeMaterials, "/api/upload/materials")
}

// UploadProcedures imports procedures from an xlsx or csv file
// @Summary Import Procedures
// @Description Columns: 시술명, 카테고리, 고객가격, 재료명 (comma separated). Unknown material names become warnings.
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx or .csv, max 10MB)"
// @Param mode formData string false "add (default), update or replace"
// @Success 200 {object} dto.APIResponse{data=dto.UploadResultDTO}
// @Failure 400 {object} dto.APIResponse "Invalid file or mode"
// @Failure 500 {object} dto.APIResponse "Import failed"
// @Router /api/upload/procedures [post]
func (h *UploadHandler) UploadProcedures(c fiber.Ctx) error {
	return h.upload(c, models.UploadTypeProcedures, "/api/upload/procedures")
}

func (h *UploadHandler) upload(c fiber.Ctx, uploadType, endpoint string) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File is required", "UPLOAD_FILE_REQUIRED", nil)
	}
	file, err := fh.Open()
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to read uploaded file", "UPLOAD_FILE_READ_FAILED")
	}
	defer func() { _ = file.Close() }()

	req := dto.UploadRequest{
		Type:     uploadType,
		Mode:     c.FormValue("mode"),
		FileName: fh.Filename,
		FileSize: fh.Size,
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, endpoint, utils.UploadRequestTimeout)
	defer cancel()

	res, err := h.flow.Import(ctx, req, file, h.clientMetadata(c, endpoint))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Import failed", "UPLOAD_FAILED")
	}

	message := "Import completed"
	if res.Status != models.UploadStatusCompleted {
		message = "Import finished with errors"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, res)
}

// History lists recent upload jobs
// @Summary Upload History
// @Tags Upload
// @Produce json
// @Param type query string false "materials or procedures"
// @Param limit query int false "Default 20, max 100"
// @Success 200 {object} dto.APIResponse{data=[]dto.UploadJobDTO}
// @Failure 400 {object} dto.APIResponse "Invalid query"
// @Router /api/upload/history [get]
func (h *UploadHandler) History(c fiber.Ctx) error {
	var query dto.UploadHistoryQuery
	if err := c.Bind().Query(&query); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if msgs := h.validate(&query); msgs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs)
	}

	ctx, cancel := h.createRequestContext(c, "/api/upload/history")
	defer cancel()

	res, err := h.flow.History(ctx, query, h.clientMetadata(c, "/api/upload/history"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to load upload history", "UPLOAD_HISTORY_FAILED")
	}
	return h.ListResponse(c, "Upload history retrieved", res, len(res))
}

// Template downloads an xlsx template
// @Summary Download Template
// @Tags Upload
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type path string true "materials or procedures"
// @Success 200 {file} file
// @Failure 400 {object} dto.APIResponse "Unknown type"
// @Router /api/upload/templates/{type} [get]
func (h *UploadHandler) Template(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/upload/templates/:type")
	defer cancel()

	content, name, err := h.flow.Template(ctx, c.Params("type"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to build template", "TEMPLATE_BUILD_FAILED")
	}
	return h.sendWorkbook(c, content, name)
}

// ErrorReport downloads every row error of a job as xlsx
// @Summary Download Error Report
// @Tags Upload
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Upload job ID"
// @Success 200 {file} file
// @Failure 404 {object} dto.APIResponse "Job not found"
// @Router /api/upload/history/{id}/errors [get]
func (h *UploadHandler) ErrorReport(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid upload job id", "INVALID_ID", nil)
	}
	ctx, cancel := h.createRequestContext(c, "/api/upload/history/:id/errors")
	defer cancel()

	content, name, err := h.flow.ErrorReport(ctx, id, h.clientMetadata(c, "/api/upload/history/:id/errors"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Failed to build error report", "UPLOAD_REPORT_FAILED")
	}
	return h.sendWorkbook(c, content, name)
}

// Rollback restores the materials replaced by a replace-mode import
// @Summary Roll Back Import
// @Tags Upload
// @Produce json
// @Param id path int true "Upload job ID"
// @Success 200 {object} dto.APIResponse{data=dto.RollbackResultDTO}
// @Failure 400 {object} dto.APIResponse "Job cannot be rolled back"
// @Failure 404 {object} dto.APIResponse "Job not found"
// @Router /api/upload/history/{id}/rollback [post]
func (h *UploadHandler) Rollback(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid upload job id", "INVALID_ID", nil)
	}
	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/upload/history/:id/rollback", utils.UploadRequestTimeout)
	defer cancel()

	res, err := h.flow.Rollback(ctx, id, h.clientMetadata(c, "/api/upload/history/:id/rollback"))
	if err != nil {
		return h.FlowErrorResponse(c, err, "Rollback failed", "UPLOAD_ROLLBACK_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Import rolled back", res)
}

func (h *UploadHandler) sendWorkbook(c fiber.Ctx, content []byte, name string) error {
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, businessflow.XLSXContentType)
	return c.Status(fiber.StatusOK).Send(content)
}
