package businessflow

import (
	"fmt"
	"strconv"

	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type templateSpec struct {
	sheet    string
	fileName string
	rows     [][]any
}

var templateSpecs = map[string]templateSpec{
	models.UploadTypeMaterials: {
		sheet:    "재료 목록",
		fileName: "materials_template.xlsx",
		rows: [][]any{
			{"재료명", "원가"},
			{"보톡스 100U", 120000},
			{"레스틸렌 0.5cc", 77000},
		},
	},
	models.UploadTypeProcedures: {
		sheet:    "시술 목록",
		fileName: "procedures_template.xlsx",
		rows: [][]any{
			{"시술명", "카테고리", "고객가격", "재료명"},
			{"보톡스 100U 시술", "보톡스", 400000, "보톡스 100U,마취크림,주사기"},
			{"레스틸렌 필러 1cc", "필러", 350000, "레스틸렌 1cc,마취크림,주사기"},
			{"복합 시술", "보톡스", 600000, "보톡스 100U,레스틸렌 1cc,마취크림,주사기"},
		},
	},
}

// BuildTemplate returns an xlsx template for the upload type and its download file name
func BuildTemplate(uploadType string) ([]byte, string, error) {
	spec, ok := templateSpecs[uploadType]
	if !ok {
		return nil, "", NewBusinessErrorf("UPLOAD_TYPE_INVALID", "Unknown template type %q", ErrUploadTypeInvalid, uploadType)
	}

	content, err := writeWorkbook(spec.sheet, spec.rows)
	if err != nil {
		return nil, "", NewBusinessError("TEMPLATE_BUILD_FAILED", "Failed to build template", err)
	}
	return content, spec.fileName, nil
}

// buildErrorReport renders the persisted row errors and warnings of a job
func buildErrorReport(job models.UploadJob) ([]byte, string, error) {
	details := decodeErrorDetails(job.ErrorDetails)

	rows := make([][]any, 0, len(details.Errors)+len(details.Warnings)+1)
	rows = append(rows, []any{"행", "구분", "내용"})
	for _, e := range details.Errors {
		rows = append(rows, []any{e.Row, "오류", e.Message})
	}
	for _, w := range details.Warnings {
		rows = append(rows, []any{w.Row, "경고", w.Message})
	}

	content, err := writeWorkbook("오류 목록", rows)
	if err != nil {
		return nil, "", err
	}
	return content, "upload_" + strconv.FormatUint(uint64(job.ID), 10) + "_errors.xlsx", nil
}

func writeWorkbook(sheet string, rows [][]any) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	defaultSheet := xl.GetSheetName(0)
	if err := xl.SetSheetName(defaultSheet, sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		record := row
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
