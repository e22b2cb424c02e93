// Package businessflow contains the business logic for the application.
package businessflow

import (
	"encoding/json"

	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"github.com/shopspring/decimal"
)

// ClientMetadata holds client information attached to every flow call for logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetEndpoint sets the endpoint name
func (cm *ClientMetadata) SetEndpoint(endpoint string) {
	cm.Endpoint = endpoint
}

func (cm *ClientMetadata) requestID() string {
	if cm == nil {
		return ""
	}
	return cm.RequestID
}

// ToMaterialDTO converts a material model to its response form
func ToMaterialDTO(m models.Material) dto.MaterialDTO {
	return dto.MaterialDTO{
		ID:          m.ID,
		Name:        m.Name,
		Cost:        m.Cost.InexactFloat64(),
		Description: m.Description,
		Supplier:    m.Supplier,
		CreatedAt:   utils.FormatTime(m.CreatedAt),
		UpdatedAt:   utils.FormatTime(m.UpdatedAt),
	}
}

// ToUploadJobDTO converts an upload job to its history form
func ToUploadJobDTO(job models.UploadJob) dto.UploadJobDTO {
	details := decodeErrorDetails(job.ErrorDetails)
	return dto.UploadJobDTO{
		ID:          job.ID,
		UUID:        job.UUID.String(),
		Type:        job.Type,
		Mode:        job.Mode,
		FileName:    job.FileName,
		FileSize:    job.FileSize,
		Status:      job.Status,
		TotalRows:   job.TotalRows,
		SuccessRows: job.SuccessRows,
		ErrorRows:   job.ErrorRows,
		Errors:      toRowErrorDTOs(nonNilRowErrors(details.Errors)),
		Warnings:    toRowErrorDTOs(details.Warnings),
		CanRollback: canRollback(job),
		StartedAt:   utils.FormatTimePtr(job.StartedAt),
		CompletedAt: utils.FormatTimePtr(job.CompletedAt),
		CreatedAt:   utils.FormatTime(job.CreatedAt),
	}
}

func toRowErrorDTOs(rows []models.RowError) []dto.RowErrorDTO {
	if rows == nil {
		return nil
	}
	out := make([]dto.RowErrorDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.RowErrorDTO{Row: r.Row, Message: r.Message})
	}
	return out
}

func decodeErrorDetails(raw []byte) models.UploadErrorDetails {
	var details models.UploadErrorDetails
	if len(raw) == 0 {
		return details
	}
	_ = json.Unmarshal(raw, &details)
	return details
}

func moneyFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
