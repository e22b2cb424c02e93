// Package businessflow contains the core business logic and use cases of the clinic cost service
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Material errors
	ErrMaterialNotFound      = errors.New("material not found")
	ErrMaterialNameRequired  = errors.New("material name is required")
	ErrMaterialNameExists    = errors.New("material name already exists")
	ErrMaterialCostRequired  = errors.New("material cost is required")
	ErrMaterialCostNegative  = errors.New("material cost must not be negative")
	ErrMaterialInUse         = errors.New("material is used by procedures")
	ErrMaterialUpdateMissing = errors.New("at least one field must be provided for update")

	// Category errors
	ErrCategoryNotFound = errors.New("category not found")

	// Procedure errors
	ErrProcedureNotFound          = errors.New("procedure not found")
	ErrProcedureNameRequired      = errors.New("procedure name is required")
	ErrCustomerPriceRequired      = errors.New("customer price is required")
	ErrCustomerPriceNegative      = errors.New("customer price must not be negative")
	ErrQuantityInvalid            = errors.New("quantity must be greater than zero")
	ErrDuplicateProcedureMaterial = errors.New("material listed more than once")
	ErrProcedureMaterialNotFound  = errors.New("linked material not found")
	ErrProcedureUpdateMissing     = errors.New("at least one field must be provided for update")
	ErrInvalidSortField           = errors.New("invalid sort field")
	ErrInvalidSortOrder           = errors.New("invalid sort order")

	// Upload errors
	ErrUploadFileRequired       = errors.New("file is required")
	ErrUploadTypeInvalid        = errors.New("upload type must be materials or procedures")
	ErrUploadModeInvalid        = errors.New("upload mode must be add, update or replace")
	ErrUploadExtensionInvalid   = errors.New("only .xlsx and .csv files are accepted")
	ErrUploadFileTooLarge       = errors.New("file exceeds the maximum upload size")
	ErrUploadFileUnreadable     = errors.New("file could not be parsed")
	ErrUploadReplaceBlocked     = errors.New("materials are linked to procedures and cannot be replaced")
	ErrUploadJobNotFound        = errors.New("upload job not found")
	ErrUploadRollbackNotAllowed = errors.New("upload job cannot be rolled back")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// DetailedError carries a payload for the error.details field of the response
type DetailedError struct {
	*BusinessError
	Details any
}

func NewDetailedError(code, message string, err error, details any) *DetailedError {
	return &DetailedError{
		BusinessError: NewBusinessError(code, message, err),
		Details:       details,
	}
}

func (e *DetailedError) Unwrap() error {
	return e.BusinessError
}

func IsMaterialNotFound(err error) bool {
	return errors.Is(err, ErrMaterialNotFound)
}

func IsMaterialNameExists(err error) bool {
	return errors.Is(err, ErrMaterialNameExists)
}

func IsMaterialInUse(err error) bool {
	return errors.Is(err, ErrMaterialInUse)
}

func IsCategoryNotFound(err error) bool {
	return errors.Is(err, ErrCategoryNotFound)
}

func IsProcedureNotFound(err error) bool {
	return errors.Is(err, ErrProcedureNotFound)
}

func IsProcedureMaterialNotFound(err error) bool {
	return errors.Is(err, ErrProcedureMaterialNotFound)
}

func IsUploadJobNotFound(err error) bool {
	return errors.Is(err, ErrUploadJobNotFound)
}

func IsUploadReplaceBlocked(err error) bool {
	return errors.Is(err, ErrUploadReplaceBlocked)
}

func IsUploadFileUnreadable(err error) bool {
	return errors.Is(err, ErrUploadFileUnreadable)
}

// IsNotFound reports whether err maps to a missing entity
func IsNotFound(err error) bool {
	return IsMaterialNotFound(err) ||
		IsProcedureNotFound(err) ||
		IsUploadJobNotFound(err)
}

// IsValidation reports whether err is a client input problem
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var validationErrors = []error{
	ErrMaterialNameRequired,
	ErrMaterialNameExists,
	ErrMaterialCostRequired,
	ErrMaterialCostNegative,
	ErrMaterialInUse,
	ErrMaterialUpdateMissing,
	ErrCategoryNotFound,
	ErrProcedureNameRequired,
	ErrCustomerPriceRequired,
	ErrCustomerPriceNegative,
	ErrQuantityInvalid,
	ErrDuplicateProcedureMaterial,
	ErrProcedureMaterialNotFound,
	ErrProcedureUpdateMissing,
	ErrInvalidSortField,
	ErrInvalidSortOrder,
	ErrUploadFileRequired,
	ErrUploadTypeInvalid,
	ErrUploadModeInvalid,
	ErrUploadExtensionInvalid,
	ErrUploadFileTooLarge,
	ErrUploadFileUnreadable,
	ErrUploadReplaceBlocked,
	ErrUploadRollbackNotAllowed,
}
