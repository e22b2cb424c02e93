// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	businessflow "github.com/kimmokhwa/beautiful-management-app/business_flow"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"go.uber.org/zap"
)

// baseHandler carries the response helpers shared by every handler
type baseHandler struct {
	validator    *validator.Validate
	logger       *zap.Logger
	exposeErrors bool
}

func newBaseHandler(logger *zap.Logger, exposeErrors bool) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{
		validator:    validator.New(),
		logger:       logger,
		exposeErrors: exposeErrors,
	}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, status int, message, code string, details any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: false, Message: message, Error: dto.ErrorDetail{Code: code, Details: details}})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// ListResponse writes a list payload together with its length
func (h *baseHandler) ListResponse(c fiber.Ctx, message string, data any, count int) error {
	return c.Status(fiber.StatusOK).JSON(dto.APIResponse{Success: true, Message: message, Data: data, Count: &count})
}

// FlowErrorResponse maps a flow error to 400, 404 or 500.
// Store failures are logged; their text reaches the client only outside production.
func (h *baseHandler) FlowErrorResponse(c fiber.Ctx, err error, message, code string) error {
	status := fiber.StatusInternalServerError
	switch {
	case businessflow.IsNotFound(err):
		status = fiber.StatusNotFound
	case businessflow.IsValidation(err):
		status = fiber.StatusBadRequest
	}

	if status != fiber.StatusInternalServerError {
		var detailed *businessflow.DetailedError
		if errors.As(err, &detailed) {
			return h.ErrorResponse(c, status, detailed.Message, detailed.Code, detailed.Details)
		}
		var be *businessflow.BusinessError
		if errors.As(err, &be) {
			return h.ErrorResponse(c, status, be.Message, be.Code, nil)
		}
		return h.ErrorResponse(c, status, err.Error(), code, nil)
	}

	h.logger.Error(message,
		zap.Error(err),
		zap.String("request_id", requestid.FromContext(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()))

	var details any
	if h.exposeErrors {
		details = err.Error()
	}
	return h.ErrorResponse(c, status, message, code, details)
}

// validate returns readable validator messages for req, or nil when it is valid
func (h *baseHandler) validate(req any) []string {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, getValidationErrorMessage(e))
	}
	return messages
}

func (h *baseHandler) clientMetadata(c fiber.Ctx, endpoint string) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))
	metadata.SetEndpoint(endpoint)
	return metadata
}

func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, utils.DefaultRequestTimeout)
}

func (h *baseHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}

// parseID reads the :id route parameter as a positive integer
func parseID(c fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
