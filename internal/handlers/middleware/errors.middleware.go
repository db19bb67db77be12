package middleware

import (
	"errors"
	"strings"

	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

var categoryStatus = map[types.ErrorCategory]int{
	types.CategoryValidation:    fiber.StatusBadRequest,
	types.CategoryUnauthorized:  fiber.StatusUnauthorized,
	types.CategoryNotFound:      fiber.StatusNotFound,
	types.CategoryForbidden:     fiber.StatusForbidden,
	types.CategoryConflict:      fiber.StatusConflict,
	types.CategoryExternal:      fiber.StatusBadGateway,
	types.CategoryConfiguration: fiber.StatusInternalServerError,
}

// StatusFor maps an error to its HTTP status and response body. Only the
// user-facing message of an AppError leaves the server.
func StatusFor(err error) (int, ErrorResponse) {
	if appErr, ok := types.AsAppError(err); ok {
		status, known := categoryStatus[appErr.Category]
		if !known {
			status = fiber.StatusInternalServerError
		}
		return status, ErrorResponse{Error: ErrorBody{Code: string(appErr.Code), Message: appErr.Message}}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := strings.ToUpper(strings.ReplaceAll(fiberErr.Message, " ", "_"))
		return fiberErr.Code, ErrorResponse{Error: ErrorBody{Code: code, Message: fiberErr.Message}}
	}

	return fiber.StatusInternalServerError, ErrorResponse{
		Error: ErrorBody{Code: "INTERNAL_ERROR", Message: "Internal server error"},
	}
}

// ErrorHandler is installed as the fiber error handler so handlers and
// middleware can return errors directly.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, body := StatusFor(err)

	log := logger.New("middleware").TraceFromContext(c.UserContext()).Function("ErrorHandler")
	if status >= fiber.StatusInternalServerError {
		log.Er("request failed", err, "method", c.Method(), "path", c.Path(), "status", status)
	} else {
		log.Debug("request rejected", "method", c.Method(), "path", c.Path(), "code", body.Error.Code)
	}

	return c.Status(status).JSON(body)
}
