package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ApiResponse is the JSON envelope for non-streaming endpoints.
type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) ApiResponse {
	return ApiResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func FailResponse(message string) ApiResponse {
	return ApiResponse{
		Success: false,
		Message: message,
	}
}

// ErrNotFound marks errors that should surface as 404 instead of 500.
var ErrNotFound = errors.New("not found")

// ErrorHandlerMiddleware converts errors returned by handlers into JSON
// envelopes so clients never see a bare 500 page.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(FailResponse(fiberErr.Message))
		}

		var valErr *ValidationError
		if errors.As(err, &valErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ApiResponse{
				Success: false,
				Message: "Validation failed",
				Data:    valErr.Fields,
			})
		}

		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(FailResponse(err.Error()))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(FailResponse(err.Error()))
	}
}
