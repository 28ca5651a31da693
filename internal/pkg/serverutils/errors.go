package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// AppError is a domain error carrying the HTTP status it maps to.
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NotFoundError covers both "does not exist" and "not a member" so callers
// cannot probe for the existence of conversations they don't belong to.
func NotFoundError(message string) *AppError {
	return &AppError{Code: fiber.StatusNotFound, Message: message}
}

func BadRequestError(message string) *AppError {
	return &AppError{Code: fiber.StatusBadRequest, Message: message}
}

func UnauthorizedError(message string) *AppError {
	return &AppError{Code: fiber.StatusUnauthorized, Message: message}
}

// ErrorHandlerMiddleware converts returned errors into JSON responses.
// AppError keeps its status; anything else becomes a 500 with a generic body.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *AppError
		if errors.As(err, &appErr) {
			return ctx.Status(appErr.Code).JSON(fiber.Map{"message": appErr.Message})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
}
