package serverutils

import (
	"errors"

	"ai-askdata-be/pkg/poller"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts returned errors into the JSON error envelope.
// AppErrors keep their code and status; poller timeouts map to the distinct
// POLLING_TIMEOUT code; everything else is a generic 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		if appErr, ok := AsAppError(err); ok {
			return ctx.Status(appErr.Status).JSON(ErrResponse(appErr.Code, appErr.Message))
		}

		if errors.Is(err, poller.ErrPollingTimeout) {
			timeout := NewPollingTimeoutError(err)
			return ctx.Status(timeout.Status).JSON(ErrResponse(timeout.Code, timeout.Message))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrResponse("HTTP_ERROR", fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrResponse("INTERNAL_ERROR", err.Error()))
	}
}
