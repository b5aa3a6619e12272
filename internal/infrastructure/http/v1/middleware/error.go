package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicledger/internal/core/apperror"
	appctx "clinicledger/internal/core/context"
	"clinicledger/internal/domain/outcome"
	"clinicledger/pkg/logger"
)

// ErrorHandler renders the last gin error as a failed outcome envelope.
// Internal causes are logged and never sent to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperror.Normalize(err)
		ctx := c.Request.Context()

		switch {
		case appErr.HTTPStatus >= http.StatusInternalServerError:
			logger.Error(ctx, "request failed", "code", appErr.Code, "error", err)
		case appErr.Err != nil:
			logger.Warn(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
		}

		body := outcome.Failure(appErr)
		if appErr.Code == apperror.CodeInternal {
			body.Details = map[string]any{"request_id": appctx.RequestID(ctx)}
		}

		failIdempotency(c, appErr.HTTPStatus, body)
		c.JSON(appErr.HTTPStatus, body)
	}
}
