// Package middleware provides the gin middleware of the v1 API.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"clinicledger/internal/core/apperror"
	appctx "clinicledger/internal/core/context"
	"clinicledger/pkg/logger"
)

// Recovery converts a handler panic into an Internal error that
// ErrorHandler renders. The stack only reaches the log.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			// net/http uses this panic to drop the connection silently
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			ctx := c.Request.Context()
			logger.Error(ctx, "handler panicked",
				"panic", r,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)
			c.Abort()
			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic in %s %s: %v", c.Request.Method, c.FullPath(), r)).
				WithDetail("request_id", appctx.RequestID(ctx)))
		}()
		c.Next()
	}
}
