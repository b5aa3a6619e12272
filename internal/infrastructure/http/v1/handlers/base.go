// Package handlers provides the HTTP handlers of the v1 API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain/outcome"
	"clinicledger/internal/infrastructure/http/v1/dto"
	"clinicledger/internal/infrastructure/http/v1/middleware"
	"clinicledger/internal/infrastructure/metrics"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	metrics *metrics.Metrics
}

// NewBaseHandler creates a new base handler. m may be nil.
func NewBaseHandler(m *metrics.Metrics) *BaseHandler {
	return &BaseHandler{metrics: m}
}

// BindJSON binds the request body, reporting a ValidationError on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds query parameters, reporting a ValidationError on failure.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// PathID parses the :id path parameter.
func (h *BaseHandler) PathID(c *gin.Context) (id.ID, bool) {
	v, err := dto.ParseID(c.Param("id"), "id")
	if err != nil {
		h.Error(c, err)
		return id.Nil(), false
	}
	return v, true
}

// Error registers err on the gin context and aborts. middleware.ErrorHandler
// writes the response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Respond finishes a mutating call: it counts the operation, then writes env
// with status on success or hands err to the error middleware.
func (h *BaseHandler) Respond(c *gin.Context, operation string, status int, env outcome.Envelope, err error) {
	h.metrics.Operation(operation, apperror.Kind(err))
	if err != nil {
		h.Error(c, err)
		return
	}
	middleware.CompleteIdempotency(c, status, env)
	c.JSON(status, env)
}

// OK writes data with 200.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
