package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicledger/internal/domain/outcome"
	"clinicledger/internal/domain/sale"
	"clinicledger/internal/infrastructure/http/v1/dto"
)

// SaleHandler serves /sales.
type SaleHandler struct {
	*BaseHandler
	engine   *sale.Engine
	payments *sale.PaymentRecorder
}

func NewSaleHandler(base *BaseHandler, engine *sale.Engine, payments *sale.PaymentRecorder) *SaleHandler {
	return &SaleHandler{BaseHandler: base, engine: engine, payments: payments}
}

// Create handles POST /sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.engine.Create(c.Request.Context(), req.Input())
	h.Respond(c, "sale.create", http.StatusCreated, outcome.Sale(res, err), err)
}

// AddPayment handles POST /sales/:id/payments.
func (h *SaleHandler) AddPayment(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.AddPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.payments.AddPayment(c.Request.Context(), saleID, req.Input())
	h.Respond(c, "sale.payment", http.StatusCreated, outcome.Sale(res, err), err)
}

// UpdateStatus handles PATCH /sales/:id/status.
func (h *SaleHandler) UpdateStatus(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.engine.UpdateStatus(c.Request.Context(), saleID, req.Status)
	h.Respond(c, "sale.status", http.StatusOK, outcome.Sale(res, err), err)
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}
	s, err := h.engine.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	f, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.engine.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}
