package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicledger/internal/domain/outcome"
	"clinicledger/internal/domain/stock"
	"clinicledger/internal/infrastructure/http/v1/dto"
)

// StockHandler serves /stock.
type StockHandler struct {
	*BaseHandler
	guard *stock.Guard
}

func NewStockHandler(base *BaseHandler, guard *stock.Guard) *StockHandler {
	return &StockHandler{BaseHandler: base, guard: guard}
}

// List handles GET /stock.
func (h *StockHandler) List(c *gin.Context) {
	var q dto.StockListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	f, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.guard.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Create handles POST /stock.
func (h *StockHandler) Create(c *gin.Context) {
	var req dto.CreateStockItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item := req.Item()
	err := h.guard.Create(c.Request.Context(), item)
	h.Respond(c, "stock.create", http.StatusCreated, outcome.Envelope{OK: err == nil, Entity: item}, err)
}

// Receive handles POST /stock/receive.
func (h *StockHandler) Receive(c *gin.Context) {
	var req dto.ReceiveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	items, err := h.guard.Receive(c.Request.Context(), req.Lines)
	h.Respond(c, "stock.receive", http.StatusOK, outcome.Envelope{OK: err == nil, Entity: items}, err)
}
