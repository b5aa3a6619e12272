package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicledger/internal/domain/fund"
	"clinicledger/internal/domain/outcome"
	"clinicledger/internal/infrastructure/http/v1/dto"
)

// FundHandler serves /funds.
type FundHandler struct {
	*BaseHandler
	ledger *fund.Ledger
}

func NewFundHandler(base *BaseHandler, ledger *fund.Ledger) *FundHandler {
	return &FundHandler{BaseHandler: base, ledger: ledger}
}

// FundIn handles POST /funds/in.
func (h *FundHandler) FundIn(c *gin.Context) {
	h.transfer(c, "fund.in", h.ledger.FundIn)
}

// FundOut handles POST /funds/out.
func (h *FundHandler) FundOut(c *gin.Context) {
	h.transfer(c, "fund.out", h.ledger.FundOut)
}

func (h *FundHandler) transfer(c *gin.Context, op string, fn func(context.Context, fund.TransferInput) (*fund.Result, error)) {
	var req dto.FundTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := fn(c.Request.Context(), req.Input())
	h.Respond(c, op, http.StatusCreated, outcome.Fund(res, err), err)
}

// Delete handles DELETE /funds/:id.
func (h *FundHandler) Delete(c *gin.Context) {
	transferID, ok := h.PathID(c)
	if !ok {
		return
	}
	res, err := h.ledger.Delete(c.Request.Context(), transferID)
	h.Respond(c, "fund.delete", http.StatusOK, outcome.Fund(res, err), err)
}

// List handles GET /funds.
func (h *FundHandler) List(c *gin.Context) {
	var q dto.FundListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	f, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.ledger.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}
