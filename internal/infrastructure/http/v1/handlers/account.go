package handlers

import (
	"github.com/gin-gonic/gin"

	"clinicledger/internal/domain/ledger"
)

// AccountHandler serves /accounts.
type AccountHandler struct {
	*BaseHandler
	ledger *ledger.Service
}

func NewAccountHandler(base *BaseHandler, svc *ledger.Service) *AccountHandler {
	return &AccountHandler{BaseHandler: base, ledger: svc}
}

// List handles GET /accounts.
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.ledger.Accounts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": accounts})
}

// Reconcile handles GET /accounts/:kind/reconcile.
func (h *AccountHandler) Reconcile(c *gin.Context) {
	kind, err := ledger.ParseAccountKind(c.Param("kind"))
	if err != nil {
		h.Error(c, err)
		return
	}
	rec, err := h.ledger.Reconcile(c.Request.Context(), kind)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.metrics.BalanceDrift(string(kind), int64(rec.Drift))
	h.OK(c, gin.H{
		"account":  rec.Account,
		"stored":   rec.Stored,
		"replayed": rec.Replayed,
		"drift":    rec.Drift,
		"balanced": rec.Balanced(),
	})
}
