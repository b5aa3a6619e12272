// Package fund records investor money moved into and out of the accounts.
package fund

import (
	"context"
	"strings"
	"time"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/ledger"
)

// Transfer is one investor fund movement.
type Transfer struct {
	ID           id.ID                `db:"id" json:"id"`
	Account      ledger.AccountKind   `db:"account" json:"account"`
	Direction    ledger.FundDirection `db:"direction" json:"direction"`
	Amount       types.MinorUnits     `db:"amount" json:"amount"`
	InvestorName string               `db:"investor_name" json:"investorName"`
	Description  string               `db:"description" json:"description"`
	Date         time.Time            `db:"transfer_date" json:"date"`
	VoucherNo    string               `db:"voucher_no" json:"voucherNo"`
	CreatedBy    string               `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time            `db:"created_at" json:"createdAt"`
}

// Effect is the signed balance change the transfer applied.
func (t *Transfer) Effect() (types.MinorUnits, error) {
	return t.Direction.Effect(t.Amount)
}

// TransferInput describes a new transfer. The direction comes from the operation.
type TransferInput struct {
	Account      ledger.AccountKind
	InvestorName string
	Amount       types.MinorUnits
	Date         time.Time
	Description  string
}

func (in TransferInput) validate() error {
	if err := in.Account.Validate(); err != nil {
		return err
	}
	if !in.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount").
			WithDetail("amount", in.Amount)
	}
	if strings.TrimSpace(in.InvestorName) == "" {
		return apperror.NewValidation("investor name is required").WithDetail("field", "investorName")
	}
	if in.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	return nil
}

// Result is the outcome of a fund mutation.
type Result struct {
	Transfer       *Transfer        `json:"transfer"`
	AccountBalance types.MinorUnits `json:"accountBalance"`
}

// Filter narrows transfer listings.
type Filter struct {
	domain.ListFilter
	Account   *ledger.AccountKind
	Direction *ledger.FundDirection
}

// Repository persists fund transfers.
type Repository interface {
	Create(ctx context.Context, t *Transfer) error
	GetByID(ctx context.Context, transferID id.ID) (*Transfer, error)
	GetForUpdate(ctx context.Context, transferID id.ID) (*Transfer, error)
	Delete(ctx context.Context, transferID id.ID) error
	List(ctx context.Context, f Filter) (domain.ListResult[Transfer], error)
}
