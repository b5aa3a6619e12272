package dto

import (
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/sale"
	"clinicledger/internal/domain/stock"
)

// CreateSaleRequest is the body of POST /sales.
type CreateSaleRequest struct {
	Account        ledger.AccountKind `json:"account" binding:"required"`
	Items          []stock.Line       `json:"items"`
	FittingPrice   types.MinorUnits   `json:"fittingPrice"`
	Discount       sale.DiscountSpec  `json:"discount"`
	AdvancePayment types.MinorUnits   `json:"advancePayment"`
	PaymentMethod  sale.PaymentMethod `json:"paymentMethod"`
	TransactionRef string             `json:"transactionRef"`
	CustomerName   string             `json:"customerName"`
	CustomerPhone  string             `json:"customerPhone"`
}

func (r CreateSaleRequest) Input() sale.CreateInput {
	return sale.CreateInput{
		Account:        r.Account,
		Items:          r.Items,
		FittingPrice:   r.FittingPrice,
		Discount:       r.Discount,
		AdvancePayment: r.AdvancePayment,
		PaymentMethod:  r.PaymentMethod,
		TransactionRef: r.TransactionRef,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
	}
}

// AddPaymentRequest is the body of POST /sales/:id/payments.
type AddPaymentRequest struct {
	Amount         types.MinorUnits   `json:"amount"`
	Method         sale.PaymentMethod `json:"method"`
	TransactionRef string             `json:"transactionRef"`
	Notes          string             `json:"notes"`
}

func (r AddPaymentRequest) Input() sale.PaymentInput {
	return sale.PaymentInput{
		Amount:         r.Amount,
		Method:         r.Method,
		TransactionRef: r.TransactionRef,
		Notes:          r.Notes,
	}
}

// UpdateStatusRequest is the body of PATCH /sales/:id/status.
type UpdateStatusRequest struct {
	Status sale.Status `json:"status" binding:"required"`
}

// SaleListQuery filters GET /sales.
type SaleListQuery struct {
	ListQuery
	Account string `form:"account"`
	Status  string `form:"status"`
}

func (q SaleListQuery) ToFilter() (sale.Filter, error) {
	f := sale.Filter{ListFilter: q.Filter()}
	if q.Account != "" {
		k, err := ledger.ParseAccountKind(q.Account)
		if err != nil {
			return f, err
		}
		f.Account = &k
	}
	if q.Status != "" {
		s := sale.Status(q.Status)
		if err := s.Validate(); err != nil {
			return f, err
		}
		f.Status = &s
	}
	return f, nil
}
