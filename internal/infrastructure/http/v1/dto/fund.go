package dto

import (
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/fund"
	"clinicledger/internal/domain/ledger"
)

// FundTransferRequest is the body of POST /funds/in and /funds/out.
type FundTransferRequest struct {
	Account      ledger.AccountKind `json:"account" binding:"required"`
	InvestorName string             `json:"investorName"`
	Amount       types.MinorUnits   `json:"amount"`
	Date         Date               `json:"date"`
	Description  string             `json:"description"`
}

func (r FundTransferRequest) Input() fund.TransferInput {
	return fund.TransferInput{
		Account:      r.Account,
		InvestorName: r.InvestorName,
		Amount:       r.Amount,
		Date:         r.Date.Time,
		Description:  r.Description,
	}
}

// FundListQuery filters GET /funds.
type FundListQuery struct {
	ListQuery
	Account   string `form:"account"`
	Direction string `form:"direction"`
}

func (q FundListQuery) ToFilter() (fund.Filter, error) {
	f := fund.Filter{ListFilter: q.Filter()}
	if q.Account != "" {
		k, err := ledger.ParseAccountKind(q.Account)
		if err != nil {
			return f, err
		}
		f.Account = &k
	}
	if q.Direction != "" {
		d := ledger.FundDirection(q.Direction)
		if err := d.Validate(); err != nil {
			return f, err
		}
		f.Direction = &d
	}
	return f, nil
}
