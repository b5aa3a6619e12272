// Package outcome renders engine results as the caller-facing envelope
// {ok, entity, account_balance} or {ok, error_kind, message}.
package outcome

import (
	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/fund"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/sale"
)

// Envelope is the result of one mutating engine call.
type Envelope struct {
	OK             bool              `json:"ok"`
	Entity         any               `json:"entity,omitempty"`
	AccountBalance *types.MinorUnits `json:"account_balance,omitempty"`
	ErrorKind      string            `json:"error_kind,omitempty"`
	Message        string            `json:"message,omitempty"`
	Details        map[string]any    `json:"details,omitempty"`
	Retryable      bool              `json:"retryable,omitempty"`
}

// Success wraps an entity and the balance of the account it touched.
func Success(entity any, balance types.MinorUnits) Envelope {
	return Envelope{OK: true, Entity: entity, AccountBalance: &balance}
}

// Failure converts any error into a failed envelope.
func Failure(err error) Envelope {
	appErr := apperror.Normalize(err)
	return Envelope{
		ErrorKind: appErr.Kind(),
		Message:   appErr.Message,
		Details:   appErr.Details,
		Retryable: apperror.IsRetryable(appErr),
	}
}

// Journal builds the envelope of a journal call.
func Journal(res *journal.Result, err error) Envelope {
	if err != nil {
		return Failure(err)
	}
	return Success(res, res.AccountBalance)
}

// Fund builds the envelope of a fund call.
func Fund(res *fund.Result, err error) Envelope {
	if err != nil {
		return Failure(err)
	}
	return Success(res.Transfer, res.AccountBalance)
}

// Sale builds the envelope of a sale or payment call.
func Sale(res *sale.Result, err error) Envelope {
	if err != nil {
		return Failure(err)
	}
	if res.Payment != nil {
		return Success(map[string]any{"sale": res.Sale, "payment": res.Payment}, res.AccountBalance)
	}
	return Success(res.Sale, res.AccountBalance)
}
