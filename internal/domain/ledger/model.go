// Package ledger provides the five clinic accounts and the only operations
// allowed to change their balances.
package ledger

import (
	"fmt"
	"time"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/numerator"
	"clinicledger/internal/core/types"
)

// AccountKind identifies one of the clinic accounts.
type AccountKind string

const (
	Hospital  AccountKind = "hospital"
	Medicine  AccountKind = "medicine"
	Optics    AccountKind = "optics"
	Operation AccountKind = "operation"
	Main      AccountKind = "main"
)

// AllAccounts lists the account kinds in lock order.
var AllAccounts = []AccountKind{Hospital, Medicine, Optics, Operation, Main}

// ParseAccountKind converts s into an AccountKind.
func ParseAccountKind(s string) (AccountKind, error) {
	k := AccountKind(s)
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// Validate checks that k is a known account.
func (k AccountKind) Validate() error {
	if k.Rank() < 0 {
		return apperror.NewValidation(fmt.Sprintf("unknown account %q", string(k))).
			WithDetail("field", "account")
	}
	return nil
}

// Rank is the position of the account in lock order, or -1 if unknown.
// Multi-account postings lock sub-accounts first and main last.
func (k AccountKind) Rank() int {
	switch k {
	case Hospital:
		return 0
	case Medicine:
		return 1
	case Optics:
		return 2
	case Operation:
		return 3
	case Main:
		return 4
	default:
		return -1
	}
}

// Code is the short prefix used in numbers issued for the account.
func (k AccountKind) Code() string {
	switch k {
	case Hospital:
		return "HOS"
	case Medicine:
		return "MED"
	case Optics:
		return "OPT"
	case Operation:
		return "OPR"
	case Main:
		return "MAIN"
	default:
		return "UNK"
	}
}

func (k AccountKind) String() string { return string(k) }

// Account is the authoritative balance row of one account.
type Account struct {
	ID        id.ID            `db:"id" json:"id"`
	Kind      AccountKind      `db:"kind" json:"kind"`
	Balance   types.MinorUnits `db:"balance" json:"balance"`
	Version   int              `db:"version" json:"version"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// EntryDirection is the direction of a journal entry.
type EntryDirection string

const (
	Income  EntryDirection = "income"
	Expense EntryDirection = "expense"
)

// Validate checks that d is a known journal direction.
func (d EntryDirection) Validate() error {
	switch d {
	case Income, Expense:
		return nil
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown direction %q", string(d))).
			WithDetail("field", "direction")
	}
}

// Effect is the signed balance change of an entry of amount in direction d.
func (d EntryDirection) Effect(amount types.MinorUnits) (types.MinorUnits, error) {
	switch d {
	case Income:
		return amount, nil
	case Expense:
		return -amount, nil
	default:
		return 0, d.Validate()
	}
}

// FundDirection is the direction of an investor fund transfer.
type FundDirection string

const (
	FundIn  FundDirection = "fund_in"
	FundOut FundDirection = "fund_out"
)

// Validate checks that d is a known fund direction.
func (d FundDirection) Validate() error {
	switch d {
	case FundIn, FundOut:
		return nil
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown fund direction %q", string(d))).
			WithDetail("field", "direction")
	}
}

// Effect is the signed balance change of a transfer of amount in direction d.
func (d FundDirection) Effect(amount types.MinorUnits) (types.MinorUnits, error) {
	switch d {
	case FundIn:
		return amount, nil
	case FundOut:
		return -amount, nil
	default:
		return 0, d.Validate()
	}
}

// --- Number scopes ---

// TransactionScope numbers journal entries of the account.
func TransactionScope(k AccountKind) numerator.Config {
	return numerator.DefaultConfig(k.Code() + "-TX")
}

// VoucherScope numbers fund transfers of the account.
func VoucherScope(k AccountKind) numerator.Config {
	return numerator.DefaultConfig(k.Code() + "-FV")
}

// InvoiceScope numbers POS sales booked to the account.
func InvoiceScope(k AccountKind) numerator.Config {
	return numerator.DefaultConfig("INV-" + k.Code())
}
