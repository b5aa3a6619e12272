// Package journal posts, corrects and reverses income and expense entries.
package journal

import (
	"strings"
	"time"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/ledger"
)

// Entry is one income or expense posting against one account.
type Entry struct {
	ID            id.ID                 `db:"id" json:"id"`
	Account       ledger.AccountKind    `db:"account" json:"account"`
	Direction     ledger.EntryDirection `db:"direction" json:"direction"`
	Amount        types.MinorUnits      `db:"amount" json:"amount"`
	Category      string                `db:"category" json:"category"`
	CategoryID    *id.ID                `db:"category_id" json:"categoryId,omitempty"`
	Description   string                `db:"description" json:"description"`
	Date          time.Time             `db:"entry_date" json:"date"`
	TransactionNo string                `db:"transaction_no" json:"transactionNo"`
	CreatedBy     string                `db:"created_by" json:"createdBy"`

	// LinkedMainVoucherID points to the mirrored main-account entry of a rollup.
	LinkedMainVoucherID *id.ID `db:"linked_main_voucher_id" json:"linkedMainVoucherId,omitempty"`

	// SaleID is set when the entry books a sale payment. Such entries are
	// owned by the sale and cannot be corrected through the journal.
	SaleID *id.ID `db:"sale_id" json:"saleId,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Effect is the signed balance change the entry applied to its account.
func (e *Entry) Effect() (types.MinorUnits, error) {
	return e.Direction.Effect(e.Amount)
}

// Validate checks the entry's own fields. The category is checked when it is resolved.
func (e *Entry) Validate() error {
	if err := e.Account.Validate(); err != nil {
		return err
	}
	if err := e.Direction.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount").
			WithDetail("amount", e.Amount)
	}
	if e.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	if e.LinkedMainVoucherID != nil && e.Account == ledger.Main {
		return apperror.NewValidation("main account entries cannot roll up").
			WithDetail("field", "account")
	}
	return nil
}

// Category is a named lookup for entry classification. It does not affect balances.
type Category struct {
	ID        id.ID                 `db:"id" json:"id"`
	Name      string                `db:"name" json:"name"`
	Direction ledger.EntryDirection `db:"direction" json:"direction"`
	Active    bool                  `db:"active" json:"active"`
}

// Validate checks the category fields.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("category name is required").WithDetail("field", "name")
	}
	return c.Direction.Validate()
}

// PostInput describes a new entry.
type PostInput struct {
	Account     ledger.AccountKind
	Direction   ledger.EntryDirection
	Amount      types.MinorUnits
	CategoryID  *id.ID
	Category    string
	Date        time.Time
	Description string

	// Rollup mirrors the entry into the main account as a linked entry.
	Rollup bool

	// SaleID marks the entry as a sale payment booking.
	SaleID *id.ID
}

// EditInput carries the fields to change. Nil fields keep their value.
type EditInput struct {
	Account     *ledger.AccountKind
	Direction   *ledger.EntryDirection
	Amount      *types.MinorUnits
	CategoryID  *id.ID
	Category    *string
	Date        *time.Time
	Description *string
}

// categoryChanged reports whether the input touches the category.
func (in EditInput) categoryChanged() bool {
	return in.CategoryID != nil || in.Category != nil
}

// Result is the outcome of a journal mutation.
type Result struct {
	Entry *Entry `json:"entry"`

	// Rollup is the linked main-account entry, if any.
	Rollup *Entry `json:"rollup,omitempty"`

	// AccountBalance is the entry account's balance after the mutation.
	AccountBalance types.MinorUnits `json:"accountBalance"`

	// MainBalance is set when the main account moved too.
	MainBalance *types.MinorUnits `json:"mainBalance,omitempty"`

	touched []ledger.AccountKind
}

// Touched lists the accounts whose balances changed.
func (r *Result) Touched() []ledger.AccountKind {
	return r.touched
}
