// Package sale implements the POS sale workflow: stock decrement, pricing,
// advance and follow-up payments, and the delivery state machine.
package sale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/stock"
)

// Status is the delivery state of a sale.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
)

// Validate checks that s is a known status.
func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusReady, StatusDelivered:
		return nil
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown status %q", string(s))).
			WithDetail("field", "status")
	}
}

// PaymentMethod is how money was received.
type PaymentMethod string

const (
	MethodCash          PaymentMethod = "cash"
	MethodCard          PaymentMethod = "card"
	MethodMobileBanking PaymentMethod = "mobile_banking"
	MethodBankTransfer  PaymentMethod = "bank_transfer"
)

// Validate checks that m is a known payment method.
func (m PaymentMethod) Validate() error {
	switch m {
	case MethodCash, MethodCard, MethodMobileBanking, MethodBankTransfer:
		return nil
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown payment method %q", string(m))).
			WithDetail("field", "method")
	}
}

// DiscountKind selects how the discount is given.
type DiscountKind string

const (
	DiscountNone    DiscountKind = "none"
	DiscountPercent DiscountKind = "percent"
	DiscountAmount  DiscountKind = "amount"
)

// DiscountSpec is either a percentage of subtotal plus fitting or a fixed amount.
type DiscountSpec struct {
	Kind    DiscountKind     `json:"kind"`
	Percent decimal.Decimal  `json:"percent"`
	Amount  types.MinorUnits `json:"amount"`
}

var hundred = decimal.NewFromInt(100)

// Validate checks the discount is well-formed. Bounds against the sale total are
// checked when the sale is priced.
func (d DiscountSpec) Validate() error {
	switch d.Kind {
	case "", DiscountNone:
		return nil
	case DiscountPercent:
		if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
			return apperror.NewValidation("discount percent must be between 0 and 100").
				WithDetail("field", "discount.percent")
		}
		return nil
	case DiscountAmount:
		if d.Amount.IsNegative() {
			return apperror.NewValidation("discount amount cannot be negative").
				WithDetail("field", "discount.amount")
		}
		return nil
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown discount kind %q", string(d.Kind))).
			WithDetail("field", "discount.kind")
	}
}

// Sale is a POS sale booked to one account.
type Sale struct {
	ID             id.ID              `db:"id" json:"id"`
	InvoiceNo      string             `db:"invoice_no" json:"invoiceNo"`
	Account        ledger.AccountKind `db:"account" json:"account"`
	CustomerName   string             `db:"customer_name" json:"customerName"`
	CustomerPhone  string             `db:"customer_phone" json:"customerPhone"`
	Subtotal       types.MinorUnits   `db:"subtotal" json:"subtotal"`
	FittingPrice   types.MinorUnits   `db:"fitting_price" json:"fittingPrice"`
	DiscountAmount types.MinorUnits   `db:"discount_amount" json:"discountAmount"`
	TotalAmount    types.MinorUnits   `db:"total_amount" json:"totalAmount"`
	AdvancePayment types.MinorUnits   `db:"advance_payment" json:"advancePayment"`
	DueAmount      types.MinorUnits   `db:"due_amount" json:"dueAmount"`
	Status         Status             `db:"status" json:"status"`
	SellerID       string             `db:"seller_id" json:"sellerId"`
	Version        int                `db:"version" json:"version"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updatedAt"`

	Items    []Item    `db:"-" json:"items"`
	Payments []Payment `db:"-" json:"payments,omitempty"`
}

// ExpectedDue recomputes the due amount from total, advance and the
// non-advance payments.
func (s *Sale) ExpectedDue(payments []Payment) types.MinorUnits {
	due := s.TotalAmount - s.AdvancePayment
	for _, p := range payments {
		if !p.IsAdvance {
			due -= p.Amount
		}
	}
	return due
}

// Item is a sold line with the unit price captured at sale time.
type Item struct {
	SaleID      id.ID            `db:"sale_id" json:"saleId"`
	LineNo      int              `db:"line_no" json:"lineNo"`
	StockItemID id.ID            `db:"stock_item_id" json:"stockItemId"`
	Name        string           `db:"name" json:"name"`
	Quantity    int64            `db:"quantity" json:"quantity"`
	UnitPrice   types.MinorUnits `db:"unit_price" json:"unitPrice"`
	Amount      types.MinorUnits `db:"amount" json:"amount"`
}

// Payment is money received against a sale.
type Payment struct {
	ID             id.ID            `db:"id" json:"id"`
	SaleID         id.ID            `db:"sale_id" json:"saleId"`
	Amount         types.MinorUnits `db:"amount" json:"amount"`
	Method         PaymentMethod    `db:"method" json:"method"`
	TransactionRef *string          `db:"transaction_ref" json:"transactionRef,omitempty"`
	Notes          *string          `db:"notes" json:"notes,omitempty"`
	IsAdvance      bool             `db:"is_advance" json:"isAdvance"`
	ReceivedBy     string           `db:"received_by" json:"receivedBy"`
	JournalEntryID id.ID            `db:"journal_entry_id" json:"journalEntryId"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
}

// CreateInput describes a new sale.
type CreateInput struct {
	Account        ledger.AccountKind
	Items          []stock.Line
	FittingPrice   types.MinorUnits
	Discount       DiscountSpec
	AdvancePayment types.MinorUnits
	PaymentMethod  PaymentMethod
	TransactionRef string
	CustomerName   string
	CustomerPhone  string
}

func (in CreateInput) validate() error {
	if err := in.Account.Validate(); err != nil {
		return err
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("a sale needs at least one item").WithDetail("field", "items")
	}
	for i, l := range in.Items {
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation(fmt.Sprintf("item %d: stock item id is required", i+1)).
				WithDetail("line", i+1)
		}
		if l.Quantity <= 0 {
			return apperror.NewValidation(fmt.Sprintf("item %d: quantity must be positive", i+1)).
				WithDetail("line", i+1)
		}
	}
	if in.FittingPrice.IsNegative() {
		return apperror.NewValidation("fitting price cannot be negative").WithDetail("field", "fittingPrice")
	}
	if err := in.Discount.Validate(); err != nil {
		return err
	}
	if in.AdvancePayment.IsNegative() {
		return apperror.NewInvalidPayment("advance payment cannot be negative").
			WithDetail("advance", in.AdvancePayment)
	}
	if in.AdvancePayment.IsPositive() {
		if err := in.PaymentMethod.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PaymentInput describes a follow-up payment.
type PaymentInput struct {
	Amount         types.MinorUnits
	Method         PaymentMethod
	TransactionRef string
	Notes          string
}

func (in PaymentInput) validate() error {
	if !in.Amount.IsPositive() {
		return apperror.NewInvalidPayment("payment amount must be positive").
			WithDetail("amount", in.Amount)
	}
	return in.Method.Validate()
}

// Result is the outcome of a sale mutation.
type Result struct {
	Sale           *Sale            `json:"sale"`
	Payment        *Payment         `json:"payment,omitempty"`
	AccountBalance types.MinorUnits `json:"accountBalance"`
}

// Filter narrows sale listings.
type Filter struct {
	domain.ListFilter
	Account *ledger.AccountKind
	Status  *Status
}

// Repository persists sales, their items and payments.
type Repository interface {
	// Create inserts the sale row and its items.
	Create(ctx context.Context, s *Sale) error

	// GetByID returns the sale with items and payments.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate returns the sale row (without items) under a row lock.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	// Update stores due amount and status if the row still has expectedVersion.
	Update(ctx context.Context, s *Sale, expectedVersion int) error

	CreatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, saleID id.ID) ([]Payment, error)
	List(ctx context.Context, f Filter) (domain.ListResult[Sale], error)
}

// Config holds sale booking settings.
type Config struct {
	// RollupAccounts lists accounts whose sale income is mirrored into main.
	RollupAccounts []ledger.AccountKind

	// SaleCategory is the journal category of sale payments.
	SaleCategory string
}

// DefaultConfig returns the clinic defaults.
func DefaultConfig() Config {
	return Config{
		RollupAccounts: []ledger.AccountKind{ledger.Optics},
		SaleCategory:   "POS Sale",
	}
}

func (c Config) rollsUp(account ledger.AccountKind) bool {
	for _, k := range c.RollupAccounts {
		if k == account {
			return true
		}
	}
	return false
}

func (c Config) category() string {
	if strings.TrimSpace(c.SaleCategory) == "" {
		return DefaultConfig().SaleCategory
	}
	return c.SaleCategory
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
