package sale

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"clinicledger/internal/core/apperror"
	appctx "clinicledger/internal/core/context"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/numerator"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/posting"
	"clinicledger/internal/domain/stock"
	"clinicledger/pkg/logger"
)

var tracer = otel.Tracer("clinicledger/sale")

const aggregateType = "sale"

// BalanceReader reports the current balance of an account.
type BalanceReader interface {
	Balance(ctx context.Context, kind ledger.AccountKind) (types.MinorUnits, error)
}

// Engine creates sales and moves them through their delivery states.
type Engine struct {
	repo      Repository
	stock     *stock.Guard
	journal   *journal.Processor
	posting   *posting.Engine
	balances  BalanceReader
	numerator numerator.Generator
	txManager tx.Manager
	events    domain.EventPublisher
	cfg       Config
	now       func() time.Time
}

// NewEngine creates a new sale engine. events may be nil.
func NewEngine(
	repo Repository,
	stockGuard *stock.Guard,
	journalProcessor *journal.Processor,
	postingEngine *posting.Engine,
	balances BalanceReader,
	gen numerator.Generator,
	txManager tx.Manager,
	events domain.EventPublisher,
	cfg Config,
) *Engine {
	if events == nil {
		events = domain.NopPublisher{}
	}
	return &Engine{
		repo:      repo,
		stock:     stockGuard,
		journal:   journalProcessor,
		posting:   postingEngine,
		balances:  balances,
		numerator: gen,
		txManager: txManager,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create decrements stock, prices the sale, books the advance payment and
// stores the sale in one transaction.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "sale.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("sale.account", string(in.Account)),
		attribute.Int("sale.lines", len(in.Items)),
	)

	var (
		res     *Result
		touched []ledger.AccountKind
	)
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		snapshots, err := e.stock.ReserveAndDecrement(ctx, in.Items)
		if err != nil {
			return err
		}

		now := e.now().UTC()
		s := &Sale{
			ID:            id.New(),
			Account:       in.Account,
			CustomerName:  in.CustomerName,
			CustomerPhone: in.CustomerPhone,
			Status:        StatusPending,
			SellerID:      appctx.ActorID(ctx),
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		s.Items, err = saleItems(s.ID, in.Items, snapshots)
		if err != nil {
			return err
		}

		quote, err := Price(s.Items, in.FittingPrice, in.Discount)
		if err != nil {
			return err
		}
		if in.AdvancePayment > quote.Total {
			return apperror.NewInvalidPayment("advance payment exceeds sale total").
				WithDetail("advance", in.AdvancePayment).
				WithDetail("total", quote.Total)
		}
		s.Subtotal = quote.Subtotal
		s.FittingPrice = quote.FittingPrice
		s.DiscountAmount = quote.DiscountAmount
		s.TotalAmount = quote.Total
		s.AdvancePayment = in.AdvancePayment
		s.DueAmount = quote.Total - in.AdvancePayment

		number, err := e.numerator.GetNextNumber(ctx, ledger.InvoiceScope(s.Account), nil, now)
		if err != nil {
			return fmt.Errorf("allocate invoice number: %w", err)
		}
		s.InvoiceNo = number

		if err := e.repo.Create(ctx, s); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		res = &Result{Sale: s}
		if in.AdvancePayment.IsPositive() {
			p, booked, err := bookPayment(ctx, e.journal, e.repo, e.cfg, s, PaymentInput{
				Amount:         in.AdvancePayment,
				Method:         in.PaymentMethod,
				TransactionRef: in.TransactionRef,
			}, true, now)
			if err != nil {
				return err
			}
			s.Payments = []Payment{*p}
			res.Payment = p
			res.AccountBalance = booked.AccountBalance
			touched = booked.Touched()
		} else {
			balance, err := e.balances.Balance(ctx, s.Account)
			if err != nil {
				return fmt.Errorf("read balance: %w", err)
			}
			res.AccountBalance = balance
		}

		if err := e.events.Publish(ctx, domain.Event{
			AggregateType: aggregateType,
			AggregateID:   s.ID,
			EventType:     domain.EventSaleCreated,
			Payload:       s,
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.posting.Invalidate(ctx, touched...)

	logger.Info(ctx, "sale created",
		"id", res.Sale.ID,
		"invoice_no", res.Sale.InvoiceNo,
		"account", res.Sale.Account,
		"total", res.Sale.TotalAmount,
		"advance", res.Sale.AdvancePayment,
		"due", res.Sale.DueAmount,
	)
	return res, nil
}

// UpdateStatus moves a sale forward. pending→ready is always allowed;
// ready→delivered requires a zero due amount. Asking for delivered while
// money is due fails with PaymentIncomplete whatever the current state.
func (e *Engine) UpdateStatus(ctx context.Context, saleID id.ID, status Status) (*Result, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	var (
		res  *Result
		from Status
	)
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := e.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		from = s.Status
		if err := checkTransition(s, status); err != nil {
			return err
		}

		expected := s.Version
		s.Status = status
		s.UpdatedAt = e.now().UTC()
		if err := e.repo.Update(ctx, s, expected); err != nil {
			return err
		}

		if err := e.events.Publish(ctx, domain.Event{
			AggregateType: aggregateType,
			AggregateID:   s.ID,
			EventType:     domain.EventSaleStatusChanged,
			Payload:       map[string]any{"saleId": s.ID, "from": from, "to": status},
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		balance, err := e.balances.Balance(ctx, s.Account)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		res = &Result{Sale: s, AccountBalance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale status changed",
		"id", res.Sale.ID,
		"invoice_no", res.Sale.InvoiceNo,
		"from", from,
		"to", status,
	)
	return res, nil
}

// Get returns a sale with its items and payments.
func (e *Engine) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	return e.repo.GetByID(ctx, saleID)
}

// List returns sales matching the filter.
func (e *Engine) List(ctx context.Context, f Filter) (domain.ListResult[Sale], error) {
	f.ListFilter = f.ListFilter.Normalize()
	return e.repo.List(ctx, f)
}

func checkTransition(s *Sale, to Status) error {
	if to == StatusDelivered && s.DueAmount.IsPositive() {
		return apperror.NewPaymentIncomplete(s.ID, s.DueAmount)
	}
	switch {
	case s.Status == StatusPending && to == StatusReady:
		return nil
	case s.Status == StatusReady && to == StatusDelivered:
		return nil
	}
	return apperror.NewValidation(fmt.Sprintf("cannot move sale from %s to %s", s.Status, to)).
		WithDetail("from", s.Status).
		WithDetail("to", to)
}

// saleItems builds sale lines in request order with prices from the locked snapshots.
func saleItems(saleID id.ID, lines []stock.Line, snapshots []stock.Item) ([]Item, error) {
	byID := make(map[id.ID]stock.Item, len(snapshots))
	for _, it := range snapshots {
		byID[it.ID] = it
	}
	items := make([]Item, len(lines))
	for i, l := range lines {
		snap := byID[l.ItemID]
		amount, err := snap.UnitPrice.MulQty(l.Quantity)
		if err != nil {
			return nil, outOfRange(err)
		}
		items[i] = Item{
			SaleID:      saleID,
			LineNo:      i + 1,
			StockItemID: l.ItemID,
			Name:        snap.Name,
			Quantity:    l.Quantity,
			UnitPrice:   snap.UnitPrice,
			Amount:      amount,
		}
	}
	return items, nil
}

// bookPayment posts the payment's income entry and stores the payment row.
func bookPayment(
	ctx context.Context,
	journalProcessor *journal.Processor,
	repo Repository,
	cfg Config,
	s *Sale,
	in PaymentInput,
	advance bool,
	now time.Time,
) (*Payment, *journal.Result, error) {
	description := "Payment for " + s.InvoiceNo
	if advance {
		description = "Advance payment for " + s.InvoiceNo
	}
	booked, err := journalProcessor.Book(ctx, journal.PostInput{
		Account:     s.Account,
		Direction:   ledger.Income,
		Amount:      in.Amount,
		Category:    cfg.category(),
		Date:        now,
		Description: description,
		Rollup:      cfg.rollsUp(s.Account),
		SaleID:      &s.ID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("book payment: %w", err)
	}

	p := &Payment{
		ID:             id.New(),
		SaleID:         s.ID,
		Amount:         in.Amount,
		Method:         in.Method,
		TransactionRef: optional(in.TransactionRef),
		Notes:          optional(in.Notes),
		IsAdvance:      advance,
		ReceivedBy:     appctx.ActorID(ctx),
		JournalEntryID: booked.Entry.ID,
		CreatedAt:      now,
	}
	if err := repo.CreatePayment(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("create payment: %w", err)
	}
	return p, booked, nil
}
