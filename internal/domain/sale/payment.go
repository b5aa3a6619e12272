package sale

import (
	"context"
	"fmt"
	"time"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/posting"
	"clinicledger/pkg/logger"
)

// PaymentRecorder records payments against a sale's due amount.
type PaymentRecorder struct {
	repo      Repository
	journal   *journal.Processor
	posting   *posting.Engine
	txManager tx.Manager
	events    domain.EventPublisher
	cfg       Config
	now       func() time.Time
}

// NewPaymentRecorder creates a new payment recorder. events may be nil.
func NewPaymentRecorder(
	repo Repository,
	journalProcessor *journal.Processor,
	postingEngine *posting.Engine,
	txManager tx.Manager,
	events domain.EventPublisher,
	cfg Config,
) *PaymentRecorder {
	if events == nil {
		events = domain.NopPublisher{}
	}
	return &PaymentRecorder{
		repo:      repo,
		journal:   journalProcessor,
		posting:   postingEngine,
		txManager: txManager,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AddPayment credits the sale's account and lowers the due amount.
// It fails with InvalidPayment when amount is not positive or exceeds the due
// amount. The sale status is left unchanged.
func (r *PaymentRecorder) AddPayment(ctx context.Context, saleID id.ID, in PaymentInput) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "sale.add_payment")
	defer span.End()

	var res *Result
	var booked *journal.Result
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		s, err := r.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if in.Amount > s.DueAmount {
			return apperror.NewInvalidPayment("payment exceeds due amount").
				WithDetail("amount", in.Amount).
				WithDetail("due", s.DueAmount)
		}

		now := r.now().UTC()
		var p *Payment
		p, booked, err = bookPayment(ctx, r.journal, r.repo, r.cfg, s, in, false, now)
		if err != nil {
			return err
		}

		expected := s.Version
		s.DueAmount -= in.Amount
		s.UpdatedAt = now
		if err := r.repo.Update(ctx, s, expected); err != nil {
			return err
		}

		if err := r.events.Publish(ctx, domain.Event{
			AggregateType: aggregateType,
			AggregateID:   s.ID,
			EventType:     domain.EventPaymentRecorded,
			Payload:       map[string]any{"payment": p, "due": s.DueAmount},
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		res = &Result{Sale: s, Payment: p, AccountBalance: booked.AccountBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.posting.Invalidate(ctx, booked.Touched()...)

	logger.Info(ctx, "payment recorded",
		"sale_id", res.Sale.ID,
		"invoice_no", res.Sale.InvoiceNo,
		"payment_id", res.Payment.ID,
		"amount", res.Payment.Amount,
		"due", res.Sale.DueAmount,
		"balance", res.AccountBalance,
	)
	return res, nil
}
