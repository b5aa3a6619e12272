package fund

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	appctx "clinicledger/internal/core/context"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/numerator"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/posting"
	"clinicledger/pkg/logger"
)

var tracer = otel.Tracer("clinicledger/fund")

const auditEntity = "fund_transfer"

// Ledger posts and reverses investor fund transfers.
type Ledger struct {
	repo      Repository
	posting   *posting.Engine
	numerator numerator.Generator
	txManager tx.Manager
	events    domain.EventPublisher
	audit     domain.AuditRecorder
	now       func() time.Time
}

// NewLedger creates a new fund ledger. events and audit may be nil.
func NewLedger(
	repo Repository,
	postingEngine *posting.Engine,
	gen numerator.Generator,
	txManager tx.Manager,
	events domain.EventPublisher,
	audit domain.AuditRecorder,
) *Ledger {
	if events == nil {
		events = domain.NopPublisher{}
	}
	if audit == nil {
		audit = domain.NopAuditRecorder{}
	}
	return &Ledger{
		repo:      repo,
		posting:   postingEngine,
		numerator: gen,
		txManager: txManager,
		events:    events,
		audit:     audit,
		now:       time.Now,
	}
}

// FundIn credits the account with investor money.
func (l *Ledger) FundIn(ctx context.Context, in TransferInput) (*Result, error) {
	return l.post(ctx, ledger.FundIn, in)
}

// FundOut debits the account. It fails with InsufficientBalance if the
// amount exceeds the balance.
func (l *Ledger) FundOut(ctx context.Context, in TransferInput) (*Result, error) {
	return l.post(ctx, ledger.FundOut, in)
}

func (l *Ledger) post(ctx context.Context, direction ledger.FundDirection, in TransferInput) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "fund.post")
	defer span.End()
	span.SetAttributes(
		attribute.String("fund.account", string(in.Account)),
		attribute.String("fund.direction", string(direction)),
	)

	t := &Transfer{
		Account:      in.Account,
		Direction:    direction,
		Amount:       in.Amount,
		InvestorName: strings.TrimSpace(in.InvestorName),
		Description:  strings.TrimSpace(in.Description),
		Date:         dateOnly(in.Date),
	}

	var res *Result
	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		effect, err := t.Effect()
		if err != nil {
			return err
		}
		balances, err := l.posting.Apply(ctx, posting.NewMovementSet().Add(t.Account, effect))
		if err != nil {
			return err
		}

		now := l.now().UTC()
		number, err := l.numerator.GetNextNumber(ctx, ledger.VoucherScope(t.Account), nil, now)
		if err != nil {
			return fmt.Errorf("allocate voucher number: %w", err)
		}
		t.ID = id.New()
		t.VoucherNo = number
		t.CreatedBy = appctx.ActorID(ctx)
		t.CreatedAt = now

		if err := l.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		if err := l.events.Publish(ctx, domain.Event{
			AggregateType: auditEntity,
			AggregateID:   t.ID,
			EventType:     domain.EventFundTransferPosted,
			Payload:       t,
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		res = &Result{Transfer: t, AccountBalance: balances[t.Account]}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.posting.Invalidate(ctx, t.Account)

	logger.Info(ctx, "fund transfer posted",
		"id", t.ID,
		"voucher_no", t.VoucherNo,
		"account", t.Account,
		"direction", t.Direction,
		"amount", t.Amount,
		"balance", res.AccountBalance,
	)
	return res, nil
}

// Delete removes a transfer and reverses its effect. Deleting a fund_in
// debits the account and can fail with InsufficientBalance.
func (l *Ledger) Delete(ctx context.Context, transferID id.ID) (*Result, error) {
	ctx, span := tracer.Start(ctx, "fund.delete")
	defer span.End()

	var res *Result
	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := l.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		effect, err := t.Effect()
		if err != nil {
			return err
		}
		balances, err := l.posting.Apply(ctx, posting.NewMovementSet().Reverse(t.Account, effect))
		if err != nil {
			return err
		}

		if err := l.repo.Delete(ctx, t.ID); err != nil {
			return fmt.Errorf("delete transfer: %w", err)
		}
		if err := l.audit.Record(ctx, auditEntity, t.ID, domain.AuditActionDelete, t, nil); err != nil {
			return fmt.Errorf("audit transfer: %w", err)
		}
		if err := l.events.Publish(ctx, domain.Event{
			AggregateType: auditEntity,
			AggregateID:   t.ID,
			EventType:     domain.EventFundTransferDeleted,
			Payload:       t,
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		res = &Result{Transfer: t, AccountBalance: balances[t.Account]}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.posting.Invalidate(ctx, res.Transfer.Account)

	logger.Info(ctx, "fund transfer deleted",
		"id", res.Transfer.ID,
		"voucher_no", res.Transfer.VoucherNo,
		"account", res.Transfer.Account,
		"balance", res.AccountBalance,
	)
	return res, nil
}

// Get returns a transfer.
func (l *Ledger) Get(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return l.repo.GetByID(ctx, transferID)
}

// List returns transfers matching the filter.
func (l *Ledger) List(ctx context.Context, f Filter) (domain.ListResult[Transfer], error) {
	f.ListFilter = f.ListFilter.Normalize()
	return l.repo.List(ctx, f)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
