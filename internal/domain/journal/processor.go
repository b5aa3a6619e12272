package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"clinicledger/internal/core/apperror"
	appctx "clinicledger/internal/core/context"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/numerator"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/posting"
	"clinicledger/pkg/logger"
)

var tracer = otel.Tracer("clinicledger/journal")

const auditEntity = "journal_entry"

// Processor posts, edits and deletes journal entries. Every mutation moves
// the affected balances and writes the rows in one transaction.
type Processor struct {
	repo       Repository
	categories CategoryRepository
	posting    *posting.Engine
	numerator  numerator.Generator
	txManager  tx.Manager
	events     domain.EventPublisher
	audit      domain.AuditRecorder
	now        func() time.Time
}

// NewProcessor creates a new journal processor. events and audit may be nil.
func NewProcessor(
	repo Repository,
	categories CategoryRepository,
	postingEngine *posting.Engine,
	gen numerator.Generator,
	txManager tx.Manager,
	events domain.EventPublisher,
	audit domain.AuditRecorder,
) *Processor {
	if events == nil {
		events = domain.NopPublisher{}
	}
	if audit == nil {
		audit = domain.NopAuditRecorder{}
	}
	return &Processor{
		repo:       repo,
		categories: categories,
		posting:    postingEngine,
		numerator:  gen,
		txManager:  txManager,
		events:     events,
		audit:      audit,
		now:        time.Now,
	}
}

// Post creates an entry and applies its effect.
func (p *Processor) Post(ctx context.Context, in PostInput) (*Result, error) {
	var res *Result
	err := p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = p.Book(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.posting.Invalidate(ctx, res.Touched()...)

	logger.Info(ctx, "journal entry posted",
		"id", res.Entry.ID,
		"transaction_no", res.Entry.TransactionNo,
		"account", res.Entry.Account,
		"direction", res.Entry.Direction,
		"amount", res.Entry.Amount,
		"balance", res.AccountBalance,
	)
	return res, nil
}

// Book posts an entry inside the caller's transaction. The caller must
// invalidate res.Touched() balances once its transaction commits.
func (p *Processor) Book(ctx context.Context, in PostInput) (*Result, error) {
	entry := &Entry{
		Account:     in.Account,
		Direction:   in.Direction,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		CategoryID:  in.CategoryID,
		Description: strings.TrimSpace(in.Description),
		Date:        dateOnly(in.Date),
		SaleID:      in.SaleID,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if entry.CategoryID == nil && entry.Category == "" {
		return nil, apperror.NewValidation("category is required").WithDetail("field", "category")
	}
	rollup := in.Rollup && entry.Account != ledger.Main

	ctx, span := tracer.Start(ctx, "journal.post")
	defer span.End()
	span.SetAttributes(
		attribute.String("journal.account", string(entry.Account)),
		attribute.Bool("journal.rollup", rollup),
	)

	var res *Result
	err := p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := p.resolveCategory(ctx, entry, in.CategoryID, in.Category); err != nil {
			return err
		}

		now := p.now().UTC()
		entry.ID = id.New()
		entry.CreatedBy = appctx.ActorID(ctx)
		entry.CreatedAt = now
		entry.UpdatedAt = now

		number, err := p.numerator.GetNextNumber(ctx, ledger.TransactionScope(entry.Account), nil, now)
		if err != nil {
			return fmt.Errorf("allocate transaction number: %w", err)
		}
		entry.TransactionNo = number

		effect, err := entry.Effect()
		if err != nil {
			return err
		}
		set := posting.NewMovementSet().Add(entry.Account, effect)

		var mirror *Entry
		if rollup {
			mirror = &Entry{
				ID:        id.New(),
				Account:   ledger.Main,
				CreatedBy: entry.CreatedBy,
				CreatedAt: now,
				UpdatedAt: now,
				SaleID:    entry.SaleID,
			}
			mirrorFields(mirror, entry)

			mainNo, err := p.numerator.GetNextNumber(ctx, ledger.TransactionScope(ledger.Main), nil, now)
			if err != nil {
				return fmt.Errorf("allocate rollup transaction number: %w", err)
			}
			mirror.TransactionNo = mainNo
			entry.LinkedMainVoucherID = &mirror.ID
			set.Add(ledger.Main, effect)
		}

		balances, err := p.posting.Apply(ctx, set)
		if err != nil {
			return err
		}

		// the rollup target goes first so the link resolves
		if mirror != nil {
			if err := p.repo.Create(ctx, mirror); err != nil {
				return fmt.Errorf("create rollup entry: %w", err)
			}
		}
		if err := p.repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}

		if err := p.events.Publish(ctx, domain.Event{
			AggregateType: auditEntity,
			AggregateID:   entry.ID,
			EventType:     domain.EventJournalEntryPosted,
			Payload:       map[string]any{"entry": entry, "rollup": mirror},
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		res = newResult(entry, mirror, balances, set)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Edit changes an entry and moves the difference between its old and new
// effect. A linked rollup entry is changed along with it.
func (p *Processor) Edit(ctx context.Context, entryID id.ID, in EditInput) (*Result, error) {
	if in.Amount != nil && !in.Amount.IsPositive() {
		return nil, apperror.NewValidation("amount must be positive").WithDetail("field", "amount")
	}
	if in.Account != nil {
		if err := in.Account.Validate(); err != nil {
			return nil, err
		}
	}
	if in.Direction != nil {
		if err := in.Direction.Validate(); err != nil {
			return nil, err
		}
	}

	ctx, span := tracer.Start(ctx, "journal.edit")
	defer span.End()

	var res *Result
	err := p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		old, err := p.repo.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := p.guardCorrectable(ctx, old); err != nil {
			return err
		}

		next := *old
		in.apply(&next)
		switch {
		case in.categoryChanged():
			if err := p.resolveCategory(ctx, &next, in.CategoryID, deref(in.Category)); err != nil {
				return err
			}
		case next.Direction != old.Direction && next.CategoryID != nil:
			// the linked category belongs to the old direction
			if err := p.resolveCategory(ctx, &next, nil, next.Category); err != nil {
				return err
			}
		}
		if err := next.Validate(); err != nil {
			return err
		}
		next.UpdatedAt = p.now().UTC()

		oldEffect, err := old.Effect()
		if err != nil {
			return err
		}
		newEffect, err := next.Effect()
		if err != nil {
			return err
		}
		set := posting.NewMovementSet().
			Reverse(old.Account, oldEffect).
			Add(next.Account, newEffect)

		var linkedOld, linkedNext *Entry
		if old.LinkedMainVoucherID != nil {
			linkedOld, err = p.repo.GetForUpdate(ctx, *old.LinkedMainVoucherID)
			if err != nil {
				return fmt.Errorf("load rollup entry: %w", err)
			}
			cp := *linkedOld
			linkedNext = &cp
			mirrorFields(linkedNext, &next)
			linkedNext.UpdatedAt = next.UpdatedAt

			before, err := linkedOld.Effect()
			if err != nil {
				return err
			}
			after, err := linkedNext.Effect()
			if err != nil {
				return err
			}
			set.Reverse(ledger.Main, before).Add(ledger.Main, after)
		}

		balances, err := p.posting.Apply(ctx, set)
		if err != nil {
			return err
		}

		if err := p.repo.Update(ctx, &next, old.Version); err != nil {
			return err
		}
		if linkedNext != nil {
			if err := p.repo.Update(ctx, linkedNext, linkedOld.Version); err != nil {
				return err
			}
			if err := p.audit.Record(ctx, auditEntity, linkedOld.ID, domain.AuditActionUpdate, linkedOld, linkedNext); err != nil {
				return fmt.Errorf("audit rollup entry: %w", err)
			}
		}
		if err := p.audit.Record(ctx, auditEntity, old.ID, domain.AuditActionUpdate, old, &next); err != nil {
			return fmt.Errorf("audit entry: %w", err)
		}

		if err := p.events.Publish(ctx, domain.Event{
			AggregateType: auditEntity,
			AggregateID:   next.ID,
			EventType:     domain.EventJournalEntryEdited,
			Payload:       map[string]any{"before": old, "after": &next},
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		res = newResult(&next, linkedNext, balances, set)
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.posting.Invalidate(ctx, res.Touched()...)

	logger.Info(ctx, "journal entry edited",
		"id", res.Entry.ID,
		"transaction_no", res.Entry.TransactionNo,
		"account", res.Entry.Account,
		"amount", res.Entry.Amount,
		"balance", res.AccountBalance,
	)
	return res, nil
}

// Delete removes an entry and reverses its effect, together with its
// linked rollup entry if it has one.
func (p *Processor) Delete(ctx context.Context, entryID id.ID) (*Result, error) {
	ctx, span := tracer.Start(ctx, "journal.delete")
	defer span.End()

	var res *Result
	err := p.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		entry, err := p.repo.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := p.guardCorrectable(ctx, entry); err != nil {
			return err
		}

		effect, err := entry.Effect()
		if err != nil {
			return err
		}
		set := posting.NewMovementSet().Reverse(entry.Account, effect)

		var linked *Entry
		if entry.LinkedMainVoucherID != nil {
			linked, err = p.repo.GetForUpdate(ctx, *entry.LinkedMainVoucherID)
			if err != nil {
				return fmt.Errorf("load rollup entry: %w", err)
			}
			linkedEffect, err := linked.Effect()
			if err != nil {
				return err
			}
			set.Reverse(ledger.Main, linkedEffect)
		}

		balances, err := p.posting.Apply(ctx, set)
		if err != nil {
			return err
		}

		if err := p.repo.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		if err := p.audit.Record(ctx, auditEntity, entry.ID, domain.AuditActionDelete, entry, nil); err != nil {
			return fmt.Errorf("audit entry: %w", err)
		}
		if linked != nil {
			if err := p.repo.Delete(ctx, linked.ID); err != nil {
				return fmt.Errorf("delete rollup entry: %w", err)
			}
			if err := p.audit.Record(ctx, auditEntity, linked.ID, domain.AuditActionDelete, linked, nil); err != nil {
				return fmt.Errorf("audit rollup entry: %w", err)
			}
		}

		if err := p.events.Publish(ctx, domain.Event{
			AggregateType: auditEntity,
			AggregateID:   entry.ID,
			EventType:     domain.EventJournalEntryDeleted,
			Payload:       map[string]any{"entry": entry, "rollup": linked},
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		res = newResult(entry, linked, balances, set)
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.posting.Invalidate(ctx, res.Touched()...)

	logger.Info(ctx, "journal entry deleted",
		"id", res.Entry.ID,
		"transaction_no", res.Entry.TransactionNo,
		"account", res.Entry.Account,
		"balance", res.AccountBalance,
	)
	return res, nil
}

// Get returns an entry.
func (p *Processor) Get(ctx context.Context, entryID id.ID) (*Entry, error) {
	return p.repo.GetByID(ctx, entryID)
}

// List returns entries matching the filter.
func (p *Processor) List(ctx context.Context, f Filter) (domain.ListResult[Entry], error) {
	f.ListFilter = f.ListFilter.Normalize()
	return p.repo.List(ctx, f)
}

// guardCorrectable rejects corrections of rows owned by another posting.
func (p *Processor) guardCorrectable(ctx context.Context, e *Entry) error {
	if e.SaleID != nil {
		return apperror.NewValidation("entry books a sale payment and can only change through the sale").
			WithDetail("entry_id", e.ID).
			WithDetail("sale_id", *e.SaleID)
	}
	target, err := p.repo.IsRollupTarget(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("check rollup link: %w", err)
	}
	if target {
		return apperror.NewValidation("entry is a rollup; correct the source entry instead").
			WithDetail("entry_id", e.ID)
	}
	return nil
}

// resolveCategory links e to a category. An explicit id must exist, be active
// and match the direction. A free-text name links to a matching category if
// one exists and is kept as plain text otherwise.
func (p *Processor) resolveCategory(ctx context.Context, e *Entry, categoryID *id.ID, name string) error {
	if categoryID != nil {
		cat, err := p.categories.GetByID(ctx, *categoryID)
		if err != nil {
			return err
		}
		if !cat.Active {
			return apperror.NewValidation("category is inactive").WithDetail("category_id", cat.ID)
		}
		if cat.Direction != e.Direction {
			return apperror.NewValidation(fmt.Sprintf("category %q is for %s entries", cat.Name, cat.Direction)).
				WithDetail("category_id", cat.ID)
		}
		e.CategoryID = &cat.ID
		e.Category = cat.Name
		return nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.NewValidation("category is required").WithDetail("field", "category")
	}
	e.Category = name
	e.CategoryID = nil

	cat, err := p.categories.FindByName(ctx, name, e.Direction)
	switch {
	case apperror.IsNotFound(err):
		return nil
	case err != nil:
		return fmt.Errorf("find category: %w", err)
	}
	if cat.Active {
		e.CategoryID = &cat.ID
	}
	return nil
}

func (in EditInput) apply(e *Entry) {
	if in.Account != nil {
		e.Account = *in.Account
	}
	if in.Direction != nil {
		e.Direction = *in.Direction
	}
	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Date != nil {
		e.Date = dateOnly(*in.Date)
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
}

// mirrorFields copies the posting fields of src into its main-account rollup.
func mirrorFields(dst, src *Entry) {
	dst.Direction = src.Direction
	dst.Amount = src.Amount
	dst.Category = src.Category
	dst.CategoryID = src.CategoryID
	dst.Date = src.Date
	dst.Description = fmt.Sprintf("Rollup from %s account", src.Account)
	if src.Description != "" {
		dst.Description += ": " + src.Description
	}
}

func newResult(entry, rollup *Entry, balances posting.Balances, set *posting.MovementSet) *Result {
	res := &Result{
		Entry:          entry,
		Rollup:         rollup,
		AccountBalance: balances[entry.Account],
		touched:        set.Accounts(),
	}
	if entry.Account != ledger.Main {
		if b, ok := balances[ledger.Main]; ok {
			res.MainBalance = &b
		}
	}
	return res
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
