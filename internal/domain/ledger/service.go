package ledger

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/core/types"
	"clinicledger/pkg/logger"
)

var tracer = otel.Tracer("clinicledger/ledger")

// Service owns account balances. Credit, Debit and Apply are the only
// balance mutators; each joins the caller's transaction.
type Service struct {
	repo      Repository
	txManager tx.Manager
	cache     BalanceCache
}

// NewService creates a new ledger service. cache may be nil.
func NewService(repo Repository, txManager tx.Manager, cache BalanceCache) *Service {
	if cache == nil {
		cache = noCache{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		cache:     cache,
	}
}

// Credit adds amount to the account and returns the new balance.
func (s *Service) Credit(ctx context.Context, kind AccountKind, amount types.MinorUnits) (types.MinorUnits, error) {
	if !amount.IsPositive() {
		return 0, apperror.NewValidation("credit amount must be positive").WithDetail("amount", amount)
	}
	return s.Apply(ctx, kind, amount)
}

// Debit subtracts amount from the account and returns the new balance.
// It fails with InsufficientBalance if amount exceeds the balance.
func (s *Service) Debit(ctx context.Context, kind AccountKind, amount types.MinorUnits) (types.MinorUnits, error) {
	if !amount.IsPositive() {
		return 0, apperror.NewValidation("debit amount must be positive").WithDetail("amount", amount)
	}
	return s.Apply(ctx, kind, amount.Neg())
}

// Apply changes the balance by a signed delta under a row lock.
// A zero delta still locks the row and reports the current balance.
func (s *Service) Apply(ctx context.Context, kind AccountKind, delta types.MinorUnits) (types.MinorUnits, error) {
	if err := kind.Validate(); err != nil {
		return 0, err
	}

	ctx, span := tracer.Start(ctx, "ledger.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("ledger.account", string(kind)),
		attribute.Int64("ledger.delta", int64(delta)),
	)

	var balance types.MinorUnits
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.repo.GetForUpdate(ctx, kind)
		if err != nil {
			return err
		}

		next, err := acc.Balance.Add(delta)
		switch {
		case delta.IsNegative() && (err != nil || next.IsNegative()):
			return apperror.NewInsufficientBalance(string(kind), delta.Neg(), acc.Balance)
		case err != nil:
			return apperror.NewValidation("account balance out of range").
				WithDetail("account", kind).
				WithDetail("balance", acc.Balance).
				WithDetail("amount", delta)
		}
		if delta.IsZero() {
			balance = acc.Balance
			return nil
		}

		if err := s.repo.UpdateBalance(ctx, acc.ID, next, acc.Version); err != nil {
			return fmt.Errorf("update %s balance: %w", kind, err)
		}
		balance = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Balance returns the current balance, preferring the cache. The result is
// a read-side snapshot that may trail a transaction committing concurrently;
// Apply never reads it.
func (s *Service) Balance(ctx context.Context, kind AccountKind) (types.MinorUnits, error) {
	if err := kind.Validate(); err != nil {
		return 0, err
	}
	b, generation, ok := s.cache.Get(ctx, kind)
	if ok {
		return b, nil
	}
	acc, err := s.repo.GetByKind(ctx, kind)
	if err != nil {
		return 0, err
	}
	s.cache.Set(ctx, kind, acc.Balance, generation)
	return acc.Balance, nil
}

// Accounts returns all account rows straight from storage.
func (s *Service) Accounts(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Invalidate drops cached balances. Call after the posting transaction commits.
func (s *Service) Invalidate(ctx context.Context, kinds ...AccountKind) {
	if len(kinds) == 0 {
		return
	}
	s.cache.Invalidate(ctx, kinds...)
}

// Provision creates missing account rows.
func (s *Service) Provision(ctx context.Context) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, kind := range AllAccounts {
			if err := s.repo.Ensure(ctx, kind); err != nil {
				return fmt.Errorf("provision %s: %w", kind, err)
			}
		}
		return nil
	})
}

// Reconciliation compares the stored balance with a replay of the account's rows.
type Reconciliation struct {
	Account  AccountKind      `json:"account"`
	Stored   types.MinorUnits `json:"stored"`
	Replayed types.MinorUnits `json:"replayed"`
	Drift    types.MinorUnits `json:"drift"`
}

// Balanced reports whether stored and replayed balances agree.
func (r Reconciliation) Balanced() bool { return r.Drift.IsZero() }

// Reconcile replays journal entries and fund transfers of the account from zero.
func (s *Service) Reconcile(ctx context.Context, kind AccountKind) (Reconciliation, error) {
	if err := kind.Validate(); err != nil {
		return Reconciliation{}, err
	}

	var rec Reconciliation
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.repo.GetByKind(ctx, kind)
		if err != nil {
			return err
		}
		replayed, err := s.repo.ReplayBalance(ctx, kind)
		if err != nil {
			return fmt.Errorf("replay %s: %w", kind, err)
		}
		rec = Reconciliation{
			Account:  kind,
			Stored:   acc.Balance,
			Replayed: replayed,
			Drift:    acc.Balance - replayed,
		}
		return nil
	})
	if err != nil {
		return Reconciliation{}, err
	}

	if !rec.Balanced() {
		logger.Warn(ctx, "ledger drift detected",
			"account", kind,
			"stored", rec.Stored,
			"replayed", rec.Replayed,
			"drift", rec.Drift,
		)
	}
	return rec, nil
}
