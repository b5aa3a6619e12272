// Package ledger_repo provides PostgreSQL implementations of the account,
// journal, category and fund transfer repositories.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/infrastructure/storage/postgres"
)

var accountColumns = postgres.ExtractDBColumns[ledger.Account]()

// AccountRepo implements ledger.Repository.
type AccountRepo struct {
	txm *postgres.TxManager
}

var _ ledger.Repository = (*AccountRepo)(nil)

func NewAccountRepo(txm *postgres.TxManager) *AccountRepo {
	return &AccountRepo{txm: txm}
}

func (r *AccountRepo) Ensure(ctx context.Context, kind ledger.AccountKind) error {
	_, err := r.txm.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO accounts (id, kind, balance, version, updated_at)
		VALUES ($1, $2, 0, 1, $3)
		ON CONFLICT (kind) DO NOTHING
	`, id.New(), kind, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ensure account %s: %w", kind, err)
	}
	return nil
}

func (r *AccountRepo) GetByKind(ctx context.Context, kind ledger.AccountKind) (*ledger.Account, error) {
	return r.get(ctx, kind, false)
}

func (r *AccountRepo) GetForUpdate(ctx context.Context, kind ledger.AccountKind) (*ledger.Account, error) {
	return r.get(ctx, kind, true)
}

func (r *AccountRepo) get(ctx context.Context, kind ledger.AccountKind, lock bool) (*ledger.Account, error) {
	q := postgres.Builder().
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"kind": kind})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var acc ledger.Account
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &acc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", kind)
		}
		return nil, fmt.Errorf("get account %s: %w", kind, err)
	}
	return &acc, nil
}

func (r *AccountRepo) UpdateBalance(ctx context.Context, accountID id.ID, balance types.MinorUnits, expectedVersion int) error {
	sql, args, err := postgres.Builder().
		Update("accounts").
		Set("balance", balance).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": accountID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsCheckViolation(err, "accounts_balance_check") {
			return apperror.NewInsufficientBalance(accountID.String(), balance.Neg(), types.MinorUnits(0)).WithCause(err)
		}
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("account", accountID).
			WithDetail("expected_version", expectedVersion)
	}
	return nil
}

func (r *AccountRepo) List(ctx context.Context) ([]ledger.Account, error) {
	sql, args, err := postgres.Builder().
		Select(accountColumns...).
		From("accounts").
		OrderBy("CASE kind WHEN 'hospital' THEN 0 WHEN 'medicine' THEN 1 WHEN 'optics' THEN 2 WHEN 'operation' THEN 3 ELSE 4 END").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []ledger.Account
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (r *AccountRepo) ReplayBalance(ctx context.Context, kind ledger.AccountKind) (types.MinorUnits, error) {
	var total int64
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, `
		SELECT (
			COALESCE((SELECT SUM(CASE direction WHEN 'income' THEN amount ELSE -amount END)
			          FROM journal_entries WHERE account = $1), 0)
			+
			COALESCE((SELECT SUM(CASE direction WHEN 'fund_in' THEN amount ELSE -amount END)
			          FROM fund_transfers WHERE account = $1), 0)
		)::BIGINT
	`, kind).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("replay balance %s: %w", kind, err)
	}
	return types.MinorUnits(total), nil
}
