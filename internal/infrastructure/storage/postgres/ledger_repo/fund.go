package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/fund"
	"clinicledger/internal/infrastructure/storage/postgres"
)

var transferColumns = postgres.ExtractDBColumns[fund.Transfer]()

// FundRepo implements fund.Repository.
type FundRepo struct {
	txm *postgres.TxManager
}

var _ fund.Repository = (*FundRepo)(nil)

func NewFundRepo(txm *postgres.TxManager) *FundRepo {
	return &FundRepo{txm: txm}
}

func (r *FundRepo) Create(ctx context.Context, t *fund.Transfer) error {
	err := postgres.Insert(ctx, r.txm.GetQuerier(ctx), "fund_transfers", t)
	if postgres.IsUniqueViolation(err, "fund_transfers_voucher_no_key") {
		return apperror.NewValidation("duplicate voucher number").
			WithDetail("voucher_no", t.VoucherNo)
	}
	return err
}

func (r *FundRepo) GetByID(ctx context.Context, transferID id.ID) (*fund.Transfer, error) {
	return r.get(ctx, transferID, false)
}

func (r *FundRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*fund.Transfer, error) {
	return r.get(ctx, transferID, true)
}

func (r *FundRepo) get(ctx context.Context, transferID id.ID, lock bool) (*fund.Transfer, error) {
	q := postgres.Builder().
		Select(transferColumns...).
		From("fund_transfers").
		Where(squirrel.Eq{"id": transferID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var t fund.Transfer
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("fund_transfer", transferID)
		}
		return nil, fmt.Errorf("get fund transfer: %w", err)
	}
	return &t, nil
}

func (r *FundRepo) Delete(ctx context.Context, transferID id.ID) error {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, "DELETE FROM fund_transfers WHERE id = $1", transferID)
	if err != nil {
		return fmt.Errorf("delete fund transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("fund_transfer", transferID)
	}
	return nil
}

func (r *FundRepo) List(ctx context.Context, f fund.Filter) (domain.ListResult[fund.Transfer], error) {
	q := postgres.Builder().Select().From("fund_transfers")
	if f.Account != nil {
		q = q.Where(squirrel.Eq{"account": *f.Account})
	}
	if f.Direction != nil {
		q = q.Where(squirrel.Eq{"direction": *f.Direction})
	}
	q = postgres.DateRange(q, f.ListFilter, "transfer_date")

	return postgres.SelectPage[fund.Transfer](ctx, r.txm.GetQuerier(ctx), q, transferColumns, f.ListFilter,
		"transfer_date DESC", "id DESC")
}
