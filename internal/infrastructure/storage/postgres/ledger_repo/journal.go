package ledger_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/infrastructure/storage/postgres"
)

var (
	entryColumns    = postgres.ExtractDBColumns[journal.Entry]()
	categoryColumns = postgres.ExtractDBColumns[journal.Category]()
)

// JournalRepo implements journal.Repository.
type JournalRepo struct {
	txm *postgres.TxManager
}

var _ journal.Repository = (*JournalRepo)(nil)

func NewJournalRepo(txm *postgres.TxManager) *JournalRepo {
	return &JournalRepo{txm: txm}
}

func (r *JournalRepo) Create(ctx context.Context, e *journal.Entry) error {
	if e.Version == 0 {
		e.Version = 1
	}
	err := postgres.Insert(ctx, r.txm.GetQuerier(ctx), "journal_entries", e)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, "journal_entries_transaction_no_key"):
		return apperror.NewValidation("duplicate transaction number").
			WithDetail("transaction_no", e.TransactionNo)
	case postgres.IsForeignKeyViolation(err, "journal_entries_linked_main_voucher_id_fkey"):
		return apperror.NewNotFound("journal_entry", *e.LinkedMainVoucherID)
	case postgres.IsCheckViolation(err, "journal_entries_rollup_not_main"):
		return apperror.NewValidation("main account entries cannot roll up").
			WithDetail("field", "account")
	default:
		return err
	}
}

func (r *JournalRepo) GetByID(ctx context.Context, entryID id.ID) (*journal.Entry, error) {
	return r.get(ctx, entryID, false)
}

func (r *JournalRepo) GetForUpdate(ctx context.Context, entryID id.ID) (*journal.Entry, error) {
	return r.get(ctx, entryID, true)
}

func (r *JournalRepo) get(ctx context.Context, entryID id.ID, lock bool) (*journal.Entry, error) {
	q := postgres.Builder().
		Select(entryColumns...).
		From("journal_entries").
		Where(squirrel.Eq{"id": entryID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var e journal.Entry
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("journal_entry", entryID)
		}
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	return &e, nil
}

func (r *JournalRepo) IsRollupTarget(ctx context.Context, entryID id.ID) (bool, error) {
	var found bool
	err := r.txm.GetQuerier(ctx).QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM journal_entries WHERE linked_main_voucher_id = $1)",
		entryID,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check rollup link: %w", err)
	}
	return found, nil
}

func (r *JournalRepo) Update(ctx context.Context, e *journal.Entry, expectedVersion int) error {
	sql, args, err := postgres.Builder().
		Update("journal_entries").
		SetMap(map[string]any{
			"account":                e.Account,
			"direction":              e.Direction,
			"amount":                 e.Amount,
			"category":               e.Category,
			"category_id":            e.CategoryID,
			"description":            e.Description,
			"entry_date":             e.Date,
			"linked_main_voucher_id": e.LinkedMainVoucherID,
			"updated_at":             e.UpdatedAt,
			"version":                squirrel.Expr("version + 1"),
		}).
		Where(squirrel.Eq{"id": e.ID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsCheckViolation(err, "journal_entries_rollup_not_main") {
			return apperror.NewValidation("main account entries cannot roll up").
				WithDetail("field", "account")
		}
		return fmt.Errorf("update journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, e.ID, expectedVersion)
	}
	e.Version = expectedVersion + 1
	return nil
}

func (r *JournalRepo) missingOrStale(ctx context.Context, entryID id.ID, expectedVersion int) error {
	if _, err := r.get(ctx, entryID, false); err != nil {
		return err
	}
	return apperror.NewConcurrentModification("journal_entry", entryID).
		WithDetail("expected_version", expectedVersion)
}

func (r *JournalRepo) Delete(ctx context.Context, entryID id.ID) error {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, "DELETE FROM journal_entries WHERE id = $1", entryID)
	if err != nil {
		if postgres.IsForeignKeyViolation(err, "journal_entries_linked_main_voucher_id_fkey") {
			return apperror.NewValidation("entry is referenced by a rollup link").
				WithDetail("entry_id", entryID)
		}
		return fmt.Errorf("delete journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("journal_entry", entryID)
	}
	return nil
}

func (r *JournalRepo) List(ctx context.Context, f journal.Filter) (domain.ListResult[journal.Entry], error) {
	q := postgres.Builder().Select().From("journal_entries")
	if f.Account != nil {
		q = q.Where(squirrel.Eq{"account": *f.Account})
	}
	if f.Direction != nil {
		q = q.Where(squirrel.Eq{"direction": *f.Direction})
	}
	if f.SaleID != nil {
		q = q.Where(squirrel.Eq{"sale_id": *f.SaleID})
	}
	q = postgres.DateRange(q, f.ListFilter, "entry_date")

	return postgres.SelectPage[journal.Entry](ctx, r.txm.GetQuerier(ctx), q, entryColumns, f.ListFilter,
		"entry_date DESC", "id DESC")
}

// CategoryRepo implements journal.CategoryRepository.
type CategoryRepo struct {
	txm *postgres.TxManager
}

var _ journal.CategoryRepository = (*CategoryRepo)(nil)

func NewCategoryRepo(txm *postgres.TxManager) *CategoryRepo {
	return &CategoryRepo{txm: txm}
}

func (r *CategoryRepo) Create(ctx context.Context, c *journal.Category) error {
	err := postgres.Insert(ctx, r.txm.GetQuerier(ctx), "categories", c)
	if postgres.IsUniqueViolation(err, "categories_name_direction_key") {
		return apperror.NewValidation("category already exists").
			WithDetail("name", c.Name).
			WithDetail("direction", c.Direction)
	}
	return err
}

func (r *CategoryRepo) GetByID(ctx context.Context, categoryID id.ID) (*journal.Category, error) {
	return r.getOne(ctx, squirrel.Eq{"id": categoryID}, categoryID)
}

func (r *CategoryRepo) FindByName(ctx context.Context, name string, direction ledger.EntryDirection) (*journal.Category, error) {
	return r.getOne(ctx, squirrel.And{
		squirrel.Expr("lower(name) = ?", strings.ToLower(strings.TrimSpace(name))),
		squirrel.Eq{"direction": direction},
	}, name)
}

func (r *CategoryRepo) getOne(ctx context.Context, where squirrel.Sqlizer, key any) (*journal.Category, error) {
	sql, args, err := postgres.Builder().
		Select(categoryColumns...).
		From("categories").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var c journal.Category
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("category", key)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepo) List(ctx context.Context, activeOnly bool) ([]journal.Category, error) {
	q := postgres.Builder().
		Select(categoryColumns...).
		From("categories").
		OrderBy("direction", "name")
	if activeOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []journal.Category
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}
