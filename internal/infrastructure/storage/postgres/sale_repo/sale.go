package sale_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/sale"
	"clinicledger/internal/infrastructure/storage/postgres"
)

var (
	saleColumns     = postgres.ExtractDBColumns[sale.Sale]()
	saleItemColumns = postgres.ExtractDBColumns[sale.Item]()
	paymentColumns  = postgres.ExtractDBColumns[sale.Payment]()
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txm *postgres.TxManager
}

var _ sale.Repository = (*SaleRepo)(nil)

func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{txm: txm}
}

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	if s.Version == 0 {
		s.Version = 1
	}
	q := r.txm.GetQuerier(ctx)
	if err := postgres.Insert(ctx, q, "sales", s); err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "sales_invoice_no_key"):
			return apperror.NewValidation("duplicate invoice number").
				WithDetail("invoice_no", s.InvoiceNo)
		case postgres.IsCheckViolation(err, "sales_total_check"):
			return apperror.NewValidation("sale total does not match its parts").
				WithDetail("total", s.TotalAmount)
		}
		return err
	}
	if len(s.Items) == 0 {
		return nil
	}

	ins := postgres.Builder().Insert("sale_items").Columns(saleItemColumns...)
	for _, it := range s.Items {
		row := postgres.StructToMap(it)
		vals := make([]any, len(saleItemColumns))
		for i, col := range saleItemColumns {
			vals[i] = row[col]
		}
		ins = ins.Values(vals...)
	}
	sql, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert sale_items: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale_items: %w", err)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	s, err := r.get(ctx, saleID, false)
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, []id.ID{saleID})
	if err != nil {
		return nil, err
	}
	s.Items = items[saleID]
	if s.Payments, err = r.ListPayments(ctx, saleID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, saleID, true)
}

func (r *SaleRepo) get(ctx context.Context, saleID id.ID, lock bool) (*sale.Sale, error) {
	q := postgres.Builder().
		Select(saleColumns...).
		From("sales").
		Where(squirrel.Eq{"id": saleID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s sale.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

func (r *SaleRepo) items(ctx context.Context, saleIDs []id.ID) (map[id.ID][]sale.Item, error) {
	sql, args, err := postgres.Builder().
		Select(saleItemColumns...).
		From("sale_items").
		Where("sale_id = ANY(?)", saleIDs).
		OrderBy("sale_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []sale.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	out := make(map[id.ID][]sale.Item, len(saleIDs))
	for _, it := range rows {
		out[it.SaleID] = append(out[it.SaleID], it)
	}
	return out, nil
}

func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale, expectedVersion int) error {
	sql, args, err := postgres.Builder().
		Update("sales").
		Set("due_amount", s.DueAmount).
		Set("status", s.Status).
		Set("updated_at", s.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": s.ID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsCheckViolation(err, "sales_delivered_paid") {
			return apperror.NewPaymentIncomplete(s.ID, s.DueAmount)
		}
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.get(ctx, s.ID, false); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("sale", s.ID).
			WithDetail("expected_version", expectedVersion)
	}
	s.Version = expectedVersion + 1
	return nil
}

func (r *SaleRepo) CreatePayment(ctx context.Context, p *sale.Payment) error {
	err := postgres.Insert(ctx, r.txm.GetQuerier(ctx), "payments", p)
	if postgres.IsForeignKeyViolation(err, "payments_sale_id_fkey") {
		return apperror.NewNotFound("sale", p.SaleID)
	}
	return err
}

func (r *SaleRepo) ListPayments(ctx context.Context, saleID id.ID) ([]sale.Payment, error) {
	sql, args, err := postgres.Builder().
		Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	out := []sale.Payment{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

func (r *SaleRepo) List(ctx context.Context, f sale.Filter) (domain.ListResult[sale.Sale], error) {
	q := postgres.Builder().Select().From("sales")
	if f.Account != nil {
		q = q.Where(squirrel.Eq{"account": *f.Account})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	q = postgres.DateRange(q, f.ListFilter, "created_at")

	res, err := postgres.SelectPage[sale.Sale](ctx, r.txm.GetQuerier(ctx), q, saleColumns, f.ListFilter, "id DESC")
	if err != nil || len(res.Items) == 0 {
		return res, err
	}

	ids := make([]id.ID, len(res.Items))
	for i := range res.Items {
		ids[i] = res.Items[i].ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return res, err
	}
	for i := range res.Items {
		res.Items[i].Items = items[res.Items[i].ID]
	}
	return res, nil
}
