package memory

import (
	"context"
	"sort"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/sale"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct{ s *Store }

var _ sale.Repository = (*SaleRepo)(nil)

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.s.with(ctx, func(st *state) error {
		for _, other := range st.sales {
			if other.InvoiceNo == s.InvoiceNo {
				return apperror.NewValidation("duplicate invoice number").
					WithDetail("invoice_no", s.InvoiceNo)
			}
		}
		if s.Version == 0 {
			s.Version = 1
		}
		row := *s
		row.Items = nil
		row.Payments = nil
		st.sales[s.ID] = row
		st.saleItems[s.ID] = append([]sale.Item(nil), s.Items...)
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	err := r.s.with(ctx, func(st *state) error {
		s, ok := st.sales[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		s.Items = append([]sale.Item(nil), st.saleItems[saleID]...)
		s.Payments = append([]sale.Payment(nil), st.payments[saleID]...)
		out = &s
		return nil
	})
	return out, err
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	err := r.s.with(ctx, func(st *state) error {
		s, ok := st.sales[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale, expectedVersion int) error {
	return r.s.with(ctx, func(st *state) error {
		cur, ok := st.sales[s.ID]
		if !ok {
			return apperror.NewNotFound("sale", s.ID)
		}
		if cur.Version != expectedVersion {
			return versionConflict("sale", s.ID, expectedVersion, cur.Version)
		}
		cur.DueAmount = s.DueAmount
		cur.Status = s.Status
		cur.UpdatedAt = s.UpdatedAt
		cur.Version = expectedVersion + 1
		st.sales[s.ID] = cur
		s.Version = cur.Version
		return nil
	})
}

func (r *SaleRepo) CreatePayment(ctx context.Context, p *sale.Payment) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.sales[p.SaleID]; !ok {
			return apperror.NewNotFound("sale", p.SaleID)
		}
		st.payments[p.SaleID] = append(st.payments[p.SaleID], *p)
		return nil
	})
}

func (r *SaleRepo) ListPayments(ctx context.Context, saleID id.ID) ([]sale.Payment, error) {
	var out []sale.Payment
	err := r.s.with(ctx, func(st *state) error {
		out = append(out, st.payments[saleID]...)
		return nil
	})
	return out, err
}

func (r *SaleRepo) List(ctx context.Context, f sale.Filter) (domain.ListResult[sale.Sale], error) {
	var matched []sale.Sale
	err := r.s.with(ctx, func(st *state) error {
		for _, s := range st.sales {
			if f.Account != nil && s.Account != *f.Account {
				continue
			}
			if f.Status != nil && s.Status != *f.Status {
				continue
			}
			if !f.InRange(s.CreatedAt) {
				continue
			}
			s.Items = append([]sale.Item(nil), st.saleItems[s.ID]...)
			matched = append(matched, s)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[sale.Sale]{}, err
	}
	sort.Slice(matched, func(i, j int) bool { return id.Less(matched[j].ID, matched[i].ID) })
	return domain.Page(matched, f.ListFilter), nil
}
