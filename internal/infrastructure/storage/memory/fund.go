package memory

import (
	"context"
	"sort"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/fund"
)

// FundRepo implements fund.Repository.
type FundRepo struct{ s *Store }

var _ fund.Repository = (*FundRepo)(nil)

func (r *FundRepo) Create(ctx context.Context, t *fund.Transfer) error {
	return r.s.with(ctx, func(st *state) error {
		for _, other := range st.transfers {
			if other.VoucherNo == t.VoucherNo {
				return apperror.NewValidation("duplicate voucher number").
					WithDetail("voucher_no", t.VoucherNo)
			}
		}
		st.transfers[t.ID] = *t
		return nil
	})
}

func (r *FundRepo) GetByID(ctx context.Context, transferID id.ID) (*fund.Transfer, error) {
	var out *fund.Transfer
	err := r.s.with(ctx, func(st *state) error {
		t, ok := st.transfers[transferID]
		if !ok {
			return apperror.NewNotFound("fund_transfer", transferID)
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *FundRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*fund.Transfer, error) {
	return r.GetByID(ctx, transferID)
}

func (r *FundRepo) Delete(ctx context.Context, transferID id.ID) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.transfers[transferID]; !ok {
			return apperror.NewNotFound("fund_transfer", transferID)
		}
		delete(st.transfers, transferID)
		return nil
	})
}

func (r *FundRepo) List(ctx context.Context, f fund.Filter) (domain.ListResult[fund.Transfer], error) {
	var matched []fund.Transfer
	err := r.s.with(ctx, func(st *state) error {
		for _, t := range st.transfers {
			if f.Account != nil && t.Account != *f.Account {
				continue
			}
			if f.Direction != nil && t.Direction != *f.Direction {
				continue
			}
			if !f.InRange(t.Date) {
				continue
			}
			matched = append(matched, t)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[fund.Transfer]{}, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return id.Less(matched[j].ID, matched[i].ID)
	})
	return domain.Page(matched, f.ListFilter), nil
}
