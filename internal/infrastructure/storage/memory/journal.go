package memory

import (
	"context"
	"sort"
	"strings"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/ledger"
)

// JournalRepo implements journal.Repository.
type JournalRepo struct{ s *Store }

var _ journal.Repository = (*JournalRepo)(nil)

func (r *JournalRepo) Create(ctx context.Context, e *journal.Entry) error {
	return r.s.with(ctx, func(st *state) error {
		for _, other := range st.entries {
			if other.TransactionNo == e.TransactionNo {
				return apperror.NewValidation("duplicate transaction number").
					WithDetail("transaction_no", e.TransactionNo)
			}
		}
		if e.LinkedMainVoucherID != nil {
			if _, ok := st.entries[*e.LinkedMainVoucherID]; !ok {
				return apperror.NewNotFound("journal_entry", *e.LinkedMainVoucherID)
			}
		}
		if e.Version == 0 {
			e.Version = 1
		}
		st.entries[e.ID] = *e
		return nil
	})
}

func (r *JournalRepo) GetByID(ctx context.Context, entryID id.ID) (*journal.Entry, error) {
	var out *journal.Entry
	err := r.s.with(ctx, func(st *state) error {
		e, ok := st.entries[entryID]
		if !ok {
			return apperror.NewNotFound("journal_entry", entryID)
		}
		out = &e
		return nil
	})
	return out, err
}

func (r *JournalRepo) GetForUpdate(ctx context.Context, entryID id.ID) (*journal.Entry, error) {
	return r.GetByID(ctx, entryID)
}

func (r *JournalRepo) IsRollupTarget(ctx context.Context, entryID id.ID) (bool, error) {
	var found bool
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range st.entries {
			if e.LinkedMainVoucherID != nil && *e.LinkedMainVoucherID == entryID {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *JournalRepo) Update(ctx context.Context, e *journal.Entry, expectedVersion int) error {
	return r.s.with(ctx, func(st *state) error {
		cur, ok := st.entries[e.ID]
		if !ok {
			return apperror.NewNotFound("journal_entry", e.ID)
		}
		if cur.Version != expectedVersion {
			return versionConflict("journal_entry", e.ID, expectedVersion, cur.Version)
		}
		e.Version = expectedVersion + 1
		st.entries[e.ID] = *e
		return nil
	})
}

func (r *JournalRepo) Delete(ctx context.Context, entryID id.ID) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.entries[entryID]; !ok {
			return apperror.NewNotFound("journal_entry", entryID)
		}
		for _, e := range st.entries {
			if e.LinkedMainVoucherID != nil && *e.LinkedMainVoucherID == entryID {
				return apperror.NewValidation("entry is referenced by a rollup link").
					WithDetail("entry_id", entryID)
			}
		}
		delete(st.entries, entryID)
		return nil
	})
}

func (r *JournalRepo) List(ctx context.Context, f journal.Filter) (domain.ListResult[journal.Entry], error) {
	var matched []journal.Entry
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range st.entries {
			if f.Account != nil && e.Account != *f.Account {
				continue
			}
			if f.Direction != nil && e.Direction != *f.Direction {
				continue
			}
			if f.SaleID != nil && (e.SaleID == nil || *e.SaleID != *f.SaleID) {
				continue
			}
			if !f.InRange(e.Date) {
				continue
			}
			matched = append(matched, e)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[journal.Entry]{}, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return id.Less(matched[j].ID, matched[i].ID)
	})
	return domain.Page(matched, f.ListFilter), nil
}

// CategoryRepo implements journal.CategoryRepository.
type CategoryRepo struct{ s *Store }

var _ journal.CategoryRepository = (*CategoryRepo)(nil)

func (r *CategoryRepo) Create(ctx context.Context, c *journal.Category) error {
	return r.s.with(ctx, func(st *state) error {
		st.categories[c.ID] = *c
		return nil
	})
}

func (r *CategoryRepo) GetByID(ctx context.Context, categoryID id.ID) (*journal.Category, error) {
	var out *journal.Category
	err := r.s.with(ctx, func(st *state) error {
		c, ok := st.categories[categoryID]
		if !ok {
			return apperror.NewNotFound("category", categoryID)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *CategoryRepo) FindByName(ctx context.Context, name string, direction ledger.EntryDirection) (*journal.Category, error) {
	var out *journal.Category
	err := r.s.with(ctx, func(st *state) error {
		for _, c := range st.categories {
			if c.Direction == direction && strings.EqualFold(c.Name, name) {
				out = &c
				return nil
			}
		}
		return apperror.NewNotFound("category", name)
	})
	return out, err
}

func (r *CategoryRepo) List(ctx context.Context, activeOnly bool) ([]journal.Category, error) {
	var out []journal.Category
	err := r.s.with(ctx, func(st *state) error {
		for _, c := range st.categories {
			if activeOnly && !c.Active {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

// SetActive toggles a category. Tests use it to retire categories.
func (r *CategoryRepo) SetActive(categoryID id.ID, active bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.state.categories[categoryID]
	c.Active = active
	r.s.state.categories[categoryID] = c
}
