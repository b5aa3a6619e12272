package memory

import (
	"context"
	"time"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/ledger"
)

// AccountRepo implements ledger.Repository.
type AccountRepo struct{ s *Store }

var _ ledger.Repository = (*AccountRepo)(nil)

func (r *AccountRepo) Ensure(ctx context.Context, kind ledger.AccountKind) error {
	return r.s.with(ctx, func(st *state) error {
		if _, ok := st.accounts[kind]; ok {
			return nil
		}
		st.accounts[kind] = ledger.Account{
			ID:        id.New(),
			Kind:      kind,
			Version:   1,
			UpdatedAt: time.Now().UTC(),
		}
		return nil
	})
}

func (r *AccountRepo) GetByKind(ctx context.Context, kind ledger.AccountKind) (*ledger.Account, error) {
	var out *ledger.Account
	err := r.s.with(ctx, func(st *state) error {
		acc, ok := st.accounts[kind]
		if !ok {
			return apperror.NewNotFound("account", kind)
		}
		out = &acc
		return nil
	})
	return out, err
}

// GetForUpdate is GetByKind; the store lock already serializes transactions.
func (r *AccountRepo) GetForUpdate(ctx context.Context, kind ledger.AccountKind) (*ledger.Account, error) {
	return r.GetByKind(ctx, kind)
}

func (r *AccountRepo) UpdateBalance(ctx context.Context, accountID id.ID, balance types.MinorUnits, expectedVersion int) error {
	return r.s.with(ctx, func(st *state) error {
		for kind, acc := range st.accounts {
			if acc.ID != accountID {
				continue
			}
			if acc.Version != expectedVersion {
				return versionConflict("account", accountID, expectedVersion, acc.Version)
			}
			acc.Balance = balance
			acc.Version++
			acc.UpdatedAt = time.Now().UTC()
			st.accounts[kind] = acc
			return nil
		}
		return apperror.NewNotFound("account", accountID)
	})
}

func (r *AccountRepo) List(ctx context.Context) ([]ledger.Account, error) {
	var out []ledger.Account
	err := r.s.with(ctx, func(st *state) error {
		for _, kind := range ledger.AllAccounts {
			if acc, ok := st.accounts[kind]; ok {
				out = append(out, acc)
			}
		}
		return nil
	})
	return out, err
}

func (r *AccountRepo) ReplayBalance(ctx context.Context, kind ledger.AccountKind) (types.MinorUnits, error) {
	var total types.MinorUnits
	err := r.s.with(ctx, func(st *state) error {
		for _, e := range st.entries {
			if e.Account != kind {
				continue
			}
			effect, err := e.Effect()
			if err != nil {
				return err
			}
			total += effect
		}
		for _, t := range st.transfers {
			if t.Account != kind {
				continue
			}
			effect, err := t.Effect()
			if err != nil {
				return err
			}
			total += effect
		}
		return nil
	})
	return total, err
}

// SetBalance overwrites a stored balance without a backing row. Tests use it
// to simulate drift.
func (r *AccountRepo) SetBalance(kind ledger.AccountKind, balance types.MinorUnits) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acc := r.s.state.accounts[kind]
	acc.Balance = balance
	r.s.state.accounts[kind] = acc
}
