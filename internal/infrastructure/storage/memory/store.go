// Package memory provides an in-process implementation of every repository,
// the transaction manager and the number generator.
//
// A transaction holds one store-wide lock and snapshots the state; on error
// the snapshot is restored. This gives serializable semantics, which is
// enough for tests and single-process local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/domain/fund"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/ledger"
	"clinicledger/internal/domain/sale"
	"clinicledger/internal/domain/stock"
)

type state struct {
	accounts   map[ledger.AccountKind]ledger.Account
	entries    map[id.ID]journal.Entry
	categories map[id.ID]journal.Category
	transfers  map[id.ID]fund.Transfer
	items      map[id.ID]stock.Item
	sales      map[id.ID]sale.Sale
	saleItems  map[id.ID][]sale.Item
	payments   map[id.ID][]sale.Payment
	sequences  map[string]int64
}

func newState() *state {
	return &state{
		accounts:   make(map[ledger.AccountKind]ledger.Account),
		entries:    make(map[id.ID]journal.Entry),
		categories: make(map[id.ID]journal.Category),
		transfers:  make(map[id.ID]fund.Transfer),
		items:      make(map[id.ID]stock.Item),
		sales:      make(map[id.ID]sale.Sale),
		saleItems:  make(map[id.ID][]sale.Item),
		payments:   make(map[id.ID][]sale.Payment),
		sequences:  make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.transfers {
		c.transfers[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.saleItems {
		c.saleItems[k] = append([]sale.Item(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = append([]sale.Payment(nil), v...)
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

// Store is the in-memory database.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return apperror.Normalize(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperror.Normalize(err)
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// with runs fn against the state, taking the lock unless ctx is inside a transaction.
func (s *Store) with(ctx context.Context, fn func(st *state) error) error {
	if inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// Accounts returns the account repository.
func (s *Store) Accounts() *AccountRepo { return &AccountRepo{s} }

// Journal returns the journal entry repository.
func (s *Store) Journal() *JournalRepo { return &JournalRepo{s} }

// Categories returns the category repository.
func (s *Store) Categories() *CategoryRepo { return &CategoryRepo{s} }

// Funds returns the fund transfer repository.
func (s *Store) Funds() *FundRepo { return &FundRepo{s} }

// Stock returns the stock item repository.
func (s *Store) Stock() *StockRepo { return &StockRepo{s} }

// Sales returns the sale repository.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s} }

// Numerator returns the sequence generator.
func (s *Store) Numerator() *Numerator { return &Numerator{s} }

func versionConflict(entity string, entityID any, expected, actual int) error {
	return apperror.NewConcurrentModification(entity, entityID).
		WithDetail("expected_version", expected).
		WithDetail("actual_version", actual).
		WithCause(fmt.Errorf("version mismatch"))
}
