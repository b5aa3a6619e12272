// Package posting turns ledger postings and their reversals into per-account
// balance movements and applies them in lock order.
package posting

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/ledger"
)

var tracer = otel.Tracer("clinicledger/posting")

// Movement is the net signed change of one account.
type Movement struct {
	Account ledger.AccountKind
	Delta   types.MinorUnits
}

// MovementSet accumulates effects and their reversals across accounts.
// Effects on the same account are netted, so an income→expense edit becomes
// one debit of twice the amount instead of a credit followed by a debit.
type MovementSet struct {
	deltas map[ledger.AccountKind]types.MinorUnits
	err    error
}

// NewMovementSet creates an empty set.
func NewMovementSet() *MovementSet {
	return &MovementSet{deltas: make(map[ledger.AccountKind]types.MinorUnits)}
}

// Add records a signed effect on account. A net delta that leaves the money
// range poisons the set and Engine.Apply rejects it.
func (s *MovementSet) Add(account ledger.AccountKind, effect types.MinorUnits) *MovementSet {
	next, err := s.deltas[account].Add(effect)
	if err != nil {
		if s.err == nil {
			s.err = apperror.NewValidation("account movement out of range").
				WithDetail("account", account).
				WithDetail("amount", effect)
		}
		return s
	}
	s.deltas[account] = next
	return s
}

// Reverse records the undoing of a previously applied effect.
func (s *MovementSet) Reverse(account ledger.AccountKind, effect types.MinorUnits) *MovementSet {
	return s.Add(account, effect.Neg())
}

// Accounts returns the touched accounts in lock order.
func (s *MovementSet) Accounts() []ledger.AccountKind {
	kinds := make([]ledger.AccountKind, 0, len(s.deltas))
	for k := range s.deltas {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Rank() < kinds[j].Rank() })
	return kinds
}

// Movements returns the netted deltas in lock order. Accounts whose effects
// cancel out are kept with a zero delta so their balance is still reported.
func (s *MovementSet) Movements() []Movement {
	kinds := s.Accounts()
	out := make([]Movement, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, Movement{Account: k, Delta: s.deltas[k]})
	}
	return out
}

// Balances maps each touched account to its balance after the movement.
type Balances map[ledger.AccountKind]types.MinorUnits

// Engine applies movement sets through the ledger.
type Engine struct {
	ledger    *ledger.Service
	txManager tx.Manager
}

// NewEngine creates a new posting engine.
func NewEngine(ledgerService *ledger.Service, txManager tx.Manager) *Engine {
	return &Engine{ledger: ledgerService, txManager: txManager}
}

// Apply applies every movement in one transaction, joining the caller's if any.
// Any failure (e.g. InsufficientBalance on one account) fails the whole set
// and rolls back the movements already applied.
func (e *Engine) Apply(ctx context.Context, set *MovementSet) (Balances, error) {
	if set.err != nil {
		return nil, set.err
	}

	ctx, span := tracer.Start(ctx, "posting.apply")
	defer span.End()

	movements := set.Movements()
	span.SetAttributes(attribute.Int("posting.accounts", len(movements)))

	balances := make(Balances, len(movements))
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, m := range movements {
			balance, err := e.ledger.Apply(ctx, m.Account, m.Delta)
			if err != nil {
				return err
			}
			balances[m.Account] = balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// Invalidate drops cached balances of the given accounts. Call after commit.
func (e *Engine) Invalidate(ctx context.Context, kinds ...ledger.AccountKind) {
	e.ledger.Invalidate(ctx, kinds...)
}
