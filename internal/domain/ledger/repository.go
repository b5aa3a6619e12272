package ledger

import (
	"context"

	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
)

// Repository persists account rows.
type Repository interface {
	// Ensure creates the account row with zero balance if it does not exist.
	Ensure(ctx context.Context, kind AccountKind) error

	// GetByKind returns the account without locking.
	GetByKind(ctx context.Context, kind AccountKind) (*Account, error)

	// GetForUpdate returns the account with a row lock held until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, kind AccountKind) (*Account, error)

	// UpdateBalance stores a new balance if the row still has expectedVersion.
	// It bumps version and returns ConcurrentModification on mismatch.
	UpdateBalance(ctx context.Context, accountID id.ID, balance types.MinorUnits, expectedVersion int) error

	// List returns all accounts.
	List(ctx context.Context) ([]Account, error)

	// ReplayBalance recomputes the balance from journal entries and fund transfers.
	ReplayBalance(ctx context.Context, kind AccountKind) (types.MinorUnits, error)
}

// BalanceCache holds read-side balance snapshots.
// Implementations must tolerate being unavailable.
//
// Get returns a generation token alongside a miss; Invalidate moves the
// generation, and Set is dropped unless the token still matches. A balance
// loaded before a concurrent commit therefore never outlives that commit's
// invalidation.
type BalanceCache interface {
	Get(ctx context.Context, kind AccountKind) (balance types.MinorUnits, generation int64, ok bool)
	Set(ctx context.Context, kind AccountKind, balance types.MinorUnits, generation int64)
	Invalidate(ctx context.Context, kinds ...AccountKind)
}

type noCache struct{}

func (noCache) Get(context.Context, AccountKind) (types.MinorUnits, int64, bool) { return 0, -1, false }
func (noCache) Set(context.Context, AccountKind, types.MinorUnits, int64)        {}
func (noCache) Invalidate(context.Context, ...AccountKind)                       {}
