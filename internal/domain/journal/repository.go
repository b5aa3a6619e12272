package journal

import (
	"context"

	"clinicledger/internal/core/id"
	"clinicledger/internal/domain"
	"clinicledger/internal/domain/ledger"
)

// Filter narrows entry listings.
type Filter struct {
	domain.ListFilter
	Account   *ledger.AccountKind
	Direction *ledger.EntryDirection
	SaleID    *id.ID
}

// Repository persists journal entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, entryID id.ID) (*Entry, error)

	// GetForUpdate returns the entry with a row lock held until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, entryID id.ID) (*Entry, error)

	// IsRollupTarget reports whether another entry links to entryID.
	IsRollupTarget(ctx context.Context, entryID id.ID) (bool, error)

	// Update stores e if the row still has expectedVersion and bumps the version.
	Update(ctx context.Context, e *Entry, expectedVersion int) error

	Delete(ctx context.Context, entryID id.ID) error
	List(ctx context.Context, f Filter) (domain.ListResult[Entry], error)
}

// CategoryRepository persists categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, categoryID id.ID) (*Category, error)

	// FindByName returns NotFound when no category has that name and direction.
	FindByName(ctx context.Context, name string, direction ledger.EntryDirection) (*Category, error)

	List(ctx context.Context, activeOnly bool) ([]Category, error)
}
