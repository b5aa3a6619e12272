package journal

import (
	"context"
	"fmt"
	"strings"

	"clinicledger/internal/core/apperror"
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/tx"
	"clinicledger/internal/domain/ledger"
	"clinicledger/pkg/logger"
)

// Categories manages the category lookup.
type Categories struct {
	repo      CategoryRepository
	txManager tx.Manager
}

// NewCategories creates a new category service.
func NewCategories(repo CategoryRepository, txManager tx.Manager) *Categories {
	return &Categories{repo: repo, txManager: txManager}
}

// Create adds an active category. Names are unique per direction.
func (c *Categories) Create(ctx context.Context, name string, direction ledger.EntryDirection) (*Category, error) {
	cat := &Category{
		ID:        id.New(),
		Name:      strings.TrimSpace(name),
		Direction: direction,
		Active:    true,
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := c.repo.FindByName(ctx, cat.Name, direction)
		switch {
		case err == nil:
			return apperror.NewValidation(fmt.Sprintf("category %q already exists", cat.Name)).
				WithDetail("category_id", existing.ID)
		case !apperror.IsNotFound(err):
			return fmt.Errorf("find category: %w", err)
		}
		return c.repo.Create(ctx, cat)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "category created", "id", cat.ID, "name", cat.Name, "direction", cat.Direction)
	return cat, nil
}

// Ensure returns the named category, creating it if missing.
func (c *Categories) Ensure(ctx context.Context, name string, direction ledger.EntryDirection) (*Category, error) {
	cat, err := c.repo.FindByName(ctx, strings.TrimSpace(name), direction)
	if err == nil {
		return cat, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}
	return c.Create(ctx, name, direction)
}

// List returns categories, optionally only active ones.
func (c *Categories) List(ctx context.Context, activeOnly bool) ([]Category, error) {
	return c.repo.List(ctx, activeOnly)
}
