package dto

import (
	"clinicledger/internal/core/id"
	"clinicledger/internal/core/types"
	"clinicledger/internal/domain/journal"
	"clinicledger/internal/domain/ledger"
)

// PostJournalRequest is the body of POST /journal.
type PostJournalRequest struct {
	Account     ledger.AccountKind    `json:"account" binding:"required"`
	Direction   ledger.EntryDirection `json:"direction" binding:"required"`
	Amount      types.MinorUnits      `json:"amount"`
	CategoryID  *id.ID                `json:"categoryId"`
	Category    string                `json:"category"`
	Date        Date                  `json:"date"`
	Description string                `json:"description"`
	Rollup      bool                  `json:"rollup"`
}

func (r PostJournalRequest) Input() journal.PostInput {
	return journal.PostInput{
		Account:     r.Account,
		Direction:   r.Direction,
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		Category:    r.Category,
		Date:        r.Date.Time,
		Description: r.Description,
		Rollup:      r.Rollup,
	}
}

// EditJournalRequest is the body of PUT /journal/:id. Absent fields keep
// their stored value.
type EditJournalRequest struct {
	Account     *ledger.AccountKind    `json:"account"`
	Direction   *ledger.EntryDirection `json:"direction"`
	Amount      *types.MinorUnits      `json:"amount"`
	CategoryID  *id.ID                 `json:"categoryId"`
	Category    *string                `json:"category"`
	Date        *Date                  `json:"date"`
	Description *string                `json:"description"`
}

func (r EditJournalRequest) Input() journal.EditInput {
	return journal.EditInput{
		Account:     r.Account,
		Direction:   r.Direction,
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		Category:    r.Category,
		Date:        r.Date.Ptr(),
		Description: r.Description,
	}
}

// JournalListQuery filters GET /journal.
type JournalListQuery struct {
	ListQuery
	Account   string `form:"account"`
	Direction string `form:"direction"`
	SaleID    string `form:"sale_id"`
}

func (q JournalListQuery) ToFilter() (journal.Filter, error) {
	f := journal.Filter{ListFilter: q.Filter()}
	if q.Account != "" {
		k, err := ledger.ParseAccountKind(q.Account)
		if err != nil {
			return f, err
		}
		f.Account = &k
	}
	if q.Direction != "" {
		d := ledger.EntryDirection(q.Direction)
		if err := d.Validate(); err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if q.SaleID != "" {
		saleID, err := ParseID(q.SaleID, "sale_id")
		if err != nil {
			return f, err
		}
		f.SaleID = &saleID
	}
	return f, nil
}

// CreateCategoryRequest is the body of POST /categories.
type CreateCategoryRequest struct {
	Name      string                `json:"name" binding:"required"`
	Direction ledger.EntryDirection `json:"direction" binding:"required"`
}
