package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicledger/internal/domain"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// DateRange adds the filter's inclusive date bounds on column.
func DateRange(q squirrel.SelectBuilder, f domain.ListFilter, column string) squirrel.SelectBuilder {
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{column: *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{column: *f.DateTo})
	}
	return q
}

// Insert writes the db-tagged fields of row into table.
func Insert(ctx context.Context, q Querier, table string, row any) error {
	data := StructToMap(row)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %T", row)
	}
	sql, args, err := Builder().Insert(table).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", table, err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// SelectPage runs a count and a paged select built from base and returns the
// page. orderBy is applied to the page query only.
func SelectPage[T any](ctx context.Context, q Querier, base squirrel.SelectBuilder, columns []string, f domain.ListFilter, orderBy ...string) (domain.ListResult[T], error) {
	f = f.Normalize()
	out := domain.ListResult[T]{Items: []T{}, Limit: f.Limit, Offset: f.Offset}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return out, fmt.Errorf("build count: %w", err)
	}
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&out.TotalCount); err != nil {
		return out, fmt.Errorf("count: %w", err)
	}
	if out.TotalCount == 0 {
		return out, nil
	}

	pageSQL, pageArgs, err := base.Columns(columns...).
		OrderBy(orderBy...).
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return out, fmt.Errorf("build select: %w", err)
	}
	if err := pgxscan.Select(ctx, q, &out.Items, pageSQL, pageArgs...); err != nil {
		return out, fmt.Errorf("select: %w", err)
	}
	return out, nil
}
