package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Table parses "schema.table" or "table" into a quoted identifier.
func Table(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}

// CopyRows bulk-inserts rows into table using the COPY protocol. Pass a
// pgx.Tx to make the load part of a larger transaction.
func CopyRows(ctx context.Context, c Copier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := c.CopyFrom(ctx, Table(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}
