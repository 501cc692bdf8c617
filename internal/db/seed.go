package db

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Table describes a reference table to seed.
type Table struct {
	Name    string
	Columns []string
	// Key is the unique constraint rows conflict on.
	Key []string
	// Refresh lists the columns overwritten when a row already exists.
	// Empty keeps existing rows untouched.
	Refresh []string
}

// Seed inserts rows into t in a single statement. Existing rows are left
// alone or have their Refresh columns updated.
func Seed(ctx context.Context, pool Pool, t Table, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	query, args, err := seedSQL(t, rows)
	if err != nil {
		return 0, err
	}
	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: seed %s", t.Name)
	}
	return tag.RowsAffected(), nil
}

func seedSQL(t Table, rows [][]any) (string, []any, error) {
	if len(t.Columns) == 0 {
		return "", nil, eris.Errorf("db: seed %s: no columns", t.Name)
	}
	if len(t.Key) == 0 {
		return "", nil, eris.Errorf("db: seed %s: no conflict key", t.Name)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgx.Identifier(strings.Split(t.Name, ".")).Sanitize())
	b.WriteString(" (")
	b.WriteString(identList(t.Columns))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(t.Columns))
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return "", nil, eris.Errorf("db: seed %s: row %d has %d values, want %d", t.Name, i, len(row), len(t.Columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, v)
			b.WriteString("$" + strconv.Itoa(len(args)))
		}
		b.WriteByte(')')
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(identList(t.Key))
	b.WriteString(") ")
	if len(t.Refresh) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET ")
		for i, c := range t.Refresh {
			if i > 0 {
				b.WriteString(", ")
			}
			id := pgx.Identifier{c}.Sanitize()
			b.WriteString(id + " = EXCLUDED." + id)
		}
	}
	return b.String(), args, nil
}

func identList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
