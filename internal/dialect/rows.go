package dialect

import (
	"context"
	"database/sql"

	"benritz/schemadiff/internal/schema"
)

// Queryer is satisfied by *sql.DB and *sql.Conn.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryStrings returns the first column of every row.
func QueryStrings(ctx context.Context, db Queryer, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ColumnGroupRow is one column of a named key or index.
type ColumnGroupRow struct {
	Name   string
	Column string
}

// GroupColumns folds rows ordered by name and column position into one
// column list per name.
func GroupColumns(rows []ColumnGroupRow) [][]string {
	var groups [][]string
	var last string
	for _, r := range rows {
		if len(groups) == 0 || r.Name != last {
			groups = append(groups, []string{})
			last = r.Name
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], r.Column)
	}
	return groups
}

// QueryColumnGroups reads (constraint name, column name) rows ordered by
// constraint and column position and groups them with GroupColumns.
func QueryColumnGroups(ctx context.Context, db Queryer, query string, args ...any) ([][]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groupRows []ColumnGroupRow
	for rows.Next() {
		var r ColumnGroupRow
		if err := rows.Scan(&r.Name, &r.Column); err != nil {
			return nil, err
		}
		groupRows = append(groupRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return GroupColumns(groupRows), nil
}

// ForeignKeyRow is one column pair of a foreign key.
type ForeignKeyRow struct {
	Name             string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// GroupForeignKeys folds rows ordered by key name and column position into
// one RawForeignKey per key.
func GroupForeignKeys(rows []ForeignKeyRow) []schema.RawForeignKey {
	var out []schema.RawForeignKey
	var last string
	for _, r := range rows {
		if len(out) == 0 || r.Name != last {
			out = append(out, schema.RawForeignKey{ReferencedTable: r.ReferencedTable})
			last = r.Name
		}
		fk := &out[len(out)-1]
		fk.Columns = append(fk.Columns, r.Column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, r.ReferencedColumn)
	}
	return out
}

// QueryForeignKeys reads (name, column, referenced table, referenced column)
// rows and groups them with GroupForeignKeys.
func QueryForeignKeys(ctx context.Context, db Queryer, query string, args ...any) ([]schema.RawForeignKey, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fkRows []ForeignKeyRow
	for rows.Next() {
		var r ForeignKeyRow
		if err := rows.Scan(&r.Name, &r.Column, &r.ReferencedTable, &r.ReferencedColumn); err != nil {
			return nil, err
		}
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return GroupForeignKeys(fkRows), nil
}

// NullableString returns nil for NULL and for empty strings.
func NullableString(s sql.NullString) *string {
	if !s.Valid || s.String == "" {
		return nil
	}
	v := s.String
	return &v
}
