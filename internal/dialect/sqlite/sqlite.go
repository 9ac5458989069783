package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/schema"
)

const DefaultSchema = "main"

// untypedColumn names the declared type of columns declared without one,
// including expression columns of views.
const untypedColumn = "NULL"

// Catalog reads sqlite_master and the table-valued PRAGMA functions.
// SQLite keeps no routines and does not expose check constraints.
type Catalog struct {
	db *sql.DB
}

func NewSqliteCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Close(context.Context) error {
	return c.db.Close()
}

func schemaOrDefault(s string) string {
	if s == "" {
		return DefaultSchema
	}
	return s
}

func (c *Catalog) listObjects(ctx context.Context, schemaName, objType string) ([]string, error) {
	// schema names cannot be bound, only main and temp are queried this way
	master := "sqlite_master"
	if schemaOrDefault(schemaName) == "temp" {
		master = "sqlite_temp_master"
	}
	return dialect.QueryStrings(ctx, c.db, fmt.Sprintf(
		"SELECT name FROM %s WHERE type = ? AND name NOT LIKE 'sqlite_%%' ORDER BY name", master),
		objType)
}

func (c *Catalog) ListTableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.listObjects(ctx, schemaName, "table")
}

func (c *Catalog) ListViewNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.listObjects(ctx, schemaName, "view")
}

func (c *Catalog) Columns(ctx context.Context, schemaName, object string) ([]schema.RawColumn, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, type, "notnull", dflt_value FROM pragma_table_info(?, ?) ORDER BY cid`,
		object, schemaOrDefault(schemaName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.RawColumn
	for rows.Next() {
		var name, typeName string
		var notNull int
		var dfltValue sql.NullString

		if err := rows.Scan(&name, &typeName, &notNull, &dfltValue); err != nil {
			return nil, err
		}

		if strings.TrimSpace(typeName) == "" {
			typeName = untypedColumn
		}
		nullable := notNull == 0
		columns = append(columns, schema.RawColumn{
			Name:     name,
			Type:     typeName,
			Nullable: &nullable,
			Default:  dialect.NullableString(dfltValue),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: %w", object, dialect.ErrNotFound)
	}
	return columns, nil
}

func (c *Catalog) PrimaryKey(ctx context.Context, schemaName, object string) ([]string, error) {
	return dialect.QueryStrings(ctx, c.db,
		`SELECT name FROM pragma_table_info(?, ?) WHERE pk > 0 ORDER BY pk`,
		object, schemaOrDefault(schemaName))
}

func (c *Catalog) UniqueConstraints(ctx context.Context, schemaName, object string) ([][]string, error) {
	return dialect.QueryColumnGroups(ctx, c.db, `
SELECT il.name, ii.name
FROM pragma_index_list(?1, ?2) il
JOIN pragma_index_info(il.name, ?2) ii
WHERE il.origin = 'u'
ORDER BY il.name, ii.seqno`,
		object, schemaOrDefault(schemaName))
}

// ForeignKeys resolves keys declared without referenced columns, such as
// REFERENCES customers, to the primary key of the referenced table.
func (c *Catalog) ForeignKeys(ctx context.Context, schemaName, object string) ([]schema.RawForeignKey, error) {
	fkRows, implicit, err := c.foreignKeyRows(ctx, schemaName, object)
	if err != nil {
		return nil, err
	}

	pks := map[string][]string{}
	for i, seq := range implicit {
		table := fkRows[i].ReferencedTable
		pk, ok := pks[table]
		if !ok {
			if pk, err = c.PrimaryKey(ctx, schemaName, table); err != nil {
				return nil, err
			}
			pks[table] = pk
		}
		if seq < len(pk) {
			fkRows[i].ReferencedColumn = pk[seq]
		}
	}
	return dialect.GroupForeignKeys(fkRows), nil
}

// foreignKeyRows also returns, keyed by row index, the column position of
// every row whose referenced column is implicit. The rows are closed before
// returning since the pool holds a single connection.
func (c *Catalog) foreignKeyRows(ctx context.Context, schemaName, object string) ([]dialect.ForeignKeyRow, map[int]int, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT CAST(id AS TEXT), seq, "from", "table", "to"
FROM pragma_foreign_key_list(?, ?)
ORDER BY id, seq`,
		object, schemaOrDefault(schemaName))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var fkRows []dialect.ForeignKeyRow
	implicit := map[int]int{}
	for rows.Next() {
		var r dialect.ForeignKeyRow
		var seq int
		var to sql.NullString
		if err := rows.Scan(&r.Name, &seq, &r.Column, &r.ReferencedTable, &to); err != nil {
			return nil, nil, err
		}
		if to.Valid {
			r.ReferencedColumn = to.String
		} else {
			implicit[len(fkRows)] = seq
		}
		fkRows = append(fkRows, r)
	}
	return fkRows, implicit, rows.Err()
}

func (c *Catalog) CheckConstraints(context.Context, string, string) ([]string, error) {
	return nil, fmt.Errorf("check constraints: %w", dialect.ErrNotSupported)
}

func (c *Catalog) ListRoutineNames(_ context.Context, _ string, kind schema.ObjectKind) ([]string, error) {
	if !kind.IsRoutine() {
		return nil, fmt.Errorf("%w: routine kind %q", schema.ErrInvalidArgument, kind)
	}
	return []string{}, nil
}

func (c *Catalog) FindRoutine(_ context.Context, _ string, _ string, kind schema.ObjectKind) (schema.Routine, bool, error) {
	if !kind.IsRoutine() {
		return schema.Routine{}, false, fmt.Errorf("%w: routine kind %q", schema.ErrInvalidArgument, kind)
	}
	return schema.Routine{}, false, nil
}
