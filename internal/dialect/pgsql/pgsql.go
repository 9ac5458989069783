package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/schema"
)

const DefaultSchema = "public"

// Catalog reads the PostgreSQL system catalogs over a single connection.
type Catalog struct {
	conn *pgx.Conn
}

func NewPgsqlCatalog(ctx context.Context, url string) (*Catalog, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Catalog{conn: conn}, nil
}

func (c *Catalog) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

func schemaOrDefault(s string) string {
	if s == "" {
		return DefaultSchema
	}
	return s
}

func (c *Catalog) queryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (c *Catalog) ListTableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.queryStrings(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`, schemaOrDefault(schemaName))
}

func (c *Catalog) ListViewNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.queryStrings(ctx, `
SELECT table_name
FROM information_schema.views
WHERE table_schema = $1
ORDER BY table_name`, schemaOrDefault(schemaName))
}

func (c *Catalog) Columns(ctx context.Context, schemaName, object string) ([]schema.RawColumn, error) {
	rows, err := c.conn.Query(ctx, `
SELECT
    a.attname AS column_name,
    t.typname AS base_type,
    format_type(a.atttypid, NULL) AS type_name,
    a.atttypmod,
    NOT a.attnotnull AS is_nullable,
    pg_get_expr(ad.adbin, ad.adrelid) AS default_expr
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid
JOIN pg_catalog.pg_type t ON t.oid = a.atttypid
LEFT JOIN pg_catalog.pg_attrdef ad ON ad.adrelid = c.oid AND ad.adnum = a.attnum
WHERE n.nspname = $1
  AND c.relname = $2
  AND c.relkind IN ('r', 'p', 'v', 'm')
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY a.attnum ASC`, schemaOrDefault(schemaName), object)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.RawColumn
	for rows.Next() {
		var (
			name, baseType, typeName string
			attTypMod                int
			isNullable               bool
			defaultValue             *string
		)
		if err := rows.Scan(&name, &baseType, &typeName, &attTypMod, &isNullable, &defaultValue); err != nil {
			return nil, err
		}
		if defaultValue != nil && *defaultValue == "" {
			defaultValue = nil
		}
		columns = append(columns, schema.RawColumn{
			Name:     name,
			Type:     typeName,
			TypeArgs: typeArgs(baseType, attTypMod),
			Nullable: &isNullable,
			Default:  defaultValue,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", schemaOrDefault(schemaName), object, dialect.ErrNotFound)
	}
	return columns, nil
}

// typeArgs decodes atttypmod into the length or precision,scale attribute.
func typeArgs(baseType string, attTypMod int) string {
	switch baseType {
	case "varchar", "bpchar", "char":
		if attTypMod > 4 {
			return strconv.Itoa(attTypMod - 4)
		}
	case "numeric", "decimal":
		if attTypMod > 4 {
			typmod := attTypMod - 4
			precision := (typmod >> 16) & 0xffff
			scale := typmod & 0xffff
			return fmt.Sprintf("%d,%d", precision, scale)
		}
	}
	return ""
}

// constraintColumns selects from the columns of every constraint of one
// contype; the caller appends the select list and ordering.
const constraintColumns = `
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND c.relname = $2 AND con.contype = '%s'`

func (c *Catalog) PrimaryKey(ctx context.Context, schemaName, object string) ([]string, error) {
	return c.queryStrings(ctx, "SELECT a.attname"+fmt.Sprintf(constraintColumns, "p")+" ORDER BY k.ord",
		schemaOrDefault(schemaName), object)
}

func (c *Catalog) UniqueConstraints(ctx context.Context, schemaName, object string) ([][]string, error) {
	rows, err := c.conn.Query(ctx, "SELECT con.conname, a.attname"+fmt.Sprintf(constraintColumns, "u")+" ORDER BY con.conname, k.ord",
		schemaOrDefault(schemaName), object)
	if err != nil {
		return nil, err
	}
	groupRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dialect.ColumnGroupRow, error) {
		var r dialect.ColumnGroupRow
		err := row.Scan(&r.Name, &r.Column)
		return r, err
	})
	if err != nil {
		return nil, err
	}
	return dialect.GroupColumns(groupRows), nil
}

func (c *Catalog) ForeignKeys(ctx context.Context, schemaName, object string) ([]schema.RawForeignKey, error) {
	rows, err := c.conn.Query(ctx, `
SELECT con.conname, a.attname, rc.relname, ra.attname
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_class rc ON rc.oid = con.confrelid
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid AND a.attnum = k.attnum
JOIN pg_catalog.pg_attribute ra ON ra.attrelid = rc.oid AND ra.attnum = k.refattnum
WHERE n.nspname = $1 AND c.relname = $2 AND con.contype = 'f'
ORDER BY con.conname, k.ord`, schemaOrDefault(schemaName), object)
	if err != nil {
		return nil, err
	}
	fkRows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (dialect.ForeignKeyRow, error) {
		var r dialect.ForeignKeyRow
		err := row.Scan(&r.Name, &r.Column, &r.ReferencedTable, &r.ReferencedColumn)
		return r, err
	})
	if err != nil {
		return nil, err
	}
	return dialect.GroupForeignKeys(fkRows), nil
}

func (c *Catalog) CheckConstraints(ctx context.Context, schemaName, object string) ([]string, error) {
	return c.queryStrings(ctx, `
SELECT pg_get_constraintdef(con.oid)
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2 AND con.contype = 'c'
ORDER BY con.conname`, schemaOrDefault(schemaName), object)
}

func routineType(kind schema.ObjectKind) (string, error) {
	switch kind {
	case schema.KindFunction:
		return "FUNCTION", nil
	case schema.KindProcedure:
		return "PROCEDURE", nil
	default:
		return "", fmt.Errorf("%w: routine kind %q", schema.ErrInvalidArgument, kind)
	}
}

func (c *Catalog) ListRoutineNames(ctx context.Context, schemaName string, kind schema.ObjectKind) ([]string, error) {
	rt, err := routineType(kind)
	if err != nil {
		return nil, err
	}
	return c.queryStrings(ctx, `
SELECT DISTINCT routine_name
FROM information_schema.routines
WHERE routine_schema = $1 AND routine_type = $2
ORDER BY routine_name`, schemaOrDefault(schemaName), rt)
}

func (c *Catalog) FindRoutine(ctx context.Context, schemaName, name string, kind schema.ObjectKind) (schema.Routine, bool, error) {
	rt, err := routineType(kind)
	if err != nil {
		return schema.Routine{}, false, err
	}
	var r schema.Routine
	err = c.conn.QueryRow(ctx, `
SELECT routine_name, COALESCE(routine_definition, '')
FROM information_schema.routines
WHERE routine_schema = $1 AND routine_name = $2 AND routine_type = $3
ORDER BY specific_name
LIMIT 1`, schemaOrDefault(schemaName), name, rt).Scan(&r.Name, &r.Definition)
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.Routine{}, false, nil
	}
	if err != nil {
		return schema.Routine{}, false, err
	}
	return r, true, nil
}
