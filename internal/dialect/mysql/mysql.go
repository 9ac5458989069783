package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	driver "github.com/go-sql-driver/mysql"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/schema"
)

// errNoSuchTable is ER_UNKNOWN_TABLE, returned for
// information_schema.CHECK_CONSTRAINTS before MySQL 8.0.16.
const errNoSuchTable = 1109

// Catalog reads information_schema. An empty schema name means the
// connection's current database.
type Catalog struct {
	db *sql.DB
}

func NewMysqlCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Close(context.Context) error {
	return c.db.Close()
}

// schemaArg returns the placeholder expression and its arguments.
func schemaArg(schemaName string) (string, []any) {
	if schemaName == "" {
		return "DATABASE()", nil
	}
	return "?", []any{schemaName}
}

func (c *Catalog) listTables(ctx context.Context, schemaName, tableType string) ([]string, error) {
	expr, args := schemaArg(schemaName)
	return dialect.QueryStrings(ctx, c.db, fmt.Sprintf(`
SELECT TABLE_NAME
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = %s AND TABLE_TYPE = '%s'
ORDER BY TABLE_NAME`, expr, tableType), args...)
}

func (c *Catalog) ListTableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.listTables(ctx, schemaName, "BASE TABLE")
}

func (c *Catalog) ListViewNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.listTables(ctx, schemaName, "VIEW")
}

func (c *Catalog) Columns(ctx context.Context, schemaName, object string) ([]schema.RawColumn, error) {
	expr, args := schemaArg(schemaName)
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
SELECT
	COLUMN_NAME,
	DATA_TYPE,
	CHARACTER_MAXIMUM_LENGTH,
	NUMERIC_PRECISION,
	NUMERIC_SCALE,
	IS_NULLABLE,
	COLUMN_DEFAULT
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = %s AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, expr), append(args, object)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.RawColumn
	for rows.Next() {
		var name, dataType, nullable string
		var maxLength, precision, scale sql.NullInt64
		var defaultValue sql.NullString

		if err := rows.Scan(&name, &dataType, &maxLength, &precision, &scale, &nullable, &defaultValue); err != nil {
			return nil, err
		}

		isNullable := nullable == "YES"
		columns = append(columns, schema.RawColumn{
			Name:     name,
			Type:     dataType,
			TypeArgs: typeArgs(dataType, maxLength, precision, scale),
			Nullable: &isNullable,
			Default:  dialect.NullableString(defaultValue),
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

// typeArgs keeps only character lengths and decimal precision,scale. Integer
// display widths and enum value lists are not part of the comparison.
func typeArgs(dataType string, maxLength, precision, scale sql.NullInt64) string {
	switch strings.ToLower(dataType) {
	case "char", "varchar", "binary", "varbinary":
		if maxLength.Valid {
			return fmt.Sprintf("%d", maxLength.Int64)
		}
	case "decimal", "numeric":
		if precision.Valid && scale.Valid {
			return fmt.Sprintf("%d,%d", precision.Int64, scale.Int64)
		}
	}
	return ""
}

const keyColumns = `
SELECT tc.CONSTRAINT_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
	ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
	AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
	AND kcu.TABLE_NAME = tc.TABLE_NAME
WHERE tc.TABLE_SCHEMA = %s AND tc.TABLE_NAME = ? AND tc.CONSTRAINT_TYPE = '%s'
ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

func (c *Catalog) PrimaryKey(ctx context.Context, schemaName, object string) ([]string, error) {
	expr, args := schemaArg(schemaName)
	groups, err := dialect.QueryColumnGroups(ctx, c.db, fmt.Sprintf(keyColumns, expr, "PRIMARY KEY"), append(args, object)...)
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return groups[0], nil
}

func (c *Catalog) UniqueConstraints(ctx context.Context, schemaName, object string) ([][]string, error) {
	expr, args := schemaArg(schemaName)
	return dialect.QueryColumnGroups(ctx, c.db, fmt.Sprintf(keyColumns, expr, "UNIQUE"), append(args, object)...)
}

func (c *Catalog) ForeignKeys(ctx context.Context, schemaName, object string) ([]schema.RawForeignKey, error) {
	expr, args := schemaArg(schemaName)
	return dialect.QueryForeignKeys(ctx, c.db, fmt.Sprintf(`
SELECT
	CONSTRAINT_NAME,
	COLUMN_NAME,
	REFERENCED_TABLE_NAME,
	REFERENCED_COLUMN_NAME
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = %s AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`, expr), append(args, object)...)
}

func (c *Catalog) CheckConstraints(ctx context.Context, schemaName, object string) ([]string, error) {
	expr, args := schemaArg(schemaName)
	checks, err := dialect.QueryStrings(ctx, c.db, fmt.Sprintf(`
SELECT cc.CHECK_CLAUSE
FROM INFORMATION_SCHEMA.CHECK_CONSTRAINTS cc
JOIN INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
	ON tc.CONSTRAINT_SCHEMA = cc.CONSTRAINT_SCHEMA
	AND tc.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
WHERE tc.TABLE_SCHEMA = %s AND tc.TABLE_NAME = ? AND tc.CONSTRAINT_TYPE = 'CHECK'
ORDER BY cc.CONSTRAINT_NAME`, expr), append(args, object)...)
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errNoSuchTable {
		return nil, fmt.Errorf("check constraints: %w", dialect.ErrNotSupported)
	}
	return checks, err
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
	expr, args := schemaArg(schemaName)
	return dialect.QueryStrings(ctx, c.db, fmt.Sprintf(`
SELECT ROUTINE_NAME
FROM INFORMATION_SCHEMA.ROUTINES
WHERE ROUTINE_SCHEMA = %s AND ROUTINE_TYPE = ?
ORDER BY ROUTINE_NAME`, expr), append(args, rt)...)
}

func (c *Catalog) FindRoutine(ctx context.Context, schemaName, name string, kind schema.ObjectKind) (schema.Routine, bool, error) {
	rt, err := routineType(kind)
	if err != nil {
		return schema.Routine{}, false, err
	}
	expr, args := schemaArg(schemaName)
	var r schema.Routine
	var definition sql.NullString
	err = c.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT ROUTINE_NAME, ROUTINE_DEFINITION
FROM INFORMATION_SCHEMA.ROUTINES
WHERE ROUTINE_SCHEMA = %s AND ROUTINE_NAME = ? AND ROUTINE_TYPE = ?`, expr), append(args, name, rt)...).
		Scan(&r.Name, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Routine{}, false, nil
	}
	if err != nil {
		return schema.Routine{}, false, err
	}
	r.Definition = definition.String
	return r, true, nil
}
