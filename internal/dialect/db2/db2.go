package db2

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/schema"
)

// Catalog reads the SYSCAT views. The go_ibm_db driver needs the IBM CLI
// libraries, so it is only linked in builds tagged db2. An empty schema
// name means CURRENT SCHEMA.
type Catalog struct {
	db *sql.DB
}

func NewDb2Catalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Close(context.Context) error {
	return c.db.Close()
}

func schemaArg(schemaName string) (string, []any) {
	if schemaName == "" {
		return "CURRENT SCHEMA", nil
	}
	return "?", []any{schemaName}
}

func (c *Catalog) listTables(ctx context.Context, schemaName, tableType string) ([]string, error) {
	expr, args := schemaArg(schemaName)
	return dialect.QueryStrings(ctx, c.db, fmt.Sprintf(`
SELECT TABNAME
FROM SYSCAT.TABLES
WHERE TABSCHEMA = %s AND TYPE = '%s'
ORDER BY TABNAME`, expr, tableType), args...)
}

func (c *Catalog) ListTableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.listTables(ctx, schemaName, "T")
}

func (c *Catalog) ListViewNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.listTables(ctx, schemaName, "V")
}

func (c *Catalog) Columns(ctx context.Context, schemaName, object string) ([]schema.RawColumn, error) {
	expr, args := schemaArg(schemaName)
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
SELECT COLNAME, TRIM(TYPENAME), LENGTH, SCALE, NULLS, DEFAULT
FROM SYSCAT.COLUMNS
WHERE TABSCHEMA = %s AND TABNAME = ?
ORDER BY COLNO`, expr), append(args, object)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.RawColumn
	for rows.Next() {
		var name, typeName, nulls string
		var length, scale int
		var defaultValue sql.NullString

		if err := rows.Scan(&name, &typeName, &length, &scale, &nulls, &defaultValue); err != nil {
			return nil, err
		}

		nullable := nulls == "Y"
		columns = append(columns, schema.RawColumn{
			Name:     name,
			Type:     typeName,
			TypeArgs: typeArgs(typeName, length, scale),
			Nullable: &nullable,
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

// typeArgs uses LENGTH for character types and LENGTH,SCALE for decimals,
// where LENGTH holds the precision.
func typeArgs(typeName string, length, scale int) string {
	switch strings.ToUpper(typeName) {
	case "CHARACTER", "CHAR", "VARCHAR", "GRAPHIC", "VARGRAPHIC", "BINARY", "VARBINARY":
		if length > 0 {
			return fmt.Sprintf("%d", length)
		}
	case "DECIMAL", "NUMERIC":
		return fmt.Sprintf("%d,%d", length, scale)
	}
	return ""
}

const keyColumns = `
SELECT tc.CONSTNAME, k.COLNAME
FROM SYSCAT.TABCONST tc
JOIN SYSCAT.KEYCOLUSE k
	ON k.CONSTNAME = tc.CONSTNAME AND k.TABSCHEMA = tc.TABSCHEMA AND k.TABNAME = tc.TABNAME
WHERE tc.TABSCHEMA = %s AND tc.TABNAME = ? AND tc.TYPE = '%s'
ORDER BY tc.CONSTNAME, k.COLSEQ`

func (c *Catalog) PrimaryKey(ctx context.Context, schemaName, object string) ([]string, error) {
	expr, args := schemaArg(schemaName)
	groups, err := dialect.QueryColumnGroups(ctx, c.db, fmt.Sprintf(keyColumns, expr, "P"), append(args, object)...)
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return groups[0], nil
}

func (c *Catalog) UniqueConstraints(ctx context.Context, schemaName, object string) ([][]string, error) {
	expr, args := schemaArg(schemaName)
	return dialect.QueryColumnGroups(ctx, c.db, fmt.Sprintf(keyColumns, expr, "U"), append(args, object)...)
}

func (c *Catalog) ForeignKeys(ctx context.Context, schemaName, object string) ([]schema.RawForeignKey, error) {
	expr, args := schemaArg(schemaName)
	return dialect.QueryForeignKeys(ctx, c.db, fmt.Sprintf(`
SELECT r.CONSTNAME, k.COLNAME, r.REFTABNAME, rk.COLNAME
FROM SYSCAT.REFERENCES r
JOIN SYSCAT.KEYCOLUSE k
	ON k.CONSTNAME = r.CONSTNAME AND k.TABSCHEMA = r.TABSCHEMA AND k.TABNAME = r.TABNAME
JOIN SYSCAT.KEYCOLUSE rk
	ON rk.CONSTNAME = r.REFKEYNAME AND rk.TABSCHEMA = r.REFTABSCHEMA
	AND rk.TABNAME = r.REFTABNAME AND rk.COLSEQ = k.COLSEQ
WHERE r.TABSCHEMA = %s AND r.TABNAME = ?
ORDER BY r.CONSTNAME, k.COLSEQ`, expr), append(args, object)...)
}

func (c *Catalog) CheckConstraints(ctx context.Context, schemaName, object string) ([]string, error) {
	expr, args := schemaArg(schemaName)
	return dialect.QueryStrings(ctx, c.db, fmt.Sprintf(`
SELECT TEXT
FROM SYSCAT.CHECKS
WHERE TABSCHEMA = %s AND TABNAME = ? AND TYPE = 'C'
ORDER BY CONSTNAME`, expr), append(args, object)...)
}

func routineType(kind schema.ObjectKind) (string, error) {
	switch kind {
	case schema.KindFunction:
		return "F", nil
	case schema.KindProcedure:
		return "P", nil
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
SELECT DISTINCT ROUTINENAME
FROM SYSCAT.ROUTINES
WHERE ROUTINESCHEMA = %s AND ROUTINETYPE = ?
ORDER BY ROUTINENAME`, expr), append(args, rt)...)
}

func (c *Catalog) FindRoutine(ctx context.Context, schemaName, name string, kind schema.ObjectKind) (schema.Routine, bool, error) {
	rt, err := routineType(kind)
	if err != nil {
		return schema.Routine{}, false, err
	}
	expr, args := schemaArg(schemaName)
	var r schema.Routine
	var text sql.NullString
	err = c.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT ROUTINENAME, TEXT
FROM SYSCAT.ROUTINES
WHERE ROUTINESCHEMA = %s AND ROUTINENAME = ? AND ROUTINETYPE = ?
ORDER BY SPECIFICNAME
FETCH FIRST 1 ROWS ONLY`, expr), append(args, name, rt)...).Scan(&r.Name, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Routine{}, false, nil
	}
	if err != nil {
		return schema.Routine{}, false, err
	}
	r.Definition = strings.TrimSpace(text.String)
	return r, true, nil
}
