package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/schema"
)

const DefaultSchema = "dbo"

type Catalog struct {
	db *sql.DB
}

func NewMssqlCatalog(db *sql.DB) *Catalog {
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

func (c *Catalog) listObjects(ctx context.Context, schemaName, view string) ([]string, error) {
	return dialect.QueryStrings(ctx, c.db, fmt.Sprintf(
		`select o.name from %s o join sys.schemas s on s.schema_id = o.schema_id
where s.name = @p1 and o.is_ms_shipped = 0 order by o.name`, view),
		schemaOrDefault(schemaName))
}

func (c *Catalog) ListTableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.listObjects(ctx, schemaName, "sys.tables")
}

func (c *Catalog) ListViewNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.listObjects(ctx, schemaName, "sys.views")
}

func (c *Catalog) Columns(ctx context.Context, schemaName, object string) ([]schema.RawColumn, error) {
	rows, err := c.db.QueryContext(ctx,
		`select
c.name as column_name,
c.max_length,
c.precision,
c.scale,
c.is_nullable,
ty.name as type,
d.definition
from
sys.objects o join sys.schemas s on s.schema_id = o.schema_id
join sys.columns c on o.object_id = c.object_id
join sys.types ty on c.user_type_id = ty.user_type_id
left join sys.default_constraints d on d.parent_object_id = c.object_id and d.parent_column_id = c.column_id
where s.name = @p1 and o.name = @p2 and o.type in ('U', 'V')
order by c.column_id asc`,
		schemaOrDefault(schemaName), object,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.RawColumn
	for rows.Next() {
		var columnName, colType string
		var maxLength, precision, scale int
		var isNullable bool
		var defaultValueOrNull sql.NullString

		if err := rows.Scan(
			&columnName,
			&maxLength,
			&precision,
			&scale,
			&isNullable,
			&colType,
			&defaultValueOrNull,
		); err != nil {
			return nil, err
		}

		columns = append(columns, schema.RawColumn{
			Name:     columnName,
			Type:     colType,
			TypeArgs: typeArgs(colType, maxLength, precision, scale),
			Nullable: &isNullable,
			Default:  dialect.NullableString(defaultValueOrNull),
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

// typeArgs derives the length or precision,scale attribute from sys.columns.
// max_length is in bytes, so n-prefixed character types are halved; -1 is
// (max) and carries no length.
func typeArgs(colType string, maxLength, precision, scale int) string {
	switch strings.ToLower(colType) {
	case "varchar", "char", "varbinary", "binary":
		if maxLength > 0 {
			return strconv.Itoa(maxLength)
		}
	case "nvarchar", "nchar":
		if maxLength > 0 {
			return strconv.Itoa(maxLength / 2)
		}
	case "decimal", "numeric":
		return fmt.Sprintf("%d,%d", precision, scale)
	}
	return ""
}

const indexColumns = `select i.name, c.name
from sys.indexes i
join sys.index_columns ic on ic.object_id = i.object_id and ic.index_id = i.index_id
join sys.columns c on c.object_id = ic.object_id and c.column_id = ic.column_id
join sys.tables t on t.object_id = i.object_id
join sys.schemas s on s.schema_id = t.schema_id
where s.name = @p1 and t.name = @p2 and %s
order by i.index_id asc, ic.key_ordinal asc`

func (c *Catalog) PrimaryKey(ctx context.Context, schemaName, object string) ([]string, error) {
	groups, err := dialect.QueryColumnGroups(ctx, c.db, fmt.Sprintf(indexColumns, "i.is_primary_key = 1"),
		schemaOrDefault(schemaName), object)
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return groups[0], nil
}

func (c *Catalog) UniqueConstraints(ctx context.Context, schemaName, object string) ([][]string, error) {
	return dialect.QueryColumnGroups(ctx, c.db, fmt.Sprintf(indexColumns, "i.is_unique_constraint = 1"),
		schemaOrDefault(schemaName), object)
}

func (c *Catalog) ForeignKeys(ctx context.Context, schemaName, object string) ([]schema.RawForeignKey, error) {
	return dialect.QueryForeignKeys(ctx, c.db,
		`select fk.name as key_name, c.name as parent_column, rt.name as referenced_table, rc.name as referenced_column
from sys.foreign_keys fk
join sys.foreign_key_columns fkc on fk.object_id = fkc.constraint_object_id
join sys.tables t on t.object_id = fk.parent_object_id
join sys.schemas s on s.schema_id = t.schema_id
join sys.columns c on c.object_id = t.object_id and c.column_id = fkc.parent_column_id
join sys.tables rt on rt.object_id = fk.referenced_object_id
join sys.columns rc on rc.object_id = rt.object_id and rc.column_id = fkc.referenced_column_id
where s.name = @p1 and t.name = @p2
order by fk.name asc, fkc.constraint_column_id asc`,
		schemaOrDefault(schemaName), object)
}

func (c *Catalog) CheckConstraints(ctx context.Context, schemaName, object string) ([]string, error) {
	return dialect.QueryStrings(ctx, c.db,
		`select cc.definition
from sys.check_constraints cc
join sys.tables t on t.object_id = cc.parent_object_id
join sys.schemas s on s.schema_id = t.schema_id
where s.name = @p1 and t.name = @p2
order by cc.name`,
		schemaOrDefault(schemaName), object)
}

// objectTypes maps a routine kind to sys.objects type codes.
func objectTypes(kind schema.ObjectKind) (string, error) {
	switch kind {
	case schema.KindFunction:
		return "'FN', 'IF', 'TF'", nil
	case schema.KindProcedure:
		return "'P'", nil
	default:
		return "", fmt.Errorf("%w: routine kind %q", schema.ErrInvalidArgument, kind)
	}
}

func (c *Catalog) ListRoutineNames(ctx context.Context, schemaName string, kind schema.ObjectKind) ([]string, error) {
	types, err := objectTypes(kind)
	if err != nil {
		return nil, err
	}
	return dialect.QueryStrings(ctx, c.db, fmt.Sprintf(
		`select o.name from sys.objects o join sys.schemas s on s.schema_id = o.schema_id
where s.name = @p1 and o.type in (%s) and o.is_ms_shipped = 0 order by o.name`, types),
		schemaOrDefault(schemaName))
}

func (c *Catalog) FindRoutine(ctx context.Context, schemaName, name string, kind schema.ObjectKind) (schema.Routine, bool, error) {
	types, err := objectTypes(kind)
	if err != nil {
		return schema.Routine{}, false, err
	}
	var r schema.Routine
	var definition sql.NullString
	err = c.db.QueryRowContext(ctx, fmt.Sprintf(
		`select o.name, m.definition
from sys.objects o
join sys.schemas s on s.schema_id = o.schema_id
left join sys.sql_modules m on m.object_id = o.object_id
where s.name = @p1 and o.name = @p2 and o.type in (%s)`, types),
		schemaOrDefault(schemaName), name).Scan(&r.Name, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Routine{}, false, nil
	}
	if err != nil {
		return schema.Routine{}, false, err
	}
	r.Definition = strings.TrimSpace(definition.String)
	return r, true, nil
}
