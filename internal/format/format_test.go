package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"benritz/schemadiff/internal/schema"
)

func boolp(v bool) *bool    { return &v }
func strp(v string) *string { return &v }

func ordersTable() schema.ObjectSchema {
	return schema.ObjectSchema{
		Name: "orders",
		Kind: schema.KindTable,
		Columns: []schema.Column{
			{Name: "id", RawType: "INTEGER", Nullable: boolp(false)},
			{Name: "total", RawType: "DECIMAL(10,2)", Nullable: boolp(true), Default: strp("0")},
			{Name: "note", RawType: "VARCHAR(200)"},
		},
		PrimaryKey:        []string{"id"},
		ForeignKeys:       []schema.ForeignKey{{Columns: []string{"customer_id"}, ReferencedTable: "customers", ReferencedColumns: []string{"id"}}},
		UniqueConstraints: [][]string{{"note"}},
		CheckConstraints:  []string{"total >= 0"},
	}
}

func TestFormatTable(t *testing.T) {
	rec, err := New().Format(ordersTable())
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "total", "note", "primary_key", "foreign_keys", "unique_constraints", "check_constraints"}, rec.Keys())

	id, _ := rec.Get("id")
	assert.Equal(t, schema.Field{Datatype: "integer", IsNullable: boolp(false)}, id)

	total, _ := rec.Get("total")
	assert.Equal(t, schema.Field{Datatype: "decimal", Precision: intp(10), Scale: intp(2), Default: strp("0"), IsNullable: boolp(true)}, total)

	note, _ := rec.Get("note")
	assert.Equal(t, schema.Field{Datatype: "varchar", Length: intp(200)}, note)

	pk, _ := rec.Get(schema.FieldPrimaryKey)
	assert.Equal(t, schema.KeyColumns{"id"}, pk)
	checks, _ := rec.Get(schema.FieldCheckConstraints)
	assert.Equal(t, schema.CheckConstraints{"total >= 0"}, checks)
}

func TestFormatOmitsAbsentAuxFields(t *testing.T) {
	obj := schema.ObjectSchema{
		Name:    "v_orders",
		Kind:    schema.KindView,
		Columns: []schema.Column{{Name: "id", RawType: "INTEGER"}},
	}
	rec, err := New().Format(obj)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, rec.Keys())
}

func TestFormatRoutine(t *testing.T) {
	def := "BEGIN RETURN 1; END"
	rec, err := New().Format(schema.ObjectSchema{Name: "f", Kind: schema.KindFunction, Definition: &def})
	require.NoError(t, err)
	assert.Equal(t, []string{"definition"}, rec.Keys())
	v, _ := rec.Get("definition")
	assert.Equal(t, schema.Definition(def), v)

	rec, err = New().Format(schema.ObjectSchema{Name: "missing", Kind: schema.KindProcedure})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Len())
}

func TestFormatColumnNamedLikeAuxField(t *testing.T) {
	obj := schema.ObjectSchema{
		Name:       "odd",
		Kind:       schema.KindTable,
		Columns:    []schema.Column{{Name: "primary_key", RawType: "INT"}, {Name: "b", RawType: "INT"}},
		PrimaryKey: []string{"b"},
	}
	rec, err := New().Format(obj)
	require.NoError(t, err)
	assert.Equal(t, []string{"primary_key", "b"}, rec.Keys())
	v, _ := rec.Get("primary_key")
	assert.Equal(t, schema.KeyColumns{"b"}, v)
}

func TestFormatSkipsUnparsableType(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	obj := ordersTable()
	obj.Columns[2].RawType = "VARCHAR(MAX)"

	rec, err := New(WithLogger(zap.New(core))).Format(obj)
	require.NoError(t, err)
	assert.False(t, rec.Has("note"))
	assert.True(t, rec.Has("id"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "note", entry.ContextMap()["field"])
	assert.Equal(t, "orders", entry.ContextMap()["object"])
}

func TestFormatStrictFailsObject(t *testing.T) {
	obj := ordersTable()
	obj.Columns[1].RawType = "DECIMAL(10,2,3)"

	_, err := New(WithStrictTypes(true)).Format(obj)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidType)
	assert.Contains(t, err.Error(), "orders: column total")
}

func TestFormatColumnCopiesAbsence(t *testing.T) {
	f, err := FormatColumn(schema.Column{Name: "a", RawType: "TEXT"})
	require.NoError(t, err)
	assert.Nil(t, f.IsNullable)
	assert.Nil(t, f.Default)
	assert.Nil(t, f.Length)
}
