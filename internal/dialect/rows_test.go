package dialect

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"benritz/schemadiff/internal/schema"
)

func TestGroupForeignKeys(t *testing.T) {
	rows := []ForeignKeyRow{
		{Name: "fk_a", Column: "x", ReferencedTable: "p", ReferencedColumn: "px"},
		{Name: "fk_a", Column: "y", ReferencedTable: "p", ReferencedColumn: "py"},
		{Name: "fk_b", Column: "z", ReferencedTable: "q", ReferencedColumn: "id"},
	}
	assert.Equal(t, []schema.RawForeignKey{
		{Columns: []string{"x", "y"}, ReferencedTable: "p", ReferencedColumns: []string{"px", "py"}},
		{Columns: []string{"z"}, ReferencedTable: "q", ReferencedColumns: []string{"id"}},
	}, GroupForeignKeys(rows))

	assert.Nil(t, GroupForeignKeys(nil))
}

func TestNullableString(t *testing.T) {
	assert.Nil(t, NullableString(sql.NullString{}))
	assert.Nil(t, NullableString(sql.NullString{Valid: true}))
	v := NullableString(sql.NullString{String: "0", Valid: true})
	if assert.NotNil(t, v) {
		assert.Equal(t, "0", *v)
	}
}

func TestGroupColumns(t *testing.T) {
	rows := []ColumnGroupRow{
		{Name: "uq_a", Column: "x"},
		{Name: "uq_a", Column: "y"},
		{Name: "uq_b", Column: "z"},
	}
	assert.Equal(t, [][]string{{"x", "y"}, {"z"}}, GroupColumns(rows))
	assert.Nil(t, GroupColumns(nil))
}
