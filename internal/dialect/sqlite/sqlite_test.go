package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/schema"
)

const ddl = `
CREATE TABLE customers (
	id INTEGER PRIMARY KEY,
	email VARCHAR(120) NOT NULL UNIQUE
);
CREATE TABLE orders (
	id INTEGER NOT NULL,
	line INTEGER NOT NULL,
	customer_id INTEGER REFERENCES customers(id),
	total DECIMAL(10,2) DEFAULT 0,
	code TEXT,
	PRIMARY KEY (id, line),
	UNIQUE (code, customer_id),
	CHECK (total >= 0)
);
CREATE VIEW v_orders AS SELECT id, total FROM orders;
`

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(ddl)
	require.NoError(t, err)

	c := NewSqliteCatalog(db)
	t.Cleanup(func() { c.Close(context.Background()) })
	return c
}

func TestListNames(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	tables, err := c.ListTableNames(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)

	views, err := c.ListViewNames(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"v_orders"}, views)
}

func TestColumns(t *testing.T) {
	c := newCatalog(t)

	cols, err := c.Columns(context.Background(), "", "orders")
	require.NoError(t, err)
	require.Len(t, cols, 5)

	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "INTEGER", cols[0].Type)
	assert.False(t, *cols[0].Nullable)
	assert.Nil(t, cols[0].Default)

	assert.Equal(t, "DECIMAL(10,2)", cols[3].Type)
	require.NotNil(t, cols[3].Default)
	assert.Equal(t, "0", *cols[3].Default)
	assert.True(t, *cols[3].Nullable)

	_, err = c.Columns(context.Background(), "", "nope")
	assert.ErrorIs(t, err, dialect.ErrNotFound)
}

func TestConstraints(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	pk, err := c.PrimaryKey(ctx, "", "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "line"}, pk)

	unique, err := c.UniqueConstraints(ctx, "", "orders")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"code", "customer_id"}}, unique)

	unique, err = c.UniqueConstraints(ctx, "", "customers")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"email"}}, unique)

	fks, err := c.ForeignKeys(ctx, "", "orders")
	require.NoError(t, err)
	assert.Equal(t, []schema.RawForeignKey{
		{Columns: []string{"customer_id"}, ReferencedTable: "customers", ReferencedColumns: []string{"id"}},
	}, fks)

	_, err = c.CheckConstraints(ctx, "", "orders")
	assert.ErrorIs(t, err, dialect.ErrNotSupported)
}

func TestRoutines(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	names, err := c.ListRoutineNames(ctx, "", schema.KindFunction)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, found, err := c.FindRoutine(ctx, "", "anything", schema.KindProcedure)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = c.ListRoutineNames(ctx, "", schema.KindTable)
	assert.ErrorIs(t, err, schema.ErrInvalidArgument)
}

func TestUntypedColumns(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	_, err := c.db.Exec(`
CREATE TABLE loose (x, y INTEGER);
CREATE VIEW v_totals AS SELECT id, total * 2 AS doubled FROM orders;
`)
	require.NoError(t, err)

	cols, err := c.Columns(ctx, "", "loose")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "NULL", cols[0].Type)
	assert.Equal(t, "INTEGER", cols[1].Type)

	cols, err = c.Columns(ctx, "", "v_totals")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "NULL", cols[1].Type)
}

func TestForeignKeyToImplicitPrimaryKey(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	_, err := c.db.Exec(`
CREATE TABLE lines (order_id INTEGER, line INTEGER, PRIMARY KEY (order_id, line));
CREATE TABLE notes (
	id INTEGER PRIMARY KEY,
	customer_id INTEGER REFERENCES customers,
	order_id INTEGER,
	line INTEGER,
	FOREIGN KEY (order_id, line) REFERENCES lines
);
`)
	require.NoError(t, err)

	fks, err := c.ForeignKeys(ctx, "", "notes")
	require.NoError(t, err)
	assert.ElementsMatch(t, []schema.RawForeignKey{
		{Columns: []string{"customer_id"}, ReferencedTable: "customers", ReferencedColumns: []string{"id"}},
		{Columns: []string{"order_id", "line"}, ReferencedTable: "lines", ReferencedColumns: []string{"order_id", "line"}},
	}, fks)
}
