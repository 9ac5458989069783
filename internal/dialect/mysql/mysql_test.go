package mysql

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benritz/schemadiff/internal/schema"
)

func n(v int64) sql.NullInt64 { return sql.NullInt64{Int64: v, Valid: true} }

func TestTypeArgs(t *testing.T) {
	null := sql.NullInt64{}
	assert.Equal(t, "64", typeArgs("varchar", n(64), null, null))
	assert.Equal(t, "16", typeArgs("BINARY", n(16), null, null))
	assert.Equal(t, "12,3", typeArgs("decimal", null, n(12), n(3)))
	assert.Equal(t, "", typeArgs("int", null, n(10), n(0)))
	assert.Equal(t, "", typeArgs("text", n(65535), null, null))
	assert.Equal(t, "", typeArgs("varchar", null, null, null))
}

func TestSchemaArg(t *testing.T) {
	expr, args := schemaArg("")
	assert.Equal(t, "DATABASE()", expr)
	assert.Empty(t, args)

	expr, args = schemaArg("shop")
	assert.Equal(t, "?", expr)
	assert.Equal(t, []any{"shop"}, args)
}

func TestRoutineType(t *testing.T) {
	rt, err := routineType(schema.KindProcedure)
	require.NoError(t, err)
	assert.Equal(t, "PROCEDURE", rt)

	_, err = routineType(schema.KindView)
	assert.ErrorIs(t, err, schema.ErrInvalidArgument)
}
