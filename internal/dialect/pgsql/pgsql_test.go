package pgsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeArgs(t *testing.T) {
	tests := []struct {
		base   string
		typmod int
		want   string
	}{
		{"varchar", 259, "255"},
		{"bpchar", 14, "10"},
		{"varchar", -1, ""},
		{"numeric", (10<<16 | 2) + 4, "10,2"},
		{"numeric", (38<<16 | 0) + 4, "38,0"},
		{"numeric", -1, ""},
		{"int4", -1, ""},
		{"timestamptz", 10, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, typeArgs(tt.base, tt.typmod), "%s %d", tt.base, tt.typmod)
	}
}

func TestSchemaOrDefault(t *testing.T) {
	assert.Equal(t, "public", schemaOrDefault(""))
	assert.Equal(t, "sales", schemaOrDefault("sales"))
}
