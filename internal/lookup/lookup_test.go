package lookup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	names, err := Read(strings.NewReader("orders\n\n  customers  \r\n\t\nv_sales\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "customers", "v_sales"}, names)
}

func TestReadEmpty(t *testing.T) {
	names, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotNil(t, names)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))

	names, ok, err := ReadFile(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, names)

	_, ok, err = ReadFile(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ReadFile("")
	require.NoError(t, err)
	assert.False(t, ok)
}
