package dialect

import (
	"context"
	"errors"

	"benritz/schemadiff/internal/schema"
)

var (
	// ErrNotSupported is returned when a backend cannot introspect a
	// capability, such as check constraints on SQLite.
	ErrNotSupported = errors.New("not supported by this catalog")
	ErrNotFound     = errors.New("object not found")
)

// Inspector lists tables and views and reads their columns and constraints.
// Columns returns ErrNotFound when the object does not exist.
type Inspector interface {
	ListTableNames(ctx context.Context, schemaName string) ([]string, error)
	ListViewNames(ctx context.Context, schemaName string) ([]string, error)
	Columns(ctx context.Context, schemaName, object string) ([]schema.RawColumn, error)
	PrimaryKey(ctx context.Context, schemaName, object string) ([]string, error)
	ForeignKeys(ctx context.Context, schemaName, object string) ([]schema.RawForeignKey, error)
	UniqueConstraints(ctx context.Context, schemaName, object string) ([][]string, error)
	CheckConstraints(ctx context.Context, schemaName, object string) ([]string, error)
}

type RoutineCatalog interface {
	ListRoutineNames(ctx context.Context, schemaName string, kind schema.ObjectKind) ([]string, error)
	// FindRoutine reports false when no routine of that kind and name exists.
	FindRoutine(ctx context.Context, schemaName, name string, kind schema.ObjectKind) (schema.Routine, bool, error)
}

// Catalog is one side of a comparison. Implementations are not required to
// be safe for concurrent use.
type Catalog interface {
	Inspector
	RoutineCatalog
	Close(ctx context.Context) error
}
