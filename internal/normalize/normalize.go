package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/schema"
)

// RawObject is everything a catalog reported for one object. Found is false
// when the object does not exist on that side.
type RawObject struct {
	Name              string
	Kind              schema.ObjectKind
	Found             bool
	Columns           []schema.RawColumn
	PrimaryKey        []string
	ForeignKeys       []schema.RawForeignKey
	UniqueConstraints [][]string
	// CheckConstraints is nil when the catalog cannot introspect them.
	CheckConstraints []string
	Routine          schema.Routine
}

type Normalizer struct {
	logger *zap.Logger
}

type Option func(*Normalizer)

func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) {
		n.logger = l
	}
}

func New(opts ...Option) *Normalizer {
	n := Normalizer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&n)
	}
	return &n
}

// Normalize collects one object from the catalog and builds its ObjectSchema.
// A missing object yields an empty schema and no error.
func (n *Normalizer) Normalize(ctx context.Context, cat dialect.Catalog, schemaName, name string, kind schema.ObjectKind) (schema.ObjectSchema, error) {
	raw, err := n.Collect(ctx, cat, schemaName, name, kind)
	if err != nil {
		return schema.ObjectSchema{}, err
	}
	return Build(raw)
}

// Collect runs the catalog queries for one object. Catalog failures are
// returned unchanged apart from wrapping.
func (n *Normalizer) Collect(ctx context.Context, cat dialect.Catalog, schemaName, name string, kind schema.ObjectKind) (RawObject, error) {
	raw := RawObject{Name: name, Kind: kind}

	switch kind {
	case schema.KindFunction, schema.KindProcedure:
		routine, found, err := cat.FindRoutine(ctx, schemaName, name, kind)
		if err != nil {
			return raw, fmt.Errorf("failed to read %s %s: %w", kind, name, err)
		}
		raw.Found = found
		raw.Routine = routine
		return raw, nil

	case schema.KindTable, schema.KindView:
		columns, err := cat.Columns(ctx, schemaName, name)
		if errors.Is(err, dialect.ErrNotFound) {
			n.logger.Debug("object not found", zap.String("object", name), zap.String("kind", string(kind)))
			return raw, nil
		}
		if err != nil {
			return raw, fmt.Errorf("failed to read columns of %s: %w", name, err)
		}
		raw.Found = true
		raw.Columns = columns

	default:
		return raw, fmt.Errorf("%w: object kind %q", schema.ErrInvalidArgument, kind)
	}

	if kind == schema.KindView {
		return raw, nil
	}

	var err error
	if raw.PrimaryKey, err = cat.PrimaryKey(ctx, schemaName, name); err != nil {
		return raw, fmt.Errorf("failed to read primary key of %s: %w", name, err)
	}
	if raw.ForeignKeys, err = cat.ForeignKeys(ctx, schemaName, name); err != nil {
		return raw, fmt.Errorf("failed to read foreign keys of %s: %w", name, err)
	}
	if raw.UniqueConstraints, err = cat.UniqueConstraints(ctx, schemaName, name); err != nil {
		return raw, fmt.Errorf("failed to read unique constraints of %s: %w", name, err)
	}

	raw.CheckConstraints, err = cat.CheckConstraints(ctx, schemaName, name)
	switch {
	case errors.Is(err, dialect.ErrNotSupported):
		n.logger.Info("check constraints not supported", zap.String("object", name))
		raw.CheckConstraints = nil
	case err != nil:
		return raw, fmt.Errorf("failed to read check constraints of %s: %w", name, err)
	}

	return raw, nil
}

// Build turns collected metadata into an ObjectSchema. Optional sequences
// are attached only when non-empty.
func Build(raw RawObject) (schema.ObjectSchema, error) {
	obj := schema.ObjectSchema{Name: raw.Name, Kind: raw.Kind}

	switch raw.Kind {
	case schema.KindTable, schema.KindView, schema.KindFunction, schema.KindProcedure:
	default:
		return obj, fmt.Errorf("%w: object kind %q", schema.ErrInvalidArgument, raw.Kind)
	}

	if !raw.Found {
		return obj, nil
	}

	if raw.Kind.IsRoutine() {
		definition := raw.Routine.Definition
		obj.Definition = &definition
		return obj, nil
	}

	seen := make(map[string]struct{}, len(raw.Columns))
	for i, c := range raw.Columns {
		if c.Name == "" {
			return obj, fmt.Errorf("%w: %s: column %d has no name", schema.ErrInvalidMetadata, raw.Name, i+1)
		}
		if _, ok := seen[c.Name]; ok {
			return obj, fmt.Errorf("%w: %s: duplicate column %s", schema.ErrInvalidMetadata, raw.Name, c.Name)
		}
		seen[c.Name] = struct{}{}

		rawType := strings.ToUpper(strings.TrimSpace(c.Type))
		if rawType == "" {
			return obj, fmt.Errorf("%w: %s: column %s has no type", schema.ErrInvalidMetadata, raw.Name, c.Name)
		}
		if args := strings.TrimSpace(c.TypeArgs); args != "" && !strings.Contains(rawType, "(") {
			rawType += "(" + args + ")"
		}

		col := schema.Column{Name: c.Name, RawType: rawType, Nullable: c.Nullable}
		if c.Default != nil && *c.Default != "" {
			d := *c.Default
			col.Default = &d
		}
		obj.Columns = append(obj.Columns, col)
	}

	if len(raw.PrimaryKey) > 0 {
		obj.PrimaryKey = raw.PrimaryKey
	}
	for _, fk := range raw.ForeignKeys {
		obj.ForeignKeys = append(obj.ForeignKeys, schema.ForeignKey{
			Columns:           fk.Columns,
			ReferencedTable:   fk.ReferencedTable,
			ReferencedColumns: fk.ReferencedColumns,
		})
	}
	if len(raw.UniqueConstraints) > 0 {
		obj.UniqueConstraints = raw.UniqueConstraints
	}
	if len(raw.CheckConstraints) > 0 {
		obj.CheckConstraints = raw.CheckConstraints
	}

	return obj, nil
}
