package format

import (
	"fmt"

	"go.uber.org/zap"

	"benritz/schemadiff/internal/schema"
)

// Formatter flattens ObjectSchemas into comparison ready records. A type
// string that does not parse skips its column with a warning, or fails the
// object when strict.
type Formatter struct {
	logger *zap.Logger
	strict bool
}

type Option func(*Formatter)

func WithLogger(l *zap.Logger) Option {
	return func(f *Formatter) {
		f.logger = l
	}
}

func WithStrictTypes(v bool) Option {
	return func(f *Formatter) {
		f.strict = v
	}
}

func New(opts ...Option) *Formatter {
	f := Formatter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&f)
	}
	return &f
}

// Format builds the record of one object: columns first in catalog order,
// then primary_key, foreign_keys, unique_constraints and check_constraints.
// Routines carry only a definition. An object that was not found gives an
// empty record.
func (f *Formatter) Format(obj schema.ObjectSchema) (*schema.Record, error) {
	rec := schema.NewRecord()

	if obj.Kind.IsRoutine() {
		if obj.Definition != nil {
			rec.Set(schema.FieldDefinition, schema.Definition(*obj.Definition))
		}
		return rec, nil
	}

	for _, col := range obj.Columns {
		field, err := FormatColumn(col)
		if err != nil {
			if f.strict {
				return nil, fmt.Errorf("%s: column %s: %w", obj.Name, col.Name, err)
			}
			f.logger.Warn("skipping column with unparsable type",
				zap.String("object", obj.Name),
				zap.String("field", col.Name),
				zap.String("type", col.RawType),
				zap.Error(err))
			continue
		}
		rec.Set(col.Name, field)
	}

	if obj.PrimaryKey != nil {
		rec.Set(schema.FieldPrimaryKey, schema.KeyColumns(obj.PrimaryKey))
	}
	if obj.ForeignKeys != nil {
		rec.Set(schema.FieldForeignKeys, schema.ForeignKeys(obj.ForeignKeys))
	}
	if obj.UniqueConstraints != nil {
		rec.Set(schema.FieldUniqueConstraints, schema.UniqueConstraints(obj.UniqueConstraints))
	}
	if obj.CheckConstraints != nil {
		rec.Set(schema.FieldCheckConstraints, schema.CheckConstraints(obj.CheckConstraints))
	}

	return rec, nil
}

func FormatColumn(col schema.Column) (schema.Field, error) {
	spec, err := ParseType(col.RawType)
	if err != nil {
		return schema.Field{}, err
	}
	return schema.Field{
		Datatype:   spec.Datatype,
		Length:     spec.Length,
		Precision:  spec.Precision,
		Scale:      spec.Scale,
		Default:    col.Default,
		IsNullable: col.Nullable,
	}, nil
}
