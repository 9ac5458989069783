package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Value is one formatted field of a Record.
type Value interface {
	value()
}

// Field is a formatted column. Length excludes Precision and Scale.
type Field struct {
	Datatype   string  `json:"datatype" yaml:"datatype"`
	Length     *int    `json:"length,omitempty" yaml:"length,omitempty"`
	Precision  *int    `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale      *int    `json:"scale,omitempty" yaml:"scale,omitempty"`
	Default    *string `json:"default,omitempty" yaml:"default,omitempty"`
	IsNullable *bool   `json:"is_nullable" yaml:"is_nullable"`
}

type KeyColumns []string

type ForeignKeys []ForeignKey

type UniqueConstraints [][]string

type CheckConstraints []string

type Definition string

func (Field) value()             {}
func (KeyColumns) value()        {}
func (ForeignKeys) value()       {}
func (UniqueConstraints) value() {}
func (CheckConstraints) value()  {}
func (Definition) value()        {}

// Equal is exact structural equality. An absent optional attribute never
// equals a present one, whatever its value.
func (f Field) Equal(o Field) bool {
	return f.Datatype == o.Datatype &&
		ptrEqual(f.Length, o.Length) &&
		ptrEqual(f.Precision, o.Precision) &&
		ptrEqual(f.Scale, o.Scale) &&
		ptrEqual(f.Default, o.Default) &&
		ptrEqual(f.IsNullable, o.IsNullable)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Field:
		bv, ok := b.(Field)
		return ok && av.Equal(bv)
	case KeyColumns:
		bv, ok := b.(KeyColumns)
		return ok && slices.Equal(av, bv)
	case CheckConstraints:
		bv, ok := b.(CheckConstraints)
		return ok && slices.Equal(av, bv)
	case UniqueConstraints:
		bv, ok := b.(UniqueConstraints)
		return ok && slices.EqualFunc(av, bv, func(x, y []string) bool { return slices.Equal(x, y) })
	case ForeignKeys:
		bv, ok := b.(ForeignKeys)
		return ok && slices.EqualFunc(av, bv, func(x, y ForeignKey) bool {
			return x.ReferencedTable == y.ReferencedTable &&
				slices.Equal(x.Columns, y.Columns) &&
				slices.Equal(x.ReferencedColumns, y.ReferencedColumns)
		})
	case Definition:
		bv, ok := b.(Definition)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

// Render gives the compact JSON form used in difference messages.
func Render(v Value) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
