// Package dialecttest provides an in-memory dialect.Catalog for tests.
package dialecttest

import (
	"context"
	"fmt"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/schema"
)

type Object struct {
	Name              string
	Columns           []schema.RawColumn
	PrimaryKey        []string
	ForeignKeys       []schema.RawForeignKey
	UniqueConstraints [][]string
	CheckConstraints  []string
	// ChecksErr is returned by CheckConstraints, e.g. dialect.ErrNotSupported.
	ChecksErr error
}

type Routine struct {
	Kind schema.ObjectKind
	schema.Routine
}

// Catalog serves objects in the order given. When Err is set every query
// fails with it.
type Catalog struct {
	Tables   []Object
	Views    []Object
	Routines []Routine
	Err      error
	Closed   bool
}

var _ dialect.Catalog = (*Catalog)(nil)

func (c *Catalog) Close(context.Context) error {
	c.Closed = true
	return nil
}

func names(objs []Object) []string {
	out := []string{}
	for _, o := range objs {
		out = append(out, o.Name)
	}
	return out
}

func (c *Catalog) ListTableNames(context.Context, string) ([]string, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return names(c.Tables), nil
}

func (c *Catalog) ListViewNames(context.Context, string) ([]string, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return names(c.Views), nil
}

func (c *Catalog) find(name string) (Object, error) {
	if c.Err != nil {
		return Object{}, c.Err
	}
	for _, objs := range [][]Object{c.Tables, c.Views} {
		for _, o := range objs {
			if o.Name == name {
				return o, nil
			}
		}
	}
	return Object{}, fmt.Errorf("%s: %w", name, dialect.ErrNotFound)
}

func (c *Catalog) Columns(_ context.Context, _ string, object string) ([]schema.RawColumn, error) {
	o, err := c.find(object)
	if err != nil {
		return nil, err
	}
	return o.Columns, nil
}

func (c *Catalog) PrimaryKey(_ context.Context, _ string, object string) ([]string, error) {
	o, err := c.find(object)
	return o.PrimaryKey, err
}

func (c *Catalog) ForeignKeys(_ context.Context, _ string, object string) ([]schema.RawForeignKey, error) {
	o, err := c.find(object)
	return o.ForeignKeys, err
}

func (c *Catalog) UniqueConstraints(_ context.Context, _ string, object string) ([][]string, error) {
	o, err := c.find(object)
	return o.UniqueConstraints, err
}

func (c *Catalog) CheckConstraints(_ context.Context, _ string, object string) ([]string, error) {
	o, err := c.find(object)
	if err != nil {
		return nil, err
	}
	if o.ChecksErr != nil {
		return nil, o.ChecksErr
	}
	return o.CheckConstraints, nil
}

func (c *Catalog) ListRoutineNames(_ context.Context, _ string, kind schema.ObjectKind) ([]string, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	out := []string{}
	for _, r := range c.Routines {
		if r.Kind == kind {
			out = append(out, r.Name)
		}
	}
	return out, nil
}

func (c *Catalog) FindRoutine(_ context.Context, _ string, name string, kind schema.ObjectKind) (schema.Routine, bool, error) {
	if c.Err != nil {
		return schema.Routine{}, false, c.Err
	}
	for _, r := range c.Routines {
		if r.Kind == kind && r.Name == name {
			return r.Routine, true, nil
		}
	}
	return schema.Routine{}, false, nil
}

// Col builds a RawColumn.
func Col(name, typ string, nullable bool) schema.RawColumn {
	return schema.RawColumn{Name: name, Type: typ, Nullable: &nullable}
}
