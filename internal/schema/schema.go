package schema

import (
	"errors"
	"fmt"
	"strings"

	"benritz/schemadiff/internal/ordered"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidMetadata = errors.New("invalid catalog metadata")
	ErrInvalidType     = errors.New("invalid type string")
)

type ObjectKind string

const (
	KindTable     ObjectKind = "table"
	KindView      ObjectKind = "view"
	KindFunction  ObjectKind = "function"
	KindProcedure ObjectKind = "procedure"
)

func (k ObjectKind) IsRoutine() bool {
	return k == KindFunction || k == KindProcedure
}

func ParseObjectKind(s string) (ObjectKind, error) {
	switch k := ObjectKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTable, KindView, KindFunction, KindProcedure:
		return k, nil
	default:
		return "", fmt.Errorf("%w: object kind %q", ErrInvalidArgument, s)
	}
}

// ComparisonType is one of the object families compared in a run.
type ComparisonType string

const (
	Tables           ComparisonType = "tables"
	Views            ComparisonType = "views"
	Functions        ComparisonType = "functions"
	StoredProcedures ComparisonType = "stored_procedures"
)

var AllComparisonTypes = []ComparisonType{Tables, Views, Functions, StoredProcedures}

func ParseComparisonType(s string) (ComparisonType, error) {
	switch ct := ComparisonType(strings.ToLower(strings.TrimSpace(s))); ct {
	case Tables, Views, Functions, StoredProcedures:
		return ct, nil
	default:
		return "", fmt.Errorf("%w: comparison type %q", ErrInvalidArgument, s)
	}
}

func (c ComparisonType) Kind() ObjectKind {
	switch c {
	case Tables:
		return KindTable
	case Views:
		return KindView
	case Functions:
		return KindFunction
	case StoredProcedures:
		return KindProcedure
	}
	return ""
}

// Title upper-cases the first letter and lower-cases the rest, so
// "stored_procedures" becomes "Stored_procedures".
func (c ComparisonType) Title() string {
	s := strings.ToLower(string(c))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// RawColumn is a column as reported by a catalog, before normalization.
type RawColumn struct {
	Name string
	Type string
	// TypeArgs is the length or "precision,scale" attribute when the
	// backend reports it apart from the type name.
	TypeArgs string
	Nullable *bool
	Default  *string
}

type RawForeignKey struct {
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
}

type Routine struct {
	Name       string
	Definition string
}

type Column struct {
	Name     string
	RawType  string
	Nullable *bool
	Default  *string
}

type ForeignKey struct {
	Columns           []string `json:"column" yaml:"column"`
	ReferencedTable   string   `json:"referenced_table" yaml:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns" yaml:"referenced_columns"`
}

// ObjectSchema is the canonical description of one table, view or routine.
// Optional sequences are nil when absent.
type ObjectSchema struct {
	Name              string
	Kind              ObjectKind
	Columns           []Column
	PrimaryKey        []string
	ForeignKeys       []ForeignKey
	UniqueConstraints [][]string
	CheckConstraints  []string
	Definition        *string
}

// Empty reports whether the object was not found on its side.
func (o ObjectSchema) Empty() bool {
	return len(o.Columns) == 0 && o.Definition == nil &&
		o.PrimaryKey == nil && o.ForeignKeys == nil &&
		o.UniqueConstraints == nil && o.CheckConstraints == nil
}

const (
	FieldPrimaryKey        = "primary_key"
	FieldForeignKeys       = "foreign_keys"
	FieldUniqueConstraints = "unique_constraints"
	FieldCheckConstraints  = "check_constraints"
	FieldDefinition        = "definition"
)

// Record is the formatted, comparison ready form of one object keyed by
// field name.
type Record = ordered.Map[Value]

// FormattedSchema maps object names to their formatted records.
type FormattedSchema = ordered.Map[*Record]

// DifferenceReport maps object names to difference messages.
type DifferenceReport = ordered.Map[[]string]

func NewRecord() *Record {
	return ordered.New[Value]()
}

func NewFormattedSchema() *FormattedSchema {
	return ordered.New[*Record]()
}

func NewDifferenceReport() *DifferenceReport {
	return ordered.New[[]string]()
}
