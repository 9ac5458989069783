package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"benritz/schemadiff/internal/schema"
)

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "", JSON:
		return JSON, nil
	case YAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: output format %q", schema.ErrInvalidArgument, s)
	}
}

type Side string

const (
	Source Side = "Source"
	Target Side = "Target"
)

const differencesKey = "SchemaDifferences"

// Writer persists the documents of one run under
// <base>/SchemaValidator_YYYYMMDD_HHMMSS/<type>/.
type Writer struct {
	dir    string
	format Format
	logger *zap.Logger
}

type Option func(*Writer)

func WithFormat(f Format) Option {
	return func(w *Writer) {
		w.format = f
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Writer) {
		w.logger = l
	}
}

// NewWriter creates the run directory for a run started at now.
func NewWriter(baseDir string, now time.Time, opts ...Option) (*Writer, error) {
	w := Writer{
		dir:    filepath.Join(baseDir, now.Format("SchemaValidator_20060102_150405")),
		format: JSON,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&w)
	}
	if w.format != JSON && w.format != YAML {
		return nil, fmt.Errorf("%w: output format %q", schema.ErrInvalidArgument, w.format)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &w, nil
}

func (w *Writer) Dir() string {
	return w.dir
}

// WriteSchema writes {"<Side>Schema_<Title>": s} to <Side>Schema_<type>.<ext>.
func (w *Writer) WriteSchema(ct schema.ComparisonType, side Side, s *schema.FormattedSchema) (string, error) {
	prefix := string(side) + "Schema"
	return w.write(ct, prefix+"_"+string(ct), prefix+"_"+ct.Title(), s)
}

// WriteDifferences writes {"SchemaDifferences": r} to SchemaDifferences_<type>.<ext>.
func (w *Writer) WriteDifferences(ct schema.ComparisonType, r *schema.DifferenceReport) (string, error) {
	return w.write(ct, differencesKey+"_"+string(ct), differencesKey, r)
}

func (w *Writer) write(ct schema.ComparisonType, base, key string, value any) (string, error) {
	dir := filepath.Join(w.dir, string(ct))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := Encode(w.format, map[string]any{key: value})
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", key, err)
	}

	path := filepath.Join(dir, base+"."+string(w.format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.logger.Info("report saved", zap.String("document", key), zap.String("path", path))
	return path, nil
}

// Encode renders a document with four space indentation.
func Encode(f Format, doc any) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case YAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(4)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
