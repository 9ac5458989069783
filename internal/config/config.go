package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"benritz/schemadiff/internal/compare"
	"benritz/schemadiff/internal/report"
	"benritz/schemadiff/internal/schema"
)

type Root struct {
	Source      Endpoint      `yaml:"source"`
	Target      Endpoint      `yaml:"target"`
	Compare     []string      `yaml:"compare"`
	Lookup      LookupSection `yaml:"lookup"`
	Output      OutputSection `yaml:"output"`
	Parallel    bool          `yaml:"parallel"`
	StrictTypes bool          `yaml:"strict_types"`
	Log         LogSection    `yaml:"log"`
}

type Endpoint struct {
	URL    string `yaml:"url"`
	Schema string `yaml:"schema"`
}

type LookupSection struct {
	Enabled          bool   `yaml:"enabled"`
	Tables           string `yaml:"tables"`
	Views            string `yaml:"views"`
	Functions        string `yaml:"functions"`
	StoredProcedures string `yaml:"stored_procedures"`
}

type OutputSection struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"`
}

type LogSection struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LoadFile reads a config file; relative !include paths and lookup files
// resolve against the file's directory.
func LoadFile(path string) (*Root, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(path)
	expanded, err := ExpandIncludes(raw, baseDir)
	if err != nil {
		return nil, fmt.Errorf("expanding includes: %w", err)
	}
	cfg, err := Load(bytes.NewReader(expanded))
	if err != nil {
		return nil, err
	}
	cfg.Lookup.resolve(baseDir)
	return cfg, nil
}

func Load(r io.Reader) (*Root, error) {
	var rs io.ReadSeeker
	if seeker, ok := r.(io.ReadSeeker); ok {
		rs = seeker
	} else {
		buf, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		rs = bytes.NewReader(buf)
	}
	if err := validateReader(rs); err != nil {
		return nil, err
	}
	var cfg Root
	dec := yaml.NewDecoder(rs)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, err
	}
	expandEnv(&cfg)
	return &cfg, nil
}

func expandEnv(cfg *Root) {
	cfg.Source.URL = os.ExpandEnv(cfg.Source.URL)
	cfg.Target.URL = os.ExpandEnv(cfg.Target.URL)
	cfg.Output.Directory = os.ExpandEnv(cfg.Output.Directory)
}

func (l *LookupSection) resolve(baseDir string) {
	for _, p := range []*string{&l.Tables, &l.Views, &l.Functions, &l.StoredProcedures} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
}

// Files keys the lookup paths by comparison type.
func (l LookupSection) Files() map[schema.ComparisonType]string {
	return map[schema.ComparisonType]string{
		schema.Tables:           l.Tables,
		schema.Views:            l.Views,
		schema.Functions:        l.Functions,
		schema.StoredProcedures: l.StoredProcedures,
	}
}

// ParseComparisonTypes parses the compare list; nil means every type.
func ParseComparisonTypes(values []string) ([]schema.ComparisonType, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]schema.ComparisonType, 0, len(values))
	for _, v := range values {
		ct, err := schema.ParseComparisonType(v)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

// Options converts the config into comparison options. Unset values leave
// the comparison defaults in place.
func (c *Root) Options() ([]compare.Option, error) {
	opts := []compare.Option{
		compare.WithSourceURL(c.Source.URL),
		compare.WithTargetURL(c.Target.URL),
		compare.WithSourceSchema(c.Source.Schema),
		compare.WithTargetSchema(c.Target.Schema),
		compare.WithLookup(c.Lookup.Enabled, c.Lookup.Files()),
		compare.WithParallel(c.Parallel),
		compare.WithStrictTypes(c.StrictTypes),
	}

	types, err := ParseComparisonTypes(c.Compare)
	if err != nil {
		return nil, err
	}
	if types != nil {
		opts = append(opts, compare.WithComparisonTypes(types...))
	}

	if c.Output.Directory != "" {
		opts = append(opts, compare.WithOutputDir(c.Output.Directory))
	}
	if c.Output.Format != "" {
		f, err := report.ParseFormat(c.Output.Format)
		if err != nil {
			return nil, err
		}
		opts = append(opts, compare.WithOutputFormat(f))
	}

	return opts, nil
}
