package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/yaml"
)

//go:embed config.cue
var configCue string

type compiledSchema struct {
	ctx    *cue.Context
	config cue.Value
}

var loadSchema = sync.OnceValues(func() (compiledSchema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(configCue, cue.Filename("config.cue"))
	if err := v.Err(); err != nil {
		return compiledSchema{}, fmt.Errorf("building config schema: %w", err)
	}
	config := v.LookupPath(cue.ParsePath("config"))
	if !config.Exists() {
		return compiledSchema{}, fmt.Errorf("config value not found in schema")
	}
	return compiledSchema{ctx: ctx, config: config}, nil
})

// cue values of one context must not be used concurrently
var validateMu sync.Mutex

// Validate checks raw YAML against the embedded schema. Every violation is
// listed in the returned error.
func Validate(raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	validateMu.Lock()
	defer validateMu.Unlock()

	s, err := loadSchema()
	if err != nil {
		return err
	}

	f, err := yaml.Extract("config.yaml", raw)
	if err != nil {
		return fmt.Errorf("decode yaml to cue: %w", err)
	}
	data := s.ctx.BuildFile(f)
	if err := data.Err(); err != nil {
		return fmt.Errorf("building yaml cue value: %w", err)
	}

	if err := s.config.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config:\n%s", cueerrors.Details(err, nil))
	}
	return nil
}

func validateReader(r io.ReadSeeker) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := Validate(raw); err != nil {
		return err
	}
	_, err = r.Seek(0, io.SeekStart)
	return err
}
