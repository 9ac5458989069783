package compare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"benritz/schemadiff/internal/dialect"
	"benritz/schemadiff/internal/diff"
	"benritz/schemadiff/internal/format"
	"benritz/schemadiff/internal/lookup"
	"benritz/schemadiff/internal/normalize"
	"benritz/schemadiff/internal/report"
	"benritz/schemadiff/internal/schema"
)

type Comparison struct {
	sourceURL    string
	targetURL    string
	sourceSchema string
	targetSchema string
	types        []schema.ComparisonType
	useLookup    bool
	lookupFiles  map[schema.ComparisonType]string
	outputDir    string
	outputFormat report.Format
	parallel     bool
	strictTypes  bool
	logger       *zap.Logger
	open         OpenFunc
	now          func() time.Time

	normalizer *normalize.Normalizer
	formatter  *format.Formatter
}

type Option func(*Comparison)

// Result holds the run directory and the difference report of every
// comparison type that completed.
type Result struct {
	Dir         string
	Differences map[schema.ComparisonType]*schema.DifferenceReport
}

func New(opts ...Option) (*Comparison, error) {
	c := Comparison{
		types:        schema.AllComparisonTypes,
		lookupFiles:  map[schema.ComparisonType]string{},
		outputDir:    "output",
		outputFormat: report.JSON,
		logger:       zap.NewNop(),
		open:         OpenCatalog,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(&c)
	}

	if c.sourceURL == "" {
		return nil, fmt.Errorf("missing source database connection URL")
	}
	if c.targetURL == "" {
		return nil, fmt.Errorf("missing target database connection URL")
	}
	if len(c.types) == 0 {
		return nil, fmt.Errorf("%w: no comparison types", schema.ErrInvalidArgument)
	}
	types := make([]schema.ComparisonType, len(c.types))
	for i, ct := range c.types {
		parsed, err := schema.ParseComparisonType(string(ct))
		if err != nil {
			return nil, err
		}
		types[i] = parsed
	}
	c.types = types
	if _, err := report.ParseFormat(string(c.outputFormat)); err != nil {
		return nil, err
	}

	c.normalizer = normalize.New(normalize.WithLogger(c.logger))
	c.formatter = format.New(format.WithLogger(c.logger), format.WithStrictTypes(c.strictTypes))

	return &c, nil
}

func WithSourceURL(u string) Option {
	return func(c *Comparison) {
		c.sourceURL = u
	}
}
func WithTargetURL(u string) Option {
	return func(c *Comparison) {
		c.targetURL = u
	}
}
func WithSourceSchema(s string) Option {
	return func(c *Comparison) {
		c.sourceSchema = s
	}
}
func WithTargetSchema(s string) Option {
	return func(c *Comparison) {
		c.targetSchema = s
	}
}

func WithComparisonTypes(types ...schema.ComparisonType) Option {
	return func(c *Comparison) {
		c.types = types
	}
}

// WithLookup enables lookup files, keyed by comparison type.
func WithLookup(enabled bool, files map[schema.ComparisonType]string) Option {
	return func(c *Comparison) {
		c.useLookup = enabled
		for ct, path := range files {
			c.lookupFiles[ct] = path
		}
	}
}

func WithOutputDir(dir string) Option {
	return func(c *Comparison) {
		c.outputDir = dir
	}
}
func WithOutputFormat(f report.Format) Option {
	return func(c *Comparison) {
		c.outputFormat = f
	}
}
func WithParallel(v bool) Option {
	return func(c *Comparison) {
		c.parallel = v
	}
}
func WithStrictTypes(v bool) Option {
	return func(c *Comparison) {
		c.strictTypes = v
	}
}
func WithLogger(l *zap.Logger) Option {
	return func(c *Comparison) {
		c.logger = l
	}
}

// WithOpener replaces OpenCatalog, which lets callers supply their own
// catalogs.
func WithOpener(open OpenFunc) Option {
	return func(c *Comparison) {
		c.open = open
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Comparison) {
		c.now = now
	}
}

// Run compares every configured type. A type whose catalog queries fail is
// abandoned and the run moves on; all such failures are returned joined.
func (c *Comparison) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	source, err := c.open(ctx, c.sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source: %w", err)
	}
	defer source.Close(ctx)

	target, err := c.open(ctx, c.targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target: %w", err)
	}
	defer target.Close(ctx)

	w, err := report.NewWriter(c.outputDir, c.now(),
		report.WithFormat(c.outputFormat),
		report.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Dir:         w.Dir(),
		Differences: map[schema.ComparisonType]*schema.DifferenceReport{},
	}

	var errs []error
	for _, ct := range c.types {
		c.logger.Info("starting comparison", zap.String("type", string(ct)))

		diffs, err := c.CompareType(ctx, w, source, target, ct)
		if err != nil {
			c.logger.Error("comparison failed", zap.String("type", string(ct)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", ct, err))
			continue
		}
		res.Differences[ct] = diffs

		c.logger.Info("completed comparison",
			zap.String("type", string(ct)),
			zap.Int("differences", diffs.Len()))
	}

	c.logger.Info("run finished", zap.String("dir", res.Dir), zap.Duration("elapsed", time.Since(start)))

	return res, errors.Join(errs...)
}

// CompareType builds both sides of one comparison type, writes them and
// their differences, and returns the differences.
func (c *Comparison) CompareType(ctx context.Context, w *report.Writer, source, target dialect.Catalog, ct schema.ComparisonType) (*schema.DifferenceReport, error) {
	kind := ct.Kind()
	if kind == "" {
		return nil, fmt.Errorf("%w: comparison type %q", schema.ErrInvalidArgument, ct)
	}

	names, fromLookup, err := c.lookupNames(ct)
	if err != nil {
		return nil, err
	}

	var sourceFormatted, targetFormatted *schema.FormattedSchema

	buildSource := func(ctx context.Context) (err error) {
		sourceNames := names
		if !fromLookup {
			if sourceNames, err = ListNames(ctx, source, c.sourceSchema, kind); err != nil {
				return fmt.Errorf("failed to list source %ss: %w", kind, err)
			}
		}
		sourceFormatted, err = c.buildSide(ctx, report.Source, source, c.sourceSchema, sourceNames, kind)
		return err
	}
	buildTarget := func(ctx context.Context) (err error) {
		targetNames := names
		if !fromLookup {
			if targetNames, err = ListNames(ctx, target, c.targetSchema, kind); err != nil {
				return fmt.Errorf("failed to list target %ss: %w", kind, err)
			}
		}
		targetFormatted, err = c.buildSide(ctx, report.Target, target, c.targetSchema, targetNames, kind)
		return err
	}

	if c.parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return buildSource(gctx) })
		g.Go(func() error { return buildTarget(gctx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if err := buildSource(ctx); err != nil {
			return nil, err
		}
		if err := buildTarget(ctx); err != nil {
			return nil, err
		}
	}

	if _, err := w.WriteSchema(ct, report.Source, sourceFormatted); err != nil {
		return nil, err
	}
	if _, err := w.WriteSchema(ct, report.Target, targetFormatted); err != nil {
		return nil, err
	}

	diffs := diff.Compare(sourceFormatted, targetFormatted)
	if _, err := w.WriteDifferences(ct, diffs); err != nil {
		return nil, err
	}
	return diffs, nil
}

func (c *Comparison) lookupNames(ct schema.ComparisonType) ([]string, bool, error) {
	if !c.useLookup {
		return nil, false, nil
	}
	path := c.lookupFiles[ct]
	names, ok, err := lookup.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read lookup file: %w", err)
	}
	if !ok {
		c.logger.Warn("lookup file not found, enumerating catalog",
			zap.String("type", string(ct)), zap.String("path", path))
		return nil, false, nil
	}
	return names, true, nil
}

// buildSide formats every named object of one side. Objects with invalid
// metadata or unparsable types are logged and left out; any other error
// aborts the side.
func (c *Comparison) buildSide(ctx context.Context, side report.Side, cat dialect.Catalog, schemaName string, names []string, kind schema.ObjectKind) (*schema.FormattedSchema, error) {
	out := schema.NewFormattedSchema()
	for _, name := range names {
		c.logger.Debug("processing object",
			zap.String("side", string(side)),
			zap.String("kind", string(kind)),
			zap.String("object", name))

		rec, err := c.NormalizeAndFormat(ctx, cat, schemaName, name, kind)
		if errors.Is(err, schema.ErrInvalidMetadata) || errors.Is(err, schema.ErrInvalidType) {
			c.logger.Error("skipping object",
				zap.String("side", string(side)),
				zap.String("object", name),
				zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Set(name, rec)
	}
	return out, nil
}

// NormalizeAndFormat reads one object from a catalog and returns its
// formatted record. A missing object gives an empty record.
func (c *Comparison) NormalizeAndFormat(ctx context.Context, cat dialect.Catalog, schemaName, name string, kind schema.ObjectKind) (*schema.Record, error) {
	obj, err := c.normalizer.Normalize(ctx, cat, schemaName, name, kind)
	if err != nil {
		return nil, err
	}
	return c.formatter.Format(obj)
}

// ListNames enumerates the objects of one kind.
func ListNames(ctx context.Context, cat dialect.Catalog, schemaName string, kind schema.ObjectKind) ([]string, error) {
	switch kind {
	case schema.KindTable:
		return cat.ListTableNames(ctx, schemaName)
	case schema.KindView:
		return cat.ListViewNames(ctx, schemaName)
	case schema.KindFunction, schema.KindProcedure:
		return cat.ListRoutineNames(ctx, schemaName, kind)
	default:
		return nil, fmt.Errorf("%w: object kind %q", schema.ErrInvalidArgument, kind)
	}
}
