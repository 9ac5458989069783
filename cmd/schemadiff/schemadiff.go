package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"benritz/schemadiff/internal/compare"
	"benritz/schemadiff/internal/config"
	"benritz/schemadiff/internal/report"
)

// exitDifferences is returned with --fail-on-diff when any report is non-empty.
const exitDifferences = 2

var errDifferences = errors.New("schema differences found")

type cliFlags struct {
	configPath   string
	sourceURL    string
	targetURL    string
	sourceSchema string
	targetSchema string
	compareTypes []string
	outputDir    string
	outputFormat string
	useLookup    bool
	parallel     bool
	strictTypes  bool
	logLevel     string
	logDev       bool
	failOnDiff   bool
}

// newRootCmd builds the command; open connects to the source and target.
func newRootCmd(open compare.OpenFunc) *cobra.Command {
	var opts cliFlags
	cmd := &cobra.Command{
		Use:   "schemadiff",
		Short: "Compare the schema of two relational databases",
		Long: "Compares tables, views, functions and stored procedures of a source and a target database " +
			"and writes both schemas and their differences to a timestamped report directory.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, &opts, open)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Config file")
	f.StringVar(&opts.sourceURL, "source", "", "Source database connection URL")
	f.StringVar(&opts.targetURL, "target", "", "Target database connection URL")
	f.StringVar(&opts.sourceSchema, "source-schema", "", "Source schema name (dialect default when empty)")
	f.StringVar(&opts.targetSchema, "target-schema", "", "Target schema name (dialect default when empty)")
	f.StringSliceVar(&opts.compareTypes, "compare", nil, "Comparison types: tables, views, functions, stored_procedures")
	f.StringVar(&opts.outputDir, "output", "output", "Report base directory")
	f.StringVar(&opts.outputFormat, "format", "json", "Report format, json or yaml")
	f.BoolVar(&opts.useLookup, "lookup", false, "Use the lookup files from the config instead of enumerating objects")
	f.BoolVar(&opts.parallel, "parallel", false, "Read source and target concurrently")
	f.BoolVar(&opts.strictTypes, "strict-types", false, "Fail an object when a column type does not parse")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.BoolVar(&opts.logDev, "log-dev", false, "Human readable console logging")
	f.BoolVar(&opts.failOnDiff, "fail-on-diff", false, "Exit with status 2 when differences are found")
	return cmd
}

func newLogger(level string, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}

func run(cmd *cobra.Command, o *cliFlags, open compare.OpenFunc) error {
	flags := cmd.Flags()

	var cfg *config.Root
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(o.configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = &config.Root{}
	}

	if flags.Changed("log-level") || cfg.Log.Level == "" {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-dev") {
		cfg.Log.Development = o.logDev
	}
	logger, err := newLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	defer logger.Sync()

	opts, err := cfg.Options()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	opts = append(opts, compare.WithLogger(logger), compare.WithOpener(open))

	if flags.Changed("source") {
		opts = append(opts, compare.WithSourceURL(o.sourceURL))
	}
	if flags.Changed("target") {
		opts = append(opts, compare.WithTargetURL(o.targetURL))
	}
	if flags.Changed("source-schema") {
		opts = append(opts, compare.WithSourceSchema(o.sourceSchema))
	}
	if flags.Changed("target-schema") {
		opts = append(opts, compare.WithTargetSchema(o.targetSchema))
	}
	if flags.Changed("compare") {
		types, err := config.ParseComparisonTypes(o.compareTypes)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		opts = append(opts, compare.WithComparisonTypes(types...))
	}
	if flags.Changed("output") {
		opts = append(opts, compare.WithOutputDir(o.outputDir))
	}
	if flags.Changed("format") {
		f, err := report.ParseFormat(strings.ToLower(o.outputFormat))
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		opts = append(opts, compare.WithOutputFormat(f))
	}
	if flags.Changed("lookup") {
		opts = append(opts, compare.WithLookup(o.useLookup, nil))
	}
	if flags.Changed("parallel") {
		opts = append(opts, compare.WithParallel(o.parallel))
	}
	if flags.Changed("strict-types") {
		opts = append(opts, compare.WithStrictTypes(o.strictTypes))
	}

	comparison, err := compare.New(opts...)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := comparison.Run(ctx)
	if err != nil {
		return fmt.Errorf("comparison error: %w", err)
	}

	if o.failOnDiff {
		for _, d := range res.Differences {
			if d.Len() > 0 {
				return errDifferences
			}
		}
	}
	return nil
}

func main() {
	if err := newRootCmd(compare.OpenCatalog).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errDifferences) {
			os.Exit(exitDifferences)
		}
		os.Exit(1)
	}
}
