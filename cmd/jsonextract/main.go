// Command jsonextract generates BigQuery JSON_EXTRACT select fragments from a Studio 3T schema export.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spandigital/jsonextract"
	"github.com/spandigital/jsonextract/config"
	"github.com/spandigital/jsonextract/filter"
	"github.com/spandigital/jsonextract/pg"
	"github.com/spandigital/jsonextract/schema"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	var f *filter.Filter
	if cfg.Filter != "" {
		if f, err = filter.Compile(cfg.Filter); err != nil {
			return err
		}
	}

	src, closeSrc, err := openSource(ctx, cfg, f, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

	s, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	logger.Debug("schema loaded", "columns", len(s))

	var opts []jsonextract.Option
	if f != nil && cfg.Source.Postgres == nil {
		opts = append(opts, jsonextract.WithFilter(f))
	}
	if cfg.StrictNames {
		opts = append(opts, jsonextract.WithStrictNames())
	}
	out, err := jsonextract.Generate(s, opts...)
	if err != nil {
		return err
	}

	fragments := 0
	if out != "" {
		fragments = strings.Count(out, "\n") + 1
	}

	if cfg.Output == "" {
		_, err = fmt.Fprintln(stdout, out)
		return err
	}
	if err := os.WriteFile(cfg.Output, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	logger.Info("fragments written", "path", cfg.Output, "fragments", fragments)
	return nil
}

// parseFlags builds the run configuration from an optional config file and flag overrides.
func parseFlags(args []string, stderr io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet("jsonextract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "Path to a YAML configuration file")
	csvPath := fs.String("csv", "", "Path to the Studio 3T CSV schema export")
	pgDSN := fs.String("pg-dsn", "", "PostgreSQL connection string of the database holding the export")
	pgTable := fs.String("pg-table", "", "Table holding the export (name and field_type columns)")
	pgOrderBy := fs.String("pg-order-by", "", "Column ordering the export rows")
	filterExpr := fs.String("filter", "", "CEL predicate over name, field_type, base and depth selecting emitted columns")
	strict := fs.Bool("strict", false, "Reject column names with empty dot segments")
	output := fs.String("output", "", "Output file (default: stdout)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := &config.Config{}
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if *csvPath != "" {
		cfg.Source.CSV = *csvPath
	}
	if *pgDSN != "" || *pgTable != "" || *pgOrderBy != "" {
		if cfg.Source.Postgres == nil {
			cfg.Source.Postgres = &config.PostgresConfig{}
		}
		if *pgDSN != "" {
			cfg.Source.Postgres.DSN = *pgDSN
		}
		if *pgTable != "" {
			cfg.Source.Postgres.Table = *pgTable
		}
		if *pgOrderBy != "" {
			cfg.Source.Postgres.OrderBy = *pgOrderBy
		}
	}
	if *filterExpr != "" {
		cfg.Filter = *filterExpr
	}
	if set["strict"] {
		cfg.StrictNames = *strict
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	return cfg, nil
}

// openSource returns the configured schema source and a function releasing it.
// The PostgreSQL source applies f itself.
func openSource(ctx context.Context, cfg *config.Config, f *filter.Filter, logger *slog.Logger) (schema.Source, func(), error) {
	if cfg.Source.Postgres == nil {
		return schema.CSVSource{Path: cfg.Source.CSV}, func() {}, nil
	}

	pgCfg := cfg.Source.Postgres
	var opts []pg.SourceOption
	if pgCfg.OrderBy != "" {
		opts = append(opts, pg.WithOrderColumn(pgCfg.OrderBy))
	} else {
		logger.Warn("no order column configured, fragment order follows PostgreSQL scan order", "table", pgCfg.Table)
	}
	if f != nil {
		opts = append(opts, pg.WithFilter(f))
	}
	src, err := pg.NewSourceWithConnection(ctx, pgCfg.DSN, pgCfg.Table, opts...)
	if err != nil {
		return nil, nil, err
	}
	return src, src.Close, nil
}
