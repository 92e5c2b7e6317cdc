package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/config"
	"github.com/vegasq/colframe/expr"
	"github.com/vegasq/colframe/logutil"
	"github.com/vegasq/colframe/output"
	"github.com/vegasq/colframe/pipeline"
	"github.com/vegasq/colframe/table"
	"github.com/vegasq/colframe/view"
)

var (
	// groupsID identifies the per-outer-row summary produced in group mode
	groupsID = table.ID{Origin: "colframe", Tag: "GROUPS"}
	// histID identifies the bin counts produced in histogram mode
	histID = table.ID{Origin: "colframe", Tag: "HIST"}
)

type options struct {
	config string
	target string
	query  string
	join   string
	follow string
	group  string
	outer  string
	format string
	limit  int
	schema bool
	out    string
	every  int
	hist   string
	value  string
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("colframe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.config, "c", "", "Run configuration (TOML)")
	fs.StringVar(&opts.target, "t", "", "Table to select from, as ORIGIN/TAG")
	fs.StringVar(&opts.query, "q", "", "Filter expression (e.g., \"nabs(eta) <= $etaCut && pt > 0.15\")")
	fs.StringVar(&opts.join, "join", "", "Comma separated tables zipped with the target row by row")
	fs.StringVar(&opts.follow, "follow", "", "Comma separated index columns of the target to join through")
	fs.StringVar(&opts.group, "group", "", "Index column of the target grouping it by -outer rows")
	fs.StringVar(&opts.outer, "outer", "", "Outer table of -group, as ORIGIN/TAG")
	fs.StringVar(&opts.format, "f", "jsonl", "Output format: json, jsonl, csv, table")
	fs.IntVar(&opts.limit, "limit", 0, "Limit number of printed rows (0 = unlimited)")
	fs.BoolVar(&opts.schema, "schema", false, "List the declared tables instead of data")
	fs.StringVar(&opts.out, "o", "", "Also write the result to this parquet file")
	fs.IntVar(&opts.every, "every", 0, "Log progress every N outer rows in group mode (0 = never)")
	fs.StringVar(&opts.hist, "hist", "", "Count -value of the selected rows in the bins of this configured axis")
	fs.StringVar(&opts.value, "value", "", "Numeric expression filled in histogram mode (e.g., \"nabs(eta)\")")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: colframe -c run.toml -t ORIGIN/TAG [options]\n\n")
		fmt.Fprintf(stderr, "Select rows of columnar tables loaded from parquet files.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  colframe -c run.toml -schema\n")
		fmt.Fprintf(stderr, "  colframe -c run.toml -t AOD/TRACK -q \"nabs(eta) <= $etaCut\" -f csv\n")
		fmt.Fprintf(stderr, "  colframe -c run.toml -t AOD/TRACK -follow collision -q \"posZ > 0\"\n")
		fmt.Fprintf(stderr, "  colframe -c run.toml -t AOD/TRACK -group collision -outer AOD/COLLISION -q \"pt > 1\"\n")
		fmt.Fprintf(stderr, "  colframe -c run.toml -t AOD/TRACK -hist pt -value pt -q \"nabs(eta) < 0.8\"\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch {
	case opts.config == "":
		return nil, errors.New("missing -c configuration file")
	case opts.limit < 0:
		return nil, fmt.Errorf("-limit must be non-negative, got %d", opts.limit)
	case opts.every < 0:
		return nil, fmt.Errorf("-every must be non-negative, got %d", opts.every)
	case opts.schema:
		if opts.query != "" || opts.target != "" {
			return nil, errors.New("-schema cannot be combined with -t or -q")
		}
		return opts, nil
	case opts.target == "":
		return nil, errors.New("missing -t table")
	case opts.join != "" && opts.follow != "":
		return nil, errors.New("-join and -follow cannot be used together")
	case opts.group != "" && (opts.join != "" || opts.follow != ""):
		return nil, errors.New("-group cannot be combined with -join or -follow")
	case (opts.group == "") != (opts.outer == ""):
		return nil, errors.New("-group and -outer must be given together")
	case (opts.hist == "") != (opts.value == ""):
		return nil, errors.New("-hist and -value must be given together")
	case opts.hist != "" && (opts.join != "" || opts.follow != "" || opts.group != ""):
		return nil, errors.New("-hist cannot be combined with -join, -follow or -group")
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}
	logger, err := logutil.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := table.NewRegistry()
	if err := loadTables(cfg, reg); err != nil {
		return err
	}

	if opts.schema {
		writeSchemas(reg, stdout)
		return nil
	}

	target, err := lookup(reg, opts.target)
	if err != nil {
		return err
	}

	var e expr.Expr = expr.True()
	if opts.query != "" {
		if e, err = expr.Parse(opts.query); err != nil {
			return fmt.Errorf("invalid filter: %w", err)
		}
	}

	var (
		res    output.Result
		schema *table.Schema
	)
	if opts.hist != "" {
		res, schema, err = histogram(reg, cfg, target, e, opts)
	} else {
		res, schema, err = selectRows(reg, target, e, cfg.Params, opts)
	}
	if err != nil {
		if errors.Is(err, expr.ErrUnboundColumn) {
			return fmt.Errorf("%w\n\nAvailable columns: %s", err, strings.Join(target.Columns(), ", "))
		}
		return err
	}
	logutil.Info("selected rows",
		zap.String("table", opts.target),
		zap.String("filter", e.String()),
		zap.Int("rows", res.Size()))

	limit := opts.limit
	if limit == 0 {
		limit = -1
	}
	formatter, err := output.New(opts.format, stdout)
	if err != nil {
		return fmt.Errorf("%w (supported formats: json, jsonl, csv, table)", err)
	}
	if err := formatter.Format(output.Limit(res, limit)); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if opts.out != "" {
		if schema == nil {
			return errors.New("-o needs a single-table result; joined rows cannot be written")
		}
		if err := output.WriteParquet(opts.out, schema, res); err != nil {
			return err
		}
		logutil.Info("wrote result", zap.String("path", opts.out), zap.Int("rows", res.Size()))
	}
	return nil
}

// loadTables declares every configured table, then reads them in
// parallel on cfg.Workers workers.
func loadTables(cfg *config.Config, reg *table.Registry) error {
	if err := cfg.DeclareTables(reg); err != nil {
		return err
	}
	runner, err := pipeline.NewRunner(cfg.Workers, nil)
	if err != nil {
		return err
	}
	defer runner.Release()

	tasks := make([]pipeline.Task, len(cfg.Tables))
	for i, src := range cfg.Tables {
		tasks[i] = pipeline.Func("load "+src.ID, func(context.Context) (int, error) {
			t, err := src.Load(reg)
			if err != nil {
				return 0, err
			}
			return t.Len(), nil
		})
	}
	return runner.Run(context.Background(), tasks...)
}

func lookup(reg *table.Registry, s string) (*table.Table, error) {
	id, err := table.ParseID(s)
	if err != nil {
		return nil, err
	}
	t, ok := reg.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not loaded", table.ErrUnknownTable, id)
	}
	return t, nil
}

// selectRows applies e in the mode chosen by opts. The returned schema
// describes the result columns when they all come from one table.
func selectRows(reg *table.Registry, target *table.Table, e expr.Expr, params expr.Params, opts *options) (output.Result, *table.Schema, error) {
	switch {
	case opts.group != "":
		outer, err := lookup(reg, opts.outer)
		if err != nil {
			return nil, nil, err
		}
		groups, err := countGroups(reg, outer, target, opts.group, e, params, opts.every)
		if err != nil {
			return nil, nil, err
		}
		return groups, groups.Schema(), nil

	case opts.join != "":
		tables := []*table.Table{target}
		for _, s := range strings.Split(opts.join, ",") {
			t, err := lookup(reg, strings.TrimSpace(s))
			if err != nil {
				return nil, nil, err
			}
			tables = append(tables, t)
		}
		j, err := view.Zip(tables...)
		if err != nil {
			return nil, nil, err
		}
		f, err := view.Filter(j, e, params)
		return f, nil, err

	case opts.follow != "":
		var links []string
		for _, s := range strings.Split(opts.follow, ",") {
			links = append(links, strings.TrimSpace(s))
		}
		j, err := view.IndexJoin(target, links...)
		if err != nil {
			return nil, nil, err
		}
		f, err := view.Filter(j, e, params)
		return f, nil, err
	}

	f, err := view.Filter(target, e, params)
	if err != nil {
		return nil, nil, err
	}
	return f, target.Schema(), nil
}

// countGroups fills one row per outer row with the number of inner rows
// of its group passing e.
func countGroups(reg *table.Registry, outer, inner *table.Table, column string, e expr.Expr, params expr.Params, every int) (*table.Table, error) {
	_, err := reg.Declare(groupsID,
		table.IndexColumn("outer", outer.ID()),
		table.Value("rows", table.Int32),
	)
	if err != nil {
		return nil, err
	}
	part, err := view.NewPartition(inner, column, e, params)
	if err != nil {
		return nil, err
	}
	groups, err := reg.NewTable(groupsID)
	if err != nil {
		return nil, err
	}
	out := groups.Builder()

	err = view.Process(outer, func(row table.Row) error {
		n, err := part.Size()
		if err != nil {
			return err
		}
		if every > 0 && (row.Index()+1)%every == 0 {
			logutil.Info("processing", zap.Int("outer", row.Index()+1), zap.Int("of", outer.Len()))
		}
		return out.Append(int32(row.Index()), int32(n))
	}, part)
	if err != nil {
		return nil, err
	}
	groups.Freeze()
	return groups, nil
}

// histogram resolves the -hist axis and fills it from the rows of target
// passing e.
func histogram(reg *table.Registry, cfg *config.Config, target *table.Table, e expr.Expr, opts *options) (output.Result, *table.Schema, error) {
	axis, err := cfg.Axis(opts.hist)
	if err != nil {
		return nil, nil, err
	}
	v, err := expr.Parse(opts.value)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid value: %w", err)
	}
	hist, err := fillHistogram(reg, target, e, v, cfg.Params, axis)
	if err != nil {
		return nil, nil, err
	}
	return hist, hist.Schema(), nil
}

// fillHistogram counts v over the rows of target passing e, one output row
// per bin of axis. Values outside the axis are counted in the log only.
func fillHistogram(reg *table.Registry, target *table.Table, e, v expr.Expr, params expr.Params, axis config.Axis) (*table.Table, error) {
	f, err := view.Filter(target, e, params)
	if err != nil {
		return nil, err
	}
	value, err := expr.BindValue(v, target, params)
	if err != nil {
		return nil, err
	}

	counts := make([]int64, axis.NumBins())
	outside := 0
	for pos := range f.Rows() {
		if b, ok := axis.Bin(value.Value(pos)); ok {
			counts[b]++
		} else {
			outside++
		}
	}

	_, err = reg.Declare(histID,
		table.Value("bin", table.Int32),
		table.Value("low", table.Float64),
		table.Value("high", table.Float64),
		table.Value("entries", table.Int64),
	)
	if err != nil {
		return nil, err
	}
	hist, err := reg.NewTable(histID)
	if err != nil {
		return nil, err
	}
	out := hist.Builder()
	for b, n := range counts {
		lo, hi := axis.Range(b)
		if err := out.Append(int32(b), lo, hi, n); err != nil {
			return nil, err
		}
	}
	hist.Freeze()

	logutil.Debug("filled histogram",
		zap.String("axis", axis.Title),
		zap.Stringer("value", value),
		zap.Int("entries", f.Size()-outside),
		zap.Int("outside", outside))
	return hist, nil
}

func writeSchemas(reg *table.Registry, w io.Writer) {
	var rows [][]string
	for _, id := range reg.IDs() {
		s, err := reg.Schema(id)
		if err != nil {
			continue
		}
		n := 0
		if t, ok := reg.Lookup(id); ok {
			n = t.Len()
		}
		for _, c := range s.Columns() {
			ref := ""
			if c.Ref != nil {
				ref = c.Ref.String()
			}
			rows = append(rows, []string{id.String(), fmt.Sprint(n), c.Name, c.Type.String(), ref})
		}
	}
	output.WriteTable(w, []string{"table", "rows", "column", "type", "references"}, rows)
}
