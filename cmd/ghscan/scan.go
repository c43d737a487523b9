package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"ghscan/internal/core/event"
	"ghscan/internal/modkit"
	"ghscan/internal/platform/config"
	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"
	"ghscan/internal/services/ingest/domain"
	"ghscan/internal/services/ingest/module"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Output modes for scan
const (
	outputRecords = "records"
	outputEvents  = "events"
	outputCount   = "count"
)

// sourceFlags override the GHSCAN_INGEST_* options when set on the command line
type sourceFlags struct {
	source     string
	dir        string
	baseURL    string
	retries    int
	proactive  bool
	poolSize   int
	cacheSize  int
	checkpoint string
	decode     bool
	include    []string
	exclude    []string
}

func (f *sourceFlags) bindSource(fl *pflag.FlagSet) {
	fl.StringVar(&f.source, "source", module.SourceHTTP, "archive source: http, folder or bucket")
	fl.StringVar(&f.baseURL, "base-url", "", "base URL of the archive (http source)")
	fl.IntVar(&f.retries, "retries", 3, "attempts per hour for network sources")
}

func (f *sourceFlags) bindScan(fl *pflag.FlagSet) {
	f.bindSource(fl)
	fl.StringVar(&f.dir, "dir", "", "archive directory (folder source)")
	fl.BoolVar(&f.proactive, "proactive", false, "prefetch hours in the background (network sources)")
	fl.IntVar(&f.poolSize, "pool-size", 10, "prefetch workers")
	fl.IntVar(&f.cacheSize, "cache-size", 10, "prefetched hours held in memory")
	fl.StringVar(&f.checkpoint, "checkpoint", "", "checkpoint location: path, file://, redis:// or postgres:// URL")
	fl.BoolVar(&f.decode, "decode", false, "decode records into typed events")
	fl.StringSliceVar(&f.include, "include", nil, "keep records where field=value (repeatable)")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "drop records where field=value (repeatable)")
}

// apply copies every flag the user set onto opts
func (f *sourceFlags) apply(fl *pflag.FlagSet, opts *module.Options) {
	set := func(name string, fn func()) {
		if g := fl.Lookup(name); g != nil && g.Changed {
			fn()
		}
	}
	set("source", func() { opts.Source = f.source })
	set("dir", func() { opts.Dir = f.dir })
	set("base-url", func() { opts.BaseURL = f.baseURL })
	set("retries", func() { opts.Retries = f.retries })
	set("proactive", func() { opts.Proactive = f.proactive })
	set("pool-size", func() { opts.PoolSize = f.poolSize })
	set("cache-size", func() { opts.CacheSize = f.cacheSize })
	set("checkpoint", func() { opts.Checkpoint = f.checkpoint })
	set("decode", func() { opts.Decode = f.decode })
	set("include", func() { opts.Include = f.include })
	set("exclude", func() { opts.Exclude = f.exclude })
}

func scanCmd(a *app) *cobra.Command {
	var (
		src      sourceFlags
		from, to string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan archive hours in [from, to) and print matching records",
		Long: `Scan walks every hour of [from, to) in order and prints each record that
passes the filter.

Output modes:
  records  one JSON object per line, as found in the archive
  events   one typed summary per line (implies --decode)
  count    only the number of delivered records

Examples:
  ghscan scan --from 2015-01-01T15 --to 2015-01-01T18
  ghscan scan --from 2015-01-01 --to 2015-01-02 --include type=PushEvent --output count
  ghscan scan --source folder --dir ./archive --from 2015-01-01T00 --checkpoint ./scan.ckpt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, t, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			opts := module.FromConfig(config.New())
			src.apply(cmd.Flags(), &opts)
			if output == outputEvents {
				opts.Decode = true
			}
			p, err := newPrinter(cmd.OutOrStdout(), output)
			if err != nil {
				return err
			}
			return a.scan(cmd.Context(), opts, f, t, p, cmd.ErrOrStderr())
		},
	}
	src.bindScan(cmd.Flags())
	cmd.Flags().StringVar(&from, "from", "", "first hour, UTC (required)")
	cmd.Flags().StringVar(&to, "to", "", "end hour, exclusive (default: current hour)")
	cmd.Flags().StringVarP(&output, "output", "o", outputRecords, "output mode: records, events or count")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// scan runs the window; hours that failed without aborting the scan are listed on errOut
// and turn into a non-zero exit
func (a *app) scan(ctx context.Context, opts module.Options, from, to time.Time, p *printer, errOut io.Writer) error {
	ctx = logger.WithRun(ctx, logger.NewRunID())
	l := logger.NamedC(ctx, "ghscan")

	m, err := module.NewWithOptions(ctx, modkit.Deps{Log: *logger.Get(), Cfg: config.New()}, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			l.Error().Err(err).Msg("close checkpoint")
		}
	}()

	stop := a.serveOps(ctx, m.MountRoutes)
	defer stop()

	errs, err := m.Scanner().Run(ctx, from, to, p.handle)
	if ferr := p.finish(); ferr != nil && err == nil {
		err = ferr
	}
	l.Info().
		Int("delivered", p.n).
		Int("failed_hours", len(errs)).
		Msg("scan done")
	if err != nil {
		return err
	}
	for _, e := range errs {
		fmt.Fprintf(errOut, "failed: %v\n", e)
	}
	if n := len(errs); n > 0 {
		return perr.Unavailablef("scan: %d hours failed", n)
	}
	return nil
}

// printer writes deliveries to out in one of the output modes
type printer struct {
	w    *bufio.Writer
	enc  *json.Encoder
	mode string
	n    int
}

func newPrinter(out io.Writer, mode string) (*printer, error) {
	switch mode {
	case outputRecords, outputEvents, outputCount:
	default:
		return nil, perr.Configf("--output: unknown mode %q", mode)
	}
	w := bufio.NewWriter(out)
	return &printer{w: w, enc: json.NewEncoder(w), mode: mode}, nil
}

// eventLine is the typed summary printed in events mode
type eventLine struct {
	Hour      string    `json:"hour"`
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Actor     string    `json:"actor,omitempty"`
	Repo      string    `json:"repo,omitempty"`
}

func summarize(d domain.Delivery) eventLine {
	ev := d.Event
	if ev == nil {
		e := event.Decode(d.Record)
		ev = &e
	}
	line := eventLine{
		Hour:      d.Hour.UTC().Format("2006-01-02T15"),
		Kind:      ev.Kind.String(),
		ID:        ev.ID,
		Type:      ev.Type,
		CreatedAt: ev.CreatedAt,
	}
	if ev.Actor != nil {
		line.Actor = ev.Actor.Login
	}
	if ev.Repo != nil {
		line.Repo = ev.Repo.Name
	}
	return line
}

func (p *printer) handle(_ context.Context, d domain.Delivery) error {
	p.n++
	switch p.mode {
	case outputRecords:
		return p.enc.Encode(d.Record)
	case outputEvents:
		return p.enc.Encode(summarize(d))
	}
	return nil
}

func (p *printer) finish() error {
	if p.mode == outputCount {
		if _, err := fmt.Fprintln(p.w, p.n); err != nil {
			return err
		}
	}
	return p.w.Flush()
}
