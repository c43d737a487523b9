package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ghscan/internal/core/version"
	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"
	phttp "ghscan/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
)

// app carries the persistent flags shared by every subcommand
type app struct {
	metricsAddr string
	pprof       bool
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "ghscan",
		Short: "Scan the hourly GH Archive in chronological order",
		Long: `ghscan reads GH Archive hours (one gzip NDJSON file per UTC hour) from
data.gharchive.org, a local folder or an S3 compatible mirror, filters the records
and prints them in order. Progress is checkpointed so an interrupted scan resumes
at the hour it was working on.

Settings come from GHSCAN_INGEST_* and LOG_* environment variables; flags override them.`,
		Version:       version.Info().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.Init(logger.FromEnv())
		},
	}
	cmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address (empty disables)")
	cmd.PersistentFlags().BoolVar(&a.pprof, "pprof", false, "mount pprof under /debug on the metrics server")

	cmd.AddCommand(
		scanCmd(a),
		downloadCmd(a),
		versionCmd(),
	)
	return cmd
}

// serveOps starts the operator server when --metrics-addr is set; the returned func stops it
func (a *app) serveOps(ctx context.Context, mount func(chi.Router)) func() {
	if a.metricsAddr == "" {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	srv := phttp.NewServer(a.metricsAddr, func(m *chi.Mux) {
		phttp.MountOps(m, nil)
		phttp.MountProfiler(m, "/debug", a.pprof)
		if mount != nil {
			mount(m)
		}
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Run(ctx); err != nil {
			logger.Named("http").Error().Err(err).Str("addr", a.metricsAddr).Msg("ops server failed")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(version.Info())
		},
	}
}

var hourLayouts = []string{
	"2006-01-02T15",
	"2006-01-02-15",
	time.RFC3339,
	"2006-01-02",
}

// parseHour accepts an hour in any of hourLayouts and truncates it to the UTC hour
func parseHour(name, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range hourLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Hour), nil
		}
	}
	return time.Time{}, perr.Configf("--%s: cannot parse %q (want YYYY-MM-DDTHH, YYYY-MM-DD-HH, RFC 3339 or YYYY-MM-DD)", name, s)
}

// parseWindow parses --from and --to; an empty --to means the current hour
func parseWindow(from, to string) (time.Time, time.Time, error) {
	f, err := parseHour("from", from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if strings.TrimSpace(to) == "" {
		return f, time.Now().UTC().Truncate(time.Hour), nil
	}
	t, err := parseHour("to", to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return f, t, nil
}
