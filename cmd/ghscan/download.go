package main

import (
	"fmt"

	"ghscan/internal/adapters/ingest/gharchive"
	"ghscan/internal/modkit"
	"ghscan/internal/platform/config"
	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"
	"ghscan/internal/services/ingest/module"

	"github.com/spf13/cobra"
)

func downloadCmd(a *app) *cobra.Command {
	var (
		src        sourceFlags
		from, to   string
		dir        string
		decompress bool
		maxFiles   int
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Mirror archive hours in [from, to) into a local directory",
		Long: `Download copies every hour of [from, to) that is not already present into
--dir, using the same file names as the archive. The directory can then be scanned
with --source folder.

Examples:
  ghscan download --from 2015-01-01 --to 2015-01-02 --dir ./archive
  ghscan download --from 2015-01-01T00 --to 2015-01-01T06 --dir ./archive --decompress --max 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, t, err := parseWindow(from, to)
			if err != nil {
				return err
			}
			opts := module.FromConfig(config.New())
			src.apply(cmd.Flags(), &opts)
			if opts.Source == module.SourceFolder {
				return perr.Configf("download: --source folder has nothing to download from")
			}
			// the downloader never moves the scan checkpoint
			opts.Checkpoint = ""
			opts.Proactive = false

			ctx := logger.WithRun(cmd.Context(), logger.NewRunID())
			l := logger.NamedC(ctx, "ghscan")

			m, err := module.NewWithOptions(ctx, modkit.Deps{Log: *logger.Get(), Cfg: config.New()}, opts)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			stop := a.serveOps(ctx, nil)
			defer stop()

			d, err := m.Downloader(dir, gharchive.WithDecompress(decompress), gharchive.WithMax(maxFiles))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rep, err := d.Download(ctx, f, t, func(path string) {
				fmt.Fprintln(out, path)
			})
			l.Info().
				Int("downloaded", rep.Downloaded).
				Int("skipped", rep.Skipped).
				Int("removed", len(rep.Removed)).
				Int("failed", len(rep.Errors)).
				Msg("download done")
			if err != nil {
				return err
			}
			if n := len(rep.Errors); n > 0 {
				return perr.Wrapf(rep.Errors[0], perr.CodeUnavailable, "download: %d hours failed, first", n)
			}
			return nil
		},
	}
	src.bindSource(cmd.Flags())
	cmd.Flags().StringVar(&from, "from", "", "first hour, UTC (required)")
	cmd.Flags().StringVar(&to, "to", "", "end hour, exclusive (default: current hour)")
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (required)")
	cmd.Flags().BoolVar(&decompress, "decompress", false, "store plain .json files")
	cmd.Flags().IntVar(&maxFiles, "max", 0, "keep at most this many downloaded files, oldest removed first (0 keeps all)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
