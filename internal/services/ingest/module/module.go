// Package module wires the ingest service from configuration
package module

import (
	"context"
	"encoding/json"
	"net/http"

	"ghscan/internal/adapters/ingest/gharchive"
	"ghscan/internal/core/filter"
	"ghscan/internal/modkit"
	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"
	"ghscan/internal/services/ingest/checkpoint"
	"ghscan/internal/services/ingest/domain"
	"ghscan/internal/services/ingest/retry"
	"ghscan/internal/services/ingest/service"

	"github.com/go-chi/chi/v5"
)

// Ports defines the ingest module ports
type Ports struct {
	Scanner domain.ScannerPort
}

// archive is what every configured source offers
type archive interface {
	gharchive.Source
	gharchive.Opener
}

// Module implements the ingest module
type Module struct {
	deps  modkit.Deps
	opts  Options
	src   archive
	store *checkpoint.Store
	ports Ports
}

var _ modkit.Module = (*Module)(nil)

// New constructs the ingest module using GHSCAN_INGEST_* from deps.Cfg
func New(ctx context.Context, deps modkit.Deps) (*Module, error) {
	return NewWithOptions(ctx, deps, FromConfig(deps.Cfg))
}

// NewWithOptions constructs the ingest module from explicit options
func NewWithOptions(ctx context.Context, deps modkit.Deps, opts Options) (*Module, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	spec, err := buildFilter(opts)
	if err != nil {
		return nil, err
	}
	src, err := openSource(opts)
	if err != nil {
		return nil, err
	}
	b, err := checkpoint.Open(ctx, opts.Checkpoint)
	if err != nil {
		return nil, err
	}
	store := checkpoint.New(b)

	svc := service.New(src, store, spec, service.Config{
		Proactive: opts.Proactive,
		PoolSize:  opts.PoolSize,
		CacheSize: opts.CacheSize,
		Retry: retry.Policy{
			MaxRetries: opts.Retries,
			Base:       opts.RetryBase,
			Max:        opts.RetryMax,
		},
		RetryDirect: opts.Remote(),
		Decode:      opts.Decode,
	})

	deps.Log.Info().
		Str("source", opts.Source).
		Bool("proactive", opts.Proactive).
		Bool("checkpointed", opts.Checkpoint != "").
		Str("filter", spec.String()).
		Msg("ingest: module ready")

	m := &Module{deps: deps, opts: opts, src: src, store: store}
	m.ports = Ports{Scanner: svc}
	return m, nil
}

func buildFilter(opts Options) (filter.Spec, error) {
	b, err := filter.NewBuilder().IncludeAssignments(opts.Include...)
	if err != nil {
		return filter.Spec{}, err
	}
	if _, err := b.ExcludeAssignments(opts.Exclude...); err != nil {
		return filter.Spec{}, err
	}
	return b.Build(), nil
}

func openSource(opts Options) (archive, error) {
	switch opts.Source {
	case SourceFolder:
		return gharchive.NewFolderSource(opts.Dir), nil
	case SourceBucket:
		return gharchive.NewBucketSource(gharchive.BucketConfig{
			Endpoint:  opts.S3Endpoint,
			Bucket:    opts.S3Bucket,
			Prefix:    opts.S3Prefix,
			AccessKey: opts.S3AccessKey,
			SecretKey: opts.S3SecretKey,
			Insecure:  opts.S3Insecure,
		})
	case SourceHTTP, "":
		return gharchive.NewHTTPSource(opts.BaseURL, opts.HTTPTimeout), nil
	default:
		return nil, perr.Configf("ingest: unknown source %q", opts.Source)
	}
}

// Downloader returns a downloader writing the configured source into dir
func (m *Module) Downloader(dir string, opts ...gharchive.DownloadOption) (*gharchive.Downloader, error) {
	return gharchive.NewDownloader(dir, m.src, opts...)
}

// Scanner returns the scan port
func (m *Module) Scanner() domain.ScannerPort { return m.ports.Scanner }

// Options returns the options the module was built with
func (m *Module) Options() Options { return m.opts }

// Close releases the checkpoint backend
func (m *Module) Close() error { return m.store.Close() }

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type status struct {
	Source     string `json:"source"`
	Proactive  bool   `json:"proactive"`
	Checkpoint string `json:"checkpoint,omitempty"`
}

// MountRoutes mounts GET /ingest/status reporting the scan position
func (m *Module) MountRoutes(r chi.Router) {
	r.Get("/ingest/status", func(w http.ResponseWriter, _ *http.Request) {
		st := status{Source: m.opts.Source, Proactive: m.opts.Proactive}
		if t, ok := m.store.Last(); ok {
			st.Checkpoint = checkpoint.Encode(t)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			logger.Named("ingest").Error().Err(err).Msg("ingest: write status")
		}
	})
}
