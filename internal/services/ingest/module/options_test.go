package module

import (
	"testing"
	"time"

	"ghscan/internal/adapters/ingest/gharchive"
	"ghscan/internal/platform/config"
	perr "ghscan/internal/platform/errors"
	kit "ghscan/internal/platform/testkit"
)

func TestFromConfig_Defaults(t *testing.T) {
	o := FromConfig(config.New())
	if o.Source != SourceHTTP || o.BaseURL != gharchive.DefaultBaseURL {
		t.Fatalf("source defaults: %+v", o)
	}
	if o.Retries != 3 || o.RetryBase != 500*time.Millisecond || o.RetryMax != 30*time.Second {
		t.Fatalf("retry defaults: %+v", o)
	}
	if o.PoolSize != 10 || o.CacheSize != 10 || o.Proactive || o.Decode {
		t.Fatalf("pool defaults: %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromConfig_Env(t *testing.T) {
	t.Setenv("GHSCAN_INGEST_SOURCE", "FOLDER")
	t.Setenv("GHSCAN_INGEST_DIR", "/data/gharchive")
	t.Setenv("GHSCAN_INGEST_RETRIES", "5")
	t.Setenv("GHSCAN_INGEST_RETRY_BASE", "0s")
	t.Setenv("GHSCAN_INGEST_CHECKPOINT", "redis://localhost:6379/0")
	t.Setenv("GHSCAN_INGEST_DECODE", "true")
	t.Setenv("GHSCAN_INGEST_INCLUDE", "type=PushEvent, public=true")
	t.Setenv("GHSCAN_INGEST_BASE_URL", "http://mirror.local/archive/")

	o := FromConfig(config.New())
	if o.Source != SourceFolder || o.Dir != "/data/gharchive" {
		t.Fatalf("source: %+v", o)
	}
	if o.Retries != 5 || o.RetryBase != 0 || !o.Decode {
		t.Fatalf("values: %+v", o)
	}
	if len(o.Include) != 2 || o.Include[1] != "public=true" {
		t.Fatalf("include: %v", o.Include)
	}
	if o.BaseURL != "http://mirror.local/archive" {
		t.Fatalf("base url: %q", o.BaseURL)
	}
	if o.Remote() {
		t.Fatalf("folder is not remote")
	}
}

func TestFromConfig_BadSourcePanics(t *testing.T) {
	t.Setenv("GHSCAN_INGEST_SOURCE", "ftp")
	kit.MustPanic(t, func() { _ = FromConfig(config.New()) })
}

func TestValidate(t *testing.T) {
	base := FromConfig(config.New())

	cases := []struct {
		name    string
		mutate  func(o *Options)
		wantMsg string
	}{
		{"folder needs dir", func(o *Options) { o.Source = SourceFolder }, "GHSCAN_INGEST_DIR"},
		{"bucket needs bucket", func(o *Options) { o.Source = SourceBucket; o.S3Endpoint = "s3.local:9000" }, "GHSCAN_INGEST_S3_BUCKET"},
		{"pool size", func(o *Options) { o.PoolSize = 0 }, "GHSCAN_INGEST_POOL_SIZE must be at least 1"},
		{"cache size", func(o *Options) { o.CacheSize = 5000 }, "GHSCAN_INGEST_CACHE_SIZE must be at most 1024"},
		{"retries", func(o *Options) { o.Retries = 0 }, "GHSCAN_INGEST_RETRIES"},
		{"include pairs", func(o *Options) { o.Include = []string{"type"} }, "GHSCAN_INGEST_INCLUDE"},
		{"proactive folder", func(o *Options) { o.Source = SourceFolder; o.Dir = "/tmp"; o.Proactive = true }, "network source"},
		{"bad url", func(o *Options) { o.BaseURL = "not a url" }, "GHSCAN_INGEST_BASE_URL"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := base
			c.mutate(&o)
			err := o.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !perr.IsCode(err, perr.CodeConfig) {
				t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
			}
			kit.MustContain(t, err.Error(), c.wantMsg)
		})
	}
}
