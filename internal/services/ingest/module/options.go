package module

import (
	"time"

	"ghscan/internal/adapters/ingest/gharchive"
	"ghscan/internal/platform/config"
	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/validate"
)

// Source kinds
const (
	SourceHTTP   = "http"
	SourceFolder = "folder"
	SourceBucket = "bucket"
)

// Options holds configuration options for the ingest module
type Options struct {
	Source      string        `env:"GHSCAN_INGEST_SOURCE" validate:"oneof=http folder bucket"`
	BaseURL     string        `env:"GHSCAN_INGEST_BASE_URL" validate:"omitempty,url"`
	Dir         string        `env:"GHSCAN_INGEST_DIR" validate:"required_if=Source folder"`
	Retries     int           `env:"GHSCAN_INGEST_RETRIES" validate:"min=1,max=100"`
	RetryBase   time.Duration `env:"GHSCAN_INGEST_RETRY_BASE" validate:"gte=0"`
	RetryMax    time.Duration `env:"GHSCAN_INGEST_RETRY_MAX" validate:"gte=0"`
	HTTPTimeout time.Duration `env:"GHSCAN_INGEST_HTTP_TIMEOUT" validate:"gte=0"`
	Proactive   bool          `env:"GHSCAN_INGEST_PROACTIVE"`
	PoolSize    int           `env:"GHSCAN_INGEST_POOL_SIZE" validate:"min=1,max=256"`
	CacheSize   int           `env:"GHSCAN_INGEST_CACHE_SIZE" validate:"min=1,max=1024"`
	Checkpoint  string        `env:"GHSCAN_INGEST_CHECKPOINT"`
	Decode      bool          `env:"GHSCAN_INGEST_DECODE"`
	Include     []string      `env:"GHSCAN_INGEST_INCLUDE" validate:"assignments"`
	Exclude     []string      `env:"GHSCAN_INGEST_EXCLUDE" validate:"assignments"`

	// Bucket mirror
	S3Endpoint  string `env:"GHSCAN_INGEST_S3_ENDPOINT" validate:"required_if=Source bucket"`
	S3Bucket    string `env:"GHSCAN_INGEST_S3_BUCKET" validate:"required_if=Source bucket"`
	S3Prefix    string `env:"GHSCAN_INGEST_S3_PREFIX"`
	S3AccessKey string `env:"GHSCAN_INGEST_S3_ACCESS_KEY"`
	S3SecretKey string `env:"GHSCAN_INGEST_S3_SECRET_KEY"`
	S3Insecure  bool   `env:"GHSCAN_INGEST_S3_INSECURE"`
}

// FromConfig reads the ingest options from config with GHSCAN_INGEST_ prefix.
// Malformed source kinds or base URLs panic like the other Must style readers.
func FromConfig(cfg config.Conf) Options {
	in := cfg.Prefix("GHSCAN_INGEST_")
	return Options{
		Source:      in.MayEnum("SOURCE", SourceHTTP, SourceHTTP, SourceFolder, SourceBucket),
		BaseURL:     in.MayURL("BASE_URL", gharchive.DefaultBaseURL),
		Dir:         in.MayString("DIR", ""),
		Retries:     in.MayInt("RETRIES", 3),
		RetryBase:   in.MayDuration("RETRY_BASE", 500*time.Millisecond),
		RetryMax:    in.MayDuration("RETRY_MAX", 30*time.Second),
		HTTPTimeout: in.MayDuration("HTTP_TIMEOUT", 0),
		Proactive:   in.MayBool("PROACTIVE", false),
		PoolSize:    in.MayInt("POOL_SIZE", 10),
		CacheSize:   in.MayInt("CACHE_SIZE", 10),
		Checkpoint:  in.MayString("CHECKPOINT", ""),
		Decode:      in.MayBool("DECODE", false),
		Include:     in.MayCSV("INCLUDE", nil),
		Exclude:     in.MayCSV("EXCLUDE", nil),
		S3Endpoint:  in.MayString("S3_ENDPOINT", ""),
		S3Bucket:    in.MayString("S3_BUCKET", ""),
		S3Prefix:    in.MayString("S3_PREFIX", ""),
		S3AccessKey: in.MayString("S3_ACCESS_KEY", ""),
		S3SecretKey: in.MayString("S3_SECRET_KEY", ""),
		S3Insecure:  in.MayBool("S3_INSECURE", false),
	}
}

// Validate checks field rules and the combinations they cannot express
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return err
	}
	if o.Proactive && o.Source == SourceFolder {
		return perr.Configf("GHSCAN_INGEST_PROACTIVE requires a network source, got %q", o.Source)
	}
	return nil
}

// Remote reports whether the source goes over the network
func (o Options) Remote() bool { return o.Source != SourceFolder }
