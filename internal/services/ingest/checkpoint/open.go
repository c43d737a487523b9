package checkpoint

import (
	"context"
	"net/url"
	"strings"

	perr "ghscan/internal/platform/errors"
	"ghscan/internal/platform/logger"
	"ghscan/internal/platform/store/pg"

	"github.com/redis/go-redis/v9"
)

// DefaultName is the checkpoint name used when the location does not carry one
const DefaultName = "default"

// Open selects a backend from a location string:
//
//	""                               checkpointing off
//	/var/lib/ghscan/cp, file:cp      FileBackend
//	redis://host:6379/0?name=x       RedisBackend
//	postgres://u:p@host/db?name=x    PGBackend
func Open(ctx context.Context, location string) (Backend, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Nop{}, nil
	}
	scheme, _, found := strings.Cut(location, "://")
	if !found {
		if rest, ok := strings.CutPrefix(location, "file:"); ok {
			return NewFileBackend(rest), nil
		}
		return NewFileBackend(location), nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, perr.Wrap(err, perr.CodeConfig, "checkpoint: parse location")
	}
	name := nameOf(u)

	switch strings.ToLower(scheme) {
	case "file":
		return NewFileBackend(u.Path), nil
	case "redis", "rediss":
		opts, err := redis.ParseURL(u.String())
		if err != nil {
			return nil, perr.Wrap(err, perr.CodeConfig, "checkpoint: parse redis url")
		}
		return NewRedisBackend(redis.NewClient(opts), name), nil
	case "postgres", "postgresql":
		client, err := pg.Open(ctx, pg.Config{URL: u.String(), MaxConns: 2, SlowMs: 200, AppName: "ghscan"},
			pg.Tracer(*logger.Named("checkpoint")), nil)
		if err != nil {
			return nil, err
		}
		b := NewPGBackend(client.Pool, name, client.Close)
		if err := b.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, perr.Wrap(err, perr.CodeCheckpoint, "checkpoint: ensure schema")
		}
		return b, nil
	default:
		return nil, perr.Configf("checkpoint: unsupported location scheme %q", scheme)
	}
}

// nameOf pops the name query parameter so the rest of the URL can go to the driver
func nameOf(u *url.URL) string {
	q := u.Query()
	name := q.Get("name")
	q.Del("name")
	u.RawQuery = q.Encode()
	if name == "" {
		return DefaultName
	}
	return name
}
