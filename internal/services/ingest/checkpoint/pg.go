package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	schemaSQL = `create table if not exists ingest_checkpoints (
	name     text primary key,
	hour_utc timestamptz not null
)`

	loadSQL = `select hour_utc from ingest_checkpoints where name = $1`

	saveSQL = `insert into ingest_checkpoints (name, hour_utc) values ($1, $2)
on conflict (name) do update set hour_utc = excluded.hour_utc`
)

// querier is the slice of pgxpool.Pool the backend needs
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGBackend keeps checkpoints as rows of ingest_checkpoints keyed by name
type PGBackend struct {
	q       querier
	name    string
	closeFn func()
}

// NewPGBackend returns a backend for checkpoint name; closeFn may be nil
func NewPGBackend(q querier, name string, closeFn func()) *PGBackend {
	if name == "" {
		name = DefaultName
	}
	return &PGBackend{q: q, name: name, closeFn: closeFn}
}

// EnsureSchema creates the checkpoint table if it is missing
func (p *PGBackend) EnsureSchema(ctx context.Context) error {
	_, err := p.q.Exec(ctx, schemaSQL)
	return err
}

func (p *PGBackend) Load(ctx context.Context) (string, bool, error) {
	var t time.Time
	err := p.q.QueryRow(ctx, loadSQL, p.name).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return Encode(t), true, nil
}

func (p *PGBackend) Save(ctx context.Context, raw string) error {
	t, err := Decode(raw)
	if err != nil {
		return err
	}
	_, err = p.q.Exec(ctx, saveSQL, p.name, t)
	return err
}

func (p *PGBackend) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}
