package pg

import (
	"context"
	"time"

	"ghscan/internal/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// QueryEvent is one finished statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives every statement run through a traced pool
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a QueryTracer that logs every statement,
// independent of the process-wide root level
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	elapsedMs := float64(ev.ElapsedUS) / 1000.0
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}

	evt.Float64("elapsed_ms", elapsedMs).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}

// pgxTracer adapts pgx's start/end hooks to a QueryTracer
type pgxTracer struct {
	t    QueryTracer
	slow time.Duration
	now  func() time.Time
}

type traceKey struct{}

type traceStart struct {
	sql  string
	args []any
	at   time.Time
}

func newPgxTracer(t QueryTracer, slowMs int) *pgxTracer {
	return &pgxTracer{t: t, slow: time.Duration(slowMs) * time.Millisecond, now: time.Now}
}

func (p *pgxTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{sql: data.SQL, args: data.Args, at: p.now()})
}

func (p *pgxTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	st, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}
	el := p.now().Sub(st.at)
	p.t.OnQuery(ctx, QueryEvent{
		SQL:       st.sql,
		Args:      st.args,
		ElapsedUS: el.Microseconds(),
		Err:       data.Err,
		Slow:      p.slow > 0 && el >= p.slow,
	})
}

func compact(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || r == ' ' {
			if !space {
				out = append(out, ' ')
				space = true
			}
			continue
		}
		space = false
		out = append(out, r)
	}
	return string(out)
}
