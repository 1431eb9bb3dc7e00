package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// QueryObserver receives the statement verb, elapsed time and outcome of
// every query run through a pool built with NewQueryTracer.
type QueryObserver func(operation string, elapsed time.Duration, err error)

type queryStartKey struct{}

type queryTracer struct {
	observe QueryObserver
}

func NewQueryTracer(observe QueryObserver) pgx.QueryTracer {
	return &queryTracer{observe: observe}
}

type queryStart struct {
	at        time.Time
	operation string
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), operation: Operation(data.SQL)})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok || t.observe == nil {
		return
	}
	t.observe(start.operation, time.Since(start.at), data.Err)
}

// Operation returns the lower-cased leading SQL keyword, e.g. "select".
func Operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
