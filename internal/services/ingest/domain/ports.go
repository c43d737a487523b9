package domain

import (
	"context"
	"errors"
	"time"
)

// ErrStop ends a scan cleanly when returned by a Handler
var ErrStop = errors.New("ingest: stop requested")

// Handler receives matching records in chronological order.
// Returning ErrStop ends the scan without error; any other error aborts it.
type Handler func(ctx context.Context, d Delivery) error

// ScannerPort is the public port of the ingest module
type ScannerPort interface {
	// Run scans [from, to); the slice holds per hour failures, the error is fatal
	Run(ctx context.Context, from, to time.Time, h Handler) ([]error, error)
}

// Checkpointer restores and persists scan progress
type Checkpointer interface {
	Restore(ctx context.Context, from time.Time) (time.Time, error)
	Persist(ctx context.Context, t time.Time)
}
