// Package domain holds the types shared by the ingest service and its callers
package domain

import (
	"time"

	"ghscan/internal/adapters/ingest/gharchive"
	"ghscan/internal/core/event"
)

// Record re-exports the raw archive record shape
type Record = gharchive.Record

// Delivery is one record handed to the caller of a scan.
// Event is only set when the scan decodes records.
type Delivery struct {
	Hour   time.Time
	Record Record
	Event  *event.Event
}
