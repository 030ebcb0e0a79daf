// internal/domain/trend/store.go

package trend

import (
	"context"

	"geotrend/internal/domain/geo"
)

// GeoIndex maps item ids to their last known position
type GeoIndex interface {
	// GeoUpsert sets the item's position, replacing any previous one
	GeoUpsert(ctx context.Context, itemID string, location geo.Location) error

	// GeoQueryRadius returns every indexed item within radiusKm of center with its great-circle distance
	GeoQueryRadius(ctx context.Context, center geo.Location, radiusKm float64) ([]Neighbor, error)
}

// ScoreIndex holds the cumulative, increment-only score per item
type ScoreIndex interface {
	// ScoreIncrement atomically adds delta to the item's score
	ScoreIncrement(ctx context.Context, itemID string, delta float64) error

	// ScoreGet returns the item's score; ok is false when the item has none
	ScoreGet(ctx context.Context, itemID string) (score float64, ok bool, err error)
}

// EventLog is the append-only per-item log of decay events
type EventLog interface {
	// EventLogAppend prepends the event to the item's log
	EventLogAppend(ctx context.Context, itemID string, event DecayEvent) error

	// EventLogReadAll returns the item's events newest first.
	// Payloads that fail to parse are skipped, never returned as an error.
	EventLogReadAll(ctx context.Context, itemID string) ([]DecayEvent, error)
}

// SnapshotWriter persists precomputed cell rankings
type SnapshotWriter interface {
	// SnapshotReplace swaps the cell's ranked list and per-item records as one unit
	SnapshotReplace(ctx context.Context, cell geo.CellKey, ranked []Result) error
}

// SnapshotEntry is one ranked item of a cell snapshot with its record
type SnapshotEntry struct {
	ItemID string
	Record ItemRecord
	// Found is false when the ranked id has no usable record
	Found bool
	// Err wraps ErrMalformedRecord when the record failed to parse
	Err error
}

// SnapshotReader serves precomputed cell rankings
type SnapshotReader interface {
	// SnapshotRead returns up to limit ranked entries read from a single consistent
	// version of the cell's snapshot
	SnapshotRead(ctx context.Context, cell geo.CellKey, limit int) ([]SnapshotEntry, error)

	// SnapshotReadTop returns up to limit item ids in descending score order
	SnapshotReadTop(ctx context.Context, cell geo.CellKey, limit int) ([]string, error)

	// SnapshotReadItem returns the item's record in the cell. ok is false when absent;
	// an unparseable record yields an error wrapping ErrMalformedRecord.
	SnapshotReadItem(ctx context.Context, cell geo.CellKey, itemID string) (record ItemRecord, ok bool, err error)
}

// ScoreStore is the full capability set the trending engine consumes
type ScoreStore interface {
	GeoIndex
	ScoreIndex
	EventLog
	SnapshotWriter
	SnapshotReader
}
