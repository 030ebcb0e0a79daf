// internal/service/trending/ingest.go

package trending

import (
	"context"
	"errors"
	"fmt"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/metrics"
)

// Ingestor accepts raw interactions
type Ingestor interface {
	Ingest(ctx context.Context, itemID string, kind trend.EventKind, location geo.Location) error
}

var (
	// ErrEmptyItemID rejects an ingestion without an item
	ErrEmptyItemID = errors.New("item id is required")

	// ErrInvalidLocation rejects coordinates the geo index cannot hold
	ErrInvalidLocation = errors.New("location out of range")
)

// Ingest records one interaction: the event is appended to the item's log, its weight
// added to the cumulative score and the item's position moved to location.
// The three writes are not atomic; a failure leaves the earlier ones applied.
func (s *Service) Ingest(ctx context.Context, itemID string, kind trend.EventKind, location geo.Location) error {
	weight, err := trend.WeightFor(kind)
	if err != nil {
		metrics.RecordIngest("invalid", "rejected")
		return err
	}
	if itemID == "" {
		metrics.RecordIngest(string(kind), "rejected")
		return ErrEmptyItemID
	}
	if !location.Valid() {
		metrics.RecordIngest(string(kind), "rejected")
		return fmt.Errorf("%w: %s", ErrInvalidLocation, location)
	}

	event := trend.DecayEvent{
		Kind:      kind,
		Weight:    weight,
		Timestamp: s.nowMillis(),
	}

	if err := s.storeCall(ctx, "event log append", func(ctx context.Context) error {
		return s.store.EventLogAppend(ctx, itemID, event)
	}); err != nil {
		metrics.RecordIngest(string(kind), "error")
		return err
	}

	if err := s.storeCall(ctx, "score increment", func(ctx context.Context) error {
		return s.store.ScoreIncrement(ctx, itemID, weight)
	}); err != nil {
		metrics.RecordIngest(string(kind), "error")
		return err
	}

	if err := s.storeCall(ctx, "geo upsert", func(ctx context.Context) error {
		return s.store.GeoUpsert(ctx, itemID, location)
	}); err != nil {
		metrics.RecordIngest(string(kind), "error")
		return err
	}

	metrics.RecordIngest(string(kind), "ok")
	return nil
}
