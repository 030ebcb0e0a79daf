// internal/service/trending/lookup.go

package trending

import (
	"context"
	"errors"
	"time"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/logging"
	"geotrend/internal/metrics"
)

// LookupNearby serves the precomputed ranking of the grid cell containing location.
// It never recomputes; its staleness is bounded by the scheduler interval.
// Ranks and records come from one snapshot version.
// Missing or malformed item records are skipped so a partial result is returned.
func (s *Service) LookupNearby(ctx context.Context, location geo.Location, limit int) ([]trend.Result, error) {
	if limit <= 0 {
		return []trend.Result{}, nil
	}

	start := time.Now()
	cell := s.config.Grid.Snap(location.Latitude, location.Longitude)

	var entries []trend.SnapshotEntry
	if err := s.storeCall(ctx, "snapshot read", func(ctx context.Context) error {
		var err error
		entries, err = s.store.SnapshotRead(ctx, cell, limit)
		return err
	}); err != nil {
		return nil, err
	}

	results := make([]trend.Result, 0, len(entries))
	for _, entry := range entries {
		if errors.Is(entry.Err, trend.ErrMalformedRecord) {
			metrics.RecordMalformed("snapshot")
			logging.Warn().
				Err(entry.Err).
				Str("cell", cell.String()).
				Str("item", entry.ItemID).
				Msg("Skipping malformed snapshot record")
			continue
		}
		if !entry.Found {
			continue
		}

		results = append(results, trend.Result{
			ItemID:     entry.ItemID,
			Score:      entry.Record.Score,
			DistanceKm: entry.Record.DistanceKm,
		})
	}

	metrics.RecordQuery("snapshot", time.Since(start).Seconds(), len(results))
	return results, nil
}
