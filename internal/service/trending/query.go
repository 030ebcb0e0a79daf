// internal/service/trending/query.go

package trending

import (
	"context"
	"time"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/metrics"
)

// QueryNearby ranks the items within radiusKm of location by composite score.
// Items without a cumulative score are not trending-eligible and are skipped.
// An empty neighbourhood, limit <= 0 or radiusKm <= 0 yield an empty result.
func (s *Service) QueryNearby(ctx context.Context, location geo.Location, radiusKm float64, limit int) ([]trend.Result, error) {
	if limit <= 0 || radiusKm <= 0 {
		return []trend.Result{}, nil
	}

	start := time.Now()

	var neighbors []trend.Neighbor
	if err := s.storeCall(ctx, "geo radius query", func(ctx context.Context) error {
		var err error
		neighbors, err = s.store.GeoQueryRadius(ctx, location, radiusKm)
		return err
	}); err != nil {
		return nil, err
	}

	now := s.nowMillis()
	results := make([]trend.Result, 0, len(neighbors))

	for _, n := range neighbors {
		var (
			cumulative float64
			ok         bool
		)
		if err := s.storeCall(ctx, "score read", func(ctx context.Context) error {
			var err error
			cumulative, ok, err = s.store.ScoreGet(ctx, n.ItemID)
			return err
		}); err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		var events []trend.DecayEvent
		if err := s.storeCall(ctx, "event log read", func(ctx context.Context) error {
			var err error
			events, err = s.store.EventLogReadAll(ctx, n.ItemID)
			return err
		}); err != nil {
			return nil, err
		}

		recency := trend.RecencyFactor(events, now)
		results = append(results, trend.Result{
			ItemID:     n.ItemID,
			Score:      trend.CompositeScore(cumulative, recency, n.DistanceKm),
			DistanceKm: n.DistanceKm,
		})
	}

	trend.SortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}

	metrics.RecordQuery("live", time.Since(start).Seconds(), len(results))
	return results, nil
}
