package trending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
)

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("records event, score and position", func(t *testing.T) {
		env := setupTestEnv(t)
		loc := geo.Location{Latitude: 10.0, Longitude: 20.0}

		require.NoError(t, env.service.Ingest(ctx, "A", trend.EventShare, loc))

		events, err := env.store.EventLogReadAll(ctx, "A")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, trend.DecayEvent{
			Kind:      trend.EventShare,
			Weight:    3.0,
			Timestamp: env.clock.Now().UnixMilli(),
		}, events[0])

		score, ok, err := env.store.ScoreGet(ctx, "A")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3.0, score)

		neighbors, err := env.store.GeoQueryRadius(ctx, loc, 1)
		require.NoError(t, err)
		require.Len(t, neighbors, 1)
		assert.Equal(t, "A", neighbors[0].ItemID)
	})

	t.Run("cumulative score is the sum of weights", func(t *testing.T) {
		env := setupTestEnv(t)
		loc := geo.Location{Latitude: 10.0, Longitude: 20.0}

		kinds := []trend.EventKind{trend.EventView, trend.EventClick, trend.EventShare, trend.EventView, trend.EventClick}
		var want, prev float64
		for _, kind := range kinds {
			require.NoError(t, env.service.Ingest(ctx, "A", kind, loc))
			w, _ := trend.WeightFor(kind)
			want += w

			score, _, err := env.store.ScoreGet(ctx, "A")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
		assert.Equal(t, want, prev)
	})

	t.Run("concurrent ingestion converges to the sum", func(t *testing.T) {
		env := setupTestEnv(t)
		loc := geo.Location{Latitude: 10.0, Longitude: 20.0}

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, env.service.Ingest(ctx, "A", trend.EventClick, loc))
			}()
		}
		wg.Wait()

		score, _, err := env.store.ScoreGet(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, 40.0, score)
	})

	t.Run("unknown kind is rejected without mutation", func(t *testing.T) {
		env := setupTestEnv(t)

		err := env.service.Ingest(ctx, "A", "bogus", geo.Location{})
		assert.ErrorIs(t, err, trend.ErrInvalidEventKind)
		assert.Empty(t, env.mr.Keys())
	})

	t.Run("empty item id is rejected", func(t *testing.T) {
		env := setupTestEnv(t)

		err := env.service.Ingest(ctx, "", trend.EventView, geo.Location{})
		assert.ErrorIs(t, err, ErrEmptyItemID)
		assert.Empty(t, env.mr.Keys())
	})

	t.Run("out of range location is rejected without mutation", func(t *testing.T) {
		env := setupTestEnv(t)

		for _, loc := range []geo.Location{
			{Latitude: 89, Longitude: 0},
			{Latitude: -86, Longitude: 0},
			{Latitude: 10, Longitude: 181},
		} {
			err := env.service.Ingest(ctx, "A", trend.EventShare, loc)
			assert.ErrorIs(t, err, ErrInvalidLocation)
			assert.NotErrorIs(t, err, trend.ErrStoreUnavailable)
		}
		assert.Empty(t, env.mr.Keys())
	})

	t.Run("store failure surfaces as unavailable", func(t *testing.T) {
		env := setupTestEnv(t)
		env.mr.SetError("ERR backend offline")

		err := env.service.Ingest(ctx, "A", trend.EventView, geo.Location{Latitude: 10, Longitude: 20})
		assert.ErrorIs(t, err, trend.ErrStoreUnavailable)
	})

	t.Run("stuck store call times out", func(t *testing.T) {
		env := setupTestEnv(t)
		svc := NewService(&blockingStore{ScoreStore: env.store, blockEvents: true}, ServiceConfig{
			StoreTimeout: 20 * time.Millisecond,
			Grid:         env.grid,
		})

		err := svc.Ingest(ctx, "A", trend.EventView, geo.Location{Latitude: 10, Longitude: 20})
		assert.ErrorIs(t, err, trend.ErrStoreUnavailable)

		_, ok, err := env.store.ScoreGet(ctx, "A")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
