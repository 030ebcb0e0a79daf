package trending

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/metrics"
)

type querierFunc func(ctx context.Context, location geo.Location, radiusKm float64, limit int) ([]trend.Result, error)

func (f querierFunc) QueryNearby(ctx context.Context, location geo.Location, radiusKm float64, limit int) ([]trend.Result, error) {
	return f(ctx, location, radiusKm, limit)
}

type publishedMessage struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{subject: subject, data: data})
	return nil
}

func (p *fakePublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:    time.Hour,
		RadiusKm:    10,
		Limit:       100,
		Workers:     4,
		CellTimeout: time.Second,
		EventsTopic: "trending",
	}
}

func TestGridScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("writes snapshots for cells with items", func(t *testing.T) {
		env := setupTestEnv(t)
		itemLoc := geo.Location{Latitude: 10.3, Longitude: 20.3}
		require.NoError(t, env.service.Ingest(ctx, "A", trend.EventShare, itemLoc))

		gs := NewGridScheduler(env.service, env.store, env.grid, nil, testSchedulerConfig())
		stats, err := gs.RunOnce(ctx)
		require.NoError(t, err)

		assert.Equal(t, 9, stats.Cells)
		assert.Equal(t, 1, stats.Updated)
		assert.Equal(t, 8, stats.Empty)
		assert.Equal(t, 0, stats.Failed)
		assert.NotEmpty(t, stats.ID)

		results, err := env.service.LookupNearby(ctx, itemLoc, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "A", results[0].ItemID)
		assert.Greater(t, results[0].Score, 0.0)

		ids, err := env.store.SnapshotReadTop(ctx, geo.CellKey{Lat: 10.5, Lon: 20.5}, 10)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("snapshot matches the live query at the cell center", func(t *testing.T) {
		env := setupTestEnv(t)
		require.NoError(t, env.service.Ingest(ctx, "A", trend.EventShare, geo.Location{Latitude: 10.3, Longitude: 20.3}))
		require.NoError(t, env.service.Ingest(ctx, "B", trend.EventView, geo.Location{Latitude: 10.2, Longitude: 20.2}))

		gs := NewGridScheduler(env.service, env.store, env.grid, nil, testSchedulerConfig())
		_, err := gs.RunOnce(ctx)
		require.NoError(t, err)

		cell := env.grid.Snap(10.3, 20.3)
		center := geo.Location{Latitude: cell.Lat + 0.25, Longitude: cell.Lon + 0.25}
		live, err := env.service.QueryNearby(ctx, center, 10, 100)
		require.NoError(t, err)

		snapshot, err := env.service.LookupNearby(ctx, center, 100)
		require.NoError(t, err)
		assert.Equal(t, live, snapshot)
	})

	t.Run("empty cells keep their previous snapshot", func(t *testing.T) {
		env := setupTestEnv(t)
		cell := geo.CellKey{Lat: 10.5, Lon: 20.5}
		stale := []trend.Result{{ItemID: "old", Score: 5, DistanceKm: 2}}
		require.NoError(t, env.store.SnapshotReplace(ctx, cell, stale))

		gs := NewGridScheduler(env.service, env.store, env.grid, nil, testSchedulerConfig())
		stats, err := gs.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 9, stats.Empty)

		results, err := env.service.LookupNearby(ctx, cell.Location(), 10)
		require.NoError(t, err)
		assert.Equal(t, stale, results)
	})

	t.Run("a failing cell does not stop the pass", func(t *testing.T) {
		env := setupTestEnv(t)
		broken := geo.CellKey{Lat: 10.5, Lon: 20.5}
		stale := []trend.Result{{ItemID: "old", Score: 5, DistanceKm: 2}}
		require.NoError(t, env.store.SnapshotReplace(ctx, broken, stale))

		q := querierFunc(func(_ context.Context, loc geo.Location, _ float64, _ int) ([]trend.Result, error) {
			if env.grid.Snap(loc.Latitude, loc.Longitude) == broken {
				return nil, errors.New("boom")
			}
			return []trend.Result{{ItemID: "fresh", Score: 1, DistanceKm: 1}}, nil
		})

		gs := NewGridScheduler(q, env.store, env.grid, nil, testSchedulerConfig())
		stats, err := gs.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8, stats.Updated)
		assert.Equal(t, 1, stats.Failed)

		ids, err := env.store.SnapshotReadTop(ctx, broken, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"old"}, ids)

		ids, err = env.store.SnapshotReadTop(ctx, geo.CellKey{Lat: 10, Lon: 20}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, ids)
	})

	t.Run("a slow cell is bounded by the cell timeout", func(t *testing.T) {
		env := setupTestEnv(t)
		slow := geo.CellKey{Lat: 10, Lon: 20}

		q := querierFunc(func(ctx context.Context, loc geo.Location, _ float64, _ int) ([]trend.Result, error) {
			if env.grid.Snap(loc.Latitude, loc.Longitude) == slow {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return nil, nil
		})

		config := testSchedulerConfig()
		config.CellTimeout = 20 * time.Millisecond
		gs := NewGridScheduler(q, env.store, env.grid, nil, config)

		stats, err := gs.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 8, stats.Empty)
	})

	t.Run("concurrent pass is skipped", func(t *testing.T) {
		env := setupTestEnv(t)
		started := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once

		q := querierFunc(func(context.Context, geo.Location, float64, int) ([]trend.Result, error) {
			once.Do(func() { close(started) })
			<-release
			return nil, nil
		})

		config := testSchedulerConfig()
		config.Workers = 1
		config.CellTimeout = 0
		gs := NewGridScheduler(q, env.store, env.grid, nil, config)

		done := make(chan error, 1)
		go func() {
			_, err := gs.RunOnce(ctx)
			done <- err
		}()
		<-started

		_, err := gs.RunOnce(ctx)
		assert.ErrorIs(t, err, trend.ErrPassInProgress)

		before := testutil.ToFloat64(metrics.GridPassSkippedTotal)
		gs.tick(ctx)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.GridPassSkippedTotal))

		close(release)
		require.NoError(t, <-done)

		_, err = gs.RunOnce(ctx)
		assert.NoError(t, err)
	})

	t.Run("publishes and notifies after a pass", func(t *testing.T) {
		env := setupTestEnv(t)
		bus := &fakePublisher{}
		gs := NewGridScheduler(env.service, env.store, env.grid, bus, testSchedulerConfig())

		var received []PassStats
		gs.RegisterPassHandler(func(stats PassStats) {
			received = append(received, stats)
		})

		stats, err := gs.RunOnce(ctx)
		require.NoError(t, err)

		require.Len(t, received, 1)
		assert.Equal(t, stats.ID, received[0].ID)

		messages := bus.Messages()
		require.Len(t, messages, 1)
		assert.Equal(t, "trending.grid.refreshed", messages[0].subject)

		var published PassStats
		require.NoError(t, json.Unmarshal(messages[0].data, &published))
		assert.Equal(t, stats.ID, published.ID)
		assert.Equal(t, stats.Cells, published.Cells)
	})

	t.Run("cancelled pass reports the context error", func(t *testing.T) {
		env := setupTestEnv(t)
		gs := NewGridScheduler(env.service, env.store, env.grid, nil, testSchedulerConfig())

		called := false
		gs.RegisterPassHandler(func(PassStats) { called = true })

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := gs.RunOnce(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestGridScheduler_StartStop(t *testing.T) {
	t.Run("runs passes on every tick", func(t *testing.T) {
		env := setupTestEnv(t)
		config := testSchedulerConfig()
		config.Interval = 10 * time.Millisecond
		config.RunOnStart = true

		gs := NewGridScheduler(env.service, env.store, env.grid, nil, config)
		passes := make(chan PassStats, 16)
		gs.RegisterPassHandler(func(stats PassStats) {
			select {
			case passes <- stats:
			default:
			}
		})

		require.NoError(t, gs.Start(context.Background()))

		for i := 0; i < 2; i++ {
			select {
			case <-passes:
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for a grid pass")
			}
		}

		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, gs.Stop(stopCtx))
	})

	t.Run("rejects a non-positive interval", func(t *testing.T) {
		env := setupTestEnv(t)
		config := testSchedulerConfig()
		config.Interval = 0

		gs := NewGridScheduler(env.service, env.store, env.grid, nil, config)
		assert.Error(t, gs.Start(context.Background()))
	})
}
