package trending

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"geotrend/internal/adapter/storage"
	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testGrid covers lat [10, 11] and lon [20, 21] with 0.5 degree cells (3x3)
func testGrid(t *testing.T) geo.Grid {
	t.Helper()
	g, err := geo.NewGrid(geo.BoundingBox{MinLat: 10, MaxLat: 11, MinLon: 20, MaxLon: 21}, 0.5)
	require.NoError(t, err)
	return g
}

type testEnv struct {
	mr      *miniredis.Miniredis
	store   *storage.RedisScoreStore
	service *Service
	clock   *fakeClock
	grid    geo.Grid
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := storage.NewRedisScoreStore(client, storage.ScoreStoreConfig{})
	clock := newFakeClock()
	grid := testGrid(t)

	service := NewService(store, ServiceConfig{
		StoreTimeout: time.Second,
		Grid:         grid,
	}, WithClock(clock.Now))

	return &testEnv{mr: mr, store: store, service: service, clock: clock, grid: grid}
}

// blockingStore stalls selected calls until their context expires
type blockingStore struct {
	trend.ScoreStore
	blockGeo    bool
	blockEvents bool
}

func (s *blockingStore) GeoQueryRadius(ctx context.Context, center geo.Location, radiusKm float64) ([]trend.Neighbor, error) {
	if s.blockGeo {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.ScoreStore.GeoQueryRadius(ctx, center, radiusKm)
}

func (s *blockingStore) EventLogAppend(ctx context.Context, itemID string, event trend.DecayEvent) error {
	if s.blockEvents {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.ScoreStore.EventLogAppend(ctx, itemID, event)
}
