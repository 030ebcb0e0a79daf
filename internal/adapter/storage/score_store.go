// internal/adapter/storage/score_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/logging"
	"geotrend/internal/metrics"
)

// Redis key layout
const (
	geoItemsKey         = "geo:items"
	scoreItemsKey       = "score:items"
	eventsPrefix        = "events:"
	trendingPrefix      = "trending:"
	snapshotItemsSuffix = ":items"
)

// ScoreStoreConfig contains configuration for the Redis score store
type ScoreStoreConfig struct {
	// Namespace is prepended to every key; empty means none
	Namespace string

	// EventLogMaxLen caps each item's event log; 0 keeps every event
	EventLogMaxLen int64
}

// RedisScoreStore implements trend.ScoreStore on Redis GEO, sorted set, list and hash types
type RedisScoreStore struct {
	client redis.UniversalClient
	config ScoreStoreConfig
}

var _ trend.ScoreStore = (*RedisScoreStore)(nil)

// NewRedisScoreStore creates a new score store
func NewRedisScoreStore(client redis.UniversalClient, config ScoreStoreConfig) *RedisScoreStore {
	return &RedisScoreStore{
		client: client,
		config: config,
	}
}

// NewRedisClient creates a Redis client from a redis:// URL
func NewRedisClient(url string, configure func(*redis.Options)) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}
	if configure != nil {
		configure(opts)
	}
	return redis.NewClient(opts), nil
}

// Ping checks connectivity
func (s *RedisScoreStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisScoreStore) key(parts ...string) string {
	k := s.config.Namespace
	for _, p := range parts {
		k += p
	}
	return k
}

func (s *RedisScoreStore) eventsKey(itemID string) string {
	return s.key(eventsPrefix, itemID)
}

func (s *RedisScoreStore) rankKey(cell geo.CellKey) string {
	return s.key(trendingPrefix, cell.String())
}

func (s *RedisScoreStore) itemsKey(cell geo.CellKey) string {
	return s.key(trendingPrefix, cell.String(), snapshotItemsSuffix)
}

// GeoUpsert sets the item's position
func (s *RedisScoreStore) GeoUpsert(ctx context.Context, itemID string, location geo.Location) error {
	err := s.client.GeoAdd(ctx, s.key(geoItemsKey), &redis.GeoLocation{
		Name:      itemID,
		Longitude: location.Longitude,
		Latitude:  location.Latitude,
	}).Err()
	if err != nil {
		return fmt.Errorf("error adding geo position: %w", err)
	}
	return nil
}

// GeoQueryRadius returns items within radiusKm of center, nearest first
func (s *RedisScoreStore) GeoQueryRadius(ctx context.Context, center geo.Location, radiusKm float64) ([]trend.Neighbor, error) {
	locations, err := s.client.GeoRadius(ctx, s.key(geoItemsKey), center.Longitude, center.Latitude, &redis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("error querying geo radius: %w", err)
	}

	neighbors := make([]trend.Neighbor, 0, len(locations))
	for _, l := range locations {
		neighbors = append(neighbors, trend.Neighbor{ItemID: l.Name, DistanceKm: l.Dist})
	}
	return neighbors, nil
}

// ScoreIncrement atomically adds delta to the item's cumulative score
func (s *RedisScoreStore) ScoreIncrement(ctx context.Context, itemID string, delta float64) error {
	if err := s.client.ZIncrBy(ctx, s.key(scoreItemsKey), delta, itemID).Err(); err != nil {
		return fmt.Errorf("error incrementing score: %w", err)
	}
	return nil
}

// ScoreGet returns the item's cumulative score
func (s *RedisScoreStore) ScoreGet(ctx context.Context, itemID string) (float64, bool, error) {
	score, err := s.client.ZScore(ctx, s.key(scoreItemsKey), itemID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error reading score: %w", err)
	}
	return score, true, nil
}

// EventLogAppend pushes the event to the head of the item's log
func (s *RedisScoreStore) EventLogAppend(ctx context.Context, itemID string, event trend.DecayEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	key := s.eventsKey(itemID)
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		if s.config.EventLogMaxLen > 0 {
			pipe.LTrim(ctx, key, 0, s.config.EventLogMaxLen-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error appending event: %w", err)
	}
	return nil
}

// EventLogReadAll returns the item's events newest first, skipping unparseable entries
func (s *RedisScoreStore) EventLogReadAll(ctx context.Context, itemID string) ([]trend.DecayEvent, error) {
	raw, err := s.client.LRange(ctx, s.eventsKey(itemID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading events: %w", err)
	}

	events := make([]trend.DecayEvent, 0, len(raw))
	for _, payload := range raw {
		var e trend.DecayEvent
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			metrics.RecordMalformed("event_log")
			logging.Warn().
				Err(err).
				Str("item", itemID).
				Str("payload", payload).
				Msg("Skipping malformed event")
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// SnapshotReplace swaps the cell's ranked list and item records in one MULTI/EXEC.
// The ranked list stores the position as the member score so ties keep their order.
func (s *RedisScoreStore) SnapshotReplace(ctx context.Context, cell geo.CellKey, ranked []trend.Result) error {
	rankKey, itemsKey := s.rankKey(cell), s.itemsKey(cell)

	members := make([]redis.Z, 0, len(ranked))
	fields := make(map[string]interface{}, len(ranked))
	for i, r := range ranked {
		record, err := json.Marshal(trend.ItemRecord{Score: r.Score, DistanceKm: r.DistanceKm})
		if err != nil {
			return fmt.Errorf("error marshaling item record: %w", err)
		}
		members = append(members, redis.Z{Score: float64(i), Member: r.ItemID})
		fields[r.ItemID] = record
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rankKey, itemsKey)
		if len(members) > 0 {
			pipe.ZAdd(ctx, rankKey, members...)
			pipe.HSet(ctx, itemsKey, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error replacing snapshot %s: %w", cell, err)
	}
	return nil
}

// SnapshotReadTop returns up to limit item ids of the cell in rank order
func (s *RedisScoreStore) SnapshotReadTop(ctx context.Context, cell geo.CellKey, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	ids, err := s.client.ZRange(ctx, s.rankKey(cell), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot %s: %w", cell, err)
	}
	return ids, nil
}

// SnapshotRead returns up to limit ranked entries of the cell with their records.
// The ranked list and the item records are read in one MULTI/EXEC so a concurrent
// SnapshotReplace is observed either entirely or not at all.
func (s *RedisScoreStore) SnapshotRead(ctx context.Context, cell geo.CellKey, limit int) ([]trend.SnapshotEntry, error) {
	if limit <= 0 {
		return []trend.SnapshotEntry{}, nil
	}

	var (
		rank  *redis.StringSliceCmd
		items *redis.MapStringStringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rank = pipe.ZRange(ctx, s.rankKey(cell), 0, int64(limit-1))
		items = pipe.HGetAll(ctx, s.itemsKey(cell))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot %s: %w", cell, err)
	}

	records := items.Val()
	entries := make([]trend.SnapshotEntry, 0, len(rank.Val()))
	for _, id := range rank.Val() {
		entry := trend.SnapshotEntry{ItemID: id}
		if payload, ok := records[id]; ok {
			entry.Record, entry.Err = decodeItemRecord(payload)
			entry.Found = entry.Err == nil
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SnapshotReadItem returns one item record of the cell
func (s *RedisScoreStore) SnapshotReadItem(ctx context.Context, cell geo.CellKey, itemID string) (trend.ItemRecord, bool, error) {
	payload, err := s.client.HGet(ctx, s.itemsKey(cell), itemID).Result()
	if errors.Is(err, redis.Nil) {
		return trend.ItemRecord{}, false, nil
	}
	if err != nil {
		return trend.ItemRecord{}, false, fmt.Errorf("error reading snapshot item: %w", err)
	}

	record, err := decodeItemRecord(payload)
	if err != nil {
		return trend.ItemRecord{}, false, err
	}
	return record, true, nil
}

// decodeItemRecord parses a record, accepting numbers or numeric strings for each field
func decodeItemRecord(payload string) (trend.ItemRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return trend.ItemRecord{}, fmt.Errorf("%w: %v", trend.ErrMalformedRecord, err)
	}

	score, err := decodeNumber(fields["score"])
	if err != nil {
		return trend.ItemRecord{}, fmt.Errorf("%w: score: %v", trend.ErrMalformedRecord, err)
	}
	distance, err := decodeNumber(fields["distance"])
	if err != nil {
		return trend.ItemRecord{}, fmt.Errorf("%w: distance: %v", trend.ErrMalformedRecord, err)
	}

	return trend.ItemRecord{Score: score, DistanceKm: distance}, nil
}

// decodeNumber reads a JSON number or numeric string; a missing field is zero
func decodeNumber(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(str, 64)
}
