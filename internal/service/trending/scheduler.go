// internal/service/trending/scheduler.go

package trending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/logging"
	"geotrend/internal/metrics"
)

// NearbyQuerier computes a live ranking around a point
type NearbyQuerier interface {
	QueryNearby(ctx context.Context, location geo.Location, radiusKm float64, limit int) ([]trend.Result, error)
}

// Publisher sends a message on the event bus. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// SchedulerConfig contains configuration for the grid scheduler
type SchedulerConfig struct {
	Interval    time.Duration
	RadiusKm    float64
	Limit       int
	Workers     int
	CellTimeout time.Duration
	RunOnStart  bool
	EventsTopic string
}

// PassStats summarizes one full grid pass
type PassStats struct {
	ID          string        `json:"id"`
	Cells       int           `json:"cells"`
	Updated     int           `json:"updated"`
	Empty       int           `json:"empty"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"durationNs"`
	CompletedAt time.Time     `json:"completedAt"`
}

// GridScheduler periodically recomputes every grid cell and stores the result as a snapshot
type GridScheduler struct {
	querier      NearbyQuerier
	snapshots    trend.SnapshotWriter
	grid         geo.Grid
	config       SchedulerConfig
	eventBus     Publisher
	passHandlers []func(PassStats)
	log          zerolog.Logger
	running      atomic.Bool
	mu           sync.RWMutex
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewGridScheduler creates a new grid scheduler; eventBus may be nil
func NewGridScheduler(
	querier NearbyQuerier,
	snapshots trend.SnapshotWriter,
	grid geo.Grid,
	eventBus Publisher,
	config SchedulerConfig,
) *GridScheduler {
	if config.Workers <= 0 {
		config.Workers = 1
	}

	return &GridScheduler{
		querier:   querier,
		snapshots: snapshots,
		grid:      grid,
		config:    config,
		eventBus:  eventBus,
		log:       logging.Component("grid-scheduler"),
	}
}

// RegisterPassHandler registers a callback invoked after every completed pass
func (gs *GridScheduler) RegisterPassHandler(handler func(PassStats)) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.passHandlers = append(gs.passHandlers, handler)
}

// Start begins the periodic recomputation
func (gs *GridScheduler) Start(ctx context.Context) error {
	if gs.config.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", gs.config.Interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	gs.cancel = cancel

	gs.wg.Add(1)
	go gs.run(ctx)

	gs.log.Info().
		Dur("interval", gs.config.Interval).
		Int("cells", gs.grid.Size()).
		Int("workers", gs.config.Workers).
		Msg("Grid scheduler started")

	return nil
}

// run fires a pass on every tick. Passes run off the ticker goroutine so a slow
// pass makes the following ticks skip instead of queueing.
func (gs *GridScheduler) run(ctx context.Context) {
	defer gs.wg.Done()

	ticker := time.NewTicker(gs.config.Interval)
	defer ticker.Stop()

	if gs.config.RunOnStart {
		gs.launch(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gs.launch(ctx)
		}
	}
}

func (gs *GridScheduler) launch(ctx context.Context) {
	gs.wg.Add(1)
	go func() {
		defer gs.wg.Done()
		gs.tick(ctx)
	}()
}

func (gs *GridScheduler) tick(ctx context.Context) {
	_, err := gs.RunOnce(ctx)
	switch {
	case errors.Is(err, trend.ErrPassInProgress):
		metrics.GridPassSkippedTotal.Inc()
		gs.log.Debug().Msg("Previous grid pass still running, skipping tick")
	case err != nil && ctx.Err() == nil:
		gs.log.Error().Err(err).Msg("Grid pass failed")
	}
}

// RunOnce performs one full grid pass synchronously.
// It returns ErrPassInProgress without doing any work when a pass is already running.
func (gs *GridScheduler) RunOnce(ctx context.Context) (PassStats, error) {
	if !gs.running.CompareAndSwap(false, true) {
		return PassStats{}, trend.ErrPassInProgress
	}
	defer gs.running.Store(false)

	start := time.Now()
	cells := gs.grid.Cells()

	var updated, empty, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(gs.config.Workers)

	for _, cell := range cells {
		if ctx.Err() != nil {
			break
		}

		cell := cell
		g.Go(func() error {
			outcome, err := gs.refreshCell(ctx, cell)
			metrics.RecordCell(outcome)

			switch outcome {
			case metrics.CellUpdated:
				updated.Add(1)
			case metrics.CellEmpty:
				empty.Add(1)
			default:
				failed.Add(1)
				gs.log.Warn().
					Err(err).
					Str("cell", cell.Key.String()).
					Msg("Grid cell recomputation failed, keeping previous snapshot")
			}
			// Cell failures never cancel the rest of the pass
			return nil
		})
	}
	_ = g.Wait()

	stats := PassStats{
		ID:          uuid.New().String(),
		Cells:       len(cells),
		Updated:     int(updated.Load()),
		Empty:       int(empty.Load()),
		Failed:      int(failed.Load()),
		Duration:    time.Since(start),
		CompletedAt: time.Now(),
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	metrics.GridPassDuration.Observe(stats.Duration.Seconds())
	metrics.GridLastPassTimestamp.Set(float64(stats.CompletedAt.Unix()))

	gs.log.Info().
		Str("pass", stats.ID).
		Int("updated", stats.Updated).
		Int("empty", stats.Empty).
		Int("failed", stats.Failed).
		Dur("duration", stats.Duration).
		Msg("Grid pass complete")

	if err := gs.publishPassEvent(stats); err != nil {
		gs.log.Warn().Err(err).Msg("Error publishing grid pass event")
	}
	gs.callPassHandlers(stats)

	return stats, nil
}

// refreshCell recomputes one cell. An empty ranking leaves the prior snapshot in place.
func (gs *GridScheduler) refreshCell(ctx context.Context, cell geo.Cell) (string, error) {
	if gs.config.CellTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gs.config.CellTimeout)
		defer cancel()
	}

	results, err := gs.querier.QueryNearby(ctx, cell.Center, gs.config.RadiusKm, gs.config.Limit)
	if err != nil {
		return metrics.CellFailed, fmt.Errorf("%w: %s: %v", trend.ErrCellCompute, cell.Key, err)
	}
	if len(results) == 0 {
		return metrics.CellEmpty, nil
	}

	if err := gs.snapshots.SnapshotReplace(ctx, cell.Key, results); err != nil {
		return metrics.CellFailed, fmt.Errorf("%w: %s: %v", trend.ErrCellCompute, cell.Key, err)
	}
	return metrics.CellUpdated, nil
}

// publishPassEvent publishes a grid refreshed event
func (gs *GridScheduler) publishPassEvent(stats PassStats) error {
	if gs.eventBus == nil {
		return nil
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("error marshaling pass stats: %w", err)
	}

	topic := fmt.Sprintf("%s.grid.refreshed", gs.config.EventsTopic)
	return gs.eventBus.Publish(topic, data)
}

// callPassHandlers calls all registered pass handlers
func (gs *GridScheduler) callPassHandlers(stats PassStats) {
	gs.mu.RLock()
	handlers := make([]func(PassStats), len(gs.passHandlers))
	copy(handlers, gs.passHandlers)
	gs.mu.RUnlock()

	for _, handler := range handlers {
		handler(stats)
	}
}

// Stop gracefully stops the scheduler, waiting for a running pass to finish
func (gs *GridScheduler) Stop(ctx context.Context) error {
	if gs.cancel != nil {
		gs.cancel()
	}

	c := make(chan struct{})
	go func() {
		gs.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
	case <-ctx.Done():
		return ctx.Err()
	}

	gs.log.Info().Msg("Grid scheduler stopped")
	return nil
}
