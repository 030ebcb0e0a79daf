// internal/service/simulation/generator.go

package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/logging"
)

// Ingestor is the ingestion contract synthetic events are fed into
type Ingestor interface {
	Ingest(ctx context.Context, itemID string, kind trend.EventKind, location geo.Location) error
}

// ItemPicker chooses an existing item at random
type ItemPicker interface {
	// RandomID returns an item id; ok is false when there are no items
	RandomID(ctx context.Context) (id string, ok bool, err error)
}

// StaticItems picks from a fixed id list
type StaticItems struct {
	ids []string
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStaticItems creates a picker over ids
func NewStaticItems(ids []string, seed int64) *StaticItems {
	return &StaticItems{
		ids: ids,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// RandomID returns one of the configured ids
func (s *StaticItems) RandomID(ctx context.Context) (string, bool, error) {
	if len(s.ids) == 0 {
		return "", false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[s.rng.Intn(len(s.ids))], true, nil
}

// GeneratorConfig contains configuration for the traffic generator
type GeneratorConfig struct {
	Interval time.Duration
	Bounds   geo.BoundingBox
	Seed     int64
}

// Generator emits synthetic interactions to drive the pipeline end to end
type Generator struct {
	ingestor Ingestor
	items    ItemPicker
	config   GeneratorConfig
	rng      *rand.Rand
	log      zerolog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewGenerator creates a new generator. A zero seed uses the current time.
func NewGenerator(ingestor Ingestor, items ItemPicker, config GeneratorConfig) *Generator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		ingestor: ingestor,
		items:    items,
		config:   config,
		rng:      rand.New(rand.NewSource(seed)),
		log:      logging.Component("simulation"),
	}
}

// Start begins emitting one event per interval
func (g *Generator) Start(ctx context.Context) error {
	if g.config.Interval <= 0 {
		return fmt.Errorf("simulation interval must be positive, got %s", g.config.Interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ticker := time.NewTicker(g.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := g.Emit(ctx); err != nil && ctx.Err() == nil {
					g.log.Warn().Err(err).Msg("Error emitting synthetic event")
				}
			}
		}
	}()

	g.log.Info().Dur("interval", g.config.Interval).Msg("Traffic simulation started")
	return nil
}

// Emit generates and ingests a single synthetic event.
// It is called from one goroutine at a time.
func (g *Generator) Emit(ctx context.Context) error {
	location := g.config.Bounds.RandomLocation(g.rng)

	itemID, ok, err := g.items.RandomID(ctx)
	if err != nil {
		return fmt.Errorf("error picking item: %w", err)
	}
	if !ok {
		return nil
	}

	kinds := trend.EventKinds()
	kind := kinds[g.rng.Intn(len(kinds))]

	if err := g.ingestor.Ingest(ctx, itemID, kind, location); err != nil {
		return err
	}

	g.log.Debug().
		Str("item", itemID).
		Str("kind", string(kind)).
		Str("location", location.String()).
		Msg("Synthetic event")
	return nil
}

// Stop stops the generator
func (g *Generator) Stop(ctx context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}

	c := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
