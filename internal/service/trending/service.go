// internal/service/trending/service.go

package trending

import (
	"context"
	"fmt"
	"time"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
)

// ServiceConfig contains configuration for the trending service
type ServiceConfig struct {
	// StoreTimeout bounds every individual score store call
	StoreTimeout time.Duration

	// Grid is the cell layout shared with the precomputation scheduler
	Grid geo.Grid
}

// Service ingests events, answers live nearby queries and serves grid snapshots
type Service struct {
	store  trend.ScoreStore
	config ServiceConfig
	now    func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithClock overrides the wall clock used for event timestamps and decay
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new trending service
func NewService(store trend.ScoreStore, config ServiceConfig, opts ...Option) *Service {
	s := &Service{
		store:  store,
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grid returns the cell layout used by lookups
func (s *Service) Grid() geo.Grid {
	return s.config.Grid
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

// storeCall runs fn under the per-call timeout and maps failures to ErrStoreUnavailable
func (s *Service) storeCall(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.config.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.StoreTimeout)
		defer cancel()
	}

	if err := fn(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", trend.ErrStoreUnavailable, op, err)
	}
	return nil
}
