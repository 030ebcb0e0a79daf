// cmd/api/main.go

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"geotrend/internal/adapter/events"
	"geotrend/internal/adapter/storage"
	"geotrend/internal/config"
	"geotrend/internal/domain/article"
	"geotrend/internal/domain/geo"
	"geotrend/internal/logging"
	"geotrend/internal/server"
	"geotrend/internal/server/handlers"
	"geotrend/internal/service/simulation"
	"geotrend/internal/service/trending"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	var articles article.Finder
	var articleStore *storage.ArticleStore
	if cfg.Database.Enabled {
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()

		articleStore = storage.NewArticleStore(db)
		articles = articleStore
	}

	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = events.Connect(cfg.NATS.URL, cfg.NATS.MaxReconnects, cfg.NATS.ReconnectWait, cfg.NATS.ConnectTimeout)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer natsConn.Close()
	}

	// Initialize storage adapters
	scoreStore := storage.NewRedisScoreStore(redisClient, storage.ScoreStoreConfig{
		EventLogMaxLen: cfg.Trending.EventLogMaxLen,
	})

	grid, err := geo.NewGrid(cfg.Grid.Bounds(), cfg.Grid.Step)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid grid")
	}

	// Initialize services
	trendingService := trending.NewService(scoreStore, trending.ServiceConfig{
		StoreTimeout: cfg.Trending.StoreTimeout,
		Grid:         grid,
	})

	hub := handlers.NewTrendingHub(handlers.DefaultWebSocketConfig())

	var scheduler *trending.GridScheduler
	if cfg.Grid.Enabled {
		var publisher trending.Publisher
		if natsConn != nil {
			publisher = natsConn
		}

		scheduler = trending.NewGridScheduler(trendingService, scoreStore, grid, publisher, trending.SchedulerConfig{
			Interval:    cfg.Grid.Interval,
			RadiusKm:    cfg.Grid.RadiusKm,
			Limit:       cfg.Grid.Limit,
			Workers:     cfg.Grid.Workers,
			CellTimeout: cfg.Grid.CellTimeout,
			RunOnStart:  cfg.Grid.RunOnStart,
			EventsTopic: cfg.Trending.EventsTopic,
		})

		scheduler.RegisterPassHandler(func(stats trending.PassStats) {
			msg, err := json.Marshal(map[string]interface{}{
				"type": "grid.refreshed",
				"pass": stats,
			})
			if err != nil {
				return
			}
			hub.Broadcast(msg)
		})

		if err := scheduler.Start(ctx); err != nil {
			logging.Fatal().Err(err).Msg("Failed to start grid scheduler")
		}
	}

	var eventSource *events.NATSEventSource
	if natsConn != nil {
		eventSource = events.NewNATSEventSource(natsConn, trendingService, cfg.Trending.EventsTopic, cfg.Trending.StoreTimeout*3)
		if err := eventSource.Start(); err != nil {
			logging.Fatal().Err(err).Msg("Failed to start event source")
		}
	}

	var generator *simulation.Generator
	if cfg.Simulation.Enabled {
		var picker simulation.ItemPicker
		if len(cfg.Simulation.ItemIDs) > 0 {
			picker = simulation.NewStaticItems(cfg.Simulation.ItemIDs, cfg.Simulation.Seed)
		} else {
			picker = articleStore
		}

		generator = simulation.NewGenerator(trendingService, picker, simulation.GeneratorConfig{
			Interval: cfg.Simulation.Interval,
			Bounds:   cfg.Simulation.Bounds(),
			Seed:     cfg.Simulation.Seed,
		})
		if err := generator.Start(ctx); err != nil {
			logging.Fatal().Err(err).Msg("Failed to start traffic simulation")
		}
	}

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, cfg.Trending, trendingService, articles, hub)

	// Start HTTP server
	go func() {
		logging.Info().Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logging.Info().Msg("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if generator != nil {
		if err := generator.Stop(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("Traffic simulation shutdown error")
		}
	}

	if eventSource != nil {
		if err := eventSource.Stop(); err != nil {
			logging.Error().Err(err).Msg("Event source shutdown error")
		}
	}

	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("Grid scheduler shutdown error")
		}
	}

	logging.Info().Msg("Shutdown complete")
}

// Initialize Redis connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client, err := storage.NewRedisClient(cfg.URL, func(opts *redis.Options) {
		opts.PoolSize = cfg.PoolSize
		opts.DialTimeout = cfg.DialTimeout
		opts.ReadTimeout = cfg.ReadTimeout
		opts.WriteTimeout = cfg.WriteTimeout
	})
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	return client, nil
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}
