// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"geotrend/internal/domain/geo"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Log         LogConfig
	Redis       RedisConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Trending    TrendingConfig
	Grid        GridConfig
	Simulation  SimulationConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Caller bool
}

// RedisConfig holds score store configuration
type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds document store configuration
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled        bool
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// TrendingConfig holds live path configuration
type TrendingConfig struct {
	StoreTimeout   time.Duration
	DefaultRadius  float64
	MaxRadius      float64
	DefaultLimit   int
	MaxLimit       int
	EventLogMaxLen int64
	EventsTopic    string
}

// GridConfig holds precomputation scheduler configuration
type GridConfig struct {
	Enabled     bool
	Interval    time.Duration
	StartLat    float64
	EndLat      float64
	StartLon    float64
	EndLon      float64
	Step        float64
	RadiusKm    float64
	Limit       int
	Workers     int
	CellTimeout time.Duration
	RunOnStart  bool
}

// Bounds returns the scan box
func (g GridConfig) Bounds() geo.BoundingBox {
	return geo.BoundingBox{MinLat: g.StartLat, MaxLat: g.EndLat, MinLon: g.StartLon, MaxLon: g.EndLon}
}

// SimulationConfig holds synthetic traffic configuration
type SimulationConfig struct {
	Enabled  bool
	Interval time.Duration
	MinLat   float64
	MaxLat   float64
	MinLon   float64
	MaxLon   float64
	ItemIDs  []string
	Seed     int64
}

// Bounds returns the box synthetic events are placed in
func (s SimulationConfig) Bounds() geo.BoundingBox {
	return geo.BoundingBox{MinLat: s.MinLat, MaxLat: s.MaxLat, MinLon: s.MinLon, MaxLon: s.MaxLon}
}

// Load loads configuration from a .env file, if present, and environment variables
func Load() (Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv loads configuration from environment variables only
func FromEnv() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Caller: getEnvAsBool("LOG_CALLER", false),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10*runtime.GOMAXPROCS(0)),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "geotrend"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			Enabled:        getEnvAsBool("NATS_ENABLED", false),
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Trending: TrendingConfig{
			StoreTimeout:   getEnvAsDuration("TRENDING_STORE_TIMEOUT", 2*time.Second),
			DefaultRadius:  getEnvAsFloat("TRENDING_DEFAULT_RADIUS", 50.0),
			MaxRadius:      getEnvAsFloat("TRENDING_MAX_RADIUS", 500.0),
			DefaultLimit:   getEnvAsInt("TRENDING_DEFAULT_LIMIT", 10),
			MaxLimit:       getEnvAsInt("TRENDING_MAX_LIMIT", 100),
			EventLogMaxLen: int64(getEnvAsInt("TRENDING_EVENT_LOG_MAX_LEN", 0)),
			EventsTopic:    getEnv("TRENDING_EVENTS_TOPIC", "trending"),
		},
		Grid: GridConfig{
			Enabled:     getEnvAsBool("GRID_ENABLED", true),
			Interval:    getEnvAsDuration("GRID_INTERVAL", 5*time.Second),
			StartLat:    getEnvAsFloat("GRID_START_LAT", 6.5),
			EndLat:      getEnvAsFloat("GRID_END_LAT", 37.0),
			StartLon:    getEnvAsFloat("GRID_START_LON", 68.0),
			EndLon:      getEnvAsFloat("GRID_END_LON", 97.5),
			Step:        getEnvAsFloat("GRID_STEP", 0.5),
			RadiusKm:    getEnvAsFloat("GRID_RADIUS_KM", 50.0),
			Limit:       getEnvAsInt("GRID_LIMIT", 100),
			Workers:     getEnvAsInt("GRID_WORKERS", runtime.GOMAXPROCS(0)),
			CellTimeout: getEnvAsDuration("GRID_CELL_TIMEOUT", 2*time.Second),
			RunOnStart:  getEnvAsBool("GRID_RUN_ON_START", true),
		},
		Simulation: SimulationConfig{
			Enabled:  getEnvAsBool("SIMULATION_ENABLED", false),
			Interval: getEnvAsDuration("SIMULATION_INTERVAL", 100*time.Millisecond),
			MinLat:   getEnvAsFloat("SIMULATION_MIN_LAT", 12.8),
			MaxLat:   getEnvAsFloat("SIMULATION_MAX_LAT", 28.8),
			MinLon:   getEnvAsFloat("SIMULATION_MIN_LON", 72.7),
			MaxLon:   getEnvAsFloat("SIMULATION_MAX_LON", 77.5),
			ItemIDs:  getEnvAsSlice("SIMULATION_ITEM_IDS", nil),
			Seed:     int64(getEnvAsInt("SIMULATION_SEED", 0)),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Trending.StoreTimeout <= 0 {
		return fmt.Errorf("trending store timeout must be positive")
	}
	if config.Trending.DefaultLimit <= 0 || config.Trending.DefaultLimit > config.Trending.MaxLimit {
		return fmt.Errorf("trending default limit must be in (0, %d]", config.Trending.MaxLimit)
	}
	if config.Trending.DefaultRadius <= 0 || config.Trending.DefaultRadius > config.Trending.MaxRadius {
		return fmt.Errorf("trending default radius must be in (0, %.1f]", config.Trending.MaxRadius)
	}
	if config.Trending.EventLogMaxLen < 0 {
		return fmt.Errorf("event log max length must not be negative")
	}

	if config.Grid.Enabled {
		if _, err := geo.NewGrid(config.Grid.Bounds(), config.Grid.Step); err != nil {
			return fmt.Errorf("grid: %w", err)
		}
		if config.Grid.Interval <= 0 {
			return fmt.Errorf("grid interval must be positive")
		}
		if config.Grid.Workers <= 0 {
			return fmt.Errorf("grid workers must be positive")
		}
		if config.Grid.RadiusKm <= 0 || config.Grid.Limit <= 0 {
			return fmt.Errorf("grid radius and limit must be positive")
		}
	}

	if config.Simulation.Enabled {
		if err := config.Simulation.Bounds().Validate(); err != nil {
			return fmt.Errorf("simulation: %w", err)
		}
		if !config.Database.Enabled && len(config.Simulation.ItemIDs) == 0 {
			return fmt.Errorf("simulation needs SIMULATION_ITEM_IDS or an enabled database")
		}
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
