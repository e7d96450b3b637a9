package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Editor   EditorConfig
	Export   ExportConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// RedisConfig holds the shared export cache configuration.
type RedisConfig struct {
	Addr     string
	TTL      time.Duration
	PoolSize int
	Enabled  bool
}

// KafkaConfig holds the satellite refresh publisher configuration.
type KafkaConfig struct {
	Brokers      []string
	RefreshTopic string
	Enabled      bool
}

// EditorConfig holds live editing session settings.
type EditorConfig struct {
	MaxZoom       float64
	FitPadding    int
	BoundsEpsilon float64
	// RefreshDelay is the wait between a boundary commit and the satellite
	// refresh it triggers.
	RefreshDelay  time.Duration
	FrameInterval time.Duration
}

// ExportConfig holds document export settings.
type ExportConfig struct {
	PreviewDPI   float64
	CacheEntries int
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "host.docker.internal")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "orchard")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_TTL", "24h")
	v.SetDefault("REDIS_POOL_SIZE", 16)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_REFRESH_TOPIC", "satellite.refresh")
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("EDITOR_MAX_ZOOM", 18)
	v.SetDefault("EDITOR_FIT_PADDING", 40)
	v.SetDefault("EDITOR_BOUNDS_EPSILON", 1e-9)
	v.SetDefault("EDITOR_REFRESH_DELAY", "2s")
	v.SetDefault("EDITOR_FRAME_INTERVAL", "16ms")
	v.SetDefault("EXPORT_PREVIEW_DPI", 96)
	v.SetDefault("EXPORT_CACHE_ENTRIES", 128)

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			TTL:      v.GetDuration("REDIS_TTL"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
			Enabled:  v.GetBool("REDIS_ENABLED"),
		},
		Kafka: KafkaConfig{
			Brokers:      parseOrigins(v.GetString("KAFKA_BROKERS")),
			RefreshTopic: v.GetString("KAFKA_REFRESH_TOPIC"),
			Enabled:      v.GetBool("KAFKA_ENABLED"),
		},
		Editor: EditorConfig{
			MaxZoom:       v.GetFloat64("EDITOR_MAX_ZOOM"),
			FitPadding:    v.GetInt("EDITOR_FIT_PADDING"),
			BoundsEpsilon: v.GetFloat64("EDITOR_BOUNDS_EPSILON"),
			RefreshDelay:  v.GetDuration("EDITOR_REFRESH_DELAY"),
			FrameInterval: v.GetDuration("EDITOR_FRAME_INTERVAL"),
		},
		Export: ExportConfig{
			PreviewDPI:   v.GetFloat64("EXPORT_PREVIEW_DPI"),
			CacheEntries: v.GetInt("EXPORT_CACHE_ENTRIES"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate optional backends only when enabled
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED is set")
	}
	if c.Redis.Enabled && c.Redis.PoolSize < 1 {
		return fmt.Errorf("REDIS_POOL_SIZE must be at least 1")
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("REDIS_TTL must be non-negative")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
		}
		if c.Kafka.RefreshTopic == "" {
			return fmt.Errorf("KAFKA_REFRESH_TOPIC is required when KAFKA_ENABLED is set")
		}
	}

	// Validate editor config
	if c.Editor.MaxZoom <= 0 {
		return fmt.Errorf("EDITOR_MAX_ZOOM must be positive")
	}
	if c.Editor.FitPadding < 0 {
		return fmt.Errorf("EDITOR_FIT_PADDING must be non-negative")
	}
	if c.Editor.BoundsEpsilon < 0 {
		return fmt.Errorf("EDITOR_BOUNDS_EPSILON must be non-negative")
	}
	if c.Editor.RefreshDelay < 0 {
		return fmt.Errorf("EDITOR_REFRESH_DELAY must be non-negative")
	}
	if c.Editor.FrameInterval <= 0 {
		return fmt.Errorf("EDITOR_FRAME_INTERVAL must be positive")
	}

	// Validate export config
	if c.Export.PreviewDPI <= 0 {
		return fmt.Errorf("EXPORT_PREVIEW_DPI must be positive")
	}
	if c.Export.CacheEntries < 1 {
		return fmt.Errorf("EXPORT_CACHE_ENTRIES must be at least 1")
	}

	return nil
}

// parseOrigins splits a comma-separated list (origins, brokers) into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
