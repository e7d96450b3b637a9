package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Clear all environment variables
	clearConfigEnvVars()

	// Set only required env var (password has no default)
	os.Setenv("DB_PASSWORD", "testpass")
	defer os.Unsetenv("DB_PASSWORD")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify defaults
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "development" {
		t.Errorf("Expected env development, got %s", cfg.Server.Env)
	}
	if cfg.Database.Host != "host.docker.internal" {
		t.Errorf("Expected host host.docker.internal, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != "5432" {
		t.Errorf("Expected port 5432, got %s", cfg.Database.Port)
	}
	if cfg.Database.Name != "orchard" {
		t.Errorf("Expected db name orchard, got %s", cfg.Database.Name)
	}
	if cfg.Database.User != "postgres" {
		t.Errorf("Expected user postgres, got %s", cfg.Database.User)
	}
	if cfg.Database.PoolMin != 2 {
		t.Errorf("Expected pool min 2, got %d", cfg.Database.PoolMin)
	}
	if cfg.Database.PoolMax != 10 {
		t.Errorf("Expected pool max 10, got %d", cfg.Database.PoolMax)
	}
	if len(cfg.CORS.Origins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %d", len(cfg.CORS.Origins))
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled {
		t.Error("Expected redis and kafka to be disabled by default")
	}
	if cfg.Redis.PoolSize != 16 {
		t.Errorf("Expected redis pool size 16, got %d", cfg.Redis.PoolSize)
	}
	if cfg.Redis.TTL != 24*time.Hour {
		t.Errorf("Expected redis TTL 24h, got %s", cfg.Redis.TTL)
	}
	if cfg.Kafka.RefreshTopic != "satellite.refresh" {
		t.Errorf("Expected refresh topic satellite.refresh, got %s", cfg.Kafka.RefreshTopic)
	}
	if cfg.Editor.MaxZoom != 18 {
		t.Errorf("Expected max zoom 18, got %v", cfg.Editor.MaxZoom)
	}
	if cfg.Editor.FitPadding != 40 {
		t.Errorf("Expected fit padding 40, got %d", cfg.Editor.FitPadding)
	}
	if cfg.Editor.RefreshDelay != 2*time.Second {
		t.Errorf("Expected refresh delay 2s, got %s", cfg.Editor.RefreshDelay)
	}
	if cfg.Editor.FrameInterval != 16*time.Millisecond {
		t.Errorf("Expected frame interval 16ms, got %s", cfg.Editor.FrameInterval)
	}
	if cfg.Export.PreviewDPI != 96 {
		t.Errorf("Expected preview dpi 96, got %v", cfg.Export.PreviewDPI)
	}
	if cfg.Export.CacheEntries != 128 {
		t.Errorf("Expected 128 cache entries, got %d", cfg.Export.CacheEntries)
	}
}

func TestLoad_BackendSettings(t *testing.T) {
	clearConfigEnvVars()
	os.Setenv("DB_PASSWORD", "testpass")
	os.Setenv("REDIS_ENABLED", "true")
	os.Setenv("REDIS_ADDR", "cache:6379")
	os.Setenv("REDIS_TTL", "90m")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	os.Setenv("KAFKA_REFRESH_TOPIC", "tiles.refresh")
	os.Setenv("EDITOR_REFRESH_DELAY", "500ms")
	defer clearConfigEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache:6379" {
		t.Errorf("Unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Redis.TTL != 90*time.Minute {
		t.Errorf("Expected redis TTL 90m, got %s", cfg.Redis.TTL)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Unexpected kafka brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.RefreshTopic != "tiles.refresh" {
		t.Errorf("Expected topic tiles.refresh, got %s", cfg.Kafka.RefreshTopic)
	}
	if cfg.Editor.RefreshDelay != 500*time.Millisecond {
		t.Errorf("Expected refresh delay 500ms, got %s", cfg.Editor.RefreshDelay)
	}
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	// Set all environment variables
	os.Setenv("PORT", "9090")
	os.Setenv("ENV", "production")
	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("DB_NAME", "testdb")
	os.Setenv("DB_USER", "testuser")
	os.Setenv("DB_PASSWORD", "testpass")
	os.Setenv("DB_POOL_MIN", "5")
	os.Setenv("DB_POOL_MAX", "20")
	os.Setenv("CORS_ORIGINS", "http://example.com,https://app.example.com")
	defer clearConfigEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify all values from environment
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "production" {
		t.Errorf("Expected env production, got %s", cfg.Server.Env)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected host localhost, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != "5433" {
		t.Errorf("Expected port 5433, got %s", cfg.Database.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("Expected db name testdb, got %s", cfg.Database.Name)
	}
	if cfg.Database.User != "testuser" {
		t.Errorf("Expected user testuser, got %s", cfg.Database.User)
	}
	if cfg.Database.Password != "testpass" {
		t.Errorf("Expected password testpass, got %s", cfg.Database.Password)
	}
	if cfg.Database.PoolMin != 5 {
		t.Errorf("Expected pool min 5, got %d", cfg.Database.PoolMin)
	}
	if cfg.Database.PoolMax != 20 {
		t.Errorf("Expected pool max 20, got %d", cfg.Database.PoolMax)
	}
	if len(cfg.CORS.Origins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %d", len(cfg.CORS.Origins))
	}
	if cfg.CORS.Origins[0] != "http://example.com" {
		t.Errorf("Expected first origin http://example.com, got %s", cfg.CORS.Origins[0])
	}
}

func TestLoad_MissingPassword(t *testing.T) {
	// Clear all environment variables (password has no default)
	clearConfigEnvVars()

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DB_PASSWORD is missing")
	}
}

func TestValidate_InvalidPoolSizes(t *testing.T) {
	tests := []struct {
		name    string
		poolMin int
		poolMax int
		wantErr bool
	}{
		{
			name:    "negative pool min",
			poolMin: -1,
			poolMax: 10,
			wantErr: true,
		},
		{
			name:    "zero pool max",
			poolMin: 0,
			poolMax: 0,
			wantErr: true,
		},
		{
			name:    "pool min greater than max",
			poolMin: 15,
			poolMax: 10,
			wantErr: true,
		},
		{
			name:    "valid pool sizes",
			poolMin: 2,
			poolMax: 10,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.PoolMin = tt.poolMin
			cfg.Database.PoolMax = tt.poolMax

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }},
		{name: "missing db host", mutate: func(c *Config) { c.Database.Host = "" }},
		{name: "missing db password", mutate: func(c *Config) { c.Database.Password = "" }},
		{name: "missing CORS origins", mutate: func(c *Config) { c.CORS.Origins = []string{} }},
		{name: "redis enabled without address", mutate: func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}},
		{name: "redis enabled without pool", mutate: func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.PoolSize = 0
		}},
		{name: "kafka enabled without brokers", mutate: func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}},
		{name: "kafka enabled without topic", mutate: func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.RefreshTopic = ""
		}},
		{name: "zero max zoom", mutate: func(c *Config) { c.Editor.MaxZoom = 0 }},
		{name: "negative refresh delay", mutate: func(c *Config) { c.Editor.RefreshDelay = -time.Second }},
		{name: "zero frame interval", mutate: func(c *Config) { c.Editor.FrameInterval = 0 }},
		{name: "zero preview dpi", mutate: func(c *Config) { c.Export.PreviewDPI = 0 }},
		{name: "no cache entries", mutate: func(c *Config) { c.Export.CacheEntries = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}
}

func TestValidate_DisabledBackendsIgnored(t *testing.T) {
	cfg := validConfig()
	cfg.Redis = RedisConfig{}
	cfg.Kafka = KafkaConfig{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected disabled backends to pass validation, got %v", err)
	}
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "single origin",
			input:  "http://localhost:3000",
			expect: []string{"http://localhost:3000"},
		},
		{
			name:   "multiple origins",
			input:  "http://localhost:3000,http://localhost:3001",
			expect: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		{
			name:   "origins with spaces",
			input:  " http://localhost:3000 , http://localhost:3001 ",
			expect: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		{
			name:   "empty string",
			input:  "",
			expect: []string{},
		},
		{
			name:   "only commas",
			input:  ",,,",
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseOrigins(tt.input)
			if len(result) != len(tt.expect) {
				t.Errorf("Expected %d origins, got %d", len(tt.expect), len(result))
				return
			}
			for i, origin := range result {
				if origin != tt.expect[i] {
					t.Errorf("Expected origin %s at index %d, got %s", tt.expect[i], i, origin)
				}
			}
		})
	}
}

// Helper function to clear all config-related environment variables
func clearConfigEnvVars() {
	os.Unsetenv("PORT")
	os.Unsetenv("ENV")
	os.Unsetenv("DB_HOST")
	os.Unsetenv("DB_PORT")
	os.Unsetenv("DB_NAME")
	os.Unsetenv("DB_USER")
	os.Unsetenv("DB_PASSWORD")
	os.Unsetenv("DB_POOL_MIN")
	os.Unsetenv("DB_POOL_MAX")
	os.Unsetenv("CORS_ORIGINS")
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("REDIS_TTL")
	os.Unsetenv("REDIS_ENABLED")
	os.Unsetenv("REDIS_POOL_SIZE")
	os.Unsetenv("KAFKA_BROKERS")
	os.Unsetenv("KAFKA_REFRESH_TOPIC")
	os.Unsetenv("KAFKA_ENABLED")
	os.Unsetenv("EDITOR_MAX_ZOOM")
	os.Unsetenv("EDITOR_FIT_PADDING")
	os.Unsetenv("EDITOR_BOUNDS_EPSILON")
	os.Unsetenv("EDITOR_REFRESH_DELAY")
	os.Unsetenv("EDITOR_FRAME_INTERVAL")
	os.Unsetenv("EXPORT_PREVIEW_DPI")
	os.Unsetenv("EXPORT_CACHE_ENTRIES")
}

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Env: "development"},
		Database: DatabaseConfig{
			Host: "localhost", Port: "5432", Name: "orchard",
			User: "postgres", Password: "postgres", PoolMin: 2, PoolMax: 10,
		},
		CORS:  CORSConfig{Origins: []string{"http://localhost:3000"}},
		Redis: RedisConfig{Addr: "localhost:6379", TTL: time.Hour},
		Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}, RefreshTopic: "satellite.refresh"},
		Editor: EditorConfig{
			MaxZoom: 18, FitPadding: 40, BoundsEpsilon: 1e-9,
			RefreshDelay: 2 * time.Second, FrameInterval: 16 * time.Millisecond,
		},
		Export: ExportConfig{PreviewDPI: 96, CacheEntries: 128},
	}
}

