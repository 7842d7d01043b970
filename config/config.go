package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the feed service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	Listen    string `mapstructure:"listen"`
	JWTSecret string `mapstructure:"jwt_secret"`
	// Language is the feed's target language code; candidates carrying a
	// different non-empty language are filtered out.
	Language string `mapstructure:"language"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// VectorConfig selects and tunes the vector index backend.
// Provider is one of "pgvector", "memory", "disabled".
type VectorConfig struct {
	Provider   string        `mapstructure:"provider"`
	Dimensions int           `mapstructure:"dimensions"`
	TopK       int           `mapstructure:"top_k"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (v VectorConfig) Validate() error {
	switch v.Provider {
	case "", "disabled", "memory", "pgvector":
	default:
		return fmt.Errorf("vector.provider must be one of disabled|memory|pgvector, got %q", v.Provider)
	}
	if v.Dimensions < 0 {
		return fmt.Errorf("vector.dimensions cannot be negative")
	}
	return nil
}

// Normalize applies defaults for unset vector settings.
func (v VectorConfig) Normalize() VectorConfig {
	if v.Provider == "" {
		v.Provider = "disabled"
	}
	if v.Dimensions == 0 {
		v.Dimensions = 1536
	}
	if v.TopK <= 0 {
		v.TopK = 50
	}
	if v.Timeout <= 0 {
		v.Timeout = 5 * time.Second
	}
	return v
}

// EmbeddingConfig drives the query embedder and the article embedding job.
type EmbeddingConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"`
	// Schedule accepts "@hourly", "@daily" or a 5-field cron expression.
	Schedule string `mapstructure:"schedule"`
}

// Normalize applies defaults for unset embedding settings.
func (e EmbeddingConfig) Normalize() EmbeddingConfig {
	if e.Model == "" {
		e.Model = "text-embedding-3-small"
	}
	if e.Timeout <= 0 {
		e.Timeout = 30 * time.Second
	}
	if e.BatchSize <= 0 {
		e.BatchSize = 100
	}
	if e.Schedule == "" {
		e.Schedule = "@hourly"
	}
	return e
}

// RecommendConfig exposes the ranking weights and windows so they can be
// tuned without a rebuild. Defaults mirror the shipped scoring model.
type RecommendConfig struct {
	WeightSimilarity float64 `mapstructure:"weight_similarity"`
	WeightRecency    float64 `mapstructure:"weight_recency"`
	WeightPreference float64 `mapstructure:"weight_preference"`
	WeightPopularity float64 `mapstructure:"weight_popularity"`
	WeightQuality    float64 `mapstructure:"weight_quality"`
	PenaltySeen      float64 `mapstructure:"penalty_seen"`
	PenaltyFatigue   float64 `mapstructure:"penalty_fatigue"`

	FreshnessWindowDays int `mapstructure:"freshness_window_days"`
	MaxPerSource        int `mapstructure:"max_per_source"`
	MaxPerTopic         int `mapstructure:"max_per_topic"`

	VectorLimit   int `mapstructure:"vector_limit"`
	TopicLimit    int `mapstructure:"topic_limit"`
	TrendingLimit int `mapstructure:"trending_limit"`
	NewestLimit   int `mapstructure:"newest_limit"`
}

func (r RecommendConfig) Validate() error {
	if r.MaxPerSource <= 0 || r.MaxPerTopic <= 0 {
		return fmt.Errorf("recommend.max_per_source and recommend.max_per_topic must be > 0")
	}
	if r.FreshnessWindowDays <= 0 {
		return fmt.Errorf("recommend.freshness_window_days must be > 0")
	}
	return nil
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.listen", ":10002")
	viper.SetDefault("general.language", "en")
	viper.SetDefault("recommend.weight_similarity", 0.30)
	viper.SetDefault("recommend.weight_recency", 0.25)
	viper.SetDefault("recommend.weight_preference", 0.20)
	viper.SetDefault("recommend.weight_popularity", 0.15)
	viper.SetDefault("recommend.weight_quality", 0.10)
	viper.SetDefault("recommend.penalty_seen", 0.50)
	viper.SetDefault("recommend.penalty_fatigue", 0.20)
	viper.SetDefault("recommend.freshness_window_days", 14)
	viper.SetDefault("recommend.max_per_source", 2)
	viper.SetDefault("recommend.max_per_topic", 3)
	viper.SetDefault("recommend.vector_limit", 50)
	viper.SetDefault("recommend.topic_limit", 30)
	viper.SetDefault("recommend.trending_limit", 20)
	viper.SetDefault("recommend.newest_limit", 20)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("FEEDD")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (FEEDD_*)

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Vector = config.Vector.Normalize()
	config.Embedding = config.Embedding.Normalize()

	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Vector.Validate(); err != nil {
		panic(err)
	}
	if err := config.Recommend.Validate(); err != nil {
		panic(err)
	}
	return &config
}
