package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
	LLM     LLMConfig
	Stats   StatsConfig
	Index   IndexConfig
	Scraper ScraperConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
}

// StatsConfig covers the external paginated game-results source.
type StatsConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerMinute int
	PageDelayMS       int
	MaxRetries        int
	RetryBackoffMS    int
}

type IndexConfig struct {
	EmbeddingDim int
	DefaultTopK  int
}

type ScraperConfig struct {
	BaseURL   string
	DelaySec  int
	UserAgent string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/nba-insights")

	viper.SetEnvPrefix("NBA_INSIGHTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/nba_stats.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.maxTokens", 1000)

	viper.SetDefault("stats.baseURL", "https://api.balldontlie.io/v1")
	viper.SetDefault("stats.requestsPerMinute", 60)
	viper.SetDefault("stats.pageDelayMS", 1100)
	viper.SetDefault("stats.maxRetries", 3)
	viper.SetDefault("stats.retryBackoffMS", 2000)

	viper.SetDefault("index.embeddingDim", 1536)
	viper.SetDefault("index.defaultTopK", 5)

	viper.SetDefault("scraper.baseURL", "https://www.basketball-reference.com")
	viper.SetDefault("scraper.delaySec", 30)
	viper.SetDefault("scraper.userAgent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
