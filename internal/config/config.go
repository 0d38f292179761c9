package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the shopassist API configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Chat         ChatConfig         `yaml:"chat"`
	Auth         AuthConfig         `yaml:"auth"`
	Search       SearchConfig       `yaml:"search"`
	Ranking      RankingConfig      `yaml:"ranking"`
	Preferences  PreferenceConfig   `yaml:"preferences"`
	Delivery     DeliveryConfig     `yaml:"delivery"`
	Conversation ConversationConfig `yaml:"conversation"`
	Cart         CartConfig         `yaml:"cart"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port             int `yaml:"port"`
	ReadTimeoutSec   int `yaml:"read_timeout_sec"`
	WriteTimeoutSec  int `yaml:"write_timeout_sec"`
	ShutdownSec      int `yaml:"shutdown_timeout_sec"`
	HealthTimeoutSec int `yaml:"health_timeout_sec"`
}

// RedisConfig holds the cart and session store connection.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	WriteTimeoutMs   int      `yaml:"write_timeout_ms"`
}

// PostgresConfig holds the catalog database connection.
type PostgresConfig struct {
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	ReadinessTimeout   int    `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
	// CacheTTLHours bounds how long query embeddings stay cached (0 disables the cache).
	CacheTTLHours int `yaml:"cache_ttl_hours"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit      int64   `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit    int64   `yaml:"monthly_token_limit"` // 0 = unlimited
	CostPerMillionTokens float64 `yaml:"cost_per_million_tokens"`
	Action               string  `yaml:"action"` // "reject" | "warn" (default)
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ChatConfig holds the chat completion provider used for intent extraction and conversations.
type ChatConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	// IntentTemperature applies to intent extraction only.
	IntentTemperature float32 `yaml:"intent_temperature"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	MaxQueries        int     `yaml:"max_queries"`
	MaxItemsPerCall   int     `yaml:"max_items_per_call"`
	DBSimilarityFloor float64 `yaml:"db_similarity_floor"`
	MaxAttempts       int     `yaml:"max_attempts"`
	LimitMultiplier   int     `yaml:"limit_multiplier"`
}

// RankingConfig holds the shop relevance formula.
type RankingConfig struct {
	ItemCount         float64 `yaml:"item_count"`
	Similarity        float64 `yaml:"similarity"`
	Fee               float64 `yaml:"fee"`
	CountSaturation   int     `yaml:"count_saturation"`
	FeeNormalization  float64 `yaml:"fee_normalization"`
	FreeDeliveryScore float64 `yaml:"free_delivery_score"`
	ZeroMatchFactor   float64 `yaml:"zero_match_factor"`
	ItemsPerShop      int     `yaml:"items_per_shop"`
}

// PreferenceConfig tunes preference boosting.
type PreferenceConfig struct {
	Enabled       bool    `yaml:"enabled"`
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
	Factor        float64 `yaml:"factor"`
}

// TierConfig is one distance band of the fallback fee.
type TierConfig struct {
	UpToKm         float64 `yaml:"up_to_km"`
	SurchargeCents int64   `yaml:"surcharge_cents"`
}

// DeliveryConfig is the fee configuration used for shops without their own.
type DeliveryConfig struct {
	RadiusKm           float64      `yaml:"radius_km"` // 0 delivers everywhere
	BaseFeeCents       int64        `yaml:"base_fee_cents"`
	FreeRadiusKm       float64      `yaml:"free_radius_km"`
	FreeThresholdCents int64        `yaml:"free_threshold_cents"`
	Tiers              []TierConfig `yaml:"tiers"`
}

// ConversationConfig tunes the chat loop and session storage.
type ConversationConfig struct {
	MaxRounds       int     `yaml:"max_rounds"`
	Temperature     float32 `yaml:"temperature"`
	SystemPrompt    string  `yaml:"system_prompt"`
	SessionTTLHours int     `yaml:"session_ttl_hours"`
	MaxHistory      int     `yaml:"max_history"`
}

// CartConfig holds cart storage settings.
type CartConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}

// KafkaConfig holds the order event publisher settings. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Async   bool     `yaml:"async"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.HealthTimeoutSec <= 0 {
		c.HTTP.HealthTimeoutSec = 3
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Postgres.ReadinessTimeout <= 0 {
		c.Postgres.ReadinessTimeout = 10
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 20
	}
	if c.Embedding.CacheTTLHours < 0 {
		c.Embedding.CacheTTLHours = 0
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = "openai"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "gpt-4o-mini"
	}
	if c.Chat.IntentTemperature <= 0 {
		c.Chat.IntentTemperature = 0.1
	}
	if c.Search.MaxQueries <= 0 {
		c.Search.MaxQueries = 5
	}
	if c.Search.MaxItemsPerCall <= 0 {
		c.Search.MaxItemsPerCall = 200
	}
	if c.Search.DBSimilarityFloor <= 0 {
		c.Search.DBSimilarityFloor = 0.3
	}
	if c.Search.MaxAttempts <= 0 {
		c.Search.MaxAttempts = 2
	}
	if c.Search.LimitMultiplier <= 0 {
		c.Search.LimitMultiplier = 3
	}
	if c.Ranking.ItemCount == 0 && c.Ranking.Similarity == 0 && c.Ranking.Fee == 0 {
		c.Ranking.ItemCount, c.Ranking.Similarity, c.Ranking.Fee = 0.3, 0.4, 0.3
	}
	if c.Ranking.CountSaturation <= 0 {
		c.Ranking.CountSaturation = 10
	}
	if c.Ranking.FeeNormalization <= 0 {
		c.Ranking.FeeNormalization = 200
	}
	if c.Ranking.FreeDeliveryScore <= 0 {
		c.Ranking.FreeDeliveryScore = 0.5
	}
	if c.Ranking.ZeroMatchFactor <= 0 {
		c.Ranking.ZeroMatchFactor = 0.1
	}
	if c.Ranking.ItemsPerShop <= 0 {
		c.Ranking.ItemsPerShop = 5
	}
	if c.Conversation.MaxRounds <= 0 {
		c.Conversation.MaxRounds = 5
	}
	if c.Conversation.Temperature <= 0 {
		c.Conversation.Temperature = 0.2
	}
	if c.Conversation.SessionTTLHours <= 0 {
		c.Conversation.SessionTTLHours = 24
	}
	if c.Conversation.MaxHistory <= 0 {
		c.Conversation.MaxHistory = 40
	}
	if c.Cart.TTLHours <= 0 {
		c.Cart.TTLHours = 72
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if len(c.Embedding.Vectorizers) == 0 {
		return fmt.Errorf("embedding.vectorizers must define at least one vectorizer")
	}
	for name, v := range c.Embedding.Vectorizers {
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s.provider %q is not configured", name, v.Provider)
		}
	}
	for name, p := range c.Embedding.Providers {
		switch p.Budget.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf(
				"embedding.providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
				name, p.Budget.Action,
			)
		}
	}
	if w := c.Ranking; w.ItemCount < 0 || w.Similarity < 0 || w.Fee < 0 {
		return fmt.Errorf("ranking weights must not be negative")
	}
	if c.Delivery.BaseFeeCents < 0 || c.Delivery.FreeThresholdCents < 0 {
		return fmt.Errorf("delivery fees must not be negative")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
