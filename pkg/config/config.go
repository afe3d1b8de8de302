package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	OpenAI    OpenAIConfig
	Realtime  RealtimeConfig
	Agent     AgentConfig
	Quota     QuotaConfig
	Retrieval RetrievalConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig covers bearer-token validation plus the internal API key used by
// trusted service-to-service callers.
type AuthConfig struct {
	JWTSecret      string
	InternalAPIKey string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OpenAIConfig configures the embeddings/completions client. An empty APIKey
// leaves summarization and progress analysis in degraded placeholder mode.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	EmbedModel   string
	SummaryModel string
	Timeout      time.Duration
	MaxRetries   int
}

// RealtimeConfig points at the realtime room service.
type RealtimeConfig struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

// AgentConfig tunes the in-session turn pipeline.
type AgentConfig struct {
	SilenceNudgeAfter  time.Duration
	WatchdogInterval   time.Duration
	TranscriptAttempts int
	TranscriptDelay    time.Duration
	Workers            int
	ReferenceCacheTTL  time.Duration
}

// QuotaConfig holds ledger tunables.
type QuotaConfig struct {
	FreeTierMinutes int
}

// RetrievalConfig bounds per-turn retrieval.
type RetrievalConfig struct {
	TopK    int
	Timeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		RunMigrations: v.GetBool("DB_RUN_MIGRATIONS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:      v.GetString("JWT_SECRET"),
		InternalAPIKey: v.GetString("INTERNAL_API_KEY"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.OpenAI = OpenAIConfig{
		APIKey:       v.GetString("OPENAI_API_KEY"),
		BaseURL:      v.GetString("OPENAI_BASE_URL"),
		Model:        v.GetString("OPENAI_MODEL"),
		EmbedModel:   v.GetString("OPENAI_EMBED_MODEL"),
		SummaryModel: v.GetString("OPENAI_SUMMARY_MODEL"),
		Timeout:      parseDuration(v.GetString("OPENAI_TIMEOUT"), 90*time.Second),
		MaxRetries:   v.GetInt("OPENAI_MAX_RETRIES"),
	}

	cfg.Realtime = RealtimeConfig{
		URL:       v.GetString("REALTIME_URL"),
		APIKey:    v.GetString("REALTIME_API_KEY"),
		APISecret: v.GetString("REALTIME_API_SECRET"),
		TokenTTL:  parseDuration(v.GetString("REALTIME_TOKEN_TTL"), 6*time.Hour),
	}

	cfg.Agent = AgentConfig{
		SilenceNudgeAfter:  parseDuration(v.GetString("AGENT_SILENCE_NUDGE_AFTER"), 25*time.Second),
		WatchdogInterval:   parseDuration(v.GetString("AGENT_WATCHDOG_INTERVAL"), 5*time.Second),
		TranscriptAttempts: v.GetInt("AGENT_TRANSCRIPT_ATTEMPTS"),
		TranscriptDelay:    parseDuration(v.GetString("AGENT_TRANSCRIPT_DELAY"), 400*time.Millisecond),
		Workers:            v.GetInt("AGENT_WORKERS"),
		ReferenceCacheTTL:  parseDuration(v.GetString("AGENT_REFERENCE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Quota = QuotaConfig{
		FreeTierMinutes: v.GetInt("QUOTA_FREE_TIER_MINUTES"),
	}

	cfg.Retrieval = RetrievalConfig{
		TopK:    v.GetInt("RETRIEVAL_TOP_K"),
		Timeout: parseDuration(v.GetString("RETRIEVAL_TIMEOUT"), 10*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutor_api")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("INTERNAL_API_KEY", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small")
	v.SetDefault("OPENAI_SUMMARY_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_TIMEOUT", "90s")
	v.SetDefault("OPENAI_MAX_RETRIES", 3)

	v.SetDefault("REALTIME_URL", "http://localhost:7880")
	v.SetDefault("REALTIME_API_KEY", "")
	v.SetDefault("REALTIME_API_SECRET", "")
	v.SetDefault("REALTIME_TOKEN_TTL", "6h")

	v.SetDefault("AGENT_SILENCE_NUDGE_AFTER", "25s")
	v.SetDefault("AGENT_WATCHDOG_INTERVAL", "5s")
	v.SetDefault("AGENT_TRANSCRIPT_ATTEMPTS", 6)
	v.SetDefault("AGENT_TRANSCRIPT_DELAY", "400ms")
	v.SetDefault("AGENT_WORKERS", 4)
	v.SetDefault("AGENT_REFERENCE_CACHE_TTL", "10m")

	v.SetDefault("QUOTA_FREE_TIER_MINUTES", 60)

	v.SetDefault("RETRIEVAL_TOP_K", 5)
	v.SetDefault("RETRIEVAL_TIMEOUT", "10s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
