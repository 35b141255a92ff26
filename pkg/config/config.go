package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Cache      CacheConfig
	Audio      AudioConfig
	Recognizer RecognizerConfig
	Captions   CaptionsConfig
	Media      MediaConfig
	Providers  ProvidersConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds lesson database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration (optional quota store backend)
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds object storage configuration for prepared lesson audio
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// CacheConfig holds transcript cache configuration
type CacheConfig struct {
	Path      string        // SQLite file; empty selects the in-memory store
	Retention time.Duration // entries older than this are not returned by reads
}

// AudioConfig holds audio preparation bounds
type AudioConfig struct {
	TargetSampleRate int
	MinDuration      time.Duration
	MaxDuration      time.Duration
}

// RecognizerConfig holds speech recognition configuration
type RecognizerConfig struct {
	Engine         string // "whisper" (local server) or "assemblyai"
	WhisperURL     string
	AssemblyAIKey  string
	WindowSeconds  float64
	StrideSeconds  float64
	GapThreshold   float64
	RepeatCollapse int // consecutive repeats above this are collapsed
	Language       string
}

// CaptionsConfig holds the caption source configuration
type CaptionsConfig struct {
	BaseURL string
	Timeout time.Duration
}

// MediaConfig holds the remote audio resolver configuration. When disabled,
// remote sources are served from captions or the transcript cache only.
type MediaConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// ProvidersConfig holds text-generation provider configuration.
// Bound via envconfig in addition to the env helpers so deployments can
// configure the whole block with a single prefix.
type ProvidersConfig struct {
	QuotaPath  string      `envconfig:"QUOTA_PATH" default:"quota_state.json"`
	Timeout    int         `envconfig:"TIMEOUT_SECONDS" default:"60"`
	Google     LLMProvider `envconfig:"GOOGLE"`
	Groq       LLMProvider `envconfig:"GROQ"`
	OpenRouter LLMProvider `envconfig:"OPENROUTER"`
}

// LLMProvider is the static configuration of one generation backend
type LLMProvider struct {
	APIKey       string `envconfig:"API_KEY"`
	BaseURL      string `envconfig:"BASE_URL"`
	Model        string `envconfig:"MODEL"`
	DailyLimit   int    `envconfig:"DAILY_LIMIT" default:"100"`
	RateLimit    int    `envconfig:"RATE_LIMIT" default:"10"`
	Priority     int    `envconfig:"PRIORITY" default:"99"`
	SupportsJSON bool   `envconfig:"SUPPORTS_JSON" default:"false"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "istimaa"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Enabled:         getEnvAsBool("STORAGE_ENABLED", false),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "istimaa-audio"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		Cache: CacheConfig{
			Path:      getEnv("CACHE_PATH", "transcripts.db"),
			Retention: getEnvAsDuration("CACHE_RETENTION", "720h"),
		},
		Audio: AudioConfig{
			TargetSampleRate: getEnvAsInt("AUDIO_TARGET_SAMPLE_RATE", 16000),
			MinDuration:      getEnvAsDuration("AUDIO_MIN_DURATION", "10s"),
			MaxDuration:      getEnvAsDuration("AUDIO_MAX_DURATION", "30m"),
		},
		Recognizer: RecognizerConfig{
			Engine:         getEnv("RECOGNIZER_ENGINE", "whisper"),
			WhisperURL:     getEnv("WHISPER_SERVER_URL", "http://localhost:8178"),
			AssemblyAIKey:  getEnv("ASSEMBLYAI_API_KEY", ""),
			WindowSeconds:  getEnvAsFloat("RECOGNIZER_WINDOW_SECONDS", 30),
			StrideSeconds:  getEnvAsFloat("RECOGNIZER_STRIDE_SECONDS", 5),
			GapThreshold:   getEnvAsFloat("RECOGNIZER_GAP_THRESHOLD", 0.5),
			RepeatCollapse: getEnvAsInt("RECOGNIZER_REPEAT_COLLAPSE", 3),
			Language:       getEnv("RECOGNIZER_LANGUAGE", "ar"),
		},
		Captions: CaptionsConfig{
			BaseURL: getEnv("CAPTIONS_BASE_URL", "https://www.youtube.com/api/timedtext"),
			Timeout: getEnvAsDuration("CAPTIONS_TIMEOUT", "15s"),
		},
		Media: MediaConfig{
			Enabled: getEnvAsBool("MEDIA_ENABLED", false),
			BaseURL: getEnv("MEDIA_BASE_URL", "http://localhost:8179"),
			Timeout: getEnvAsDuration("MEDIA_TIMEOUT", "120s"),
		},
	}

	// Provider block is bound with envconfig under the LLM_ prefix,
	// e.g. LLM_GROQ_API_KEY, LLM_GOOGLE_PRIORITY.
	if err := envconfig.Process("LLM", &config.Providers); err != nil {
		return nil, fmt.Errorf("failed to process provider config: %w", err)
	}
	applyProviderDefaults(&config.Providers)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Audio.MinDuration <= 0 || c.Audio.MaxDuration <= c.Audio.MinDuration {
		return fmt.Errorf("invalid audio duration bounds: min=%s max=%s", c.Audio.MinDuration, c.Audio.MaxDuration)
	}
	if c.Recognizer.WindowSeconds <= c.Recognizer.StrideSeconds {
		return fmt.Errorf("recognizer window (%.0fs) must exceed stride (%.0fs)",
			c.Recognizer.WindowSeconds, c.Recognizer.StrideSeconds)
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func applyProviderDefaults(p *ProvidersConfig) {
	if p.Google.BaseURL == "" {
		p.Google.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if p.Google.Model == "" {
		p.Google.Model = "gemini-2.0-flash"
	}
	if p.Groq.BaseURL == "" {
		p.Groq.BaseURL = "https://api.groq.com"
	}
	if p.Groq.Model == "" {
		p.Groq.Model = "llama-3.3-70b-versatile"
	}
	if p.OpenRouter.BaseURL == "" {
		p.OpenRouter.BaseURL = "https://openrouter.ai"
	}
	if p.OpenRouter.Model == "" {
		p.OpenRouter.Model = "meta-llama/llama-3.3-70b-instruct:free"
	}
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
