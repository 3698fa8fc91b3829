package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	Env           string  `env:"ENV" envDefault:"local"`
	Address       string  `env:"ADDRESS" envDefault:":8083"`
	JWTSecret     string  `env:"JWT_SECRET,required"`
	SentryDSN     string  `env:"SENTRY_DSN"`
	Release       string  `env:"RELEASE" envDefault:"closetapi@1.0.0"`
	BrokerAddress string  `env:"ASYNC_BROKER_ADDRESS" envDefault:"localhost:6379"`
	RateLimit     float64 `env:"RATE_LIMIT" envDefault:"3"`

	DB                DBConfig                `envPrefix:"DB_"`
	R2                R2Config                `envPrefix:"R2_"`
	OpenAI            OpenAIConfig            `envPrefix:"OPENAI_"`
	Stylist           StylistConfig           `envPrefix:"STYLIST_"`
	Google            GoogleConfig            `envPrefix:"GOOGLE_"`
	BackgroundRemoval BackgroundRemovalConfig `envPrefix:"BG_REMOVAL_"`
	Log               LogConfig               `envPrefix:"LOG_"`
}

type DBConfig struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	Name     string `env:"NAME"`
}

// URLCacheTTL must stay below PresignExpiry.
type R2Config struct {
	AccountID       string        `env:"ACCOUNT_ID"`
	AccessKeyID     string        `env:"ACCESS_KEY_ID"`
	AccessKeySecret string        `env:"ACCESS_KEY_SECRET"`
	BucketName      string        `env:"BUCKET_NAME"`
	PresignExpiry   time.Duration `env:"PRESIGN_EXPIRY" envDefault:"15m"`
	URLCacheTTL     time.Duration `env:"URL_CACHE_TTL" envDefault:"12m"`
}

type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
}

type StylistConfig struct {
	Model      string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"45s"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`
}

type GoogleConfig struct {
	APIKey          string `env:"API_KEY"`
	ClassifierModel string `env:"CLASSIFIER_MODEL" envDefault:"gemini-2.5-flash"`
}

// When URL is empty the worker falls back to local background whitening.
type BackgroundRemovalConfig struct {
	URL       string  `env:"URL"`
	APIKey    string  `env:"API_KEY"`
	BlurSigma float64 `env:"BLUR_SIGMA" envDefault:"0"`
}

type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
	File  string `env:"FILE"`
}

// Load reads .env (if present) and parses environment variables into Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.R2.URLCacheTTL >= cfg.R2.PresignExpiry {
		return Config{}, fmt.Errorf("R2_URL_CACHE_TTL (%s) must be shorter than R2_PRESIGN_EXPIRY (%s)", cfg.R2.URLCacheTTL, cfg.R2.PresignExpiry)
	}
	return cfg, nil
}

// LoadStylist parses only what a standalone stylist needs, no server secrets required.
func LoadStylist() (OpenAIConfig, StylistConfig, error) {
	_ = godotenv.Load()

	var openAI OpenAIConfig
	if err := env.ParseWithOptions(&openAI, env.Options{Prefix: "OPENAI_"}); err != nil {
		return OpenAIConfig{}, StylistConfig{}, fmt.Errorf("parse openai env: %w", err)
	}
	var stylist StylistConfig
	if err := env.ParseWithOptions(&stylist, env.Options{Prefix: "STYLIST_"}); err != nil {
		return OpenAIConfig{}, StylistConfig{}, fmt.Errorf("parse stylist env: %w", err)
	}
	return openAI, stylist, nil
}

// LoadJWTSecret parses JWT_SECRET alone, for tooling that mints tokens.
func LoadJWTSecret() (string, error) {
	_ = godotenv.Load()

	var auth struct {
		JWTSecret string `env:"JWT_SECRET,required"`
	}
	if err := env.Parse(&auth); err != nil {
		return "", fmt.Errorf("parse env: %w", err)
	}
	return auth.JWTSecret, nil
}
