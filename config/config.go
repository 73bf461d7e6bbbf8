package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type MatrixConfig struct {
	Homeserver   string
	Username     string
	Password     string
	BotUserID    string
	BridgeDomain string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Config struct {
	HTTPPort        string
	LogLevel        string
	JWTSecret       string
	JWTTTL          time.Duration
	WorkerInterval  time.Duration
	SummaryCooldown time.Duration
	AllowedOrigins  []string
	MediaDir        string
	DB              DatabaseConfig
	Matrix          MatrixConfig
	OpenAI          OpenAIConfig
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when it exists; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtTTL, err := getDuration("JWT_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	interval, err := getDuration("WORKER_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cooldown, err := getDuration("SUMMARY_COOLDOWN", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTTTL:          jwtTTL,
		WorkerInterval:  interval,
		SummaryCooldown: cooldown,
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MediaDir:        getEnv("MEDIA_DIR", "media"),
		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "friday"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Matrix: MatrixConfig{
			Homeserver:   strings.TrimRight(getEnv("MATRIX_HOMESERVER", ""), "/"),
			Username:     getEnv("MATRIX_USERNAME", ""),
			Password:     getEnv("MATRIX_PASSWORD", ""),
			BotUserID:    getEnv("MATRIX_BOT_USER_ID", "@friday:matrix.tirta.me"),
			BridgeDomain: getEnv("MATRIX_BRIDGE_DOMAIN", "matrix.tirta.me"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
	}
	return cfg, nil
}

// RequireMatrix reports missing homeserver settings.
func (c *Config) RequireMatrix() error {
	if c.Matrix.Homeserver == "" {
		return errors.New("MATRIX_HOMESERVER is not set")
	}
	return nil
}

func (c *Config) RequireJWT() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	return nil
}

func (db *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.DBName, db.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
