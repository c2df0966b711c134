package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	JWT         JWTConfig        `mapstructure:"jwt"`
	Settlement  SettlementConfig `mapstructure:"settlement"`
	Referral    ReferralConfig   `mapstructure:"referral"`
	Accrual     AccrualConfig    `mapstructure:"accrual"`
	Uploads     UploadsConfig    `mapstructure:"uploads"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	QueryTimeout    int    `mapstructure:"query_timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	AccessTTL int    `mapstructure:"access_token_ttl"`
	Issuer    string `mapstructure:"issuer"`
}

// SettlementConfig controls the Pending -> terminal verification window.
type SettlementConfig struct {
	// VerificationDelay is how long a transaction stays Pending before the
	// settlement worker picks it up, absent an admin override.
	VerificationDelay time.Duration `mapstructure:"verification_delay"`
	// PollInterval is how often the worker scans for due transactions.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// BatchSize caps how many due transactions a single sweep claims.
	BatchSize int `mapstructure:"batch_size"`
}

// ReferralConfig controls referral bonus computation.
type ReferralConfig struct {
	// BonusRate is the fraction of a settled deposit credited to the direct
	// referrer. Deposits only.
	BonusRate float64 `mapstructure:"bonus_rate"`
	// MaxLevels bounds upline resolution for reporting.
	MaxLevels int `mapstructure:"max_levels"`
}

// AccrualConfig controls daily profit accrual on purchased packages.
type AccrualConfig struct {
	// DailyRate is the fraction of the package amount paid out per period.
	DailyRate float64 `mapstructure:"daily_rate"`
	// Period is the accrual period. A day in production, shorter in tests.
	Period time.Duration `mapstructure:"period"`
	// CronSpec drives the accrual sweep.
	CronSpec string `mapstructure:"cron_spec"`
}

// UploadsConfig controls proof screenshot storage.
type UploadsConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
	MaxSize int64  `mapstructure:"max_size"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.allowed_origins", []string{"*"})
	viper.SetDefault("server.rate_limit_per_min", 100)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "club_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)
	viper.SetDefault("database.query_timeout", 10)
	viper.SetDefault("database.max_retries", 3)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 86400)
	viper.SetDefault("jwt.issuer", "club_service")

	// Settlement defaults. 10s mirrors the manual-review placeholder the
	// product launched with.
	viper.SetDefault("settlement.verification_delay", "10s")
	viper.SetDefault("settlement.poll_interval", "2s")
	viper.SetDefault("settlement.batch_size", 50)

	// Referral defaults
	viper.SetDefault("referral.bonus_rate", 0.02)
	viper.SetDefault("referral.max_levels", 3)

	// Accrual defaults
	viper.SetDefault("accrual.daily_rate", 0.01)
	viper.SetDefault("accrual.period", "24h")
	viper.SetDefault("accrual.cron_spec", "@every 1m")

	// Upload defaults
	viper.SetDefault("uploads.dir", "uploads")
	viper.SetDefault("uploads.base_url", "/uploads")
	viper.SetDefault("uploads.max_size", 10<<20)
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		viper.Set("jwt.secret", jwtSecret)
	}

	if redisURL := os.Getenv("REDIS_HOST"); redisURL != "" {
		viper.Set("redis.host", redisURL)
	}

	if delay := os.Getenv("SETTLEMENT_VERIFICATION_DELAY"); delay != "" {
		viper.Set("settlement.verification_delay", delay)
	}

	if uploadsDir := os.Getenv("UPLOADS_DIR"); uploadsDir != "" {
		viper.Set("uploads.dir", uploadsDir)
	}
}

func validate(config *Config) error {
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if config.Referral.BonusRate < 0 || config.Referral.BonusRate >= 1 {
		return fmt.Errorf("referral bonus rate must be in [0, 1)")
	}

	if config.Accrual.DailyRate < 0 || config.Accrual.DailyRate >= 1 {
		return fmt.Errorf("accrual daily rate must be in [0, 1)")
	}

	return nil
}
