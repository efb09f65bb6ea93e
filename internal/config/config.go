package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"purchasebot/internal/telegram"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Store backends.
const (
	StoreSheets   = "sheets"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreMongoDB  = "mongodb"
	StoreMemory   = "memory"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Telegram TelegramConfig
	Sheets   SheetsConfig
	Store    StoreConfig
	Cache    CacheConfig
	Queue    QueueConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"PORT" default:"10000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Environment string   `envconfig:"APP_ENV" default:"development"`
	APIKeys     []string `envconfig:"API_KEYS"` // admin endpoints; empty disables them
}

// TelegramConfig holds bot settings.
type TelegramConfig struct {
	Token            string        `envconfig:"TELEGRAM_TOKEN" required:"true"`
	ExternalHostname string        `envconfig:"RENDER_EXTERNAL_HOSTNAME" required:"true"`
	WebhookSecret    string        `envconfig:"TELEGRAM_WEBHOOK_SECRET" default:""`
	APIServer        string        `envconfig:"TELEGRAM_API_SERVER" default:""`
	SendInterval     time.Duration `envconfig:"TELEGRAM_SEND_INTERVAL" default:"33ms"`
}

// SheetsConfig holds Google Sheets settings.
type SheetsConfig struct {
	SpreadsheetID   string `envconfig:"GOOGLE_SHEET_ID"`
	CredentialsJSON string `envconfig:"GOOGLE_CREDENTIALS_JSON"`
}

// StoreConfig selects and configures the row store.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sheets"`

	SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/purchases.db"`

	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresName     string `envconfig:"POSTGRES_DB" default:"purchasebot"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:""`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	MySQLHost     string `envconfig:"MYSQL_HOST" default:"localhost"`
	MySQLPort     int    `envconfig:"MYSQL_PORT" default:"3306"`
	MySQLName     string `envconfig:"MYSQL_DB" default:"purchasebot"`
	MySQLUser     string `envconfig:"MYSQL_USER" default:"root"`
	MySQLPassword string `envconfig:"MYSQL_PASSWORD" default:""`

	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"purchasebot"`
	MongoPrefix   string `envconfig:"MONGODB_COLLECTION_PREFIX" default:"purchase"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type     string        `envconfig:"CACHE_TYPE" default:"memory"`
	DedupTTL time.Duration `envconfig:"UPDATE_DEDUP_TTL" default:"24h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_KEY_PREFIX" default:"purchasebot"`
}

// QueueConfig holds ingestion queue and processor settings.
type QueueConfig struct {
	Limit          int           `envconfig:"QUEUE_LIMIT" default:"0"` // 0 = unbounded
	PollInterval   time.Duration `envconfig:"QUEUE_POLL_INTERVAL" default:"1s"`
	HandlerTimeout time.Duration `envconfig:"HANDLER_TIMEOUT" default:"30s"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BotID returns the numeric id prefix of the bot token.
func (t *TelegramConfig) BotID() (int64, error) {
	return telegram.BotID(t.Token)
}

// WebhookURL returns the public URL Telegram should post updates to.
func (t *TelegramConfig) WebhookURL() (string, error) {
	id, err := t.BotID()
	if err != nil {
		return "", err
	}
	host := strings.TrimSuffix(strings.TrimPrefix(t.ExternalHostname, "https://"), "/")
	return "https://" + host + telegram.WebhookPath(id), nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.PostgresUser, s.PostgresPassword, s.PostgresHost, s.PostgresPort, s.PostgresName, s.PostgresSSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.MySQLUser, s.MySQLPassword, s.MySQLHost, s.MySQLPort, s.MySQLName)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Telegram.BotID(); err != nil {
		errs = append(errs, fmt.Errorf("TELEGRAM_TOKEN: %w", err))
	}

	switch c.Store.Type {
	case StoreSheets:
		if c.Sheets.SpreadsheetID == "" {
			errs = append(errs, errors.New("GOOGLE_SHEET_ID is required for the sheets store"))
		}
		if c.Sheets.CredentialsJSON == "" {
			errs = append(errs, errors.New("GOOGLE_CREDENTIALS_JSON is required for the sheets store"))
		}
	case StoreSQLite, StorePostgres, StoreMySQL, StoreMongoDB, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_TYPE %q", c.Store.Type))
	}

	switch c.Cache.Type {
	case CacheMemory, CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_TYPE %q", c.Cache.Type))
	}

	if c.Queue.Limit < 0 {
		errs = append(errs, errors.New("QUEUE_LIMIT must not be negative"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
