package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/invoice-desk/internal/domain/entity"
)

// Config holds all server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Report    ReportConfig    `mapstructure:"report"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyRetries     int           `mapstructure:"busy_retries"`
	BusyBackoff     time.Duration `mapstructure:"busy_backoff"`
}

// StorageConfig holds document storage configuration
type StorageConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	MaxUploadBytes int    `mapstructure:"max_upload_bytes"`
}

// TokenConfig grants a role to a bearer token
type TokenConfig struct {
	Token    string `mapstructure:"token"`
	UserName string `mapstructure:"user_name"`
	Role     string `mapstructure:"role"`
}

// AuthConfig holds the bearer token table
type AuthConfig struct {
	Tokens []TokenConfig `mapstructure:"tokens"`
}

// MessagingConfig holds AMQP event publishing configuration
type MessagingConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	Exchange       string        `mapstructure:"exchange"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// ReportConfig holds report rendering configuration
type ReportConfig struct {
	LogoPath  string `mapstructure:"logo_path"`
	OutputDir string `mapstructure:"output_dir"`
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ExportCron string `mapstructure:"export_cron"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// ClientConfig holds settings of the command line client
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Year    int           `mapstructure:"year"`
	Timeout time.Duration `mapstructure:"timeout"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// cronParser accepts the six-field form with seconds
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronParser returns the parser used for scheduler expressions
func CronParser() cron.Parser {
	return cronParser
}

// LoadEnvFile loads variables from dotenv files that exist. Variables already
// set in the environment win.
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := gotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadClient reads client settings from the environment and .env
func LoadClient() (*ClientConfig, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("year", time.Now().Year())
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.output_path", "stderr")
	v.SetDefault("logger.format", "console")

	v.BindEnv("base_url", "INVOICE_API_URL")
	v.BindEnv("token", "INVOICE_TOKEN")
	v.BindEnv("year", "INVOICE_YEAR")
	v.BindEnv("timeout", "INVOICE_TIMEOUT")
	v.BindEnv("logger.level", "LOG_LEVEL")

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("INVOICE_TOKEN is required")
	}
	if cfg.Year < 1 {
		return nil, fmt.Errorf("invalid year %d", cfg.Year)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 16<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.path", "data/invoices.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_retries", 3)
	v.SetDefault("database.busy_backoff", 50*time.Millisecond)

	// Storage defaults
	v.SetDefault("storage.base_dir", "data/files")
	v.SetDefault("storage.max_upload_bytes", 10<<20)

	// Messaging defaults
	v.SetDefault("messaging.enabled", false)
	v.SetDefault("messaging.exchange", "invoices")
	v.SetDefault("messaging.publish_timeout", 5*time.Second)

	// Report defaults
	v.SetDefault("report.output_dir", "data/reports")

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.export_cron", "0 0 2 1 * *")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("storage.base_dir", "STORAGE_DIR")
	v.BindEnv("messaging.url", "AMQP_URL")
	v.BindEnv("report.logo_path", "REPORT_LOGO_PATH")
	v.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.BusyRetries < 0 || c.Database.BusyBackoff < 0 {
		return fmt.Errorf("database busy retry settings must not be negative")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Storage.MaxUploadBytes < 0 {
		return fmt.Errorf("storage.max_upload_bytes must not be negative")
	}

	if len(c.Auth.Tokens) == 0 {
		return fmt.Errorf("auth.tokens needs at least one entry")
	}
	seen := make(map[string]bool, len(c.Auth.Tokens))
	for i, t := range c.Auth.Tokens {
		if strings.TrimSpace(t.Token) == "" {
			return fmt.Errorf("auth.tokens[%d].token is required", i)
		}
		if seen[t.Token] {
			return fmt.Errorf("auth.tokens[%d] duplicates an earlier token", i)
		}
		seen[t.Token] = true
		if !entity.Role(t.Role).IsValid() {
			return fmt.Errorf("auth.tokens[%d].role %q is not one of %s, %s", i, t.Role, entity.RoleAdmin, entity.RoleExternal)
		}
	}

	if c.Messaging.Enabled && c.Messaging.URL == "" {
		return fmt.Errorf("messaging.url is required when messaging is enabled")
	}

	if c.Scheduler.Enabled {
		if c.Report.OutputDir == "" {
			return fmt.Errorf("report.output_dir is required when the scheduler is enabled")
		}
		if _, err := cronParser.Parse(c.Scheduler.ExportCron); err != nil {
			return fmt.Errorf("scheduler.export_cron: %w", err)
		}
	}

	return nil
}
