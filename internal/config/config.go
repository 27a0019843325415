package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	HomeAssistant HomeAssistantConfig `mapstructure:"home_assistant"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	WebSocket     WebSocketConfig     `mapstructure:"websocket"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
	Security      SecurityConfig      `mapstructure:"security"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type HomeAssistantConfig struct {
	URL           string `mapstructure:"url"`
	Token         string `mapstructure:"token"`
	Timeout       string `mapstructure:"timeout"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
	RetryDelay    string `mapstructure:"retry_delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// MonitorConfig contains the tick engine configuration. Thresholds, rooms,
// breakers and stove settings live in the persisted energy document, not here.
type MonitorConfig struct {
	PollInterval      string `mapstructure:"poll_interval"`
	PersistEveryTicks int    `mapstructure:"persist_every_ticks"`
	AlertCooldown     string `mapstructure:"alert_cooldown"`
	RelayRetryLimit   int    `mapstructure:"relay_retry_limit"`
}

// PollIntervalDuration parses the poll interval, falling back to one second.
func (m MonitorConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(m.PollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// AlertCooldownDuration parses the alert cooldown, falling back to one minute.
func (m MonitorConfig) AlertCooldownDuration() time.Duration {
	d, err := time.ParseDuration(m.AlertCooldown)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MonitoringConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()

	viper.BindEnv("home_assistant.url", "HOME_ASSISTANT_URL")
	viper.BindEnv("home_assistant.token", "HOME_ASSISTANT_TOKEN")
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for completeness and correctness
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	if c.Database.Path == "" {
		errors = append(errors, "database.path is required")
	}

	if c.HomeAssistant.URL == "" {
		errors = append(errors, "home_assistant.url is required")
	}
	if c.HomeAssistant.Token == "" {
		errors = append(errors, "home_assistant.token is required")
	}
	if c.HomeAssistant.RetryAttempts < 0 {
		errors = append(errors, "home_assistant.retry_attempts must be non-negative")
	}

	if _, err := time.ParseDuration(c.Monitor.PollInterval); err != nil {
		errors = append(errors, "monitor.poll_interval must be a valid duration")
	}
	if c.Monitor.PersistEveryTicks <= 0 {
		errors = append(errors, "monitor.persist_every_ticks must be greater than 0")
	}
	if c.Monitor.RelayRetryLimit <= 0 {
		errors = append(errors, "monitor.relay_retry_limit must be greater than 0")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.path", "./data/energy.db")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.max_connections", 25)

	// Home Assistant defaults
	viper.SetDefault("home_assistant.url", "http://homeassistant.local:8123")
	viper.SetDefault("home_assistant.timeout", "10s")
	viper.SetDefault("home_assistant.retry_attempts", 3)
	viper.SetDefault("home_assistant.retry_delay", "1s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// WebSocket defaults
	viper.SetDefault("websocket.ping_interval", 30)
	viper.SetDefault("websocket.pong_timeout", 60)
	viper.SetDefault("websocket.write_timeout", 10)

	// Monitor defaults
	viper.SetDefault("monitor.poll_interval", "1s")
	viper.SetDefault("monitor.persist_every_ticks", 60)
	viper.SetDefault("monitor.alert_cooldown", "60s")
	viper.SetDefault("monitor.relay_retry_limit", 3)

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.allowed_origins", []string{"*"})

	// Metrics defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.path", "/metrics")
}
