package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "CHECKIN"

type Config struct {
	Environment string         `yaml:"environment" mapstructure:"environment"`
	Server      ServerConfig   `yaml:"server" mapstructure:"server"`
	Database    DatabaseConfig `yaml:"database" mapstructure:"database"`
	Auth        AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Checkin     CheckinConfig  `yaml:"checkin" mapstructure:"checkin"`
	Pickup      PickupConfig   `yaml:"pickup" mapstructure:"pickup"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the store. Driver is postgres, sqlite3 or memory;
// DSN wins over the individual postgres fields when set.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Name     string `yaml:"name" mapstructure:"name"`
	Seed     bool   `yaml:"seed" mapstructure:"seed"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

type CheckinConfig struct {
	Timezone           string        `yaml:"timezone" mapstructure:"timezone"`
	SearchFloor        time.Duration `yaml:"search_floor" mapstructure:"search_floor"`
	CodeLength         int           `yaml:"code_length" mapstructure:"code_length"`
	CodeAttempts       int           `yaml:"code_attempts" mapstructure:"code_attempts"`
	OccurrenceAttempts int           `yaml:"occurrence_attempts" mapstructure:"occurrence_attempts"`
}

type PickupConfig struct {
	MaxFailures   int           `yaml:"max_failures" mapstructure:"max_failures"`
	Window        time.Duration `yaml:"window" mapstructure:"window"`
	PruneInterval time.Duration `yaml:"prune_interval" mapstructure:"prune_interval"`
}

func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            "8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
			Host:   "localhost",
			Port:   5432,
			User:   "postgres",
			Name:   "checkin",
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
		Checkin: CheckinConfig{
			Timezone:           "Local",
			SearchFloor:        250 * time.Millisecond,
			CodeLength:         4,
			CodeAttempts:       10,
			OccurrenceAttempts: 3,
		},
		Pickup: PickupConfig{
			MaxFailures:   5,
			Window:        15 * time.Minute,
			PruneInterval: time.Minute,
		},
	}
}

// Load reads .env, then the optional yaml file at path, then CHECKIN_*
// environment variables. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = getEnv(EnvPrefix+"_CONFIG", "")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("environment", d.Environment)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.seed", d.Database.Seed)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("checkin.timezone", d.Checkin.Timezone)
	v.SetDefault("checkin.search_floor", d.Checkin.SearchFloor)
	v.SetDefault("checkin.code_length", d.Checkin.CodeLength)
	v.SetDefault("checkin.code_attempts", d.Checkin.CodeAttempts)
	v.SetDefault("checkin.occurrence_attempts", d.Checkin.OccurrenceAttempts)
	v.SetDefault("pickup.max_failures", d.Pickup.MaxFailures)
	v.SetDefault("pickup.window", d.Pickup.Window)
	v.SetDefault("pickup.prune_interval", d.Pickup.PruneInterval)
}

// Validate checks what the server needs before it starts.
func (c *Config) Validate() error {
	var problems []string
	switch c.Database.Driver {
	case "postgres", "sqlite3", "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown database.driver %q", c.Database.Driver))
	}
	if c.Database.Driver == "sqlite3" && c.Database.DSN == "" {
		problems = append(problems, "database.dsn is required for sqlite3")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "auth.token_ttl must be positive")
	}
	if c.Checkin.SearchFloor < 0 {
		problems = append(problems, "checkin.search_floor must not be negative")
	}
	if c.Checkin.CodeLength < 3 {
		problems = append(problems, "checkin.code_length must be at least 3")
	}
	if c.Checkin.CodeAttempts < 1 || c.Checkin.OccurrenceAttempts < 1 {
		problems = append(problems, "checkin attempts must be at least 1")
	}
	if c.Pickup.MaxFailures < 1 || c.Pickup.Window <= 0 {
		problems = append(problems, "pickup.max_failures and pickup.window must be positive")
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location is the campus time zone used to derive the service date.
func (c *Config) Location() (*time.Location, error) {
	if c.Checkin.Timezone == "" || c.Checkin.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Checkin.Timezone)
	if err != nil {
		return nil, fmt.Errorf("checkin.timezone: %w", err)
	}
	return loc, nil
}

// WriteDefault writes the default config as yaml. It refuses to overwrite an
// existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
