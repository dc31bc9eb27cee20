package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

type StorageConfig struct {
	LocalPath   string `mapstructure:"local_path"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

// CatalogConfig points at an optional YAML file merged over the built-in
// entity catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	// LoginRate is the sustained login attempts per minute allowed per client IP.
	LoginRate  int `mapstructure:"login_rate"`
	LoginBurst int `mapstructure:"login_burst"`
	// SweepInterval is the expired-session sweep period in seconds; 0 disables it.
	SweepInterval int `mapstructure:"sweep_interval"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "sqlite":
		return filepath.Join(d.Path, d.Name+".db")
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:     "/" + d.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	default:
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
		mc.DBName = d.Name
		mc.ParseTime = true
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	}
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var problems []string
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.Host == "" {
			problems = append(problems, "database.host is required")
		}
		if c.Database.User == "" {
			problems = append(problems, "database.user is required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			problems = append(problems, "database.path is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported database.driver %q", c.Database.Driver))
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}
	if c.Auth.Secret == "" {
		problems = append(problems, "auth.secret is required")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads app.yaml (optional) and the environment into a Config.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../..")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origin", "")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.name", "hr")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("storage.local_path", "./uploads")
	v.SetDefault("storage.max_file_size", 10485760)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("auth.login_rate", 10)
	v.SetDefault("auth.login_burst", 5)
	v.SetDefault("auth.sweep_interval", 0)

	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultPort(cfg.Database.Driver)
	}
	return &cfg, nil
}

// bindEnv maps the deployment environment variables onto config keys.
func bindEnv(v *viper.Viper) {
	pairs := [][2]string{
		{"server.port", "PORT"},
		{"server.cors_origin", "CORS_ORIGIN"},
		{"database.driver", "DB_DRIVER"},
		{"database.host", "DB_HOST"},
		{"database.port", "DB_PORT"},
		{"database.user", "DB_USER"},
		{"database.password", "DB_PASSWORD"},
		{"database.name", "DB_NAME"},
		{"database.path", "DB_PATH"},
		{"database.pool_size", "DB_POOL_SIZE"},
		{"storage.local_path", "UPLOAD_DIR"},
		{"log.level", "LOG_LEVEL"},
		{"log.format", "LOG_FORMAT"},
		{"auth.secret", "AUTH_SECRET"},
		{"catalog.path", "CATALOG_PATH"},
		{"auth.sweep_interval", "SESSION_SWEEP_INTERVAL"},
	}
	for _, p := range pairs {
		_ = v.BindEnv(p[0], p[1])
	}
}

func defaultPort(driver string) int {
	switch driver {
	case "postgres":
		return 5432
	case "sqlite":
		return 0
	default:
		return 3306
	}
}
