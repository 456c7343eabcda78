// Package config provides configuration management for srvadm.
//
// This package handles loading configuration from multiple sources:
//   - YAML configuration files
//   - Environment variables (with SRVADM_ prefix)
//   - .env files
//   - Default values
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./config.yaml, ./configs/config.yaml, ~/.srvadm/config.yaml, /etc/srvadm/config.yaml)
//  3. .env files
//  4. Environment variables (SRVADM_ prefix)
//
// # Usage Example
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
//
// # Environment Variables
//
// Environment variables override all other configuration sources.
// Use SRVADM_ prefix and underscores for nested keys:
//   - SRVADM_SERVER_PORT=5000
//   - SRVADM_DATABASE_DRIVER=mysql
//   - SRVADM_DATABASE_DSN=root:@tcp(localhost:3306)/srvadm?parseTime=true
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Config is the root configuration structure for srvadm.
type Config struct {
	// Server contains HTTP server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Database contains the relational store settings
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Logging contains logging settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Security contains CORS and rate limiting settings
	Security SecurityConfig `mapstructure:"security" yaml:"security"`

	// API contains response compatibility switches
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Client contains settings for the CLI query commands
	Client ClientConfig `mapstructure:"client" yaml:"client"`

	// Integrity contains the background scan settings
	Integrity IntegrityConfig `mapstructure:"integrity" yaml:"integrity"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the server bind address (default: 0.0.0.0)
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the server listen port (default: 5000)
	Port int `mapstructure:"port" yaml:"port"`

	// ReadTimeout is the maximum duration for reading requests
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing responses
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Debug enables SQL query logging and detailed error bodies
	Debug bool `mapstructure:"debug" yaml:"debug"`

	// TLSEnabled enables HTTPS
	TLSEnabled bool `mapstructure:"tls_enabled" yaml:"tls_enabled"`

	// TLSCert is the path to the TLS certificate file
	TLSCert string `mapstructure:"tls_cert" yaml:"tls_cert"`

	// TLSKey is the path to the TLS private key file
	TLSKey string `mapstructure:"tls_key" yaml:"tls_key"`
}

// DatabaseConfig contains relational store settings.
type DatabaseConfig struct {
	// Driver is one of sqlite, postgres, mysql
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DSN is the driver specific data source name. When empty it is
	// assembled from Host, Port, User, Password and Name.
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Name     string `mapstructure:"name" yaml:"name"`

	// MaxOpenConns caps the connection pool (0 = unlimited)
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`

	// MaxIdleConns caps idle pooled connections
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`

	// ConnMaxLifetime recycles connections after this duration
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`

	// AutoMigrate creates missing tables when the server starts
	AutoMigrate bool `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format" yaml:"format"`

	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" yaml:"output"`
}

// SecurityConfig contains CORS and rate limiting settings.
type SecurityConfig struct {
	// RateLimit is the maximum requests per second per client (0 disables)
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`

	// AllowedOrigins are the CORS allowed origins
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// APIConfig contains response compatibility switches.
type APIConfig struct {
	// LegacyStatus reports conflicts as 500 for clients of the first API version.
	// When false conflicts are reported as 409.
	LegacyStatus bool `mapstructure:"legacy_status" yaml:"legacy_status"`
}

// ClientConfig contains settings for commands that talk to a running server.
type ClientConfig struct {
	// ServerURL is the base URL of the srvadm API
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`

	// Timeout bounds each request
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// IntegrityConfig controls the scheduled integrity scan inside the server.
type IntegrityConfig struct {
	// ScanInterval between scans (0 disables scheduled scans)
	ScanInterval time.Duration `mapstructure:"scan_interval" yaml:"scan_interval"`

	// AutoRepair applies low-risk fixes after each scheduled scan
	AutoRepair bool `mapstructure:"auto_repair" yaml:"auto_repair"`
}

var cfg *Config

var (
	validDrivers    = map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}
)

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for config.yaml in standard locations.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SRVADM_ prefix)
//  2. .env file
//  3. Configuration file
//  4. Default values
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.srvadm")
		v.AddConfigPath("/etc/srvadm")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			// A missing explicit file falls back to defaults
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // Ignore error if .env file doesn't exist

	v.SetEnvPrefix("SRVADM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(loaded); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = loaded
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	def := &Config{}
	if err := v.Unmarshal(def); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return def
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.tls_enabled", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:srvadm.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "srvadm")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("security.rate_limit", 0)
	v.SetDefault("security.allowed_origins", []string{"*"})

	v.SetDefault("api.legacy_status", true)

	v.SetDefault("client.server_url", "http://localhost:5000")
	v.SetDefault("client.timeout", "10s")

	v.SetDefault("integrity.scan_interval", "0s")
	v.SetDefault("integrity.auto_repair", false)
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}

	if cfg.Database.DSN == "" {
		if cfg.Database.Driver == "sqlite" {
			return fmt.Errorf("database dsn is required for sqlite")
		}
		if cfg.Database.Host == "" {
			return fmt.Errorf("database dsn or host is required")
		}
	}

	if cfg.Logging.Level != "" && !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %q", cfg.Logging.Level)
	}

	if cfg.Logging.Format != "" && !validLogFormats[strings.ToLower(cfg.Logging.Format)] {
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	if cfg.Integrity.ScanInterval < 0 {
		return fmt.Errorf("invalid integrity scan_interval: %s", cfg.Integrity.ScanInterval)
	}

	if cfg.Server.TLSEnabled && (cfg.Server.TLSCert == "" || cfg.Server.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key are required when tls is enabled")
	}

	return nil
}

// Get returns the configuration most recently produced by Load.
func Get() *Config {
	return cfg
}

// BuildDSN returns the data source name for the configured driver.
// An explicit DSN always wins. Otherwise the connection fields are
// assembled into the driver's native format.
func (c *DatabaseConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch c.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = hostPort(c.Host, c.Port, 3306)
		mc.DBName = c.Name
		mc.ParseTime = true
		return mc.FormatDSN()
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			Host:     hostPort(c.Host, c.Port, 5432),
			Path:     "/" + c.Name,
			RawQuery: "sslmode=disable",
		}
		if c.User != "" {
			if c.Password != "" {
				u.User = url.UserPassword(c.User, c.Password)
			} else {
				u.User = url.User(c.User)
			}
		}
		return u.String()
	default:
		return ""
	}
}

// Addr returns the host:port the HTTP server listens on.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func hostPort(host string, port, fallback int) string {
	if port == 0 {
		port = fallback
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
