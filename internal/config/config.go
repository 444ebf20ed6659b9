// Package config handles application configuration loading from YAML files and environment variables.
package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "auscultify/internal/utils"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable that points at the YAML config file
const ConfigFileEnv = "AUSCULTIFY_CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Database      DatabaseConfig      `json:"db" yaml:"db"`
	Storage       StorageConfig       `json:"storage" yaml:"storage"`
	Selection     SelectionConfig     `json:"selection" yaml:"selection"`
	Auth          AuthConfig          `json:"auth" yaml:"auth"`
	Log           LogConfig           `json:"log" yaml:"log"`
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string   `json:"port" yaml:"port"`
	SessionSecret string   `json:"session_secret" yaml:"session_secret"`
	Debug         bool     `json:"debug" yaml:"debug"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
	AdminEmail    string   `json:"admin_email" yaml:"admin_email"`
	AdminPassword string   `json:"admin_password" yaml:"admin_password"`
	// TimeZone decides which calendar day "today" is for streaks and the 7-day charts
	TimeZone string `json:"time_zone" yaml:"time_zone"`
}

// DatabaseConfig represents database configuration. URL wins over the discrete fields.
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	User            string        `json:"user" yaml:"user"`
	Password        string        `json:"password" yaml:"password"`
	Name            string        `json:"name" yaml:"name"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// StorageConfig describes where audio files and manifests live
type StorageConfig struct {
	AudioRoot      string `json:"audio_root" yaml:"audio_root"`
	MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// SelectionConfig tunes the question-selection strategies
type SelectionConfig struct {
	BatchSize int `json:"batch_size" yaml:"batch_size"`
	Decoys    int `json:"decoys" yaml:"decoys"`
}

// AuthConfig represents authentication-related configuration
type AuthConfig struct {
	BcryptCost int `json:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// LogConfig controls the optional rotating log file
type LogConfig struct {
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "auscultify"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
	// LogFile is copied from the log section so the logger can tee into a rotating file
	LogFile LogConfig `json:"-" yaml:"-"`
}

// DSN returns the MySQL data source name, building it from the discrete fields when no URL is set.
// DATE and DATETIME columns are scanned into time.Time, so parseTime is forced on either way.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		cfg, err := mysql.ParseDSN(d.URL)
		if err != nil {
			// left as given so opening the pool reports the parse error
			return d.URL
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN()
	}

	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Location returns the configured time zone
func (c *Config) Location() *time.Location {
	loc, _ := contextutils.LoadLocation(c.Server.TimeZone)
	return loc
}

// NewConfig loads .env, then the YAML file, then applies defaults and environment overrides
func NewConfig() (result0 *Config, err error) {
	// .env is optional and never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read .env: %w", err)
	}

	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.applyDefaults()
	config.overrideFromEnv()
	config.OpenTelemetry.LogFile = config.Log

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyDefaults fills every zero value with the value the service ships with
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.AdminEmail == "" {
		c.Server.AdminEmail = DefaultAdminEmail
	}
	if c.Server.AdminPassword == "" {
		c.Server.AdminPassword = DefaultAdminPassword
	}
	if c.Server.TimeZone == "" {
		c.Server.TimeZone = "UTC"
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Password == "" {
		c.Database.Password = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "mydb"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = DefaultMaxOpenConns
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}

	if c.Storage.AudioRoot == "" {
		c.Storage.AudioRoot = DefaultAudioRoot
	}
	if c.Storage.MaxUploadBytes == 0 {
		c.Storage.MaxUploadBytes = DefaultMaxUploadBytes
	}

	if c.Selection.BatchSize == 0 {
		c.Selection.BatchSize = DefaultBatchSize
	}
	if c.Selection.Decoys == 0 {
		c.Selection.Decoys = DefaultDecoys
	}

	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = DefaultBcryptCost
	}

	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 28
	}

	if c.OpenTelemetry.Endpoint == "" {
		c.OpenTelemetry.Endpoint = "localhost:4317"
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = "auscultify"
	}
	if c.OpenTelemetry.SamplingRate == 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "server.port must be a number between 1 and 65535, got %q", c.Server.Port)
	}
	if c.Database.MaxOpenConns < 1 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "db.max_open_conns must be positive")
	}
	if c.Storage.MaxUploadBytes < 1 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "storage.max_upload_bytes must be positive")
	}
	if c.Selection.BatchSize < 1 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "selection.batch_size must be positive")
	}
	if c.Selection.Decoys < 0 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "selection.decoys cannot be negative")
	}
	if c.Auth.BcryptCost < MinBcryptCost || c.Auth.BcryptCost > MaxBcryptCost {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "auth.bcrypt_cost must be between %d and %d", MinBcryptCost, MaxBcryptCost)
	}
	switch c.OpenTelemetry.Protocol {
	case "grpc", "http":
	default:
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported open_telemetry.protocol %q", c.OpenTelemetry.Protocol)
	}
	if _, err := time.LoadLocation(c.Server.TimeZone); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown server.time_zone %q", c.Server.TimeZone)
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix walks the struct by yaml tag. A field `port` inside the
// `db` section is read from DB_PORT.
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		envVal := os.Getenv(envKey)

		switch {
		case field.Type() == durationType:
			if envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
		case field.Kind() == reflect.String:
			if envVal != "" {
				field.SetString(envVal)
			}
		case field.Kind() >= reflect.Int && field.Kind() <= reflect.Int64:
			if envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case field.Kind() == reflect.Float32 || field.Kind() == reflect.Float64:
			if envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case field.Kind() == reflect.Bool:
			if envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case field.Kind() == reflect.Slice:
			if envVal != "" && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(envVal, ",")
				for j := range parts {
					parts[j] = strings.TrimSpace(parts[j])
				}
				field.Set(reflect.ValueOf(parts))
			}
		case field.Kind() == reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the file named by AUSCULTIFY_CONFIG_FILE, or config.yaml.
// A missing default file yields an empty config so env-only deployments work.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
