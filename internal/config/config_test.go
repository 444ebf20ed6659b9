package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	contextutils "auscultify/internal/utils"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"SERVER_PORT", "SERVER_DEBUG", "SERVER_SESSION_SECRET", "SERVER_CORS_ORIGINS", "SERVER_TIME_ZONE",
	"SERVER_ADMIN_EMAIL", "SERVER_ADMIN_PASSWORD", "SERVER_LOG_LEVEL",
	"DB_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	"STORAGE_AUDIO_ROOT", "STORAGE_MAX_UPLOAD_BYTES",
	"SELECTION_BATCH_SIZE", "SELECTION_DECOYS", "AUTH_BCRYPT_COST",
	"LOG_FILE", "OPEN_TELEMETRY_ENDPOINT", "OPEN_TELEMETRY_PROTOCOL", "OPEN_TELEMETRY_ENABLE_LOGGING",
	"OPEN_TELEMETRY_SAMPLING_RATE", "OPEN_TELEMETRY_INSECURE",
}

// isolateConfigEnv blanks every variable NewConfig reads so the host environment cannot leak in
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv(ConfigFileEnv, "")
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfig_LoadsFromYAML(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv(ConfigFileEnv, createTempConfigFile(t, `
server:
  port: "9090"
  session_secret: "test-secret"
  debug: true
  log_level: "debug"
  admin_email: "root@example.com"
  admin_password: "hunter22"
  time_zone: "Europe/Madrid"
  cors_origins:
    - "http://localhost:5173"
    - "http://localhost:3001"

db:
  host: "mysql"
  port: 3307
  user: "quiz"
  password: "quizpass"
  name: "auscultify"
  max_open_conns: 20
  max_idle_conns: 5
  conn_max_lifetime: "10m"

storage:
  audio_root: "/srv/audios"
  max_upload_bytes: 1048576

selection:
  batch_size: 5
  decoys: 2

auth:
  bcrypt_cost: 12

log:
  file: "/var/log/auscultify.log"
  max_size_mb: 10

open_telemetry:
  endpoint: "otel:4317"
  protocol: "http"
  insecure: true
  service_name: "auscultify-test"
  enable_tracing: false
  enable_metrics: false
  enable_logging: false
  sampling_rate: 0.5
`))

	config, err := NewConfig()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "test-secret", config.Server.SessionSecret)
	assert.True(t, config.Server.Debug)
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, "root@example.com", config.Server.AdminEmail)
	assert.Equal(t, "hunter22", config.Server.AdminPassword)
	assert.Equal(t, "Europe/Madrid", config.Server.TimeZone)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3001"}, config.Server.CORSOrigins)

	assert.Equal(t, "mysql", config.Database.Host)
	assert.Equal(t, 3307, config.Database.Port)
	assert.Equal(t, "quiz", config.Database.User)
	assert.Equal(t, "auscultify", config.Database.Name)
	assert.Equal(t, 20, config.Database.MaxOpenConns)
	assert.Equal(t, 5, config.Database.MaxIdleConns)
	assert.Equal(t, 10*time.Minute, config.Database.ConnMaxLifetime)

	assert.Equal(t, "/srv/audios", config.Storage.AudioRoot)
	assert.Equal(t, int64(1048576), config.Storage.MaxUploadBytes)
	assert.Equal(t, 5, config.Selection.BatchSize)
	assert.Equal(t, 2, config.Selection.Decoys)
	assert.Equal(t, 12, config.Auth.BcryptCost)

	assert.Equal(t, "/var/log/auscultify.log", config.Log.File)
	assert.Equal(t, 10, config.Log.MaxSizeMB)
	assert.Equal(t, 3, config.Log.MaxBackups)
	assert.Equal(t, config.Log, config.OpenTelemetry.LogFile)

	assert.Equal(t, "otel:4317", config.OpenTelemetry.Endpoint)
	assert.Equal(t, "http", config.OpenTelemetry.Protocol)
	assert.Equal(t, "auscultify-test", config.OpenTelemetry.ServiceName)
	assert.False(t, config.OpenTelemetry.EnableLogging)
	assert.Equal(t, 0.5, config.OpenTelemetry.SamplingRate)
}

func TestNewConfig_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv(ConfigFileEnv, createTempConfigFile(t, "server: {}\n"))

	config, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, config.Server.Port)
	assert.Equal(t, DefaultAdminEmail, config.Server.AdminEmail)
	assert.Equal(t, "UTC", config.Server.TimeZone)
	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, 3306, config.Database.Port)
	assert.Equal(t, "root", config.Database.User)
	assert.Equal(t, "mydb", config.Database.Name)
	assert.Equal(t, DefaultMaxOpenConns, config.Database.MaxOpenConns)
	assert.Equal(t, DatabaseConnMaxLifetime, config.Database.ConnMaxLifetime)
	assert.Equal(t, DefaultAudioRoot, config.Storage.AudioRoot)
	assert.Equal(t, int64(50<<20), config.Storage.MaxUploadBytes)
	assert.Equal(t, 10, config.Selection.BatchSize)
	assert.Equal(t, 3, config.Selection.Decoys)
	assert.Equal(t, 10, config.Auth.BcryptCost)
	assert.Equal(t, "grpc", config.OpenTelemetry.Protocol)
	assert.Equal(t, 1.0, config.OpenTelemetry.SamplingRate)
}

func TestNewConfig_EnvironmentVariableOverrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv(ConfigFileEnv, createTempConfigFile(t, `
server:
  port: "8080"
  debug: false
db:
  host: "yaml-host"
`))

	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("SERVER_DEBUG", "true")
	t.Setenv("SERVER_CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "3310")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
	t.Setenv("STORAGE_AUDIO_ROOT", "/data/audios")
	t.Setenv("SELECTION_BATCH_SIZE", "15")
	t.Setenv("OPEN_TELEMETRY_SAMPLING_RATE", "0.25")
	t.Setenv("OPEN_TELEMETRY_ENABLE_LOGGING", "true")

	config, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", config.Server.Port)
	assert.True(t, config.Server.Debug)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, config.Server.CORSOrigins)
	assert.Equal(t, "env-host", config.Database.Host)
	assert.Equal(t, 3310, config.Database.Port)
	assert.Equal(t, 90*time.Second, config.Database.ConnMaxLifetime)
	assert.Equal(t, "/data/audios", config.Storage.AudioRoot)
	assert.Equal(t, 15, config.Selection.BatchSize)
	assert.Equal(t, 0.25, config.OpenTelemetry.SamplingRate)
	assert.True(t, config.OpenTelemetry.EnableLogging)
}

func TestNewConfig_InvalidEnvironmentVariableIsIgnored(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv(ConfigFileEnv, createTempConfigFile(t, "db:\n  port: 3307\n"))
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("SERVER_DEBUG", "maybe")

	config, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, 3307, config.Database.Port)
	assert.False(t, config.Server.Debug)
}

func TestNewConfig_ConfigFileNotFound(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv(ConfigFileEnv, "/nonexistent/file.yaml")

	_, err := NewConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from /nonexistent/file.yaml")
}

func TestNewConfig_MissingDefaultFileUsesDefaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Chdir(t.TempDir())

	config, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, config.Server.Port)
}

func TestNewConfig_InvalidYAML(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv(ConfigFileEnv, createTempConfigFile(t, "server: [unclosed\n"))

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.applyDefaults()
		return c
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"non numeric port", func(c *Config) { c.Server.Port = "http" }, "server.port"},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }, "server.port"},
		{"empty pool", func(c *Config) { c.Database.MaxOpenConns = -1 }, "db.max_open_conns"},
		{"upload limit", func(c *Config) { c.Storage.MaxUploadBytes = -5 }, "storage.max_upload_bytes"},
		{"batch size", func(c *Config) { c.Selection.BatchSize = -1 }, "selection.batch_size"},
		{"decoys", func(c *Config) { c.Selection.Decoys = -1 }, "selection.decoys"},
		{"bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 40 }, "auth.bcrypt_cost"},
		{"otel protocol", func(c *Config) { c.OpenTelemetry.Protocol = "udp" }, "open_telemetry.protocol"},
		{"time zone", func(c *Config) { c.Server.TimeZone = "Mars/Olympus" }, "server.time_zone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("url wins", func(t *testing.T) {
		d := DatabaseConfig{URL: "u:p@tcp(db:3306)/x?parseTime=true", Host: "ignored"}
		assert.Equal(t, "u:p@tcp(db:3306)/x?parseTime=true", d.DSN())
	})

	t.Run("url without parseTime gets it", func(t *testing.T) {
		d := DatabaseConfig{URL: "root:root@tcp(localhost:3306)/mydb?charset=utf8mb4"}

		parsed, err := mysql.ParseDSN(d.DSN())
		require.NoError(t, err)
		assert.True(t, parsed.ParseTime)
		assert.Equal(t, time.UTC, parsed.Loc)
		assert.Equal(t, "mydb", parsed.DBName)
		assert.Equal(t, "localhost:3306", parsed.Addr)
		assert.Contains(t, d.DSN(), "charset=utf8mb4")
	})

	t.Run("unparseable url is passed through", func(t *testing.T) {
		d := DatabaseConfig{URL: "not a dsn"}
		assert.Equal(t, "not a dsn", d.DSN())
	})

	t.Run("built from fields", func(t *testing.T) {
		d := DatabaseConfig{Host: "db", Port: 3307, User: "root", Password: "secret", Name: "mydb"}
		dsn := d.DSN()

		parsed, err := mysql.ParseDSN(dsn)
		require.NoError(t, err)
		assert.Equal(t, "root", parsed.User)
		assert.Equal(t, "secret", parsed.Passwd)
		assert.Equal(t, "tcp", parsed.Net)
		assert.Equal(t, "db:3307", parsed.Addr)
		assert.Equal(t, "mydb", parsed.DBName)
		assert.True(t, parsed.ParseTime)
		assert.True(t, strings.Contains(dsn, "charset=utf8mb4"))
	})
}

func TestOverrideStructFromEnv_NestedPrefix(t *testing.T) {
	type inner struct {
		Value string `yaml:"value"`
		Count int    `yaml:"count"`
	}
	type outer struct {
		Name   string `yaml:"name"`
		Inner  inner  `yaml:"inner_section"`
		Hidden string `yaml:"-"`
		NoTag  string
	}

	t.Setenv("NAME", "top")
	t.Setenv("INNER_SECTION_VALUE", "nested")
	t.Setenv("INNER_SECTION_COUNT", "7")
	t.Setenv("HIDDEN", "should-not-apply")
	t.Setenv("NOTAG", "should-not-apply")

	o := &outer{}
	overrideStructFromEnvWithPrefix(o, "")

	assert.Equal(t, "top", o.Name)
	assert.Equal(t, "nested", o.Inner.Value)
	assert.Equal(t, 7, o.Inner.Count)
	assert.Empty(t, o.Hidden)
	assert.Empty(t, o.NoTag)
}

func TestConfig_Location(t *testing.T) {
	c := &Config{Server: ServerConfig{TimeZone: "Europe/Madrid"}}
	assert.Equal(t, "Europe/Madrid", c.Location().String())

	c.Server.TimeZone = ""
	assert.Equal(t, time.UTC, c.Location())
}
