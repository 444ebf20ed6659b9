package config

import "time"

// Defaults applied when neither the YAML file nor the environment set a value
const (
	DefaultPort           = "3000"
	DefaultAdminEmail     = "admin@auscultify.com"
	DefaultAdminPassword  = "admin"
	DefaultMaxOpenConns   = 10
	DefaultAudioRoot      = "audios"
	DefaultMaxUploadBytes = 50 << 20 // 50 MiB
	DefaultBatchSize      = 10
	DefaultDecoys         = 3
	DefaultBcryptCost     = 10
	MinBcryptCost         = 4
	MaxBcryptCost         = 31
)

// Timeout constants
const (
	// HTTP timeouts
	ServerReadHeaderTimeout = 10 * time.Second
	ServerShutdownTimeout   = 30 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
	DatabasePingTimeout     = 5 * time.Second

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	SessionName = "auscultify-session"
)

// Manifest files kept next to the category folders
const (
	CategoryManifest = "categorias.txt"
	AudioManifest    = "rutaAudios.txt"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data:; media-src 'self' blob: data:;"
)
