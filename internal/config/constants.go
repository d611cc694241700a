package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout = 60 * time.Second
	ShutdownTimeout    = 30 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days
)

// Defaults applied when neither the config file nor the environment set a value
const (
	DefaultServerPort     = "8080"
	DefaultSurveyPageSize = 5
	DefaultPublicDir      = "public"
	DefaultImageDir       = "images"

	// DashboardLatestAnswers is how many answer sessions the dashboard shows
	DashboardLatestAnswers = 5
)

// Session configuration constants
const (
	// Session settings
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	// Session name
	SessionName = "survey-session"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:;"
)

// Request body limits
const (
	// MaxRequestBodyBytes bounds JSON bodies, which may embed a base64 image
	MaxRequestBodyBytes = 16 << 20
)
