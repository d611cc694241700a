// Package config handles application configuration loading from a YAML file and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "surveyapp/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at the YAML config file
const ConfigFileEnv = "SURVEY_CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Storage configuration for uploaded survey images
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Auth configuration
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string `json:"port" yaml:"port"`
	SessionSecret string `json:"session_secret" yaml:"session_secret"`
	Debug         bool   `json:"debug" yaml:"debug"`
	LogLevel      string `json:"log_level" yaml:"log_level"`
	// BackendBaseURL prefixes stored image paths when building image_url
	BackendBaseURL string   `json:"backend_base_url" yaml:"backend_base_url"`
	CORSOrigins    []string `json:"cors_origins" yaml:"cors_origins"`
	// PageSize is the number of surveys per page on the owner listing
	PageSize int `json:"page_size" yaml:"page_size"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
}

// StorageConfig controls where decoded survey images are written
type StorageConfig struct {
	PublicDir string `json:"public_dir" yaml:"public_dir"`
	ImageDir  string `json:"image_dir" yaml:"image_dir"`
}

// AuthConfig represents authentication-related configuration
type AuthConfig struct {
	SignupsDisabled bool `json:"signups_disabled" yaml:"signups_disabled"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "survey-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`   // Use the auto-instrumentation SDK tracer provider
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// IsSignupDisabled returns whether new accounts may be created over the API
func (c *Config) IsSignupDisabled() bool {
	return c.Auth.SignupsDisabled
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	// Load config from YAML file
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// applyDefaults fills settings that neither the file nor the environment provided
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.BackendBaseURL == "" {
		c.Server.BackendBaseURL = "http://localhost:" + c.Server.Port
	}
	c.Server.BackendBaseURL = strings.TrimRight(c.Server.BackendBaseURL, "/")
	if c.Server.PageSize <= 0 {
		c.Server.PageSize = DefaultSurveyPageSize
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if c.Storage.PublicDir == "" {
		c.Storage.PublicDir = DefaultPublicDir
	}
	if c.Storage.ImageDir == "" {
		c.Storage.ImageDir = DefaultImageDir
	}
	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = "survey-backend"
	}
	if c.OpenTelemetry.SamplingRate <= 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables.
// The variable name is the upper-cased yaml tag path, e.g. storage.public_dir -> STORAGE_PUBLIC_DIR.
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

		// time.Duration is an int64 kind but is written as "10m" in config
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			if envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal != "" && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(envVal, ",")
				slice := make([]string, 0, len(parts))
				for _, p := range parts {
					if p = strings.TrimSpace(p); p != "" {
						slice = append(slice, p)
					}
				}
				field.Set(reflect.ValueOf(slice))
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the file named by SURVEY_CONFIG_FILE, or config.yaml when unset.
// A missing default file yields an empty config; a missing explicit file is an error.
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
