package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"
)

// Config is the root configuration structure for the valve bridge.
// Values come from defaults, then an optional YAML file, then environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Client   ClientConfig   `yaml:"client"`
	HTTP     HTTPConfig     `yaml:"http"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Store    StoreConfig    `yaml:"store"`
	Auth     AuthConfig     `yaml:"auth"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig contains the controller (TCP) listener settings.
type DeviceConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// KeepAliveInterval is the TCP keep-alive probe period in milliseconds.
	KeepAliveInterval int `yaml:"keepalive_interval"`

	// WriteTimeout bounds a single socket write (seconds).
	WriteTimeout int `yaml:"write_timeout"`

	// MaxMessageSize bounds a single buffered line in bytes.
	MaxMessageSize int `yaml:"max_message_size"`
}

// ClientConfig contains the browser (WebSocket) listener settings.
type ClientConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// HTTPConfig contains the login/healthcheck/static HTTP server settings.
type HTTPConfig struct {
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	StaticDir string            `yaml:"static_dir"`
	Timeouts  HTTPTimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig        `yaml:"cors"`
}

// HTTPTimeoutConfig contains HTTP timeout settings in seconds.
type HTTPTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
// An empty AllowedOrigins list allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// BridgeConfig controls what the bridge forwards to the browser.
type BridgeConfig struct {
	// ForwardRawText echoes controller text lines to the browser instead of
	// the fixed "beep" notification.
	ForwardRawText bool `yaml:"forward_raw_text"`
}

// StoreConfig selects where the valve list is persisted.
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	Path     string         `yaml:"path"`
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig contains SQLite database settings for the sqlite backend.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AuthConfig contains login session settings.
type AuthConfig struct {
	UsersFile string          `yaml:"users_file"`
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
// An empty secret makes the process generate one at startup.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // minutes
}

// RateLimitConfig contains login rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds the configuration.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, when path is non-empty
//  3. Environment variables
//
// Environment variables follow the pattern VALVEBRIDGE_SECTION_KEY, e.g.
// VALVEBRIDGE_TCP_PORT. The unprefixed listener variables TCP_HOST, TCP_PORT,
// WEBSOCKET_PORT, HTTP_HOST and HTTP_PORT are honoured when the prefixed
// form is not set.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Host:              "0.0.0.0",
			Port:              8082,
			KeepAliveInterval: 1000,
			WriteTimeout:      5,
			MaxMessageSize:    64 * 1024,
		},
		Client: ClientConfig{
			Host:           "0.0.0.0",
			Port:           8081,
			Path:           "/",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: HTTPTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Store: StoreConfig{
			Backend: StoreBackendJSON,
			Path:    "db/valves.json",
			Database: DatabaseConfig{
				Path:        "db/valves.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		Auth: AuthConfig{
			UsersFile: "db/users.json",
			JWT: JWTConfig{
				TokenTTL: 1440,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "valvebridge",
			},
			QoS:         1,
			TopicPrefix: "valvebridge",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// lookupEnv returns the first non-empty variable among names.
func lookupEnv(names ...string) (string, bool) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v, true
		}
	}
	return "", false
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	setString := func(dst *string, names ...string) {
		if v, ok := lookupEnv(names...); ok {
			*dst = v
		}
	}
	setInt := func(dst *int, names ...string) {
		v, ok := lookupEnv(names...)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a number", names[0], v))
			return
		}
		*dst = n
	}

	// Listeners
	setString(&cfg.Device.Host, "VALVEBRIDGE_TCP_HOST", "TCP_HOST")
	setInt(&cfg.Device.Port, "VALVEBRIDGE_TCP_PORT", "TCP_PORT")
	setString(&cfg.Client.Host, "VALVEBRIDGE_WEBSOCKET_HOST", "WEBSOCKET_HOST")
	setInt(&cfg.Client.Port, "VALVEBRIDGE_WEBSOCKET_PORT", "WEBSOCKET_PORT")
	setString(&cfg.HTTP.Host, "VALVEBRIDGE_HTTP_HOST", "HTTP_HOST")
	setInt(&cfg.HTTP.Port, "VALVEBRIDGE_HTTP_PORT", "HTTP_PORT")
	setString(&cfg.HTTP.StaticDir, "VALVEBRIDGE_HTTP_STATIC_DIR")

	// Store
	setString(&cfg.Store.Backend, "VALVEBRIDGE_STORE_BACKEND")
	setString(&cfg.Store.Path, "VALVEBRIDGE_STORE_PATH")
	setString(&cfg.Store.Database.Path, "VALVEBRIDGE_DATABASE_PATH")

	// Auth
	setString(&cfg.Auth.UsersFile, "VALVEBRIDGE_AUTH_USERS_FILE")
	setString(&cfg.Auth.JWT.Secret, "VALVEBRIDGE_JWT_SECRET")

	// MQTT
	setString(&cfg.MQTT.Broker.Host, "VALVEBRIDGE_MQTT_HOST")
	setString(&cfg.MQTT.Auth.Username, "VALVEBRIDGE_MQTT_USERNAME")
	setString(&cfg.MQTT.Auth.Password, "VALVEBRIDGE_MQTT_PASSWORD")

	// InfluxDB
	setString(&cfg.InfluxDB.Token, "VALVEBRIDGE_INFLUXDB_TOKEN")

	// Logging
	setString(&cfg.Logging.Level, "VALVEBRIDGE_LOG_LEVEL")

	return errors.Join(errs...)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	checkPort := func(name string, port int) {
		if port < 1 || port > 65535 {
			errs = append(errs, name+" must be between 1 and 65535")
		}
	}
	checkPort("device.port", c.Device.Port)
	checkPort("client.port", c.Client.Port)
	checkPort("http.port", c.HTTP.Port)

	if c.Device.MaxMessageSize < 1 {
		errs = append(errs, "device.max_message_size must be positive")
	}

	if c.Client.Path == "" || !strings.HasPrefix(c.Client.Path, "/") {
		errs = append(errs, "client.path must start with /")
	}

	switch c.Store.Backend {
	case StoreBackendJSON:
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the json backend")
		}
	case StoreBackendSQLite:
		if c.Store.Database.Path == "" {
			errs = append(errs, "store.database.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.backend must be %q or %q", StoreBackendJSON, StoreBackendSQLite))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// A configured secret must be strong; an empty one is generated at startup.
	const minJWTSecretLength = 32
	if c.Auth.JWT.Secret != "" && len(c.Auth.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "auth.jwt.secret must be at least 32 characters")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DeviceAddr returns the controller listener address.
func (c *Config) DeviceAddr() string {
	return fmt.Sprintf("%s:%d", c.Device.Host, c.Device.Port)
}

// ClientAddr returns the WebSocket listener address.
func (c *Config) ClientAddr() string {
	return fmt.Sprintf("%s:%d", c.Client.Host, c.Client.Port)
}

// HTTPAddr returns the HTTP listener address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// GetKeepAliveInterval returns the device keep-alive period as a Duration.
func (c *Config) GetKeepAliveInterval() time.Duration {
	return time.Duration(c.Device.KeepAliveInterval) * time.Millisecond
}

// GetReadTimeout returns the HTTP read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.HTTP.Timeouts.Idle) * time.Second
}
