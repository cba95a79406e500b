package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  host: "127.0.0.1"
  port: 9000
client:
  port: 9001
  path: "/ws"
http:
  port: 9002
bridge:
  forward_raw_text: true
store:
  backend: "sqlite"
  database:
    path: "/tmp/valves.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DeviceAddr() != "127.0.0.1:9000" {
		t.Errorf("DeviceAddr() = %q, want %q", cfg.DeviceAddr(), "127.0.0.1:9000")
	}
	if cfg.Client.Path != "/ws" {
		t.Errorf("Client.Path = %q, want %q", cfg.Client.Path, "/ws")
	}
	if cfg.HTTP.Port != 9002 {
		t.Errorf("HTTP.Port = %d, want 9002", cfg.HTTP.Port)
	}
	if !cfg.Bridge.ForwardRawText {
		t.Error("Bridge.ForwardRawText = false, want true")
	}
	if cfg.Store.Backend != StoreBackendSQLite {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, StoreBackendSQLite)
	}

	// Unset values keep their defaults
	if cfg.Device.KeepAliveInterval != 1000 {
		t.Errorf("Device.KeepAliveInterval = %d, want 1000", cfg.Device.KeepAliveInterval)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Device.Port != 8082 {
		t.Errorf("Device.Port = %d, want 8082", cfg.Device.Port)
	}
}

// The sample file in configs/ documents the defaults and must stay loadable.
func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("Load(sample) error = %v", err)
	}

	def := defaultConfig()
	if cfg.Device != def.Device {
		t.Errorf("Device = %+v, want defaults %+v", cfg.Device, def.Device)
	}
	if cfg.Client != def.Client {
		t.Errorf("Client = %+v, want defaults %+v", cfg.Client, def.Client)
	}
	if cfg.Store != def.Store {
		t.Errorf("Store = %+v, want defaults %+v", cfg.Store, def.Store)
	}
	if cfg.Auth != def.Auth {
		t.Errorf("Auth = %+v, want defaults %+v", cfg.Auth, def.Auth)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("sample config should leave MQTT and InfluxDB disabled")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidEnvNumber(t *testing.T) {
	t.Setenv("VALVEBRIDGE_TCP_PORT", "not-a-port")

	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for non-numeric port, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "device port low", mutate: func(c *Config) { c.Device.Port = 0 }, wantErr: true},
		{name: "client port high", mutate: func(c *Config) { c.Client.Port = 70000 }, wantErr: true},
		{name: "http port low", mutate: func(c *Config) { c.HTTP.Port = -1 }, wantErr: true},
		{name: "client path relative", mutate: func(c *Config) { c.Client.Path = "ws" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "redis" }, wantErr: true},
		{name: "json without path", mutate: func(c *Config) { c.Store.Path = "" }, wantErr: true},
		{
			name: "sqlite without database path",
			mutate: func(c *Config) {
				c.Store.Backend = StoreBackendSQLite
				c.Store.Database.Path = ""
			},
			wantErr: true,
		},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "short JWT secret", mutate: func(c *Config) { c.Auth.JWT.Secret = "short" }, wantErr: true},
		{name: "empty JWT secret allowed", mutate: func(c *Config) { c.Auth.JWT.Secret = "" }},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
		{name: "zero max message size", mutate: func(c *Config) { c.Device.MaxMessageSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Device: DeviceConfig{KeepAliveInterval: 1500},
		HTTP: HTTPConfig{
			Timeouts: HTTPTimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetKeepAliveInterval().Milliseconds(); got != 1500 {
		t.Errorf("GetKeepAliveInterval() = %vms, want 1500", got)
	}
	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("VALVEBRIDGE_TCP_HOST", "10.0.0.5")
	t.Setenv("VALVEBRIDGE_TCP_PORT", "7000")
	t.Setenv("VALVEBRIDGE_WEBSOCKET_PORT", "7001")
	t.Setenv("VALVEBRIDGE_HTTP_PORT", "7002")
	t.Setenv("VALVEBRIDGE_STORE_PATH", "/custom/valves.json")
	t.Setenv("VALVEBRIDGE_MQTT_USERNAME", "testuser")
	t.Setenv("VALVEBRIDGE_JWT_SECRET", "jwt-secret")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Device.Host != "10.0.0.5" {
		t.Errorf("Device.Host = %q, want %q", cfg.Device.Host, "10.0.0.5")
	}
	if cfg.Device.Port != 7000 {
		t.Errorf("Device.Port = %d, want 7000", cfg.Device.Port)
	}
	if cfg.Client.Port != 7001 {
		t.Errorf("Client.Port = %d, want 7001", cfg.Client.Port)
	}
	if cfg.HTTP.Port != 7002 {
		t.Errorf("HTTP.Port = %d, want 7002", cfg.HTTP.Port)
	}
	if cfg.Store.Path != "/custom/valves.json" {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, "/custom/valves.json")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.Auth.JWT.Secret != "jwt-secret" {
		t.Errorf("Auth.JWT.Secret = %q, want %q", cfg.Auth.JWT.Secret, "jwt-secret")
	}
}

func TestApplyEnvOverrides_LegacyNames(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("TCP_PORT", "8100")
	t.Setenv("WEBSOCKET_PORT", "8101")
	t.Setenv("HTTP_HOST", "127.0.0.1")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Device.Port != 8100 {
		t.Errorf("Device.Port = %d, want 8100", cfg.Device.Port)
	}
	if cfg.Client.Port != 8101 {
		t.Errorf("Client.Port = %d, want 8101", cfg.Client.Port)
	}
	if cfg.HTTP.Host != "127.0.0.1" {
		t.Errorf("HTTP.Host = %q, want %q", cfg.HTTP.Host, "127.0.0.1")
	}

	// The prefixed form wins
	t.Setenv("VALVEBRIDGE_TCP_PORT", "8200")
	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}
	if cfg.Device.Port != 8200 {
		t.Errorf("Device.Port = %d, want 8200", cfg.Device.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Device.Port != 8082 {
		t.Errorf("defaultConfig Device.Port = %d, want 8082", cfg.Device.Port)
	}
	if cfg.Store.Backend != StoreBackendJSON {
		t.Errorf("defaultConfig Store.Backend = %q, want %q", cfg.Store.Backend, StoreBackendJSON)
	}
	if cfg.Bridge.ForwardRawText {
		t.Error("defaultConfig Bridge.ForwardRawText should be false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig Validate() error = %v", err)
	}
}
