package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic IR bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig       `yaml:"site"`
	Database  DatabaseConfig   `yaml:"database"`
	MQTT      MQTTConfig       `yaml:"mqtt"`
	API       APIConfig        `yaml:"api"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
	InfluxDB  InfluxDBConfig   `yaml:"influxdb"`
	Logging   LoggingConfig    `yaml:"logging"`
	Security  SecurityConfig   `yaml:"security"`
	IR        IRConfig         `yaml:"ir"`
	Schedules []ScheduleConfig `yaml:"schedules"`
}

// SiteConfig identifies this device on the message bus and in logs.
type SiteConfig struct {
	// DeviceID is the topic segment used for all MQTT traffic of this device.
	DeviceID string `yaml:"device_id"`
	Name     string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
// The database backs the key-value areas (command document, credentials).
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	// HealthInterval is how often the retained health message is refreshed (seconds).
	HealthInterval int `yaml:"health_interval"`
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP control surface settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
// Write must exceed the longest learn timeout for wait=true requests to complete.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains status event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for learn/send telemetry.
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
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains rotating log file settings, used when output is "file".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings for the HTTP surface.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains bearer token settings.
// An empty secret leaves the HTTP surface open, matching a device on a trusted LAN.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// IRConfig contains transceiver and engine settings.
type IRConfig struct {
	// Driver selects the transceiver backend: "lirc" or "simulated".
	Driver string `yaml:"driver"`

	// RXDevice and TXDevice are LIRC character devices (e.g. /dev/lirc0, /dev/lirc1).
	// They may be the same device on hardware that exposes both directions.
	RXDevice string `yaml:"rx_device"`
	TXDevice string `yaml:"tx_device"`

	Timing TimingConfig `yaml:"timing"`

	// CarrierHz is the transmit carrier frequency.
	CarrierHz int `yaml:"carrier_hz"`

	// DutyCycle is the transmit carrier duty cycle in percent.
	DutyCycle int `yaml:"duty_cycle"`

	// LearnTimeoutMs is used when a learn request does not specify one.
	LearnTimeoutMs int `yaml:"learn_timeout_ms"`

	// MaxLearnTimeoutMs caps any requested learn timeout.
	MaxLearnTimeoutMs int `yaml:"max_learn_timeout_ms"`

	// PollIntervalMs is the dispatcher tick used to poll the receiver while learning.
	PollIntervalMs int `yaml:"poll_interval_ms"`

	// SendRatePerSec and SendBurst limit how often the emitter fires.
	SendRatePerSec float64 `yaml:"send_rate_per_sec"`
	SendBurst      int     `yaml:"send_burst"`
}

// TimingConfig contains the timing codec constants.
type TimingConfig struct {
	TickMicros uint32 `yaml:"tick_us"`
	LowMicros  uint32 `yaml:"low_threshold_us"`
	HighMicros uint32 `yaml:"high_threshold_us"`
}

// ScheduleConfig replays a stored command on a cron schedule.
type ScheduleConfig struct {
	Spec    string `yaml:"spec"`
	Command string `yaml:"command"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_IR_SECTION_KEY
// For example: GRAYLOGIC_IR_DATABASE_PATH, GRAYLOGIC_IR_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
// The IR timing defaults match an ESP32-class receiver with a 50µs tick.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			DeviceID: "ir-001",
			Name:     "IR Bridge",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic-ir.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-ir",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			HealthInterval: 30,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 90,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 4096,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/graylogic-ir.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
		IR: IRConfig{
			Driver:   "lirc",
			RXDevice: "/dev/lirc0",
			TXDevice: "/dev/lirc0",
			Timing: TimingConfig{
				TickMicros: 50,
				LowMicros:  50,
				HighMicros: 20000,
			},
			CarrierHz:         38000,
			DutyCycle:         33,
			LearnTimeoutMs:    10000,
			MaxLearnTimeoutMs: 60000,
			PollIntervalMs:    20,
			SendRatePerSec:    5,
			SendBurst:         3,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_IR_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAYLOGIC_IR_DEVICE_ID"); v != "" {
		cfg.Site.DeviceID = v
	}

	if v := os.Getenv("GRAYLOGIC_IR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GRAYLOGIC_IR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_IR_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GRAYLOGIC_IR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_IR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRAYLOGIC_IR_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("GRAYLOGIC_IR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GRAYLOGIC_IR_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	if v := os.Getenv("GRAYLOGIC_IR_DRIVER"); v != "" {
		cfg.IR.Driver = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.DeviceID == "" {
		errs = append(errs, "site.device_id is required")
	} else if strings.ContainsAny(c.Site.DeviceID, "/+#") {
		errs = append(errs, "site.device_id must not contain MQTT topic characters (/, +, #)")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters when set")
	}

	errs = append(errs, c.IR.validate()...)

	for i, s := range c.Schedules {
		if s.Spec == "" || s.Command == "" {
			errs = append(errs, fmt.Sprintf("schedules[%d] requires spec and command", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (ir IRConfig) validate() []string {
	var errs []string

	switch ir.Driver {
	case "lirc":
		if ir.RXDevice == "" || ir.TXDevice == "" {
			errs = append(errs, "ir.rx_device and ir.tx_device are required for the lirc driver")
		}
	case "simulated":
	default:
		errs = append(errs, fmt.Sprintf("ir.driver %q is not one of lirc, simulated", ir.Driver))
	}

	if ir.Timing.TickMicros == 0 {
		errs = append(errs, "ir.timing.tick_us must be positive")
	}
	if ir.Timing.HighMicros <= ir.Timing.LowMicros {
		errs = append(errs, "ir.timing.high_threshold_us must exceed low_threshold_us")
	}
	if ir.CarrierHz <= 0 {
		errs = append(errs, "ir.carrier_hz must be positive")
	}
	if ir.DutyCycle < 1 || ir.DutyCycle > 99 {
		errs = append(errs, "ir.duty_cycle must be between 1 and 99")
	}
	if ir.LearnTimeoutMs <= 0 {
		errs = append(errs, "ir.learn_timeout_ms must be positive")
	}
	if ir.MaxLearnTimeoutMs < ir.LearnTimeoutMs {
		errs = append(errs, "ir.max_learn_timeout_ms must be at least learn_timeout_ms")
	}
	if ir.PollIntervalMs <= 0 {
		errs = append(errs, "ir.poll_interval_ms must be positive")
	}
	if ir.SendRatePerSec <= 0 || ir.SendBurst <= 0 {
		errs = append(errs, "ir.send_rate_per_sec and ir.send_burst must be positive")
	}

	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// LearnTimeout returns the default learn timeout as a Duration.
func (ir IRConfig) LearnTimeout() time.Duration {
	return time.Duration(ir.LearnTimeoutMs) * time.Millisecond
}

// MaxLearnTimeout returns the learn timeout cap as a Duration.
func (ir IRConfig) MaxLearnTimeout() time.Duration {
	return time.Duration(ir.MaxLearnTimeoutMs) * time.Millisecond
}

// PollInterval returns the receiver poll interval as a Duration.
func (ir IRConfig) PollInterval() time.Duration {
	return time.Duration(ir.PollIntervalMs) * time.Millisecond
}
