// Package config centralises runtime configuration for the polyclob SDK.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultRESTHost is the production CLOB API endpoint.
	DefaultRESTHost = "https://clob.polymarket.com"
	// DefaultWSHost is the production streaming endpoint; channel paths are appended.
	DefaultWSHost = "wss://ws-subscriptions-clob.polymarket.com"
	// DefaultGeoblockHost serves the geoblock API, separate from the CLOB host.
	DefaultGeoblockHost = "https://polymarket.com"

	// PrivateKeyVar names the environment variable callers conventionally use
	// for the signer's private key. The SDK never reads it itself.
	PrivateKeyVar = "POLYMARKET_PRIVATE_KEY"
)

// RateLimitSettings bounds outbound REST request throughput.
type RateLimitSettings struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// HeartbeatSettings controls the authenticated session keep-alive loop.
// A zero interval disables heartbeats.
type HeartbeatSettings struct {
	Interval time.Duration `yaml:"interval"`
}

// WSSettings configures streaming connections and their reconnect schedule.
type WSSettings struct {
	HandshakeTimeout     time.Duration `yaml:"handshakeTimeout"`
	PingInterval         time.Duration `yaml:"pingInterval"`
	PongTimeout          time.Duration `yaml:"pongTimeout"`
	InitialBackoff       time.Duration `yaml:"initialBackoff"`
	MaxBackoff           time.Duration `yaml:"maxBackoff"`
	BackoffMultiplier    float64       `yaml:"backoffMultiplier"`
	MaxReconnectAttempts int           `yaml:"maxReconnectAttempts"`
	SubscriberBuffer     int           `yaml:"subscriberBuffer"`
}

// TelemetrySettings configures the optional OTLP metrics exporter.
type TelemetrySettings struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Settings contains the SDK configuration tree loaded from defaults and overrides.
type Settings struct {
	Chain         int64             `yaml:"chain"`
	RESTHost      string            `yaml:"restHost"`
	WSHost        string            `yaml:"wsHost"`
	GeoblockHost  string            `yaml:"geoblockHost"`
	UseServerTime bool              `yaml:"useServerTime"`
	HTTPTimeout   time.Duration     `yaml:"httpTimeout"`
	RateLimit     RateLimitSettings `yaml:"rateLimit"`
	Heartbeat     HeartbeatSettings `yaml:"heartbeat"`
	WS            WSSettings        `yaml:"ws"`
	Telemetry     TelemetrySettings `yaml:"telemetry"`
}

// Default returns the default SDK configuration, calibrated against the
// production venue. Reconnect and heartbeat cadence are venue policy and
// remain overridable.
func Default() Settings {
	return Settings{
		Chain:         137,
		RESTHost:      DefaultRESTHost,
		WSHost:        DefaultWSHost,
		GeoblockHost:  DefaultGeoblockHost,
		UseServerTime: false,
		HTTPTimeout:   10 * time.Second,
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 0,
			Burst:             0,
		},
		Heartbeat: HeartbeatSettings{Interval: 0},
		WS: WSSettings{
			HandshakeTimeout:     10 * time.Second,
			PingInterval:         5 * time.Second,
			PongTimeout:          15 * time.Second,
			InitialBackoff:       time.Second,
			MaxBackoff:           60 * time.Second,
			BackoffMultiplier:    2.0,
			MaxReconnectAttempts: 0,
			SubscriberBuffer:     256,
		},
		Telemetry: TelemetrySettings{OTLPEndpoint: "", ServiceName: "polyclob"},
	}
}

// FromEnv loads configuration values from environment variables, overriding defaults.
func FromEnv() Settings {
	cfg := Default()

	if v := strings.TrimSpace(os.Getenv("POLYCLOB_CHAIN")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain = id
		}
	}
	if v := strings.TrimSpace(os.Getenv("POLYCLOB_REST_HOST")); v != "" {
		cfg.RESTHost = v
	}
	if v := strings.TrimSpace(os.Getenv("POLYCLOB_WS_HOST")); v != "" {
		cfg.WSHost = v
	}
	if v := strings.TrimSpace(os.Getenv("POLYCLOB_GEOBLOCK_HOST")); v != "" {
		cfg.GeoblockHost = v
	}
	if v := strings.TrimSpace(os.Getenv("POLYCLOB_USE_SERVER_TIME")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UseServerTime = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("POLYCLOB_HTTP_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("POLYCLOB_HEARTBEAT_INTERVAL")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.Heartbeat.Interval = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("POLYCLOB_OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("POLYCLOB_SERVICE_NAME")); v != "" {
		cfg.Telemetry.ServiceName = v
	}

	return cfg
}

// LoadFile reads a YAML settings file layered over the defaults.
func LoadFile(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Settings{}, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment before FromEnv is
// consulted. Missing files are ignored when no explicit paths are given.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Validate rejects settings that cannot produce a working client.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.RESTHost) == "" {
		return fmt.Errorf("config: rest host must not be empty")
	}
	if strings.TrimSpace(s.WSHost) == "" {
		return fmt.Errorf("config: ws host must not be empty")
	}
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("config: http timeout must not be negative")
	}
	if s.Heartbeat.Interval < 0 {
		return fmt.Errorf("config: heartbeat interval must not be negative")
	}
	if s.WS.PingInterval < 0 || s.WS.PongTimeout < 0 {
		return fmt.Errorf("config: ws keepalive durations must not be negative")
	}
	if s.WS.InitialBackoff <= 0 {
		return fmt.Errorf("config: ws initial backoff must be positive")
	}
	if s.WS.MaxBackoff < s.WS.InitialBackoff {
		return fmt.Errorf("config: ws max backoff must be >= initial backoff")
	}
	if s.WS.BackoffMultiplier < 1 {
		return fmt.Errorf("config: ws backoff multiplier must be >= 1")
	}
	if s.WS.MaxReconnectAttempts < 0 {
		return fmt.Errorf("config: ws max reconnect attempts must not be negative")
	}
	if s.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("config: rate limit must not be negative")
	}
	return nil
}
