package config

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds the dashboard HTTP server configuration
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	AllowedOrigins  string `mapstructure:"allowedOrigins"`
	ShutdownTimeout int    `mapstructure:"shutdownTimeout"`
}

// BackendConfig locates the safety monitoring backend
type BackendConfig struct {
	BaseURL   string        `mapstructure:"baseURL"`
	StreamURL string        `mapstructure:"streamURL"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StreamConfig tunes the alert stream connection
type StreamConfig struct {
	HandshakeTimeout time.Duration `mapstructure:"handshakeTimeout"`
	PingPeriod       time.Duration `mapstructure:"pingPeriod"`
	PongWait         time.Duration `mapstructure:"pongWait"`
	ReadLimit        int64         `mapstructure:"readLimit"`
	EventBuffer      int           `mapstructure:"eventBuffer"`
}

// ReconnectConfig is the reconnect policy applied after the stream is lost.
// It is disabled by default: a lost stream stays disconnected until an
// operator reconnects it.
type ReconnectConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxRetries      int           `mapstructure:"maxRetries"`
	InitialInterval time.Duration `mapstructure:"initialInterval"`
	MaxInterval     time.Duration `mapstructure:"maxInterval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads the application configuration from file or environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.allowedOrigins", "*")
	v.SetDefault("server.shutdownTimeout", 10)

	v.SetDefault("backend.baseURL", "http://localhost:8080/api")
	v.SetDefault("backend.streamURL", "ws://localhost:8080/ws-alerts")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("stream.handshakeTimeout", "10s")
	v.SetDefault("stream.pingPeriod", "30s")
	v.SetDefault("stream.pongWait", "60s")
	v.SetDefault("stream.readLimit", 64*1024)
	v.SetDefault("stream.eventBuffer", 64)

	v.SetDefault("reconnect.enabled", false)
	v.SetDefault("reconnect.maxRetries", 5)
	v.SetDefault("reconnect.initialInterval", "1s")
	v.SetDefault("reconnect.maxInterval", "30s")
	v.SetDefault("reconnect.multiplier", 2.0)

	v.SetDefault("metrics.enabled", true)

	// Allow environment variables to override config file
	v.SetEnvPrefix("SAFETY_DASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// If config file is provided, read it
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			logrus.Warnf("Error reading config file: %v", err)
		}
	}

	// Unmarshal config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
