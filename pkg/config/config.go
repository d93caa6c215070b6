/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "DELIVERY_"

// Config is the root configuration structure
type Config struct {
	Delivery DeliveryConfig `koanf:"delivery"`
}

// DeliveryConfig holds all delivery-layer configuration sections
type DeliveryConfig struct {
	Logging      LoggingConfig      `koanf:"logging"`
	Retry        RetryConfig        `koanf:"retry"`
	Connectivity ConnectivityConfig `koanf:"connectivity"`
	Storage      StorageConfig      `koanf:"storage"`
	Outbox       OutboxConfig       `koanf:"outbox"`
	HTTP         HTTPConfig         `koanf:"http"`
	Metrics      MetricsConfig      `koanf:"metrics"`
	Admin        AdminConfig        `koanf:"admin"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// RetryConfig holds default retry policy values
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	BaseDelay         time.Duration `koanf:"base_delay"`
	JitterFactor      float64       `koanf:"jitter_factor"`
	WaitOnlineTimeout time.Duration `koanf:"wait_online_timeout"`
}

// ConnectivityConfig controls the connectivity monitor.
// An empty ProbeURL disables probing and the monitor assumes online.
type ConnectivityConfig struct {
	ProbeURL      string        `koanf:"probe_url"`
	ProbeInterval time.Duration `koanf:"probe_interval"`
	ProbeTimeout  time.Duration `koanf:"probe_timeout"`
	SettleDelay   time.Duration `koanf:"settle_delay"`
}

// StorageConfig selects the durable storage backend
type StorageConfig struct {
	// Type is one of bbolt, sqlite, memory
	Type string `koanf:"type"`
	Path string `koanf:"path"`
}

// OutboxConfig controls outbox persistence
type OutboxConfig struct {
	// Key is the storage key the queue is persisted under
	Key string `koanf:"key"`
}

// HTTPConfig controls the outbound HTTP client
type HTTPConfig struct {
	Timeout  time.Duration `koanf:"timeout"`
	TenantID string        `koanf:"tenant_id"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"`
}

// AdminConfig controls the internal admin API
type AdminConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"`
}

// defaultConfig returns the configuration defaults applied before any file
// or environment values are loaded
func defaultConfig() *Config {
	return &Config{
		Delivery: DeliveryConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
			Retry: RetryConfig{
				MaxAttempts:       3,
				BaseDelay:         1 * time.Second,
				JitterFactor:      0.2,
				WaitOnlineTimeout: 30 * time.Second,
			},
			Connectivity: ConnectivityConfig{
				ProbeInterval: 10 * time.Second,
				ProbeTimeout:  5 * time.Second,
				SettleDelay:   500 * time.Millisecond,
			},
			Storage: StorageConfig{
				Type: "bbolt",
				Path: "delivery-outbox.db",
			},
			Outbox: OutboxConfig{
				Key: "outbox",
			},
			HTTP: HTTPConfig{
				Timeout: 30 * time.Second,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Port:    9095,
			},
			Admin: AdminConfig{
				Enabled: true,
				Port:    9096,
			},
		},
	}
}

// LoadConfig loads configuration from an optional TOML file and
// DELIVERY_-prefixed environment variables, env taking precedence
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	k := koanf.New(".")

	// The config file is optional; defaults plus environment variables are
	// enough to run
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Load environment variables with prefix
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)

		// Step 1: Convert double underscore "__" into a temporary placeholder
		s = strings.ReplaceAll(s, "__", "%UNDERSCORE%")
		// Step 2: Convert single "_" into "."
		s = strings.ReplaceAll(s, "_", ".")
		// Step 3: Convert placeholder back into literal "_"
		s = strings.ReplaceAll(s, "%UNDERSCORE%", "_")
		return "delivery." + s
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal into Config struct with DecodeHook for duration strings
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	d := c.Delivery

	if d.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", d.Retry.MaxAttempts)
	}
	if d.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be positive, got %s", d.Retry.BaseDelay)
	}
	if d.Retry.JitterFactor < 0 || d.Retry.JitterFactor > 1 {
		return fmt.Errorf("retry.jitter_factor must be in [0,1], got %f", d.Retry.JitterFactor)
	}

	switch d.Storage.Type {
	case "bbolt", "sqlite":
		if d.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for storage type %q", d.Storage.Type)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage type: %q", d.Storage.Type)
	}

	if d.Outbox.Key == "" {
		return fmt.Errorf("outbox.key must not be empty")
	}

	if d.Connectivity.ProbeURL != "" && d.Connectivity.ProbeInterval <= 0 {
		return fmt.Errorf("connectivity.probe_interval must be positive when probing is enabled")
	}

	if d.Metrics.Enabled && (d.Metrics.Port < 1 || d.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port out of range: %d", d.Metrics.Port)
	}
	if d.Admin.Enabled && (d.Admin.Port < 1 || d.Admin.Port > 65535) {
		return fmt.Errorf("admin.port out of range: %d", d.Admin.Port)
	}

	return nil
}
