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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	d := cfg.Delivery
	assert.Equal(t, "info", d.Logging.Level)
	assert.Equal(t, 3, d.Retry.MaxAttempts)
	assert.Equal(t, 1*time.Second, d.Retry.BaseDelay)
	assert.Equal(t, 0.2, d.Retry.JitterFactor)
	assert.Equal(t, "bbolt", d.Storage.Type)
	assert.Equal(t, "outbox", d.Outbox.Key)
	assert.Equal(t, 500*time.Millisecond, d.Connectivity.SettleDelay)
	assert.True(t, d.Metrics.Enabled)
}

func TestLoadConfig_FromTOMLFile(t *testing.T) {
	content := `
[delivery.retry]
max_attempts = 5
base_delay = "250ms"

[delivery.storage]
type = "sqlite"
path = "/tmp/outbox.db"

[delivery.connectivity]
probe_url = "https://api.example.com/health"
probe_interval = "5s"

[delivery.http]
tenant_id = "merchant-42"
`
	path := filepath.Join(t.TempDir(), "delivery.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	d := cfg.Delivery
	assert.Equal(t, 5, d.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, d.Retry.BaseDelay)
	assert.Equal(t, "sqlite", d.Storage.Type)
	assert.Equal(t, "/tmp/outbox.db", d.Storage.Path)
	assert.Equal(t, "https://api.example.com/health", d.Connectivity.ProbeURL)
	assert.Equal(t, 5*time.Second, d.Connectivity.ProbeInterval)
	assert.Equal(t, "merchant-42", d.HTTP.TenantID)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	// Double underscore keeps a literal underscore in the key
	t.Setenv("DELIVERY_RETRY_MAX__ATTEMPTS", "7")
	t.Setenv("DELIVERY_STORAGE_TYPE", "memory")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Delivery.Retry.MaxAttempts)
	assert.Equal(t, "memory", cfg.Delivery.Storage.Type)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Delivery.Retry.MaxAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Delivery.Retry.MaxAttempts = 0 },
			wantErr: "max_attempts",
		},
		{
			name:    "negative base delay",
			mutate:  func(c *Config) { c.Delivery.Retry.BaseDelay = -1 },
			wantErr: "base_delay",
		},
		{
			name:    "jitter above one",
			mutate:  func(c *Config) { c.Delivery.Retry.JitterFactor = 1.5 },
			wantErr: "jitter_factor",
		},
		{
			name:    "unknown storage type",
			mutate:  func(c *Config) { c.Delivery.Storage.Type = "redis" },
			wantErr: "storage type",
		},
		{
			name: "bbolt without path",
			mutate: func(c *Config) {
				c.Delivery.Storage.Type = "bbolt"
				c.Delivery.Storage.Path = ""
			},
			wantErr: "storage.path",
		},
		{
			name:    "empty outbox key",
			mutate:  func(c *Config) { c.Delivery.Outbox.Key = "" },
			wantErr: "outbox.key",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *Config) { c.Delivery.Metrics.Port = 99999 },
			wantErr: "metrics.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, defaultConfig().Validate())
}
