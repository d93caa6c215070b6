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

package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kessotolo/commerce-delivery/pkg/config"
)

// Store is a durable string-keyed byte store. It is the only persistence
// surface the delivery layer needs; the outbox serializes itself to JSON
// under a fixed key.
type Store interface {
	// Get retrieves the value for a key. A missing key returns (nil, nil).
	Get(key string) ([]byte, error)

	// Set writes the value for a key, replacing any previous value
	Set(key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close closes the underlying store
	Close() error
}

// New creates the store selected by the configuration
func New(cfg config.StorageConfig, log *zap.Logger) (Store, error) {
	switch cfg.Type {
	case "bbolt":
		return NewBBoltStore(cfg.Path, log)
	case "sqlite":
		return NewSQLiteStore(cfg.Path, log)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}
