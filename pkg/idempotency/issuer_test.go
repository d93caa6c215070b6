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

package idempotency

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessotolo/commerce-delivery/pkg/models"
)

func newOrderRequest(t *testing.T, body string) *models.Request {
	t.Helper()
	req, err := models.NewRequest(http.MethodPost, "https://api.example.com/orders", []byte(body))
	require.NoError(t, err)
	return req
}

func TestEnsureKey_GeneratesOncePerRequest(t *testing.T) {
	req := newOrderRequest(t, `{"total": 1000}`)

	first := EnsureKey(req)
	second := EnsureKey(req)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, req.IdempotencyKey)

	// The key is a valid UUID
	_, err := uuid.Parse(first)
	assert.NoError(t, err)
}

func TestEnsureKey_InjectsKeyIntoJSONBody(t *testing.T) {
	req := newOrderRequest(t, `{"total": 1000, "currency": "KES"}`)

	key := EnsureKey(req)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &payload))

	assert.Equal(t, key, payload[BodyField])
	assert.Equal(t, float64(1000), payload["total"])
	assert.Equal(t, "KES", payload["currency"])
}

func TestEnsureKey_ExistingStructKeyWins(t *testing.T) {
	req := newOrderRequest(t, `{"total": 1000}`)
	req.IdempotencyKey = "abc-1"

	assert.Equal(t, "abc-1", EnsureKey(req))

	// Body is untouched when the struct already carries a key
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &payload))
	assert.NotContains(t, payload, BodyField)
}

func TestEnsureKey_ExistingBodyKeyAdopted(t *testing.T) {
	req := newOrderRequest(t, `{"total": 1000, "idempotency_key": "body-key-7"}`)

	assert.Equal(t, "body-key-7", EnsureKey(req))
	assert.Equal(t, "body-key-7", req.IdempotencyKey)
}

func TestEnsureKey_NonJSONBodyLeftAlone(t *testing.T) {
	req := newOrderRequest(t, "plain text payload")
	original := string(req.Body)

	key := EnsureKey(req)

	require.NotEmpty(t, key)
	assert.Equal(t, original, string(req.Body))
}

func TestEnsureKey_EmptyBody(t *testing.T) {
	req, err := models.NewRequest(http.MethodDelete, "https://api.example.com/orders/1", nil)
	require.NoError(t, err)

	key := EnsureKey(req)

	require.NotEmpty(t, key)
	assert.Empty(t, req.Body)
}

func TestEnsureKey_DistinctRequestsGetDistinctKeys(t *testing.T) {
	a := newOrderRequest(t, `{"total": 1}`)
	b := newOrderRequest(t, `{"total": 1}`)

	assert.NotEqual(t, EnsureKey(a), EnsureKey(b))
}
