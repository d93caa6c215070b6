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

// Package idempotency guarantees that a logical create operation carries
// one stable key across every physical attempt, so the backend can
// collapse duplicate submissions caused by retries and outbox replay.
package idempotency

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/kessotolo/commerce-delivery/pkg/models"
)

// BodyField is the JSON field the key travels in. The backend reads the
// key from the request body, not a header.
const BodyField = "idempotency_key"

// EnsureKey attaches an idempotency key to the request if it does not
// already carry one, and returns the key. Calling it again on the same
// request yields the same key; the key must never be regenerated on retry
// or replay. The key is mirrored into the JSON body when the body is a
// JSON object.
func EnsureKey(req *models.Request) string {
	if req.IdempotencyKey != "" {
		return req.IdempotencyKey
	}

	// A key already present in the body wins; the caller may have set it
	if key := keyFromBody(req.Body); key != "" {
		req.IdempotencyKey = key
		return key
	}

	key := uuid.NewString()
	req.IdempotencyKey = key
	req.Body = injectKey(req.Body, key)

	return key
}

// keyFromBody extracts an existing idempotency key from a JSON object body
func keyFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	raw, ok := payload[BodyField]
	if !ok {
		return ""
	}

	var key string
	if err := json.Unmarshal(raw, &key); err != nil {
		return ""
	}
	return key
}

// injectKey adds the key to a JSON object body. Bodies that are empty or
// not JSON objects are left untouched; the key still rides on the request
// struct for queue persistence.
func injectKey(body []byte, key string) []byte {
	if len(body) == 0 {
		return body
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return body
	}

	encoded, err := json.Marshal(key)
	if err != nil {
		return body
	}
	payload[BodyField] = encoded

	updated, err := json.Marshal(payload)
	if err != nil {
		return body
	}
	return updated
}
