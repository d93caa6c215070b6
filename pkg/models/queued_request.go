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

package models

import (
	"time"

	"github.com/google/uuid"
)

// QueuedRequest is a mutating request captured for deferred delivery after
// retries exhausted while offline. Entries are immutable once created; a
// replay failure re-persists the same entry rather than editing it in place.
type QueuedRequest struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Method         Method            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           []byte            `json:"body,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

// NewQueuedRequest snapshots a request for the outbox
func NewQueuedRequest(req *Request) QueuedRequest {
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[k] = v
	}

	return QueuedRequest{
		ID:             uuid.NewString(),
		URL:            req.URL,
		Method:         req.Method,
		Headers:        headers,
		Body:           append([]byte(nil), req.Body...),
		Timestamp:      time.Now().UTC(),
		IdempotencyKey: req.IdempotencyKey,
	}
}
