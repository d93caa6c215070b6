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

package retry

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPredicate(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   bool
	}{
		{"network error", errors.New("connection refused"), 0, true},
		{"500 internal server error", nil, 500, true},
		{"503 service unavailable", nil, 503, true},
		{"429 rate limited", nil, 429, true},
		{"404 not found", nil, 404, false},
		{"400 bad request", nil, 400, false},
		{"200 ok", nil, 200, false},
		{"201 created", nil, 201, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.err == nil {
				resp = &http.Response{StatusCode: tt.status}
			}
			assert.Equal(t, tt.want, DefaultPredicate(0, tt.err, resp))
		})
	}
}

func TestBackoff_ExponentialGrowthWithJitter(t *testing.T) {
	policy := Policy{
		BaseDelay:    100 * time.Millisecond,
		JitterFactor: 0.2,
	}

	// Delay before retry k grows as base * 2^(k-1), jittered by +/-20%
	for attempt := 1; attempt <= 4; attempt++ {
		expected := float64(policy.BaseDelay) * float64(int(1)<<(attempt-1))
		low := time.Duration(expected * 0.8)
		high := time.Duration(expected * 1.2)

		for i := 0; i < 100; i++ {
			d := Backoff(attempt, policy)
			assert.GreaterOrEqual(t, d, low, "attempt %d", attempt)
			assert.LessOrEqual(t, d, high, "attempt %d", attempt)
		}
	}
}

func TestBackoff_NoJitterIsDeterministic(t *testing.T) {
	policy := Policy{
		BaseDelay:    50 * time.Millisecond,
		JitterFactor: 0,
	}

	assert.Equal(t, 50*time.Millisecond, Backoff(1, policy))
	assert.Equal(t, 100*time.Millisecond, Backoff(2, policy))
	assert.Equal(t, 200*time.Millisecond, Backoff(3, policy))
}

func TestBackoff_ClampsAttemptBelowOne(t *testing.T) {
	policy := Policy{
		BaseDelay:    50 * time.Millisecond,
		JitterFactor: 0,
	}

	assert.Equal(t, Backoff(1, policy), Backoff(0, policy))
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 1*time.Second, policy.BaseDelay)
	assert.Equal(t, 0.2, policy.JitterFactor)
	assert.NotNil(t, policy.Predicate)
}
