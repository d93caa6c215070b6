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
	"math"
	"math/rand"
	"net/http"
	"time"
)

// Predicate decides, given the outcome of one attempt, whether another
// attempt should be made. Exactly one of err and resp is non-nil.
type Predicate func(attempt int, err error, resp *http.Response) bool

// Policy configures retry behavior for a single call. A Policy value is
// immutable for the duration of the call it is passed to.
type Policy struct {
	// MaxAttempts bounds the number of invocations, including the first
	MaxAttempts int
	// BaseDelay is the backoff delay before the second attempt
	BaseDelay time.Duration
	// JitterFactor randomizes each delay by +/- this fraction, in [0,1]
	JitterFactor float64
	// Predicate decides whether a given outcome triggers another attempt.
	// Nil means DefaultPredicate.
	Predicate Predicate
}

// DefaultPolicy returns the standard policy: three attempts, one second
// base delay, +/-20% jitter, retrying on network errors, 5xx and 429
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BaseDelay:    1 * time.Second,
		JitterFactor: 0.2,
		Predicate:    DefaultPredicate,
	}
}

// DefaultPredicate retries thrown network errors, HTTP 5xx and HTTP 429.
// Other 4xx responses are not retried; the caller inspects them.
func DefaultPredicate(attempt int, err error, resp *http.Response) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		return true
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return false
}

// Backoff computes the delay before the given attempt (1-based index of
// the retry, so attempt 1 precedes the second invocation): exponential
// growth from BaseDelay with multiplicative jitter.
func Backoff(attempt int, policy Policy) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := float64(policy.BaseDelay) * math.Pow(2, float64(attempt-1))

	jitter := policy.JitterFactor
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}

	// Multiplier in [1-jitter, 1+jitter)
	multiplier := 1 - jitter + rand.Float64()*2*jitter

	return time.Duration(base * multiplier)
}
