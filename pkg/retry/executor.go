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
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kessotolo/commerce-delivery/pkg/connectivity"
	"github.com/kessotolo/commerce-delivery/pkg/metrics"
)

// CallFunc performs one physical network attempt
type CallFunc func(ctx context.Context) (*http.Response, error)

// Executor runs a single network call under a retry policy, pausing for
// connectivity when a failure happens while offline
type Executor struct {
	monitor     *connectivity.Monitor
	log         *zap.Logger
	waitTimeout time.Duration
}

// NewExecutor creates a retry executor. waitTimeout bounds how long a
// failed attempt waits for connectivity before falling through to the
// normal backoff timing.
func NewExecutor(monitor *connectivity.Monitor, log *zap.Logger, waitTimeout time.Duration) *Executor {
	if waitTimeout <= 0 {
		waitTimeout = 30 * time.Second
	}

	return &Executor{
		monitor:     monitor,
		log:         log,
		waitTimeout: waitTimeout,
	}
}

// Execute invokes call up to policy.MaxAttempts times. A response is
// returned as soon as the predicate stops asking for retries, even when
// it carries an HTTP error status; the caller inspects it. The error of
// the final failed attempt is returned unwrapped.
func (e *Executor) Execute(ctx context.Context, call CallFunc, policy Policy) (*http.Response, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	predicate := policy.Predicate
	if predicate == nil {
		predicate = DefaultPredicate
	}

	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.RetriesTotal.Inc()
			if err := e.sleep(ctx, Backoff(attempt, policy)); err != nil {
				return nil, err
			}
		}

		resp, err := call(ctx)
		if err == nil {
			if predicate(attempt, nil, resp) && attempt < policy.MaxAttempts-1 {
				e.log.Debug("Retrying after retryable response",
					zap.Int("attempt", attempt),
					zap.Int("status", resp.StatusCode),
				)
				drain(resp)
				continue
			}
			return resp, nil
		}

		lastErr = err

		last := attempt == policy.MaxAttempts-1
		if last || !predicate(attempt, err, nil) {
			return nil, lastErr
		}

		e.log.Debug("Attempt failed, will retry",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		// A network failure while offline waits for connectivity before
		// the next attempt. A wait timeout is not fatal; the loop falls
		// through to the normal backoff timing.
		if !e.monitor.IsOnline() {
			if waitErr := e.monitor.WaitForOnline(ctx, e.waitTimeout); waitErr != nil {
				if errors.Is(waitErr, context.Canceled) || errors.Is(waitErr, context.DeadlineExceeded) {
					return nil, waitErr
				}
				e.log.Debug("Wait for connectivity timed out, continuing retry loop",
					zap.Int("attempt", attempt),
				)
			}
		}
	}

	return nil, lastErr
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain discards a retryable response body so the connection can be reused
func drain(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}
}
