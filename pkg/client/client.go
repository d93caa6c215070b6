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

// Package client is the resilient HTTP client for mutating commerce
// operations: retries with backoff, connectivity-aware pausing, and
// degrade-to-outbox when retries exhaust while offline.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kessotolo/commerce-delivery/pkg/config"
	"github.com/kessotolo/commerce-delivery/pkg/connectivity"
	"github.com/kessotolo/commerce-delivery/pkg/idempotency"
	"github.com/kessotolo/commerce-delivery/pkg/metrics"
	"github.com/kessotolo/commerce-delivery/pkg/models"
	"github.com/kessotolo/commerce-delivery/pkg/outbox"
	"github.com/kessotolo/commerce-delivery/pkg/retry"
)

// ErrQueued reports that a mutating request could not be delivered now and
// was accepted into the outbox for later delivery. It is a deferred
// outcome, not a failure: the operation will complete when connectivity
// returns. Detect it with errors.Is.
var ErrQueued = errors.New("request queued for later delivery")

// Client executes API requests through the retry executor and hands
// offline-exhausted mutating requests to the outbox
type Client struct {
	httpClient *http.Client
	executor   *retry.Executor
	monitor    *connectivity.Monitor
	log        *zap.Logger
	policy     retry.Policy
	tenantID   string

	queue *outbox.Queue
}

// New creates a resilient client. Attach the outbox with AttachOutbox once
// it exists; without one, offline exhaustion surfaces as a plain error.
func New(cfg config.DeliveryConfig, executor *retry.Executor, monitor *connectivity.Monitor, log *zap.Logger) *Client {
	timeout := cfg.HTTP.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	policy := retry.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		BaseDelay:    cfg.Retry.BaseDelay,
		JitterFactor: cfg.Retry.JitterFactor,
		Predicate:    retry.DefaultPredicate,
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
		monitor:    monitor,
		log:        log,
		policy:     policy,
		tenantID:   cfg.HTTP.TenantID,
	}
}

// AttachOutbox wires the durable queue used for offline exhaustion. The
// client is also the queue's sender, so construction happens in two steps.
func (c *Client) AttachOutbox(q *outbox.Queue) {
	c.queue = q
}

// Do executes the request under the client's retry policy. Mutating
// requests get their idempotency key before the first physical attempt.
// When every attempt failed while offline, the request moves to the
// outbox and the returned error matches ErrQueued.
func (c *Client) Do(ctx context.Context, req *models.Request) (*http.Response, error) {
	return c.DoWithPolicy(ctx, req, c.policy)
}

// DoWithPolicy is Do with a per-call retry policy
func (c *Client) DoWithPolicy(ctx context.Context, req *models.Request, policy retry.Policy) (*http.Response, error) {
	if req.Method.Mutating() {
		idempotency.EnsureKey(req)
	}

	// A request that cannot be materialized will never succeed; fail it
	// before any attempt or queueing happens
	if _, err := c.buildHTTPRequest(ctx, req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := c.executor.Execute(ctx, func(ctx context.Context) (*http.Response, error) {
		httpReq, err := c.buildHTTPRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		metrics.RequestAttemptsTotal.WithLabelValues(req.Method.String()).Inc()
		return c.httpClient.Do(httpReq)
	}, policy)

	if err == nil {
		metrics.RequestDurationSeconds.WithLabelValues(req.Method.String()).Observe(time.Since(start).Seconds())
		return resp, nil
	}

	// Context cancellation is the caller's decision, never a queue case
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	// Exhausted while offline: degrade to eventual consistency instead of
	// surfacing a hard failure
	if req.Method.Mutating() && c.queue != nil && !c.monitor.IsOnline() {
		c.log.Warn("Delivery exhausted while offline, queueing request",
			zap.String("method", req.Method.String()),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		c.queue.Enqueue(models.NewQueuedRequest(req))
		return nil, fmt.Errorf("%w (cause: %s)", ErrQueued, err)
	}

	return nil, err
}

// Send performs a single fresh delivery attempt for a queued request.
// It implements outbox.Sender; no retry policy applies during replay.
func (c *Client) Send(ctx context.Context, queued models.QueuedRequest) (*http.Response, error) {
	req := &models.Request{
		URL:            queued.URL,
		Method:         queued.Method,
		Headers:        queued.Headers,
		Body:           queued.Body,
		IdempotencyKey: queued.IdempotencyKey,
	}

	httpReq, err := c.buildHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.RequestAttemptsTotal.WithLabelValues(req.Method.String()).Inc()
	return c.httpClient.Do(httpReq)
}

// buildHTTPRequest materializes one physical attempt. A fresh request is
// built per attempt so the body reader is never consumed twice.
func (c *Client) buildHTTPRequest(ctx context.Context, req *models.Request) (*http.Request, error) {
	var body *bytes.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP request for %q: %w", req.URL, err)
	}

	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if c.tenantID != "" && httpReq.Header.Get(models.TenantHeader) == "" {
		httpReq.Header.Set(models.TenantHeader, c.tenantID)
	}

	return httpReq, nil
}
