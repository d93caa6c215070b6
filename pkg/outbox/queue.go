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

// Package outbox persists mutating requests that exhausted their retries
// while offline and replays them in FIFO order once connectivity returns.
// Replay is at-least-once; the idempotency key carried by each entry makes
// duplicate delivery safe on the server side.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/kessotolo/commerce-delivery/pkg/connectivity"
	"github.com/kessotolo/commerce-delivery/pkg/metrics"
	"github.com/kessotolo/commerce-delivery/pkg/models"
	"github.com/kessotolo/commerce-delivery/pkg/storage"
)

// DefaultKey is the storage key the queue persists under
const DefaultKey = "outbox"

// errCorruptPayload marks a persisted payload that can never unmarshal
// again; recovery discards it. Transient storage errors never match it.
var errCorruptPayload = errors.New("corrupt outbox payload")

// Sender performs a single fresh delivery attempt for a queued request.
// No retry policy applies here: the outer retry already failed the request
// to exhaustion, and replay runs because connectivity changed.
type Sender interface {
	Send(ctx context.Context, req models.QueuedRequest) (*http.Response, error)
}

// Queue is the durable outbox. All mutations of the persisted sequence are
// serialized through an internal mutex so concurrent enqueues and replay
// passes cannot lose updates.
type Queue struct {
	store   storage.Store
	key     string
	sender  Sender
	monitor *connectivity.Monitor
	log     *zap.Logger

	mu sync.Mutex

	// passMu serializes whole replay passes. The positional merge in
	// ProcessQueue is only sound when no other pass rewrites the
	// persisted sequence between its snapshot and its write-back.
	passMu sync.Mutex

	regMu       sync.Mutex
	registered  bool
	unsubscribe func()
}

// NewQueue creates an outbox queue on top of the given store
func NewQueue(store storage.Store, key string, sender Sender, monitor *connectivity.Monitor, log *zap.Logger) *Queue {
	if key == "" {
		key = DefaultKey
	}

	return &Queue{
		store:   store,
		key:     key,
		sender:  sender,
		monitor: monitor,
		log:     log,
	}
}

// Enqueue appends an entry to the persisted sequence. It is safe to call
// from a failure handler: storage errors are logged and counted, never
// propagated, because the original network failure is the primary error
// and losing one queued retry is less bad than crashing the caller.
func (q *Queue) Enqueue(req models.QueuedRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load()
	if err != nil {
		metrics.StorageErrorsTotal.WithLabelValues("read").Inc()

		// A transient read failure must not clobber entries already
		// queued; only the new request is sacrificed. A corrupt payload
		// can never load again, so that one case starts over.
		if !errors.Is(err, errCorruptPayload) {
			q.log.Error("Failed to read outbox, dropping enqueue",
				zap.String("url", req.URL),
				zap.Error(err),
			)
			return
		}

		q.log.Error("Outbox payload corrupt, resetting queue",
			zap.String("url", req.URL),
			zap.Error(err),
		)
		entries = nil
	}

	entries = append(entries, req)

	if err := q.persist(entries); err != nil {
		q.log.Error("Failed to persist outbox entry",
			zap.String("url", req.URL),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err),
		)
		metrics.StorageErrorsTotal.WithLabelValues("write").Inc()
		return
	}

	metrics.RequestsQueuedTotal.Inc()
	q.log.Info("Request queued for later delivery",
		zap.String("method", req.Method.String()),
		zap.String("url", req.URL),
		zap.Int("depth", len(entries)),
	)
}

// RegisterOnce subscribes a single online listener that triggers queue
// processing on reconnect. Calling it again is a no-op, so the listener
// can never be registered twice.
func (q *Queue) RegisterOnce() {
	q.regMu.Lock()
	defer q.regMu.Unlock()

	if q.registered {
		return
	}
	q.registered = true

	q.unsubscribe = q.monitor.Subscribe(func() {
		if err := q.ProcessQueue(context.Background()); err != nil {
			q.log.Error("Outbox replay pass failed", zap.Error(err))
		}
	}, nil)

	q.log.Debug("Outbox reconnect listener registered")
}

// Deregister removes the reconnect listener
func (q *Queue) Deregister() {
	q.regMu.Lock()
	defer q.regMu.Unlock()

	if !q.registered {
		return
	}
	q.registered = false

	if q.unsubscribe != nil {
		q.unsubscribe()
		q.unsubscribe = nil
	}
}

// ProcessQueue replays every persisted entry in original order with one
// fresh attempt each. Entries that succeed are dropped; entries that fail
// are kept, in order, for the next reconnect event. One entry's failure
// never aborts processing of the rest. Entries enqueued while the pass is
// running are preserved untouched.
func (q *Queue) ProcessQueue(ctx context.Context) error {
	// One pass at a time. Reconnect listeners, the admin replay endpoint
	// and the startup drain may all call in concurrently; an overlapping
	// pass finishing second would overwrite entries enqueued during the
	// first one.
	q.passMu.Lock()
	defer q.passMu.Unlock()

	q.mu.Lock()
	snapshot, err := q.load()
	if err != nil {
		q.mu.Unlock()
		metrics.StorageErrorsTotal.WithLabelValues("read").Inc()
		return fmt.Errorf("failed to read outbox: %w", err)
	}
	q.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	q.log.Info("Processing outbox", zap.Int("entries", len(snapshot)))

	// Network calls run outside the lock; the merge below reconciles with
	// anything enqueued concurrently
	var failed []models.QueuedRequest
	for _, entry := range snapshot {
		if q.replay(ctx, entry) {
			metrics.OutboxReplaysTotal.WithLabelValues("delivered").Inc()
			q.log.Info("Queued request delivered",
				zap.String("method", entry.Method.String()),
				zap.String("url", entry.URL),
				zap.String("idempotency_key", entry.IdempotencyKey),
			)
		} else {
			metrics.OutboxReplaysTotal.WithLabelValues("failed").Inc()
			failed = append(failed, entry)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.load()
	if err != nil {
		metrics.StorageErrorsTotal.WithLabelValues("read").Inc()
		return fmt.Errorf("failed to re-read outbox: %w", err)
	}

	// Failed survivors keep their order; entries added during the pass
	// follow them
	result := failed
	if len(current) > len(snapshot) {
		result = append(result, current[len(snapshot):]...)
	}

	if err := q.persist(result); err != nil {
		metrics.StorageErrorsTotal.WithLabelValues("write").Inc()
		return fmt.Errorf("failed to persist outbox: %w", err)
	}

	q.log.Info("Outbox pass complete",
		zap.Int("delivered", len(snapshot)-len(failed)),
		zap.Int("remaining", len(result)),
	)

	return nil
}

// Entries returns a copy of the persisted sequence
func (q *Queue) Entries() ([]models.QueuedRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.load()
}

// replay performs one delivery attempt. Delivery means any 2xx response;
// everything else, including panics from the sender, keeps the entry.
func (q *Queue) replay(ctx context.Context, entry models.QueuedRequest) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("Panic during outbox replay",
				zap.String("url", entry.URL),
				zap.Any("panic", r),
			)
			delivered = false
		}
	}()

	resp, err := q.sender.Send(ctx, entry)
	if err != nil {
		q.log.Warn("Outbox replay attempt failed",
			zap.String("url", entry.URL),
			zap.Error(err),
		)
		return false
	}

	defer func() {
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
		}
	}()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// load reads the persisted sequence. Callers hold q.mu.
func (q *Queue) load() ([]models.QueuedRequest, error) {
	data, err := q.store.Get(q.key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []models.QueuedRequest
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptPayload, err)
	}

	return entries, nil
}

// persist writes the sequence back. Callers hold q.mu.
func (q *Queue) persist(entries []models.QueuedRequest) error {
	if entries == nil {
		entries = []models.QueuedRequest{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	if err := q.store.Set(q.key, data); err != nil {
		return err
	}

	metrics.OutboxDepth.Set(float64(len(entries)))
	return nil
}
