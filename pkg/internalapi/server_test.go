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

package internalapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kessotolo/commerce-delivery/pkg/config"
	"github.com/kessotolo/commerce-delivery/pkg/connectivity"
	"github.com/kessotolo/commerce-delivery/pkg/models"
	"github.com/kessotolo/commerce-delivery/pkg/outbox"
	"github.com/kessotolo/commerce-delivery/pkg/storage"
)

type stubSender struct {
	status int
}

func (s *stubSender) Send(_ context.Context, _ models.QueuedRequest) (*http.Response, error) {
	return &http.Response{StatusCode: s.status, Body: http.NoBody}, nil
}

func newTestServer(t *testing.T, sender outbox.Sender) (*Server, *outbox.Queue, *connectivity.Monitor) {
	t.Helper()

	log := zap.NewNop()
	monitor := connectivity.NewMonitor(config.ConnectivityConfig{}, log)
	queue := outbox.NewQueue(storage.NewMemoryStore(), "outbox", sender, monitor, log)

	server := NewServer(&config.AdminConfig{Enabled: true, Port: 0}, queue, monitor, log)
	return server, queue, monitor
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func queuedEntry(t *testing.T, url string) models.QueuedRequest {
	t.Helper()

	req, err := models.NewRequest(http.MethodPost, url, []byte(`{}`))
	require.NoError(t, err)
	return models.NewQueuedRequest(req)
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t, &stubSender{status: http.StatusOK})

	rec := serve(server, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListOutbox(t *testing.T) {
	server, queue, _ := newTestServer(t, &stubSender{status: http.StatusOK})
	queue.Enqueue(queuedEntry(t, "https://api.example.com/orders"))
	queue.Enqueue(queuedEntry(t, "https://api.example.com/payments"))

	rec := serve(server, http.MethodGet, "/internal/v1/outbox")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int                    `json:"count"`
		Entries []models.QueuedRequest `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "https://api.example.com/orders", body.Entries[0].URL)
}

func TestReplayOutbox_DrainsQueue(t *testing.T) {
	server, queue, _ := newTestServer(t, &stubSender{status: http.StatusCreated})
	queue.Enqueue(queuedEntry(t, "https://api.example.com/orders"))

	rec := serve(server, http.MethodPost, "/internal/v1/outbox/replay")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string `json:"status"`
		Remaining int    `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 0, body.Remaining)

	entries, err := queue.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplayOutbox_FailedEntriesRemain(t *testing.T) {
	server, queue, _ := newTestServer(t, &stubSender{status: http.StatusBadGateway})
	queue.Enqueue(queuedEntry(t, "https://api.example.com/orders"))

	rec := serve(server, http.MethodPost, "/internal/v1/outbox/replay")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Remaining int `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Remaining)
}

func TestConnectivityState(t *testing.T) {
	server, _, monitor := newTestServer(t, &stubSender{status: http.StatusOK})

	rec := serve(server, http.MethodGet, "/internal/v1/connectivity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"online"}`, rec.Body.String())

	monitor.SetOnline(false)

	rec = serve(server, http.MethodGet, "/internal/v1/connectivity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"offline"}`, rec.Body.String())
}
