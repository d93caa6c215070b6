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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "delivery"
)

// Metric variables are created eagerly so library packages can record
// without caring whether the registry was built; Init wires them to a
// registry exactly once.
var (
	once     sync.Once
	registry *prometheus.Registry

	RequestAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_attempts_total",
			Help:      "Total number of physical request attempts",
		},
		[]string{"method"},
	)

	RetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retried attempts after a failure",
		},
	)

	RequestsQueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_queued_total",
			Help:      "Total number of requests handed to the outbox after offline exhaustion",
		},
	)

	RequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of delivered requests in seconds, across all attempts",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"method"},
	)

	OutboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_depth",
			Help:      "Number of requests currently persisted in the outbox",
		},
	)

	OutboxReplaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_replays_total",
			Help:      "Total number of outbox replay attempts",
		},
		[]string{"status"},
	)

	ConnectivityState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connectivity_state",
			Help:      "Current connectivity state (1 = online, 0 = offline)",
		},
	)

	ConnectivityTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connectivity_transitions_total",
			Help:      "Total number of connectivity state transitions",
		},
		[]string{"state"},
	)

	StorageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Total number of durable storage errors, by operation",
		},
		[]string{"operation"},
	)

	WaitOnlineTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wait_for_online_timeouts_total",
			Help:      "Total number of wait-for-online timeouts",
		},
	)
)

func initRegistry() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(RequestAttemptsTotal)
	registry.MustRegister(RetriesTotal)
	registry.MustRegister(RequestsQueuedTotal)
	registry.MustRegister(RequestDurationSeconds)
	registry.MustRegister(OutboxDepth)
	registry.MustRegister(OutboxReplaysTotal)
	registry.MustRegister(ConnectivityState)
	registry.MustRegister(ConnectivityTransitions)
	registry.MustRegister(StorageErrorsTotal)
	registry.MustRegister(WaitOnlineTimeoutsTotal)
}

// Init initializes the metrics registry with all collectors
func Init() *prometheus.Registry {
	once.Do(initRegistry)
	return registry
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return Init()
	}
	return registry
}
