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

package connectivity

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kessotolo/commerce-delivery/pkg/config"
	"github.com/kessotolo/commerce-delivery/pkg/metrics"
)

// State represents the connectivity state
type State int

const (
	// Offline state - the network is unreachable
	Offline State = iota
	// Online state - the network is reachable
	Online
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// ErrWaitTimeout is returned by WaitForOnline when no online transition
// was observed within the timeout. It signals "give up waiting", not a
// fatal failure; the caller decides whether to keep retrying or enqueue.
var ErrWaitTimeout = errors.New("timed out waiting for connectivity")

// defaultSettleDelay is applied after an online transition before
// WaitForOnline returns, to avoid racing a flapping connection
const defaultSettleDelay = 500 * time.Millisecond

type subscriber struct {
	id        int
	onOnline  func()
	onOffline func()
}

// transition is one queued state-change notification with the subscriber
// set snapshotted at transition time
type transition struct {
	online bool
	subs   []subscriber
}

// Monitor is the single source of truth for connectivity state. It learns
// about transitions from a periodic HTTP probe and from external signals
// injected via SetOnline. When no probe URL is configured and no signals
// arrive, it reports online permanently.
type Monitor struct {
	cfg        config.ConnectivityConfig
	log        *zap.Logger
	httpClient *http.Client

	mu          sync.RWMutex
	online      bool
	subscribers []subscriber
	nextID      int

	// pending holds transition notifications awaiting delivery, in
	// transition order. A single drainer goroutine works through it so
	// subscribers never observe transitions out of order.
	pending     []transition
	dispatching bool

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor creates a connectivity monitor. The initial state is online.
func NewMonitor(cfg config.ConnectivityConfig, log *zap.Logger) *Monitor {
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}

	return &Monitor{
		cfg:    cfg,
		log:    log,
		online: true,
		httpClient: &http.Client{
			Timeout: probeTimeout,
		},
		stopChan: make(chan struct{}),
	}
}

// Start launches the probe loop. Without a probe URL there is no signal
// source and the monitor stays in its assumed-online state.
func (m *Monitor) Start() {
	if m.cfg.ProbeURL == "" {
		m.log.Info("No connectivity probe configured, assuming online")
		return
	}

	m.log.Info("Starting connectivity monitor",
		zap.String("probe_url", m.cfg.ProbeURL),
		zap.Duration("probe_interval", m.cfg.ProbeInterval),
	)

	m.wg.Add(1)
	go m.probeLoop()
}

// Stop halts the probe loop
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
}

func (m *Monitor) probeLoop() {
	defer m.wg.Done()

	// Probe immediately so the first reading does not wait a full interval
	m.SetOnline(m.probe())

	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.SetOnline(m.probe())
		}
	}
}

// probe performs one reachability check. Any HTTP response counts as
// online, even an error status; only transport failures mean offline.
func (m *Monitor) probe() bool {
	req, err := http.NewRequest(http.MethodHead, m.cfg.ProbeURL, nil)
	if err != nil {
		m.log.Error("Invalid probe URL", zap.String("url", m.cfg.ProbeURL), zap.Error(err))
		return true
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// IsOnline returns the current state
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline injects a connectivity signal. The probe loop uses it
// internally; external integrations (netlink hooks, platform callbacks)
// and tests may call it directly.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	// Snapshot subscribers so callbacks run outside the lock. The
	// notification is queued under the same lock that flipped the state,
	// so the pending list carries transitions in their true order.
	subs := make([]subscriber, len(m.subscribers))
	copy(subs, m.subscribers)
	m.pending = append(m.pending, transition{online: online, subs: subs})

	startDrainer := !m.dispatching
	if startDrainer {
		m.dispatching = true
	}
	m.mu.Unlock()

	state := Offline
	gauge := 0.0
	if online {
		state = Online
		gauge = 1.0
	}

	metrics.ConnectivityState.Set(gauge)
	metrics.ConnectivityTransitions.WithLabelValues(state.String()).Inc()
	m.log.Info("Connectivity state changed", zap.String("state", state.String()))

	if startDrainer {
		go m.drainPending()
	}
}

// drainPending delivers queued notifications one at a time until the
// pending list is empty. At most one drainer runs at any moment.
func (m *Monitor) drainPending() {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.dispatching = false
			m.mu.Unlock()
			return
		}
		next := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		for _, sub := range next.subs {
			if next.online && sub.onOnline != nil {
				sub.onOnline()
			}
			if !next.online && sub.onOffline != nil {
				sub.onOffline()
			}
		}
	}
}

// Subscribe registers callbacks for online and offline transitions and
// returns a disposer. Either callback may be nil. Multiple independent
// subscribers are supported; callbacks fire in registration order.
func (m *Monitor) Subscribe(onOnline, onOffline func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers = append(m.subscribers, subscriber{
		id:        id,
		onOnline:  onOnline,
		onOffline: onOffline,
	})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subscribers {
			if sub.id == id {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				return
			}
		}
	}
}

// WaitForOnline blocks until an online transition is observed, then waits
// a short settle delay before returning. It returns immediately when
// already online, ErrWaitTimeout after the timeout, and the context error
// on cancellation. The transition listener is removed on every path.
func (m *Monitor) WaitForOnline(ctx context.Context, timeout time.Duration) error {
	if m.IsOnline() {
		return nil
	}

	onlineCh := make(chan struct{}, 1)
	unsubscribe := m.Subscribe(func() {
		select {
		case onlineCh <- struct{}{}:
		default:
		}
	}, nil)
	defer unsubscribe()

	// Re-check after subscribing to close the race with a transition that
	// happened between IsOnline and Subscribe
	if m.IsOnline() {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-onlineCh:
		return m.settle(ctx)
	case <-timer.C:
		metrics.WaitOnlineTimeoutsTotal.Inc()
		return ErrWaitTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) settle(ctx context.Context) error {
	delay := m.cfg.SettleDelay
	if delay <= 0 {
		delay = defaultSettleDelay
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
