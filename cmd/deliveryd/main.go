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

// deliveryd is the resilient delivery relay: it owns the durable outbox,
// watches connectivity, and replays queued requests once the network
// returns. The admin API exposes the queue for inspection and manual
// replay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kessotolo/commerce-delivery/pkg/client"
	"github.com/kessotolo/commerce-delivery/pkg/config"
	"github.com/kessotolo/commerce-delivery/pkg/connectivity"
	"github.com/kessotolo/commerce-delivery/pkg/internalapi"
	"github.com/kessotolo/commerce-delivery/pkg/logger"
	"github.com/kessotolo/commerce-delivery/pkg/metrics"
	"github.com/kessotolo/commerce-delivery/pkg/outbox"
	"github.com/kessotolo/commerce-delivery/pkg/retry"
	"github.com/kessotolo/commerce-delivery/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config/delivery.toml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:  cfg.Delivery.Logging.Level,
		Format: cfg.Delivery.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting delivery relay",
		zap.String("config_file", *configPath),
		zap.String("storage_type", cfg.Delivery.Storage.Type),
		zap.String("probe_url", cfg.Delivery.Connectivity.ProbeURL),
		zap.Int("retry_max_attempts", cfg.Delivery.Retry.MaxAttempts),
	)

	// Metrics endpoint
	var metricsServer *metrics.Server
	if cfg.Delivery.Metrics.Enabled {
		metricsServer = metrics.NewServer(&cfg.Delivery.Metrics, log)
		if err := metricsServer.Start(); err != nil {
			log.Fatal("Failed to start metrics server", zap.Error(err))
		}
	} else {
		metrics.Init()
	}

	// Durable storage for the outbox
	store, err := storage.New(cfg.Delivery.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// Connectivity monitor
	monitor := connectivity.NewMonitor(cfg.Delivery.Connectivity, log)
	monitor.Start()
	defer monitor.Stop()

	// Resilient client and outbox, wired to each other
	executor := retry.NewExecutor(monitor, log, cfg.Delivery.Retry.WaitOnlineTimeout)
	apiClient := client.New(cfg.Delivery, executor, monitor, log)
	queue := outbox.NewQueue(store, cfg.Delivery.Outbox.Key, apiClient, monitor, log)
	apiClient.AttachOutbox(queue)

	// Exactly one reconnect listener drives replay
	queue.RegisterOnce()
	defer queue.Deregister()

	// Drain anything left over from a previous run
	if monitor.IsOnline() {
		if err := queue.ProcessQueue(context.Background()); err != nil {
			log.Warn("Startup outbox pass failed", zap.Error(err))
		}
	}

	// Admin API
	var adminServer *internalapi.Server
	if cfg.Delivery.Admin.Enabled {
		adminServer = internalapi.NewServer(&cfg.Delivery.Admin, queue, monitor, log)
		if err := adminServer.Start(); err != nil {
			log.Fatal("Failed to start admin API server", zap.Error(err))
		}
	}

	log.Info("Delivery relay started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if adminServer != nil {
		if err := adminServer.Stop(shutdownCtx); err != nil {
			log.Warn("Admin API shutdown failed", zap.Error(err))
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}

	log.Info("Delivery relay stopped")
}
