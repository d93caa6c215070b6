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

// Package internalapi exposes an operational HTTP surface for the delivery
// layer: outbox inspection, manual replay, and connectivity state.
package internalapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kessotolo/commerce-delivery/pkg/config"
	"github.com/kessotolo/commerce-delivery/pkg/connectivity"
	"github.com/kessotolo/commerce-delivery/pkg/outbox"
)

// Server is the internal admin API server
type Server struct {
	cfg        *config.AdminConfig
	queue      *outbox.Queue
	monitor    *connectivity.Monitor
	logger     *zap.Logger
	httpServer *http.Server
}

// NewServer creates a new admin API server
func NewServer(cfg *config.AdminConfig, queue *outbox.Queue, monitor *connectivity.Monitor, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		queue:   queue,
		monitor: monitor,
		logger:  logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/health", s.health)

	v1 := router.Group("/internal/v1")
	{
		v1.GET("/outbox", s.listOutbox)
		v1.POST("/outbox/replay", s.replayOutbox)
		v1.GET("/connectivity", s.connectivityState)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start starts the admin API server
func (s *Server) Start() error {
	s.logger.Info("Starting admin API server", zap.Int("port", s.cfg.Port))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Admin API server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the admin API server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping admin API server")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs each admin request with method, path and status
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("Admin API request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listOutbox returns the persisted queue in enqueue order
func (s *Server) listOutbox(c *gin.Context) {
	entries, err := s.queue.Entries()
	if err != nil {
		s.logger.Error("Failed to read outbox", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "failed to read outbox",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// replayOutbox triggers a replay pass without waiting for a reconnect event
func (s *Server) replayOutbox(c *gin.Context) {
	if err := s.queue.ProcessQueue(c.Request.Context()); err != nil {
		s.logger.Error("Manual outbox replay failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	entries, err := s.queue.Entries()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"remaining": len(entries),
	})
}

// connectivityState reports the monitor's current view
func (s *Server) connectivityState(c *gin.Context) {
	state := connectivity.Offline
	if s.monitor.IsOnline() {
		state = connectivity.Online
	}

	c.JSON(http.StatusOK, gin.H{"state": state.String()})
}
