// Package internal assembles the change-hub application.
package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/apiclient"
	"github.com/stacyposk/logiccart-change-hub/internal/authflow"
	"github.com/stacyposk/logiccart-change-hub/internal/config"
	"github.com/stacyposk/logiccart-change-hub/internal/credentials"
	"github.com/stacyposk/logiccart-change-hub/internal/log"
	"github.com/stacyposk/logiccart-change-hub/internal/server"
	"github.com/stacyposk/logiccart-change-hub/internal/tickets"
)

const (
	flowStateTTL     = 10 * time.Minute
	sweepInterval    = time.Minute
	shutdownTimeout  = 30 * time.Second
	credentialsSweep = 5 * time.Minute
	boundaryRedirect = 2 * time.Second
)

// ChangeHub represents the assembled application.
type ChangeHub struct {
	config     config.Config
	httpServer *server.HTTPServer
	creds      *credentials.MemoryStore
	flows      *authflow.FlowStore
	stopSweeps chan struct{}
}

// NewChangeHub builds the application with all dependencies.
func NewChangeHub(cfg config.Config) (*ChangeHub, error) {
	log.LogInfoWithFields("changehub", "Building application", map[string]any{
		"baseURL": cfg.BaseURL,
		"api":     cfg.APIBaseURL,
	})

	creds := credentials.NewMemoryStore()
	flows := authflow.NewFlowStore()

	oauthCfg := authflow.OAuthConfig(cfg.ClientID, cfg.AuthorizeURL(), cfg.TokenURL(), cfg.RedirectURI)
	initiator := authflow.NewInitiator(oauthCfg, flows)
	callback := authflow.NewCallback(oauthCfg, flows, creds, cfg.RequestTimeout)

	api := apiclient.New(creds, apiclient.Options{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.MaxAttempts,
		OnAuthExpired: func(sessionID string) {
			log.LogInfoWithFields("changehub", "Session credentials expired", nil)
		},
	})
	svc := tickets.NewService(api)

	handlers := server.NewHandlers(cfg, initiator, callback, creds, svc)
	handler := server.ChainMiddleware(
		handlers.Routes(),
		server.NewRecoveryMiddleware(creds, boundaryRedirect),
		server.NewRequestLogMiddleware(),
	)

	return &ChangeHub{
		config:     cfg,
		httpServer: server.NewHTTPServer(handler, cfg.Addr),
		creds:      creds,
		flows:      flows,
		stopSweeps: make(chan struct{}),
	}, nil
}

// Run starts the application and blocks until shutdown.
func (c *ChangeHub) Run() error {
	log.LogInfoWithFields("changehub", "Starting application", map[string]any{
		"addr": c.config.Addr,
	})

	c.creds.StartSweep(credentialsSweep, c.stopSweeps)
	c.flows.StartSweep(flowStateTTL, sweepInterval, c.stopSweeps)

	errChan := make(chan error, 1)
	go func() {
		if err := c.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
	}

	log.LogInfoWithFields("changehub", "Starting graceful shutdown", map[string]any{
		"reason": shutdownReason,
	})
	close(c.stopSweeps)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.httpServer.Stop(shutdownCtx); err != nil {
		return err
	}

	log.LogInfoWithFields("changehub", "Shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}
