// Package cloud pkg/cloud/server.go assembles the pumpwatch service:
// the sqlite store, the model bundle, the anomaly pipeline, and the
// dashboard API.
package cloud

import (
	"context"
	"fmt"
	"log"

	"github.com/mwelling79/pumpwatch/pkg/bundle"
	"github.com/mwelling79/pumpwatch/pkg/cloud/api"
	"github.com/mwelling79/pumpwatch/pkg/config"
	"github.com/mwelling79/pumpwatch/pkg/db"
	"github.com/mwelling79/pumpwatch/pkg/pipeline"
)

// Server owns the long-lived components and implements the lifecycle
// Start/Stop hooks.
type Server struct {
	cfg       *config.Config
	store     db.Service
	bundle    *bundle.Bundle
	pipeline  pipeline.Service
	apiServer *api.APIServer
}

// NewServer opens the store, loads the model bundle, and wires the
// pipeline and API server.
func NewServer(cfg *config.Config) (*Server, error) {
	store, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	b, err := bundle.Load(cfg.BundlePath, pipeline.ProducibleFeatures(&cfg.Pipeline))
	if err != nil {
		closeErr := store.Close()
		if closeErr != nil {
			log.Printf("Error closing store: %v", closeErr)
		}

		return nil, fmt.Errorf("failed to load model bundle: %w", err)
	}

	pl := pipeline.New(store, b, cfg.Pipeline)

	return &Server{
		cfg:       cfg,
		store:     store,
		bundle:    b,
		pipeline:  pl,
		apiServer: api.NewAPIServer(cfg, store, pl),
	}, nil
}

// APIServer returns the HTTP API component.
func (s *Server) APIServer() *api.APIServer {
	return s.apiServer
}

// Start logs the configured scope. The HTTP listener itself is managed
// by the lifecycle package.
func (s *Server) Start(_ context.Context) error {
	log.Printf("pumpwatch serving %d pumps, %d scored models",
		len(s.cfg.Pipeline.AllowedPumps), len(s.bundle.PumpIDs()))

	return nil
}

// Stop releases the store.
func (s *Server) Stop(_ context.Context) error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	return nil
}
