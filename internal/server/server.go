// Package server exposes stored analysis runs over HTTP for plotting and ML
// collaborators.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bciworks/epochlab/internal/storage/sqlite"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller serves the results API.
type Controller struct {
	ctx    context.Context
	wg     *sync.WaitGroup
	store  *sqlite.Store
	server http.Server
	logger *zap.SugaredLogger
}

// NewController creates a results API controller listening on addr.
func NewController(ctx context.Context, wg *sync.WaitGroup, store *sqlite.Store, addr string, logger *zap.SugaredLogger) *Controller {
	c := &Controller{
		ctx:    ctx,
		wg:     wg,
		store:  store,
		logger: logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/health", c.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/runs", c.handleListRuns).Methods(http.MethodGet)
	router.HandleFunc("/api/runs/{id}/features", c.handleFeatures).Methods(http.MethodGet)
	router.HandleFunc("/api/runs/{id}/stats", c.handleStats).Methods(http.MethodGet)

	c.server = http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return c
}

// Start runs the HTTP server and shuts it down when the controller's context
// is cancelled.
func (c *Controller) Start() error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			c.logger.Errorf("error shutting down results server: %v", err)
		}
	}()

	c.logger.Infof("results server listening on %s", c.server.Addr)
	if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("results server failed: %w", err)
	}
	return nil
}

func (c *Controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, map[string]string{"status": "ok"})
}

func (c *Controller) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := c.store.ListRuns(r.Context())
	if err != nil {
		c.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []sqlite.RunInfo{}
	}
	c.writeJSON(w, runs)
}

func (c *Controller) handleFeatures(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	values, err := c.store.Features(r.Context(), id)
	if err != nil {
		c.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(values) == 0 {
		c.writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", id))
		return
	}
	c.writeJSON(w, values)
}

func (c *Controller) handleStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	values, err := c.store.Stats(r.Context(), id)
	if err != nil {
		c.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(values) == 0 {
		c.writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", id))
		return
	}
	c.writeJSON(w, values)
}

// writeJSON marshals before touching the ResponseWriter so an encoding
// failure surfaces as a 500 rather than a 200 with a truncated body.
func (c *Controller) writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (c *Controller) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
