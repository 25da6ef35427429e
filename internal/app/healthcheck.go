package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// progress is the run position reported by the health check server.
type progress struct {
	mu      sync.Mutex
	RunID   string `json:"run_id,omitempty"`
	Section string `json:"section,omitempty"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Done    bool   `json:"done"`
}

func (p *progress) set(runID string, index, total int, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RunID, p.Index, p.Total, p.Section, p.Done = runID, index, total, title, false
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Done = true
}

func (p *progress) MarshalJSON() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	type view progress
	return json.Marshal(&view{RunID: p.RunID, Section: p.Section, Index: p.Index, Total: p.Total, Done: p.Done})
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) progressHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Progress endpoint hit.", "remote_addr", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&a.progress); err != nil {
		a.logger.Error("Failed to encode progress.", "error", err)
	}
}

// startHealthCheckServer serves /health and /progress on the configured
// port. It returns the bound address; port 0 in the config disables it.
func (a *App) startHealthCheckServer() (string, error) {
	if a.config.HealthcheckPort <= 0 {
		a.logger.Debug("Health check server disabled.")
		return "", nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/progress", a.progressHandler)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.HealthcheckPort))
	if err != nil {
		return "", fmt.Errorf("failed to start health check server: %w", err)
	}
	a.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("Health check server starting.", "address", ln.Addr().String())
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed unexpectedly.", "error", err)
		}
	}()
	return ln.Addr().String(), nil
}

func (a *App) closeHealthCheckServer(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	a.logger.Debug("Shutting down health check server.")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("health check server shutdown failed: %w", err)
	}
	a.httpServer = nil
	return nil
}
