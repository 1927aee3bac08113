package dbhub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Hub opens and tracks named backend connections. jobengine runs with a
// single "primary" backend in practice, but the Hub keeps the door open
// for a separate connection (e.g. a read replica) under another name.
type Hub struct {
	mu       sync.RWMutex
	backends map[string]*Backend
	primary  string
	logger   *slog.Logger
}

// NewHub opens the primary backend described by cfg and returns a Hub
// wrapping it.
func NewHub(ctx context.Context, cfg Config, logger *slog.Logger) (*Hub, error) {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		backends: make(map[string]*Backend),
		logger:   logger,
	}

	if err := h.AddBackend(ctx, "primary", cfg); err != nil {
		return nil, fmt.Errorf("open primary backend: %w", err)
	}
	h.primary = "primary"

	return h, nil
}

// AddBackend opens and registers a new named backend.
func (h *Hub) AddBackend(ctx context.Context, name string, cfg Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.backends[name]; exists {
		return fmt.Errorf("backend %q already exists", name)
	}

	var (
		backend *Backend
		err     error
	)
	switch cfg.Type {
	case BackendSQLite, "":
		backend, err = OpenSQLite(ctx, cfg)
	case BackendPostgreSQL:
		backend, err = OpenPostgreSQL(ctx, cfg)
	default:
		return fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("open backend %q: %w", name, err)
	}

	h.backends[name] = backend
	h.logger.Info("database backend registered", "name", name, "type", cfg.Type)
	return nil
}

// Backend returns a registered backend by name, or the primary if name is
// empty.
func (h *Hub) Backend(name string) (*Backend, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if name == "" {
		name = h.primary
	}
	backend, ok := h.backends[name]
	if !ok {
		return nil, fmt.Errorf("backend %q not found", name)
	}
	return backend, nil
}

// Primary returns the primary backend.
func (h *Hub) Primary() *Backend {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.backends[h.primary]
}

// Status reports health for every registered backend.
func (h *Hub) Status(ctx context.Context) map[string]HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]HealthStatus, len(h.backends))
	for name, backend := range h.backends {
		out[name] = backend.Health.Status(ctx)
	}
	return out
}

// Close closes every registered backend.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var firstErr error
	for name, backend := range h.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close backend %q: %w", name, err)
		}
	}
	h.backends = make(map[string]*Backend)
	return firstErr
}
