// Package dbconn lazily builds and caches one pgx connection pool per named
// database target, so a DbQuery action only pays the connect cost once no
// matter how many iterations touch that target.
package dbconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxConnections = 4
	idleTimeout    = 30 * time.Second
)

// Manager caches *pgxpool.Pool instances by target name.
type Manager struct {
	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// NewManager returns an empty, ready-to-use Manager.
func NewManager() *Manager {
	return &Manager{pools: map[string]*pgxpool.Pool{}}
}

// Get returns the pool for name, lazily connecting with dsn on first use.
// Connection is deferred to pgxpool.New's own lazy-dial behavior; this call
// only configures the pool, it never blocks on a round trip.
func (m *Manager) Get(name, dsn string) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pools[name]; ok {
		return p, nil
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string for db %q: %w", name, err)
	}
	poolCfg.MaxConns = maxConnections
	poolCfg.MaxConnIdleTime = idleTimeout

	p, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure db %q: %w", name, err)
	}
	m.pools[name] = p
	return p, nil
}

// Close releases every pool this manager has created.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pools {
		p.Close()
	}
}
