package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/FreePeak/json-db-mcp-server/internal/domain"
	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/internal/metrics"
)

type registryEntry struct {
	ready chan struct{}
	store domain.DocumentStore
	err   error
}

// Registry maps database names to opened store handles. Each name is opened
// at most once per process; concurrent first uses wait for the same open.
type Registry struct {
	opener  domain.StoreOpener
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

// NewRegistry creates a registry over opener. The registry owns the opener
// and closes it on Close. m may be nil.
func NewRegistry(opener domain.StoreOpener, m *metrics.Metrics) *Registry {
	return &Registry{
		opener:  opener,
		metrics: m,
		entries: make(map[string]*registryEntry),
	}
}

// Resolve returns the handle for name, opening it on first use.
func (r *Registry) Resolve(ctx context.Context, name string) (domain.DocumentStore, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, domain.ErrStoreClosed
	}
	if e, ok := r.entries[name]; ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
			if e.err != nil {
				return nil, fmt.Errorf("failed to open database %s: %w", name, e.err)
			}
			return e.store, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e := &registryEntry{ready: make(chan struct{})}
	r.entries[name] = e
	r.mu.Unlock()

	e.store, e.err = r.opener.Open(ctx, name)

	r.mu.Lock()
	if e.err != nil {
		// Failed opens are not cached; the next caller retries.
		delete(r.entries, name)
	}
	n := len(r.entries)
	r.mu.Unlock()
	close(e.ready)

	if e.err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, e.err)
	}
	r.metrics.SetOpenDatabases(n)
	logger.WithField("database", name).Debug("Opened database handle")
	return e.store, nil
}

// Names returns the names with a handle, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of names with a handle or an open in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every handle and then the opener. It is meant for shutdown.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	var errs []error
	for name, e := range entries {
		<-e.ready
		if e.store == nil {
			continue
		}
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	if err := r.opener.Close(); err != nil {
		errs = append(errs, err)
	}
	r.metrics.SetOpenDatabases(0)
	return errors.Join(errs...)
}
