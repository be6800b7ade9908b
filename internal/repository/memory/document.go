// Package memory keeps documents in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/medtracker/internal/repository"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

const backend = "memory"

type documentRepository struct {
	mu      sync.RWMutex
	docs    map[string]string
	metrics *metrics.Metrics
}

func NewDocumentRepository(m *metrics.Metrics) repository.DocumentRepository {
	return &documentRepository{docs: make(map[string]string), metrics: m}
}

func (r *documentRepository) Load(_ context.Context, userID string) (string, bool, error) {
	defer r.metrics.ObserveStore(backend, "load", time.Now(), nil)
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.docs[userID]
	return data, ok, nil
}

func (r *documentRepository) Save(_ context.Context, userID, data string) error {
	defer r.metrics.ObserveStore(backend, "save", time.Now(), nil)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[userID] = data
	return nil
}

func (r *documentRepository) ListUsers(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.docs))
	for id := range r.docs {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

func (r *documentRepository) Ping(context.Context) error {
	return nil
}
