// Package cache fronts a document repository with an in-process read cache.
package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/repository"
)

// DocumentRepository caches loaded and saved documents for a fixed TTL.
type DocumentRepository struct {
	next  repository.DocumentRepository
	cache *gocache.Cache
}

// NewDocumentRepository caches loaded and saved documents for ttl. Saves write through
// to next before updating the cache; a failed save evicts the entry.
func NewDocumentRepository(next repository.DocumentRepository, ttl time.Duration) *DocumentRepository {
	return &DocumentRepository{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *DocumentRepository) Load(ctx context.Context, userID string) (string, bool, error) {
	if data, ok := r.cache.Get(userID); ok {
		return data.(string), true, nil
	}

	data, found, err := r.next.Load(ctx, userID)
	if err != nil || !found {
		return data, found, err
	}
	r.cache.SetDefault(userID, data)
	return data, true, nil
}

func (r *DocumentRepository) Save(ctx context.Context, userID, data string) error {
	if err := r.next.Save(ctx, userID, data); err != nil {
		r.cache.Delete(userID)
		return err
	}
	r.cache.SetDefault(userID, data)
	return nil
}

func (r *DocumentRepository) ListUsers(ctx context.Context) ([]string, error) {
	return r.next.ListUsers(ctx)
}

func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// Evict drops the cached document of userID.
func (r *DocumentRepository) Evict(userID string) {
	r.cache.Delete(userID)
}

// EvictOnSave reads DocumentSavedEvent messages until events is closed and evicts the
// named user each time. Saves made by other processes, such as the worker's daily
// rollover, then show up on the next load instead of after the TTL.
func (r *DocumentRepository) EvictOnSave(events <-chan []byte, logger zerolog.Logger) {
	for msg := range events {
		var event model.DocumentSavedEvent
		if err := json.Unmarshal(msg, &event); err != nil || event.UserID == "" {
			logger.Warn().Err(err).Msg("Ignoring malformed save event")
			continue
		}
		r.Evict(event.UserID)
	}
}
