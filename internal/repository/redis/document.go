package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/medtracker/internal/repository"
	"github.com/jwalitptl/medtracker/pkg/circuitbreaker"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

const (
	backend       = "redis"
	DefaultPrefix = "medtracker:doc:"
	scanBatch     = 100
)

type documentRepository struct {
	client  *redis.Client
	prefix  string
	cb      *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
}

// NewDocumentRepository stores each document as a plain string under prefix+userID.
func NewDocumentRepository(client *redis.Client, prefix string, m *metrics.Metrics) repository.DocumentRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &documentRepository{
		client: client,
		prefix: prefix,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "redis-documents",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, redis.Nil)
			},
		}),
		metrics: m,
	}
}

func (r *documentRepository) key(userID string) string {
	return r.prefix + userID
}

func (r *documentRepository) Load(ctx context.Context, userID string) (data string, found bool, err error) {
	defer func(start time.Time) { r.metrics.ObserveStore(backend, "load", start, err) }(time.Now())

	err = r.cb.Execute(func() error {
		var getErr error
		data, getErr = r.client.Get(ctx, r.key(userID)).Result()
		return getErr
	})
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get document: %w", err)
	}
	return data, true, nil
}

func (r *documentRepository) Save(ctx context.Context, userID, data string) (err error) {
	defer func(start time.Time) { r.metrics.ObserveStore(backend, "save", start, err) }(time.Now())

	err = r.cb.Execute(func() error {
		return r.client.Set(ctx, r.key(userID), data, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

func (r *documentRepository) ListUsers(ctx context.Context) (users []string, err error) {
	defer func(start time.Time) { r.metrics.ObserveStore(backend, "list", start, err) }(time.Now())

	err = r.cb.Execute(func() error {
		iter := r.client.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
		for iter.Next(ctx) {
			users = append(users, strings.TrimPrefix(iter.Val(), r.prefix))
		}
		return iter.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	return users, nil
}

func (r *documentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
