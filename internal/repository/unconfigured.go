package repository

import (
	"context"
	"fmt"
)

type unconfiguredRepository struct {
	reason string
}

// NewUnconfigured returns a repository that fails every call. The service keeps running
// so the failure is reported per request.
func NewUnconfigured(reason string) DocumentRepository {
	return &unconfiguredRepository{reason: reason}
}

func (r *unconfiguredRepository) err() error {
	return fmt.Errorf("%w: %s", ErrNotConfigured, r.reason)
}

func (r *unconfiguredRepository) Load(context.Context, string) (string, bool, error) {
	return "", false, r.err()
}

func (r *unconfiguredRepository) Save(context.Context, string, string) error {
	return r.err()
}

func (r *unconfiguredRepository) ListUsers(context.Context) ([]string, error) {
	return nil, r.err()
}

func (r *unconfiguredRepository) Ping(context.Context) error {
	return r.err()
}
