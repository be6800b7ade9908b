package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnconfigured_FailsEveryCall(t *testing.T) {
	repo := NewUnconfigured("REDIS_URL is not set")
	ctx := context.Background()

	_, _, err := repo.Load(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorContains(t, err, "REDIS_URL is not set")
	assert.ErrorIs(t, repo.Save(ctx, "user-1", "{}"), ErrNotConfigured)
	_, err = repo.ListUsers(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, repo.Ping(ctx), ErrNotConfigured)
}
