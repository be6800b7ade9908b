package repository

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by every call on a repository built without store
// credentials.
var ErrNotConfigured = errors.New("document store is not configured")

// DocumentRepository stores one opaque document per user. Save overwrites; the last
// write wins.
type DocumentRepository interface {
	// Load returns found=false, without error, when nothing is stored for userID.
	Load(ctx context.Context, userID string) (data string, found bool, err error)
	Save(ctx context.Context, userID, data string) error
	ListUsers(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}
