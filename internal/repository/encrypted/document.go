// Package encrypted seals documents before they reach the underlying store.
package encrypted

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jwalitptl/medtracker/internal/repository"
	"github.com/jwalitptl/medtracker/pkg/security"
)

// prefix marks a sealed value. Values without it are returned as stored, so a store
// written before encryption was enabled keeps loading.
const prefix = "enc:v1:"

type documentRepository struct {
	next repository.DocumentRepository
	enc  security.Encryptor
}

func NewDocumentRepository(next repository.DocumentRepository, enc security.Encryptor) repository.DocumentRepository {
	return &documentRepository{next: next, enc: enc}
}

func (r *documentRepository) Load(ctx context.Context, userID string) (string, bool, error) {
	data, found, err := r.next.Load(ctx, userID)
	if err != nil || !found {
		return data, found, err
	}
	if !strings.HasPrefix(data, prefix) {
		return data, true, nil
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(data, prefix))
	if err != nil {
		return "", false, fmt.Errorf("corrupt sealed document for %s: %w", userID, err)
	}
	plain, err := r.enc.Decrypt(sealed)
	if err != nil {
		return "", false, fmt.Errorf("failed to open document for %s: %w", userID, err)
	}
	return string(plain), true, nil
}

func (r *documentRepository) Save(ctx context.Context, userID, data string) error {
	sealed, err := r.enc.Encrypt([]byte(data))
	if err != nil {
		return fmt.Errorf("failed to seal document for %s: %w", userID, err)
	}
	return r.next.Save(ctx, userID, prefix+base64.StdEncoding.EncodeToString(sealed))
}

func (r *documentRepository) ListUsers(ctx context.Context) ([]string, error) {
	return r.next.ListUsers(ctx)
}

func (r *documentRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}
