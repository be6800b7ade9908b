package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	userIDFile     = "user_id"
	userIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	userIDSuffix   = 7
)

// LoadOrCreateUserID returns the user id stored in dir, creating and persisting a new
// one on first use.
func LoadOrCreateUserID(dir string) (string, error) {
	path := filepath.Join(dir, userIDFile)
	b, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read user id: %w", err)
	}

	id, err := NewUserID(time.Now())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to write user id: %w", err)
	}
	return id, nil
}

// NewUserID returns an id of the form user-<unix-ms>-<7 random chars>.
func NewUserID(now time.Time) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(userIDAlphabet)))
	for i := 0; i < userIDSuffix; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate user id: %w", err)
		}
		sb.WriteByte(userIDAlphabet[n.Int64()])
	}
	return fmt.Sprintf("user-%d-%s", now.UnixMilli(), sb.String()), nil
}
