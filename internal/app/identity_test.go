package app

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userIDPattern = regexp.MustCompile(`^user-\d+-[a-z0-9]{7}$`)

func TestNewUserID(t *testing.T) {
	id, err := NewUserID(time.UnixMilli(1760860800000))
	require.NoError(t, err)

	assert.Regexp(t, userIDPattern, id)
	assert.Contains(t, id, "user-1760860800000-")
}

func TestLoadOrCreateUserID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")

	first, err := LoadOrCreateUserID(dir)
	require.NoError(t, err)
	assert.Regexp(t, userIDPattern, first)

	second, err := LoadOrCreateUserID(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadOrCreateUserID_KeepsExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user_id"), []byte("user-1-abcdefg\n"), 0o600))

	id, err := LoadOrCreateUserID(dir)
	require.NoError(t, err)
	assert.Equal(t, "user-1-abcdefg", id)
}
