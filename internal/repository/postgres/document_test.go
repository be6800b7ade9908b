package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*documentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewDocumentRepository(sqlx.NewDb(db, "postgres"), nil).(*documentRepository)
	return repo, mock
}

func TestDocumentRepository_Load(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM user_documents WHERE user_id = $1`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(`{"medications":[]}`))

	data, found, err := repo.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"medications":[]}`, data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_LoadMissing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM user_documents`)).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, found, err := repo.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDocumentRepository_SaveUpserts(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_documents`)).
		WithArgs("user-1", "{}").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), "user-1", "{}"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_SaveError(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_documents`)).
		WillReturnError(errors.New("connection reset"))

	err := repo.Save(context.Background(), "user-1", "{}")
	assert.ErrorContains(t, err, "connection reset")
}

func TestDocumentRepository_ListUsers(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM user_documents ORDER BY user_id`)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1").AddRow("user-2"))

	users, err := repo.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, users)
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS user_documents`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), sqlx.NewDb(db, "postgres")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
