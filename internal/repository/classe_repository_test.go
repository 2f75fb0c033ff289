package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClasseMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClasseRepositorySoftDeleteEmptyClass(t *testing.T) {
	db, mock, cleanup := newClasseMock(t)
	defer cleanup()
	repo := NewClasseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL AND nombre_eleves = 0")).
		WithArgs("classe-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), "classe-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClasseRepositorySoftDeleteRefusesNonEmptyClass(t *testing.T) {
	db, mock, cleanup := newClasseMock(t)
	defer cleanup()
	repo := NewClasseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL AND nombre_eleves = 0")).
		WithArgs("classe-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), "classe-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty or not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
