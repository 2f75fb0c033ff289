package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

func newJournalMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestJournalRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	mock.ExpectExec("INSERT INTO journal_entrees").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entree := &models.JournalEntree{
		Action:      models.JournalActionCreation,
		Entite:      "eleve",
		EntiteID:    "eleve-1",
		Description: "inscription eleve EL2026-0001",
	}
	err := repo.Create(context.Background(), entree)
	require.NoError(t, err)
	assert.NotEmpty(t, entree.ID)
	assert.False(t, entree.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepositoryListFiltersByEntity(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	rows := sqlmock.NewRows([]string{"id", "acteur_id", "action", "entite", "entite_id", "avant", "apres", "description", "ip_address", "user_agent", "created_at"}).
		AddRow("j1", nil, "modification", "note", "note-1", nil, nil, "validation note", "", "", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT j.* FROM journal_entrees j WHERE 1=1 AND j.entite = $1 AND j.entite_id = $2 ORDER BY j.created_at DESC LIMIT 50 OFFSET 0")).
		WithArgs("note", "note-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(j.id) FROM journal_entrees j WHERE 1=1 AND j.entite = $1 AND j.entite_id = $2")).
		WithArgs("note", "note-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entrees, total, err := repo.List(context.Background(), models.JournalFilter{Entite: "note", EntiteID: "note-1"})
	require.NoError(t, err)
	assert.Len(t, entrees, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "validation note", entrees[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepositoryHistoriqueEntite(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	rows := sqlmock.NewRows([]string{"id", "acteur_id", "action", "entite", "entite_id", "avant", "apres", "description", "ip_address", "user_agent", "created_at"}).
		AddRow("j2", nil, "modification", "paiement", "paiement-1", nil, nil, "correction paiement", "", "", time.Now()).
		AddRow("j1", nil, "creation", "paiement", "paiement-1", nil, nil, "encaissement", "", "", time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM journal_entrees WHERE entite = $1 AND entite_id = $2 ORDER BY created_at DESC")).
		WithArgs("paiement", "paiement-1").
		WillReturnRows(rows)

	entrees, err := repo.HistoriqueEntite(context.Background(), "paiement", "paiement-1")
	require.NoError(t, err)
	require.Len(t, entrees, 2)
	assert.Equal(t, "correction paiement", entrees[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalRepositoryPurge(t *testing.T) {
	db, mock, cleanup := newJournalMock(t)
	defer cleanup()
	repo := NewJournalRepository(db)

	cutoff := time.Now().AddDate(0, 0, -365)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM journal_entrees WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	purged, err := repo.Purge(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
