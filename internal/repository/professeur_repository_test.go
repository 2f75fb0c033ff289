package repository

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

func newProfesseurMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestProfesseurRepositoryCreateLocksMatriculeSequence(t *testing.T) {
	db, mock, cleanup := newProfesseurMock(t)
	defer cleanup()
	repo := NewProfesseurRepository(db)

	year := time.Now().UTC().Year()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1, $2)")).
		WithArgs(professeurMatriculeLockKey, year).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM professeurs WHERE matricule LIKE $1")).
		WithArgs(fmt.Sprintf("PR%d-%%", year)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectExec("INSERT INTO professeurs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	professeur := &models.Professeur{
		Nom:          "Kone",
		Prenom:       "Moussa",
		Sexe:         "M",
		Specialite:   "Mathématiques",
		DateEmbauche: time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
	err := repo.Create(context.Background(), professeur)
	require.NoError(t, err)
	assert.Equal(t, models.MatriculeProfesseur(year, 8), professeur.Matricule)
	assert.Equal(t, models.ProfesseurStatutActif, professeur.Statut)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfesseurRepositoryCreateKeepsProvidedMatricule(t *testing.T) {
	db, mock, cleanup := newProfesseurMock(t)
	defer cleanup()
	repo := NewProfesseurRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO professeurs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	professeur := &models.Professeur{
		Matricule:    "PR2024-0042",
		Nom:          "Traore",
		Prenom:       "Awa",
		Sexe:         "F",
		Specialite:   "Lettres",
		DateEmbauche: time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
	}
	err := repo.Create(context.Background(), professeur)
	require.NoError(t, err)
	assert.Equal(t, "PR2024-0042", professeur.Matricule)
	assert.NoError(t, mock.ExpectationsWereMet())
}
