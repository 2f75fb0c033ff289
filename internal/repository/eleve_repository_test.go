package repository

import (
	"context"
	"database/sql"
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

func newEleveMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEleveRepositoryCreateAssignsMatricule(t *testing.T) {
	db, mock, cleanup := newEleveMock(t)
	defer cleanup()
	repo := NewEleveRepository(db)

	year := time.Now().UTC().Year()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacite, nombre_eleves FROM classes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("classe-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacite", "nombre_eleves"}).AddRow(40, 12))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1, $2)")).
		WithArgs(eleveMatriculeLockKey, year).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM eleves WHERE matricule LIKE $1")).
		WithArgs(fmt.Sprintf("EL%d-%%", year)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec("INSERT INTO eleves").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET nombre_eleves = nombre_eleves + 1, updated_at = $2 WHERE id = $1")).
		WithArgs("classe-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	eleve := &models.Eleve{
		Nom:           "Diallo",
		Prenom:        "Aminata",
		Sexe:          "F",
		DateNaissance: time.Date(2014, time.May, 3, 0, 0, 0, 0, time.UTC),
		ClasseID:      "classe-1",
	}
	err := repo.Create(context.Background(), eleve)
	require.NoError(t, err)
	assert.Equal(t, models.MatriculeEleve(year, 5), eleve.Matricule)
	assert.Equal(t, models.EleveStatutInscrit, eleve.Statut)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEleveRepositoryCreateFullClass(t *testing.T) {
	db, mock, cleanup := newEleveMock(t)
	defer cleanup()
	repo := NewEleveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacite, nombre_eleves FROM classes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("classe-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacite", "nombre_eleves"}).AddRow(30, 30))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Eleve{
		Nom:           "Diallo",
		Prenom:        "Aminata",
		Sexe:          "F",
		DateNaissance: time.Date(2014, time.May, 3, 0, 0, 0, 0, time.UTC),
		ClasseID:      "classe-1",
	})
	require.ErrorIs(t, err, ErrClassePleine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEleveRepositoryCreateUnknownClass(t *testing.T) {
	db, mock, cleanup := newEleveMock(t)
	defer cleanup()
	repo := NewEleveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacite, nombre_eleves FROM classes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Eleve{
		Nom:           "Diallo",
		Prenom:        "Aminata",
		Sexe:          "F",
		DateNaissance: time.Date(2014, time.May, 3, 0, 0, 0, 0, time.UTC),
		ClasseID:      "missing",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEleveRepositoryTransferAdjustsHeadcounts(t *testing.T) {
	db, mock, cleanup := newEleveMock(t)
	defer cleanup()
	repo := NewEleveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT classe_id FROM eleves WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("eleve-1").
		WillReturnRows(sqlmock.NewRows([]string{"classe_id"}).AddRow("classe-a"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacite, nombre_eleves FROM classes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("classe-b").
		WillReturnRows(sqlmock.NewRows([]string{"capacite", "nombre_eleves"}).AddRow(40, 25))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE eleves SET classe_id = $2, statut = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("eleve-1", "classe-b", models.EleveStatutInscrit, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET nombre_eleves = nombre_eleves - 1, updated_at = $2 WHERE id = $1")).
		WithArgs("classe-a", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET nombre_eleves = nombre_eleves + 1, updated_at = $2 WHERE id = $1")).
		WithArgs("classe-b", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transfer(context.Background(), "eleve-1", "classe-b")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEleveRepositoryTransferSameClassNoop(t *testing.T) {
	db, mock, cleanup := newEleveMock(t)
	defer cleanup()
	repo := NewEleveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT classe_id FROM eleves WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("eleve-1").
		WillReturnRows(sqlmock.NewRows([]string{"classe_id"}).AddRow("classe-a"))
	mock.ExpectCommit()

	err := repo.Transfer(context.Background(), "eleve-1", "classe-a")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEleveRepositoryTransferFullDestination(t *testing.T) {
	db, mock, cleanup := newEleveMock(t)
	defer cleanup()
	repo := NewEleveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT classe_id FROM eleves WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("eleve-1").
		WillReturnRows(sqlmock.NewRows([]string{"classe_id"}).AddRow("classe-a"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacite, nombre_eleves FROM classes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE")).
		WithArgs("classe-b").
		WillReturnRows(sqlmock.NewRows([]string{"capacite", "nombre_eleves"}).AddRow(30, 30))
	mock.ExpectRollback()

	err := repo.Transfer(context.Background(), "eleve-1", "classe-b")
	require.ErrorIs(t, err, ErrClassePleine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEleveRepositorySoftDeleteReleasesSeat(t *testing.T) {
	db, mock, cleanup := newEleveMock(t)
	defer cleanup()
	repo := NewEleveRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE eleves SET deleted_at = $2, statut = $3, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL RETURNING classe_id")).
		WithArgs("eleve-1", sqlmock.AnyArg(), models.EleveStatutRetire).
		WillReturnRows(sqlmock.NewRows([]string{"classe_id"}).AddRow("classe-a"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET nombre_eleves = nombre_eleves - 1, updated_at = $2 WHERE id = $1")).
		WithArgs("classe-a", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SoftDelete(context.Background(), "eleve-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
