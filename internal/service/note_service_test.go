package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type journalSpy struct {
	entries []models.JournalEntree
}

func (j *journalSpy) Record(ctx context.Context, entree models.JournalEntree) {
	j.entries = append(j.entries, entree)
}

type mockNoteRepo struct {
	notes   map[string]*models.Note
	moyenne *float64
	seq     int
}

func (m *mockNoteRepo) List(ctx context.Context, filter models.NoteFilter) ([]models.NoteDetail, int, error) {
	return nil, 0, nil
}

func (m *mockNoteRepo) FindByID(ctx context.Context, id string) (*models.Note, error) {
	if n, ok := m.notes[id]; ok {
		copied := *n
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNoteRepo) Create(ctx context.Context, note *models.Note) error {
	if m.notes == nil {
		m.notes = make(map[string]*models.Note)
	}
	if note.ID == "" {
		m.seq++
		note.ID = fmt.Sprintf("note-%d", m.seq)
	}
	stored := *note
	m.notes[note.ID] = &stored
	return nil
}

func (m *mockNoteRepo) Update(ctx context.Context, note *models.Note) error {
	stored := *note
	m.notes[note.ID] = &stored
	return nil
}

func (m *mockNoteRepo) SoftDelete(ctx context.Context, id string) error {
	delete(m.notes, id)
	return nil
}

func (m *mockNoteRepo) MoyenneEleve(ctx context.Context, eleveID, matiereID, trimestreID string) (*float64, error) {
	return m.moyenne, nil
}

type mockEvaluationReader struct {
	evaluations map[string]*models.Evaluation
}

func (m *mockEvaluationReader) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	if e, ok := m.evaluations[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

type mockMatiereReader struct {
	matieres map[string]*models.Matiere
}

func (m *mockMatiereReader) FindByID(ctx context.Context, id string) (*models.Matiere, error) {
	if mat, ok := m.matieres[id]; ok {
		return mat, nil
	}
	return nil, sql.ErrNoRows
}

func newNoteFixture() (*NoteService, *mockNoteRepo, *journalSpy, string) {
	evaluationID := uuid.NewString()
	matiereID := uuid.NewString()
	repo := &mockNoteRepo{}
	evaluations := &mockEvaluationReader{evaluations: map[string]*models.Evaluation{
		evaluationID: {ID: evaluationID, MatiereID: matiereID, Bareme: 50, Coefficient: 2},
	}}
	matieres := &mockMatiereReader{matieres: map[string]*models.Matiere{
		matiereID: {ID: matiereID, Coefficient: 3},
	}}
	journal := &journalSpy{}
	svc := NewNoteService(repo, evaluations, matieres, journal, nil, nil)
	return svc, repo, journal, evaluationID
}

func TestNoteServiceCreateDerivesFields(t *testing.T) {
	svc, _, journal, evaluationID := newNoteFixture()

	coefficient := 2.0
	note, err := svc.Create(context.Background(), CreateNoteRequest{
		EleveID:      uuid.NewString(),
		EvaluationID: evaluationID,
		Valeur:       45,
		Coefficient:  &coefficient,
	})
	require.NoError(t, err)
	assert.Equal(t, 18.0, note.NoteSur20)
	assert.Equal(t, 90.0, note.NoteAvecCoefficient)
	assert.Equal(t, "Excellent", note.Appreciation)
	require.Len(t, journal.entries, 1)
	assert.Equal(t, "note", journal.entries[0].Entite)
}

func TestNoteServiceCreateDefaultsCoefficientFromMatiere(t *testing.T) {
	svc, _, _, evaluationID := newNoteFixture()

	note, err := svc.Create(context.Background(), CreateNoteRequest{
		EleveID:      uuid.NewString(),
		EvaluationID: evaluationID,
		Valeur:       25,
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, note.Coefficient)
}

func TestNoteServiceCreateRejectsValueAboveBareme(t *testing.T) {
	svc, _, _, evaluationID := newNoteFixture()

	_, err := svc.Create(context.Background(), CreateNoteRequest{
		EleveID:      uuid.NewString(),
		EvaluationID: evaluationID,
		Valeur:       51,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNoteServiceUpdateRefusesPublished(t *testing.T) {
	svc, repo, _, _ := newNoteFixture()
	repo.Create(context.Background(), &models.Note{ID: "n1", Valeur: 10, NoteSur: 20, Coefficient: 1, EstPubliee: true})

	_, err := svc.Update(context.Background(), "n1", UpdateNoteRequest{Valeur: 12})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestNoteServiceUpdateResetsValidationAndTracksHistory(t *testing.T) {
	svc, repo, _, _ := newNoteFixture()
	now := models.Note{ID: "n1", Valeur: 10, NoteSur: 20, Coefficient: 1, EstValidee: true}
	repo.Create(context.Background(), &now)

	updated, err := svc.Update(context.Background(), "n1", UpdateNoteRequest{Valeur: 14, Commentaire: "erreur de saisie"})
	require.NoError(t, err)
	assert.False(t, updated.EstValidee)
	assert.Nil(t, updated.ValideeLe)
	assert.Equal(t, 14.0, updated.Valeur)
	require.Len(t, updated.HistoriqueModifications, 1)
	assert.Equal(t, "valeur", updated.HistoriqueModifications[0].Champ)
}

func TestNoteServicePublierRequiresValidation(t *testing.T) {
	svc, repo, _, _ := newNoteFixture()
	repo.Create(context.Background(), &models.Note{ID: "n1", Valeur: 10, NoteSur: 20})

	_, err := svc.Publier(context.Background(), "n1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = svc.Valider(context.Background(), "n1", nil)
	require.NoError(t, err)
	published, err := svc.Publier(context.Background(), "n1", nil)
	require.NoError(t, err)
	assert.True(t, published.EstPubliee)
}

func TestNoteServiceValiderIdempotent(t *testing.T) {
	svc, repo, journal, _ := newNoteFixture()
	repo.Create(context.Background(), &models.Note{ID: "n1", Valeur: 10, NoteSur: 20, EstValidee: true})

	note, err := svc.Valider(context.Background(), "n1", nil)
	require.NoError(t, err)
	assert.True(t, note.EstValidee)
	assert.Empty(t, journal.entries)
}

func TestNoteServiceRattrapage(t *testing.T) {
	svc, repo, _, _ := newNoteFixture()
	repo.Create(context.Background(), &models.Note{ID: "orig", EleveID: "e1", MatiereID: "m1", Valeur: 7, NoteSur: 20, Coefficient: 2})

	makeup, err := svc.Rattrapage(context.Background(), "orig", RattrapageRequest{Valeur: 13})
	require.NoError(t, err)
	require.NotNil(t, makeup.NoteRattrapeeID)
	assert.Equal(t, "orig", *makeup.NoteRattrapeeID)
	assert.Equal(t, 2.0, makeup.Coefficient)

	_, err = svc.Rattrapage(context.Background(), makeup.ID, RattrapageRequest{Valeur: 15})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestNoteServiceDeleteRefusesPublished(t *testing.T) {
	svc, repo, _, _ := newNoteFixture()
	repo.Create(context.Background(), &models.Note{ID: "n1", EstPubliee: true})

	err := svc.Delete(context.Background(), "n1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestNoteServiceMoyenneRounds(t *testing.T) {
	svc, repo, _, _ := newNoteFixture()
	raw := 13.666666
	repo.moyenne = &raw

	moyenne, err := svc.MoyenneEleve(context.Background(), "e1", "m1", "t1")
	require.NoError(t, err)
	require.NotNil(t, moyenne)
	assert.Equal(t, 13.67, *moyenne)

	repo.moyenne = nil
	moyenne, err = svc.MoyenneEleve(context.Background(), "e1", "m1", "t1")
	require.NoError(t, err)
	assert.Nil(t, moyenne)
}
