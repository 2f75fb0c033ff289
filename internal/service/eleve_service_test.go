package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/repository"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type mockEleveRepo struct {
	eleves    map[string]*models.Eleve
	deleted   map[string]bool
	capacites map[string]int
	seq       int
}

func newMockEleveRepo() *mockEleveRepo {
	return &mockEleveRepo{
		eleves:    make(map[string]*models.Eleve),
		deleted:   make(map[string]bool),
		capacites: make(map[string]int),
	}
}

func (m *mockEleveRepo) effectif(classeID string) int {
	n := 0
	for id, e := range m.eleves {
		if e.ClasseID == classeID && !m.deleted[id] {
			n++
		}
	}
	return n
}

func (m *mockEleveRepo) List(_ context.Context, filter models.EleveFilter) ([]models.EleveDetail, int, error) {
	var out []models.EleveDetail
	for id, e := range m.eleves {
		if m.deleted[id] {
			continue
		}
		if filter.ClasseID != "" && e.ClasseID != filter.ClasseID {
			continue
		}
		out = append(out, models.EleveDetail{Eleve: *e})
	}
	return out, len(out), nil
}

func (m *mockEleveRepo) FindByID(_ context.Context, id string) (*models.EleveDetail, error) {
	e, ok := m.eleves[id]
	if !ok || m.deleted[id] {
		return nil, sql.ErrNoRows
	}
	return &models.EleveDetail{Eleve: *e}, nil
}

func (m *mockEleveRepo) Create(_ context.Context, eleve *models.Eleve) error {
	capacite, ok := m.capacites[eleve.ClasseID]
	if !ok {
		return sql.ErrNoRows
	}
	if m.effectif(eleve.ClasseID) >= capacite {
		return repository.ErrClassePleine
	}
	m.seq++
	eleve.ID = uuid.NewString()
	eleve.Matricule = models.MatriculeEleve(time.Now().Year(), m.seq)
	stored := *eleve
	m.eleves[eleve.ID] = &stored
	return nil
}

func (m *mockEleveRepo) Update(_ context.Context, eleve *models.Eleve) error {
	if _, ok := m.eleves[eleve.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *eleve
	m.eleves[eleve.ID] = &stored
	return nil
}

func (m *mockEleveRepo) Transfer(_ context.Context, id, versClasseID string) error {
	e, ok := m.eleves[id]
	if !ok || m.deleted[id] {
		return sql.ErrNoRows
	}
	capacite, ok := m.capacites[versClasseID]
	if !ok {
		return sql.ErrNoRows
	}
	if m.effectif(versClasseID) >= capacite {
		return repository.ErrClassePleine
	}
	e.ClasseID = versClasseID
	return nil
}

func (m *mockEleveRepo) SoftDelete(_ context.Context, id string) error {
	if _, ok := m.eleves[id]; !ok || m.deleted[id] {
		return sql.ErrNoRows
	}
	m.deleted[id] = true
	return nil
}

func (m *mockEleveRepo) Restore(_ context.Context, id string) error {
	if !m.deleted[id] {
		return sql.ErrNoRows
	}
	m.deleted[id] = false
	return nil
}

func newEleveFixture() (*EleveService, *mockEleveRepo, *journalSpy, string) {
	repo := newMockEleveRepo()
	journal := &journalSpy{}
	svc := NewEleveService(repo, journal, nil, nil)
	classeID := uuid.NewString()
	repo.capacites[classeID] = 2
	return svc, repo, journal, classeID
}

func enrollRequest(classeID string) CreateEleveRequest {
	return CreateEleveRequest{
		Nom:           "Diallo",
		Prenom:        "Aminata",
		Sexe:          "F",
		DateNaissance: time.Date(2014, time.May, 3, 0, 0, 0, 0, time.UTC),
		ClasseID:      classeID,
	}
}

func TestCreateEleveAssignsMatricule(t *testing.T) {
	svc, _, journal, classeID := newEleveFixture()

	eleve, err := svc.Create(context.Background(), enrollRequest(classeID))
	require.NoError(t, err)
	assert.NotEmpty(t, eleve.Matricule)
	assert.Equal(t, models.EleveStatutInscrit, eleve.Statut)
	require.Len(t, journal.entries, 1)
	assert.Equal(t, "eleve", journal.entries[0].Entite)
}

func TestCreateEleveRejectsFullClass(t *testing.T) {
	svc, _, _, classeID := newEleveFixture()

	for i := 0; i < 2; i++ {
		_, err := svc.Create(context.Background(), enrollRequest(classeID))
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), enrollRequest(classeID))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateEleveUnknownClass(t *testing.T) {
	svc, _, _, _ := newEleveFixture()

	_, err := svc.Create(context.Background(), enrollRequest(uuid.NewString()))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTransferMovesStudent(t *testing.T) {
	svc, repo, _, classeID := newEleveFixture()
	autreClasse := uuid.NewString()
	repo.capacites[autreClasse] = 1

	eleve, err := svc.Create(context.Background(), enrollRequest(classeID))
	require.NoError(t, err)

	require.NoError(t, svc.Transfer(context.Background(), eleve.ID, TransferEleveRequest{VersClasseID: autreClasse}))
	assert.Equal(t, autreClasse, repo.eleves[eleve.ID].ClasseID)
}

func TestTransferRejectsFullDestination(t *testing.T) {
	svc, repo, _, classeID := newEleveFixture()
	autreClasse := uuid.NewString()
	repo.capacites[autreClasse] = 0

	eleve, err := svc.Create(context.Background(), enrollRequest(classeID))
	require.NoError(t, err)

	err = svc.Transfer(context.Background(), eleve.ID, TransferEleveRequest{VersClasseID: autreClasse})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, classeID, repo.eleves[eleve.ID].ClasseID)
}

func TestUpdateElevePreservesStatutWhenOmitted(t *testing.T) {
	svc, _, _, classeID := newEleveFixture()

	eleve, err := svc.Create(context.Background(), enrollRequest(classeID))
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), eleve.ID, UpdateEleveRequest{
		Nom:           "Diallo",
		Prenom:        "Aminata",
		Sexe:          "F",
		DateNaissance: eleve.DateNaissance,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EleveStatutInscrit, updated.Statut)
	assert.Equal(t, eleve.Matricule, updated.Matricule)
}

func TestDeleteThenRestore(t *testing.T) {
	svc, repo, _, classeID := newEleveFixture()

	eleve, err := svc.Create(context.Background(), enrollRequest(classeID))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), eleve.ID, nil))
	_, err = svc.Get(context.Background(), eleve.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// The freed seat can be taken while the student is out.
	_, err = svc.Create(context.Background(), enrollRequest(classeID))
	require.NoError(t, err)

	require.NoError(t, svc.Restore(context.Background(), eleve.ID, nil))
	detail, err := svc.Get(context.Background(), eleve.ID)
	require.NoError(t, err)
	assert.Equal(t, eleve.Matricule, detail.Matricule)
	assert.False(t, repo.deleted[eleve.ID])
}
