package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type mockAbsenceRepo struct {
	absences map[string]*models.Absence
	seq      int
}

func (m *mockAbsenceRepo) List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, int, error) {
	return nil, 0, nil
}

func (m *mockAbsenceRepo) FindByID(ctx context.Context, id string) (*models.Absence, error) {
	if a, ok := m.absences[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAbsenceRepo) Create(ctx context.Context, absence *models.Absence) error {
	if m.absences == nil {
		m.absences = make(map[string]*models.Absence)
	}
	if absence.ID == "" {
		m.seq++
		absence.ID = fmt.Sprintf("abs-%d", m.seq)
	}
	stored := *absence
	m.absences[absence.ID] = &stored
	return nil
}

func (m *mockAbsenceRepo) Update(ctx context.Context, absence *models.Absence) error {
	stored := *absence
	m.absences[absence.ID] = &stored
	return nil
}

func (m *mockAbsenceRepo) SoftDelete(ctx context.Context, id string) error {
	if _, ok := m.absences[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.absences, id)
	return nil
}

func (m *mockAbsenceRepo) TauxParClasse(ctx context.Context, debut, fin time.Time) ([]models.TauxAbsence, error) {
	return nil, nil
}

func newAbsenceFixture() (*AbsenceService, *mockAbsenceRepo, *journalSpy) {
	repo := &mockAbsenceRepo{}
	journal := &journalSpy{}
	return NewAbsenceService(repo, journal, nil, nil), repo, journal
}

func TestAbsenceServiceCreateStartsPending(t *testing.T) {
	svc, _, journal := newAbsenceFixture()

	debut := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	fin := debut.Add(2 * time.Hour)
	absence, err := svc.Create(context.Background(), CreateAbsenceRequest{
		EleveID:    uuid.NewString(),
		ClasseID:   uuid.NewString(),
		Type:       "absence",
		Date:       debut,
		HeureDebut: &debut,
		HeureFin:   &fin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceStatutEnAttente, absence.Statut)
	assert.Equal(t, 120, absence.DureeMinutes)
	require.Len(t, journal.entries, 1)
}

func TestAbsenceServiceJustifier(t *testing.T) {
	svc, repo, _ := newAbsenceFixture()
	repo.Create(context.Background(), &models.Absence{ID: "a1", Statut: models.AbsenceStatutEnAttente})

	absence, err := svc.Justifier(context.Background(), "a1", JustifierAbsenceRequest{Motif: "certificat médical"})
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceStatutJustifiee, absence.Statut)
	assert.True(t, absence.EstTraitee)
	require.NotNil(t, absence.Decision)
	assert.Equal(t, models.AbsenceDecisionAcceptee, *absence.Decision)
	require.Len(t, absence.Historique, 1)
}

func TestAbsenceServiceJustifierIdempotentSameMotif(t *testing.T) {
	svc, repo, _ := newAbsenceFixture()
	motif := "certificat médical"
	repo.Create(context.Background(), &models.Absence{ID: "a1", Statut: models.AbsenceStatutJustifiee, EstTraitee: true, Motif: &motif})

	absence, err := svc.Justifier(context.Background(), "a1", JustifierAbsenceRequest{Motif: motif})
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceStatutJustifiee, absence.Statut)
}

func TestAbsenceServiceJustifierConflictOnDifferentOutcome(t *testing.T) {
	svc, repo, _ := newAbsenceFixture()
	motif := "retard injustifié"
	repo.Create(context.Background(), &models.Absence{ID: "a1", Statut: models.AbsenceStatutNonJustifiee, EstTraitee: true, Motif: &motif})

	_, err := svc.Justifier(context.Background(), "a1", JustifierAbsenceRequest{Motif: "certificat médical"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAbsenceServiceRefuser(t *testing.T) {
	svc, repo, _ := newAbsenceFixture()
	repo.Create(context.Background(), &models.Absence{ID: "a1", Statut: models.AbsenceStatutEnAttente})

	absence, err := svc.Refuser(context.Background(), "a1", JustifierAbsenceRequest{Motif: "aucune pièce fournie"})
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceStatutNonJustifiee, absence.Statut)
	require.NotNil(t, absence.Decision)
	assert.Equal(t, models.AbsenceDecisionRefusee, *absence.Decision)
}

func TestAbsenceServiceSanctionOnJustified(t *testing.T) {
	svc, repo, _ := newAbsenceFixture()
	repo.Create(context.Background(), &models.Absence{ID: "a1", Statut: models.AbsenceStatutJustifiee, EstTraitee: true})

	absence, err := svc.Sanctionner(context.Background(), "a1", SanctionRequest{Type: "retenue"})
	require.NoError(t, err)
	assert.True(t, absence.SanctionAppliquee)
	assert.Equal(t, models.AbsenceStatutJustifiee, absence.Statut)
}

func TestAbsenceServiceSanction(t *testing.T) {
	svc, repo, _ := newAbsenceFixture()
	repo.Create(context.Background(), &models.Absence{ID: "a1", Statut: models.AbsenceStatutNonJustifiee, EstTraitee: true})

	absence, err := svc.Sanctionner(context.Background(), "a1", SanctionRequest{Type: "retenue"})
	require.NoError(t, err)
	assert.True(t, absence.SanctionAppliquee)
	require.NotNil(t, absence.SanctionType)
	assert.Equal(t, "retenue", *absence.SanctionType)
}
