package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type mockStatsRepo struct {
	eleves      int
	professeurs int
	calls       int
}

func (m *mockStatsRepo) CountEleves(_ context.Context) (int, error) {
	m.calls++
	return m.eleves, nil
}

func (m *mockStatsRepo) CountProfesseurs(_ context.Context) (int, error) {
	return m.professeurs, nil
}

func (m *mockStatsRepo) ResumeFinancier(_ context.Context, _, _ time.Time) (*models.ResumeFinancier, error) {
	return &models.ResumeFinancier{
		TotalPaiements: decimal.RequireFromString("1500000"),
		TotalDepenses:  decimal.RequireFromString("400000"),
	}, nil
}

type mockEffectifsProvider struct{}

func (mockEffectifsProvider) Effectifs(_ context.Context, _ string) ([]models.EffectifClasse, error) {
	return []models.EffectifClasse{{ClasseID: "c1", ClasseNom: "6eme A", NombreEleves: 32, Capacite: 40}}, nil
}

type mockTauxProvider struct{}

func (mockTauxProvider) TauxParClasse(_ context.Context, _, _ time.Time) ([]models.TauxAbsence, error) {
	return []models.TauxAbsence{{ClasseID: "c1", ClasseNom: "6eme A", NombreAbsences: 12, Taux: 3.4}}, nil
}

type mockAnneeProvider struct {
	active *models.AnneeScolaire
	byID   map[string]*models.AnneeScolaire
}

func (m *mockAnneeProvider) FindActive(_ context.Context) (*models.AnneeScolaire, error) {
	if m.active == nil {
		return nil, sql.ErrNoRows
	}
	return m.active, nil
}

func (m *mockAnneeProvider) FindByID(_ context.Context, id string) (*models.AnneeScolaire, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

type memoryCache struct {
	data map[string][]byte
	sets int
	hits int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.sets++
	return nil
}

func (m *memoryCache) Invalidate(_ context.Context, _ string) error {
	m.data = make(map[string][]byte)
	return nil
}

func newDashboardFixture(annees *mockAnneeProvider, cache dashboardCache) (*DashboardService, *mockStatsRepo) {
	stats := &mockStatsRepo{eleves: 250, professeurs: 18}
	svc := NewDashboardService(DashboardServiceParams{
		Stats:    stats,
		Classes:  mockEffectifsProvider{},
		Absences: mockTauxProvider{},
		Annees:   annees,
		Cache:    cache,
	})
	return svc, stats
}

func activeAnnee() *models.AnneeScolaire {
	return &models.AnneeScolaire{
		ID:        "annee-1",
		Libelle:   "2025-2026",
		DateDebut: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		DateFin:   time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
		EstActive: true,
	}
}

func TestResumeComposesFromActiveYear(t *testing.T) {
	svc, _ := newDashboardFixture(&mockAnneeProvider{active: activeAnnee()}, nil)

	tableau, cached, err := svc.Resume(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "annee-1", tableau.AnneeScolaireID)
	assert.Equal(t, 250, tableau.TotalEleves)
	assert.Equal(t, 18, tableau.TotalProfesseurs)
	require.Len(t, tableau.Effectifs, 1)
	assert.True(t, tableau.Finances.TotalPaiements.Equal(decimal.RequireFromString("1500000")))
}

func TestResumeRequiresActiveYear(t *testing.T) {
	svc, _ := newDashboardFixture(&mockAnneeProvider{}, nil)

	_, _, err := svc.Resume(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestResumeUnknownYear(t *testing.T) {
	svc, _ := newDashboardFixture(&mockAnneeProvider{byID: map[string]*models.AnneeScolaire{}}, nil)

	_, _, err := svc.Resume(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResumeServesSecondCallFromCache(t *testing.T) {
	cache := newMemoryCache()
	svc, stats := newDashboardFixture(&mockAnneeProvider{active: activeAnnee()}, cache)

	_, cached, err := svc.Resume(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, cache.sets)

	tableau, cached, err := svc.Resume(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 250, tableau.TotalEleves)
	assert.Equal(t, 1, stats.calls)
}

func TestInvalidateCacheForcesRecompute(t *testing.T) {
	cache := newMemoryCache()
	svc, stats := newDashboardFixture(&mockAnneeProvider{active: activeAnnee()}, cache)

	_, _, err := svc.Resume(context.Background(), "")
	require.NoError(t, err)

	svc.InvalidateCache(context.Background())

	_, cached, err := svc.Resume(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, stats.calls)
}
