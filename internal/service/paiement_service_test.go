package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type mockPaiementRepo struct {
	paiements  map[string]*models.Paiement
	historique map[string][]models.HistoriquePaiement
	seq        int
}

func newMockPaiementRepo() *mockPaiementRepo {
	return &mockPaiementRepo{
		paiements:  make(map[string]*models.Paiement),
		historique: make(map[string][]models.HistoriquePaiement),
	}
}

func (m *mockPaiementRepo) appendHisto(paiementID string, histo *models.HistoriquePaiement) {
	m.seq++
	histo.ID = fmt.Sprintf("histo-%d", m.seq)
	histo.PaiementID = paiementID
	m.historique[paiementID] = append(m.historique[paiementID], *histo)
}

func (m *mockPaiementRepo) List(_ context.Context, filter models.PaiementFilter) ([]models.PaiementDetail, int, error) {
	var out []models.PaiementDetail
	for _, p := range m.paiements {
		if p.DeletedAt != nil {
			continue
		}
		if filter.EleveID != "" && p.EleveID != filter.EleveID {
			continue
		}
		out = append(out, models.PaiementDetail{Paiement: *p})
	}
	return out, len(out), nil
}

func (m *mockPaiementRepo) FindByID(_ context.Context, id string) (*models.Paiement, error) {
	p, ok := m.paiements[id]
	if !ok || p.DeletedAt != nil {
		return nil, sql.ErrNoRows
	}
	copy := *p
	return &copy, nil
}

func (m *mockPaiementRepo) Create(_ context.Context, paiement *models.Paiement, histo *models.HistoriquePaiement) error {
	m.seq++
	paiement.ID = fmt.Sprintf("paiement-%d", m.seq)
	paiement.Reference = fmt.Sprintf("PAY-%04d", m.seq)
	stored := *paiement
	m.paiements[paiement.ID] = &stored
	m.appendHisto(paiement.ID, histo)
	return nil
}

func (m *mockPaiementRepo) Update(_ context.Context, paiement *models.Paiement, histo *models.HistoriquePaiement) error {
	if _, ok := m.paiements[paiement.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *paiement
	m.paiements[paiement.ID] = &stored
	m.appendHisto(paiement.ID, histo)
	return nil
}

func (m *mockPaiementRepo) SoftDelete(_ context.Context, id string, histo *models.HistoriquePaiement) error {
	p, ok := m.paiements[id]
	if !ok || p.DeletedAt != nil {
		return sql.ErrNoRows
	}
	now := time.Now()
	p.DeletedAt = &now
	m.appendHisto(id, histo)
	return nil
}

func (m *mockPaiementRepo) Historique(_ context.Context, paiementID string) ([]models.HistoriquePaiement, error) {
	return m.historique[paiementID], nil
}

func (m *mockPaiementRepo) TotalSurPeriode(_ context.Context, debut, fin time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range m.paiements {
		if p.DeletedAt != nil {
			continue
		}
		if p.DatePaiement.Before(debut) || !p.DatePaiement.Before(fin) {
			continue
		}
		total = total.Add(p.Montant)
	}
	return total, nil
}

func newPaiementFixture() (*PaiementService, *mockPaiementRepo, *journalSpy) {
	repo := newMockPaiementRepo()
	journal := &journalSpy{}
	svc := NewPaiementService(repo, journal, nil, nil)
	return svc, repo, journal
}

func encaissementRequest() CreatePaiementRequest {
	return CreatePaiementRequest{
		EleveID:         uuid.NewString(),
		AnneeScolaireID: uuid.NewString(),
		Montant:         decimal.RequireFromString("25000"),
		Mode:            "especes",
	}
}

func TestCreatePaiementWritesAuditTrail(t *testing.T) {
	svc, repo, journal := newPaiementFixture()

	paiement, err := svc.Create(context.Background(), encaissementRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, paiement.Reference)

	histo, err := svc.Historique(context.Background(), paiement.ID)
	require.NoError(t, err)
	require.Len(t, histo, 1)
	assert.Equal(t, models.HistoriqueActionCreation, histo[0].Action)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, "paiement", journal.entries[0].Entite)
	assert.NotNil(t, repo.paiements[paiement.ID])
}

func TestCreatePaiementRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newPaiementFixture()

	req := encaissementRequest()
	req.Montant = decimal.Zero
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreatePaiementRejectsUnknownMode(t *testing.T) {
	svc, _, _ := newPaiementFixture()

	req := encaissementRequest()
	req.Mode = "troc"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdatePaiementAppendsCorrection(t *testing.T) {
	svc, _, _ := newPaiementFixture()

	paiement, err := svc.Create(context.Background(), encaissementRequest())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), paiement.ID, UpdatePaiementRequest{
		Montant: decimal.RequireFromString("30000"),
		Mode:    "virement",
		Motif:   "erreur de saisie du montant",
	})
	require.NoError(t, err)
	assert.True(t, updated.Montant.Equal(decimal.RequireFromString("30000")))
	assert.Equal(t, "virement", updated.Mode)

	histo, err := svc.Historique(context.Background(), paiement.ID)
	require.NoError(t, err)
	require.Len(t, histo, 2)
	assert.Equal(t, models.HistoriqueActionModification, histo[1].Action)
	assert.Equal(t, "erreur de saisie du montant", histo[1].Description)
}

func TestUpdatePaiementRequiresMotif(t *testing.T) {
	svc, _, _ := newPaiementFixture()

	paiement, err := svc.Create(context.Background(), encaissementRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), paiement.ID, UpdatePaiementRequest{
		Montant: decimal.RequireFromString("30000"),
		Mode:    "especes",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDeletePaiementKeepsHistorique(t *testing.T) {
	svc, _, _ := newPaiementFixture()

	paiement, err := svc.Create(context.Background(), encaissementRequest())
	require.NoError(t, err)

	err = svc.Delete(context.Background(), paiement.ID, "", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), paiement.ID, "double encaissement", nil))

	_, err = svc.Get(context.Background(), paiement.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	histo, err := svc.Historique(context.Background(), paiement.ID)
	require.NoError(t, err)
	require.Len(t, histo, 2)
	assert.Equal(t, models.HistoriqueActionAnnulation, histo[1].Action)
	assert.Equal(t, "double encaissement", histo[1].Description)
}
