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

type mockSalaireRepo struct {
	configs   map[string]*models.ProfSalaire
	avances   map[string]*models.AvanceSalaire
	paiements map[string]*models.PaiementSalaire
	depenses  []*models.Depense
	seq       int
}

func newMockSalaireRepo() *mockSalaireRepo {
	return &mockSalaireRepo{
		configs:   make(map[string]*models.ProfSalaire),
		avances:   make(map[string]*models.AvanceSalaire),
		paiements: make(map[string]*models.PaiementSalaire),
	}
}

func (m *mockSalaireRepo) FindConfigActive(_ context.Context, professeurID string) (*models.ProfSalaire, error) {
	for _, c := range m.configs {
		if c.ProfesseurID == professeurID && c.EstActif {
			copy := *c
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSalaireRepo) ListConfigs(_ context.Context, professeurID string) ([]models.ProfSalaire, error) {
	var out []models.ProfSalaire
	for _, c := range m.configs {
		if c.ProfesseurID == professeurID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockSalaireRepo) SetConfig(_ context.Context, config *models.ProfSalaire) error {
	for _, c := range m.configs {
		if c.ProfesseurID == config.ProfesseurID {
			c.EstActif = false
		}
	}
	m.seq++
	config.ID = fmt.Sprintf("config-%d", m.seq)
	config.EstActif = true
	stored := *config
	m.configs[config.ID] = &stored
	return nil
}

func (m *mockSalaireRepo) ListAvances(_ context.Context, filter models.AvanceSalaireFilter) ([]models.AvanceSalaire, int, error) {
	var out []models.AvanceSalaire
	for _, a := range m.avances {
		if filter.ProfesseurID != "" && a.ProfesseurID != filter.ProfesseurID {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockSalaireRepo) FindAvanceByID(_ context.Context, id string) (*models.AvanceSalaire, error) {
	a, ok := m.avances[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *a
	return &copy, nil
}

func (m *mockSalaireRepo) CreateAvance(_ context.Context, avance *models.AvanceSalaire, depense *models.Depense) error {
	m.seq++
	avance.ID = fmt.Sprintf("avance-%d", m.seq)
	if avance.Ref == "" {
		avance.Ref = avance.ID
	}
	stored := *avance
	m.avances[avance.ID] = &stored
	if depense != nil {
		m.depenses = append(m.depenses, depense)
	}
	return nil
}

func (m *mockSalaireRepo) MarquerAvancePayee(_ context.Context, id string, depense *models.Depense) error {
	a, ok := m.avances[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Statut = models.AvanceStatutPayee
	m.depenses = append(m.depenses, depense)
	return nil
}

func (m *mockSalaireRepo) TotalAvancesPayees(_ context.Context, professeurID string, debut, fin time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range m.avances {
		if a.ProfesseurID != professeurID || a.Statut != models.AvanceStatutPayee {
			continue
		}
		if a.Date.Before(debut) || !a.Date.Before(fin) {
			continue
		}
		total = total.Add(a.Montant)
	}
	return total, nil
}

func (m *mockSalaireRepo) ListPaiements(_ context.Context, filter models.PaiementSalaireFilter) ([]models.PaiementSalaire, int, error) {
	var out []models.PaiementSalaire
	for _, p := range m.paiements {
		if filter.ProfesseurID != "" && p.ProfesseurID != filter.ProfesseurID {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockSalaireRepo) FindPaiementByID(_ context.Context, id string) (*models.PaiementSalaire, error) {
	p, ok := m.paiements[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *p
	return &copy, nil
}

func (m *mockSalaireRepo) CreatePaiement(_ context.Context, paiement *models.PaiementSalaire) error {
	m.seq++
	paiement.ID = fmt.Sprintf("paie-%d", m.seq)
	if paiement.Ref == "" {
		paiement.Ref = paiement.ID
	}
	stored := *paiement
	m.paiements[paiement.ID] = &stored
	return nil
}

func (m *mockSalaireRepo) MarquerPaiementPaye(_ context.Context, paiement *models.PaiementSalaire, depense *models.Depense) error {
	p, ok := m.paiements[paiement.ID]
	if !ok {
		return sql.ErrNoRows
	}
	p.Statut = models.PaiementSalaireStatutPaye
	m.depenses = append(m.depenses, depense)
	if p.Type == models.PaiementSalaireTypeNormal {
		debut, fin := p.PeriodeMois()
		for _, a := range m.avances {
			if a.ProfesseurID == p.ProfesseurID && a.Statut == models.AvanceStatutPayee &&
				!a.Date.Before(debut) && a.Date.Before(fin) {
				a.Statut = models.AvanceStatutDeduite
			}
		}
	}
	return nil
}

type mockCategorieResolver struct {
	categories map[string]*models.CategorieDepense
	seq        int
}

func newMockCategorieResolver() *mockCategorieResolver {
	return &mockCategorieResolver{categories: make(map[string]*models.CategorieDepense)}
}

func (m *mockCategorieResolver) FindCategorieByCode(_ context.Context, code string) (*models.CategorieDepense, error) {
	c, ok := m.categories[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *c
	return &copy, nil
}

func (m *mockCategorieResolver) CreateCategorie(_ context.Context, categorie *models.CategorieDepense) error {
	m.seq++
	categorie.ID = fmt.Sprintf("cat-%d", m.seq)
	stored := *categorie
	m.categories[categorie.Code] = &stored
	return nil
}

func newSalaireFixture() (*SalaireService, *mockSalaireRepo, *mockCategorieResolver, *journalSpy) {
	repo := newMockSalaireRepo()
	categories := newMockCategorieResolver()
	journal := &journalSpy{}
	svc := NewSalaireService(repo, categories, journal, nil, nil)
	return svc, repo, categories, journal
}

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestSetConfigRequiresAmountForMode(t *testing.T) {
	svc, _, _, _ := newSalaireFixture()
	profID := uuid.NewString()

	_, err := svc.SetConfig(context.Background(), SetSalaireConfigRequest{
		ProfesseurID: profID,
		Mode:         models.SalaireModeHoraire,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.SetConfig(context.Background(), SetSalaireConfigRequest{
		ProfesseurID:   profID,
		Mode:           models.SalaireModeFixe,
		SalaireMensuel: decp("0"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSetConfigDeactivatesPrevious(t *testing.T) {
	svc, repo, _, journal := newSalaireFixture()
	profID := uuid.NewString()

	first, err := svc.SetConfig(context.Background(), SetSalaireConfigRequest{
		ProfesseurID: profID,
		Mode:         models.SalaireModeHoraire,
		TauxHoraire:  decp("2500"),
	})
	require.NoError(t, err)

	second, err := svc.SetConfig(context.Background(), SetSalaireConfigRequest{
		ProfesseurID:   profID,
		Mode:           models.SalaireModeFixe,
		SalaireMensuel: decp("300000"),
	})
	require.NoError(t, err)

	assert.False(t, repo.configs[first.ID].EstActif)
	assert.True(t, repo.configs[second.ID].EstActif)

	active, err := svc.GetConfig(context.Background(), profID)
	require.NoError(t, err)
	assert.Equal(t, models.SalaireModeFixe, active.Mode)
	assert.Len(t, journal.entries, 2)
}

func TestCreateAvanceImmediatePaymentWritesExpense(t *testing.T) {
	svc, repo, categories, _ := newSalaireFixture()
	profID := uuid.NewString()

	avance, err := svc.CreateAvance(context.Background(), CreateAvanceRequest{
		ProfesseurID:  profID,
		Montant:       decimal.RequireFromString("50000"),
		PayerAussitot: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AvanceStatutPayee, avance.Statut)

	require.Len(t, repo.depenses, 1)
	depense := repo.depenses[0]
	assert.Equal(t, "AVS-"+avance.Ref, depense.Reference)
	assert.Equal(t, models.DepenseStatutPayee, depense.Statut)
	assert.True(t, depense.Montant.Equal(decimal.RequireFromString("50000")))

	_, err = categories.FindCategorieByCode(context.Background(), CategorieCodeAvance)
	assert.NoError(t, err)
}

func TestCreateAvanceRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, _ := newSalaireFixture()

	_, err := svc.CreateAvance(context.Background(), CreateAvanceRequest{
		ProfesseurID: uuid.NewString(),
		Montant:      decimal.RequireFromString("-100"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPayerAvanceOnlyWhenPending(t *testing.T) {
	svc, repo, _, _ := newSalaireFixture()
	profID := uuid.NewString()

	avance, err := svc.CreateAvance(context.Background(), CreateAvanceRequest{
		ProfesseurID: profID,
		Montant:      decimal.RequireFromString("25000"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AvanceStatutEnAttente, avance.Statut)

	paid, err := svc.PayerAvance(context.Background(), avance.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AvanceStatutPayee, paid.Statut)
	require.Len(t, repo.depenses, 1)

	_, err = svc.PayerAvance(context.Background(), avance.ID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestCreatePaiementHourlyMode(t *testing.T) {
	svc, _, _, _ := newSalaireFixture()
	profID := uuid.NewString()

	_, err := svc.SetConfig(context.Background(), SetSalaireConfigRequest{
		ProfesseurID: profID,
		Mode:         models.SalaireModeHoraire,
		TauxHoraire:  decp("2000"),
	})
	require.NoError(t, err)

	_, err = svc.CreatePaiement(context.Background(), CreatePaiementSalaireRequest{
		ProfesseurID: profID,
		Type:         models.PaiementSalaireTypeNormal,
		Periode:      time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	paiement, err := svc.CreatePaiement(context.Background(), CreatePaiementSalaireRequest{
		ProfesseurID:      profID,
		Type:              models.PaiementSalaireTypeNormal,
		Periode:           time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		HeuresTravaillees: decp("80"),
	})
	require.NoError(t, err)
	assert.True(t, paiement.SalaireBase.Equal(decimal.RequireFromString("160000")))
	assert.True(t, paiement.NetAPayer.Equal(decimal.RequireFromString("160000")))
}

func TestCreatePaiementDeductsPeriodAdvances(t *testing.T) {
	svc, _, _, _ := newSalaireFixture()
	profID := uuid.NewString()

	_, err := svc.SetConfig(context.Background(), SetSalaireConfigRequest{
		ProfesseurID:   profID,
		Mode:           models.SalaireModeFixe,
		SalaireMensuel: decp("300000"),
	})
	require.NoError(t, err)

	inPeriod := time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)
	outOfPeriod := time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateAvance(context.Background(), CreateAvanceRequest{
		ProfesseurID:  profID,
		Montant:       decimal.RequireFromString("50000"),
		Date:          &inPeriod,
		PayerAussitot: true,
	})
	require.NoError(t, err)
	_, err = svc.CreateAvance(context.Background(), CreateAvanceRequest{
		ProfesseurID:  profID,
		Montant:       decimal.RequireFromString("40000"),
		Date:          &outOfPeriod,
		PayerAussitot: true,
	})
	require.NoError(t, err)

	paiement, err := svc.CreatePaiement(context.Background(), CreatePaiementSalaireRequest{
		ProfesseurID: profID,
		Type:         models.PaiementSalaireTypeNormal,
		Periode:      time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		Retenues:     decimal.RequireFromString("10000"),
	})
	require.NoError(t, err)
	assert.True(t, paiement.AvancesDeduites.Equal(decimal.RequireFromString("50000")))
	assert.True(t, paiement.NetAPayer.Equal(decimal.RequireFromString("240000")))
}

func TestCreatePaiementRequiresActiveConfig(t *testing.T) {
	svc, _, _, _ := newSalaireFixture()

	_, err := svc.CreatePaiement(context.Background(), CreatePaiementSalaireRequest{
		ProfesseurID: uuid.NewString(),
		Type:         models.PaiementSalaireTypeNormal,
		Periode:      time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPayerFlipsAdvancesToDeducted(t *testing.T) {
	svc, repo, _, _ := newSalaireFixture()
	profID := uuid.NewString()

	_, err := svc.SetConfig(context.Background(), SetSalaireConfigRequest{
		ProfesseurID:   profID,
		Mode:           models.SalaireModeFixe,
		SalaireMensuel: decp("300000"),
	})
	require.NoError(t, err)

	inPeriod := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	avance, err := svc.CreateAvance(context.Background(), CreateAvanceRequest{
		ProfesseurID:  profID,
		Montant:       decimal.RequireFromString("60000"),
		Date:          &inPeriod,
		PayerAussitot: true,
	})
	require.NoError(t, err)

	paiement, err := svc.CreatePaiement(context.Background(), CreatePaiementSalaireRequest{
		ProfesseurID: profID,
		Type:         models.PaiementSalaireTypeNormal,
		Periode:      time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	paid, err := svc.Payer(context.Background(), paiement.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PaiementSalaireStatutPaye, paid.Statut)
	assert.Equal(t, models.AvanceStatutDeduite, repo.avances[avance.ID].Statut)

	var salaireDepense *models.Depense
	for _, d := range repo.depenses {
		if d.Reference == "SAL-"+paiement.Ref {
			salaireDepense = d
		}
	}
	require.NotNil(t, salaireDepense)
	assert.True(t, salaireDepense.Montant.Equal(decimal.RequireFromString("240000")))

	_, err = svc.Payer(context.Background(), paiement.ID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}
