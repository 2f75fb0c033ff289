package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type mockDepenseRepo struct {
	depenses     map[string]*models.Depense
	approbations map[string][]models.ApprobationDepense
	categories   map[string]*models.CategorieDepense
	seq          int
}

func newMockDepenseRepo() *mockDepenseRepo {
	return &mockDepenseRepo{
		depenses:     make(map[string]*models.Depense),
		approbations: make(map[string][]models.ApprobationDepense),
		categories:   make(map[string]*models.CategorieDepense),
	}
}

func (m *mockDepenseRepo) List(_ context.Context, filter models.DepenseFilter) ([]models.Depense, int, error) {
	var out []models.Depense
	for _, d := range m.depenses {
		if filter.Statut != "" && d.Statut != filter.Statut {
			continue
		}
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (m *mockDepenseRepo) FindByID(_ context.Context, id string) (*models.Depense, error) {
	d, ok := m.depenses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *d
	return &copy, nil
}

func (m *mockDepenseRepo) Create(_ context.Context, depense *models.Depense) error {
	m.seq++
	depense.ID = fmt.Sprintf("depense-%d", m.seq)
	stored := *depense
	m.depenses[depense.ID] = &stored
	return nil
}

func (m *mockDepenseRepo) Update(_ context.Context, depense *models.Depense) error {
	if _, ok := m.depenses[depense.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *depense
	m.depenses[depense.ID] = &stored
	return nil
}

func (m *mockDepenseRepo) UpdateStatut(_ context.Context, id, statut string) error {
	d, ok := m.depenses[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.Statut = statut
	return nil
}

func (m *mockDepenseRepo) Decider(_ context.Context, approbation *models.ApprobationDepense, statut string) error {
	d, ok := m.depenses[approbation.DepenseID]
	if !ok {
		return sql.ErrNoRows
	}
	m.seq++
	approbation.ID = fmt.Sprintf("approbation-%d", m.seq)
	m.approbations[approbation.DepenseID] = append(m.approbations[approbation.DepenseID], *approbation)
	d.Statut = statut
	return nil
}

func (m *mockDepenseRepo) MarquerPayee(_ context.Context, id string) error {
	d, ok := m.depenses[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.Statut = models.DepenseStatutPayee
	return nil
}

func (m *mockDepenseRepo) SoftDelete(_ context.Context, id string) error {
	if _, ok := m.depenses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.depenses, id)
	return nil
}

func (m *mockDepenseRepo) Approbations(_ context.Context, depenseID string) ([]models.ApprobationDepense, error) {
	return m.approbations[depenseID], nil
}

func (m *mockDepenseRepo) ListCategories(_ context.Context) ([]models.CategorieDepense, error) {
	var out []models.CategorieDepense
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockDepenseRepo) FindCategorieByCode(_ context.Context, code string) (*models.CategorieDepense, error) {
	c, ok := m.categories[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *c
	return &copy, nil
}

func (m *mockDepenseRepo) CreateCategorie(_ context.Context, categorie *models.CategorieDepense) error {
	m.seq++
	categorie.ID = fmt.Sprintf("categorie-%d", m.seq)
	stored := *categorie
	m.categories[categorie.Code] = &stored
	return nil
}

func newDepenseFixture() (*DepenseService, *mockDepenseRepo, *journalSpy) {
	repo := newMockDepenseRepo()
	journal := &journalSpy{}
	svc := NewDepenseService(repo, journal, nil, nil)
	return svc, repo, journal
}

func draftDepense(t *testing.T, svc *DepenseService, acteurID string) *models.Depense {
	t.Helper()
	depense, err := svc.Create(context.Background(), SaveDepenseRequest{
		Libelle:            "fournitures scolaires",
		Montant:            decimal.RequireFromString("75000"),
		CategorieDepenseID: uuid.NewString(),
		ActeurID:           &acteurID,
	})
	require.NoError(t, err)
	return depense
}

func TestCreateDepenseStartsAsDraft(t *testing.T) {
	svc, _, journal := newDepenseFixture()

	depense := draftDepense(t, svc, uuid.NewString())
	assert.Equal(t, models.DepenseStatutBrouillon, depense.Statut)
	assert.Len(t, journal.entries, 1)
	assert.Equal(t, "depense", journal.entries[0].Entite)
}

func TestCreateDepenseRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newDepenseFixture()

	_, err := svc.Create(context.Background(), SaveDepenseRequest{
		Libelle:            "fournitures",
		Montant:            decimal.RequireFromString("-10"),
		CategorieDepenseID: uuid.NewString(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSoumettreOnlyFromDraft(t *testing.T) {
	svc, _, _ := newDepenseFixture()
	depense := draftDepense(t, svc, uuid.NewString())

	submitted, err := svc.Soumettre(context.Background(), depense.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DepenseStatutEnAttente, submitted.Statut)

	_, err = svc.Soumettre(context.Background(), depense.ID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestDeciderForbidsSelfApproval(t *testing.T) {
	svc, _, _ := newDepenseFixture()
	auteur := uuid.NewString()
	depense := draftDepense(t, svc, auteur)
	_, err := svc.Soumettre(context.Background(), depense.ID, &auteur)
	require.NoError(t, err)

	_, err = svc.Decider(context.Background(), depense.ID, DeciderDepenseRequest{
		Decision: models.ApprobationDecisionApprouvee,
		ActeurID: &auteur,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeciderRecordsApprobation(t *testing.T) {
	svc, _, _ := newDepenseFixture()
	auteur := uuid.NewString()
	approbateur := uuid.NewString()
	depense := draftDepense(t, svc, auteur)
	_, err := svc.Soumettre(context.Background(), depense.ID, &auteur)
	require.NoError(t, err)

	decided, err := svc.Decider(context.Background(), depense.ID, DeciderDepenseRequest{
		Decision: models.ApprobationDecisionApprouvee,
		ActeurID: &approbateur,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DepenseStatutApprouvee, decided.Statut)

	approbations, err := svc.Approbations(context.Background(), depense.ID)
	require.NoError(t, err)
	require.Len(t, approbations, 1)
	assert.Equal(t, approbateur, approbations[0].ApprobateurID)
	assert.Equal(t, models.ApprobationDecisionApprouvee, approbations[0].Decision)

	_, err = svc.Decider(context.Background(), depense.ID, DeciderDepenseRequest{
		Decision: models.ApprobationDecisionRejetee,
		ActeurID: &approbateur,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestDeciderRejectionBlocksPayment(t *testing.T) {
	svc, _, _ := newDepenseFixture()
	auteur := uuid.NewString()
	approbateur := uuid.NewString()
	depense := draftDepense(t, svc, auteur)
	_, err := svc.Soumettre(context.Background(), depense.ID, &auteur)
	require.NoError(t, err)

	decided, err := svc.Decider(context.Background(), depense.ID, DeciderDepenseRequest{
		Decision: models.ApprobationDecisionRejetee,
		ActeurID: &approbateur,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DepenseStatutRejetee, decided.Statut)

	_, err = svc.Payer(context.Background(), depense.ID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestPayerOnlyApproved(t *testing.T) {
	svc, repo, _ := newDepenseFixture()
	auteur := uuid.NewString()
	approbateur := uuid.NewString()
	depense := draftDepense(t, svc, auteur)

	_, err := svc.Payer(context.Background(), depense.ID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = svc.Soumettre(context.Background(), depense.ID, &auteur)
	require.NoError(t, err)
	_, err = svc.Decider(context.Background(), depense.ID, DeciderDepenseRequest{
		Decision: models.ApprobationDecisionApprouvee,
		ActeurID: &approbateur,
	})
	require.NoError(t, err)

	paid, err := svc.Payer(context.Background(), depense.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DepenseStatutPayee, paid.Statut)
	assert.Equal(t, models.DepenseStatutPayee, repo.depenses[depense.ID].Statut)
}

func TestUpdateLockedAfterDecision(t *testing.T) {
	svc, _, _ := newDepenseFixture()
	auteur := uuid.NewString()
	approbateur := uuid.NewString()
	depense := draftDepense(t, svc, auteur)
	_, err := svc.Soumettre(context.Background(), depense.ID, &auteur)
	require.NoError(t, err)
	_, err = svc.Decider(context.Background(), depense.ID, DeciderDepenseRequest{
		Decision: models.ApprobationDecisionApprouvee,
		ActeurID: &approbateur,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), depense.ID, SaveDepenseRequest{
		Libelle:            "autre libelle",
		Montant:            decimal.RequireFromString("100"),
		CategorieDepenseID: uuid.NewString(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestDeleteDepenseOnlyDraftOrRejected(t *testing.T) {
	svc, _, _ := newDepenseFixture()
	auteur := uuid.NewString()
	depense := draftDepense(t, svc, auteur)

	require.NoError(t, svc.Delete(context.Background(), depense.ID, nil))

	depense = draftDepense(t, svc, auteur)
	_, err := svc.Soumettre(context.Background(), depense.ID, &auteur)
	require.NoError(t, err)
	err = svc.Delete(context.Background(), depense.ID, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestCreateCategorieRejectsDuplicateCode(t *testing.T) {
	svc, _, _ := newDepenseFixture()

	_, err := svc.CreateCategorie(context.Background(), CreateCategorieRequest{Code: "TRANSPORT", Libelle: "Transport"})
	require.NoError(t, err)

	_, err = svc.CreateCategorie(context.Background(), CreateCategorieRequest{Code: "TRANSPORT", Libelle: "Transport bis"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
