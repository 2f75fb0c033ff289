package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type depenseRepository interface {
	List(ctx context.Context, filter models.DepenseFilter) ([]models.Depense, int, error)
	FindByID(ctx context.Context, id string) (*models.Depense, error)
	Create(ctx context.Context, depense *models.Depense) error
	Update(ctx context.Context, depense *models.Depense) error
	UpdateStatut(ctx context.Context, id, statut string) error
	Decider(ctx context.Context, approbation *models.ApprobationDepense, statut string) error
	MarquerPayee(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	Approbations(ctx context.Context, depenseID string) ([]models.ApprobationDepense, error)
	ListCategories(ctx context.Context) ([]models.CategorieDepense, error)
	FindCategorieByCode(ctx context.Context, code string) (*models.CategorieDepense, error)
	CreateCategorie(ctx context.Context, categorie *models.CategorieDepense) error
}

// SaveDepenseRequest holds the payload for drafting or editing an expense.
type SaveDepenseRequest struct {
	Libelle            string          `json:"libelle" validate:"required"`
	Montant            decimal.Decimal `json:"montant" validate:"required"`
	CategorieDepenseID string          `json:"categorie_depense_id" validate:"required,uuid4"`
	BudgetID           *string         `json:"budget_id" validate:"omitempty,uuid4"`
	DateDepense        *time.Time      `json:"date_depense"`
	Beneficiaire       *string         `json:"beneficiaire"`
	Justificatif       *string         `json:"justificatif"`
	ActeurID           *string         `json:"-"`
}

// DeciderDepenseRequest approves or rejects a submitted expense.
type DeciderDepenseRequest struct {
	Decision    string  `json:"decision" validate:"required,oneof=approuvee rejetee"`
	Commentaire *string `json:"commentaire"`
	ActeurID    *string `json:"-"`
}

// CreateCategorieRequest holds the payload for adding an expense category.
type CreateCategorieRequest struct {
	Code        string  `json:"code" validate:"required"`
	Libelle     string  `json:"libelle" validate:"required"`
	Description *string `json:"description"`
	ActeurID    *string `json:"-"`
}

// DepenseService drives the expense workflow: draft, submission, decision,
// payment. Each transition is gated on the current status.
type DepenseService struct {
	repo      depenseRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepenseService constructs the expense service.
func NewDepenseService(repo depenseRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *DepenseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepenseService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns expenses and pagination metadata.
func (s *DepenseService) List(ctx context.Context, filter models.DepenseFilter) ([]models.Depense, *models.Pagination, error) {
	depenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list depenses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return depenses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one expense.
func (s *DepenseService) Get(ctx context.Context, id string) (*models.Depense, error) {
	depense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "depense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load depense")
	}
	return depense, nil
}

// Create drafts an expense.
func (s *DepenseService) Create(ctx context.Context, req SaveDepenseRequest) (*models.Depense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid depense payload")
	}
	if !req.Montant.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "montant must be positive")
	}
	depense := &models.Depense{
		Libelle:            req.Libelle,
		Montant:            req.Montant,
		CategorieDepenseID: req.CategorieDepenseID,
		BudgetID:           req.BudgetID,
		Statut:             models.DepenseStatutBrouillon,
		Beneficiaire:       req.Beneficiaire,
		Justificatif:       req.Justificatif,
		CreeParID:          req.ActeurID,
	}
	if req.DateDepense != nil {
		depense.DateDepense = *req.DateDepense
	}
	if err := s.repo.Create(ctx, depense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create depense")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "depense",
		EntiteID:    depense.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"libelle": depense.Libelle, "montant": depense.Montant.StringFixed(2), "statut": depense.Statut}),
		Description: "creation depense " + depense.Libelle,
	})
	return depense, nil
}

// Update edits a draft or submitted expense. Decided and paid expenses are
// immutable.
func (s *DepenseService) Update(ctx context.Context, id string, req SaveDepenseRequest) (*models.Depense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid depense payload")
	}
	if !req.Montant.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "montant must be positive")
	}
	depense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "depense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load depense")
	}
	if !depense.PeutEtreModifiee() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "depense can no longer be modified")
	}
	depense.Libelle = req.Libelle
	depense.Montant = req.Montant
	depense.CategorieDepenseID = req.CategorieDepenseID
	depense.BudgetID = req.BudgetID
	depense.Beneficiaire = req.Beneficiaire
	depense.Justificatif = req.Justificatif
	if req.DateDepense != nil {
		depense.DateDepense = *req.DateDepense
	}
	if err := s.repo.Update(ctx, depense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update depense")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "depense",
		EntiteID:    depense.ID,
		Description: "modification depense " + depense.Libelle,
	})
	return depense, nil
}

// Soumettre submits a draft for approval.
func (s *DepenseService) Soumettre(ctx context.Context, id string, acteurID *string) (*models.Depense, error) {
	depense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "depense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load depense")
	}
	if depense.Statut != models.DepenseStatutBrouillon {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only draft depenses can be submitted")
	}
	if err := s.repo.UpdateStatut(ctx, id, models.DepenseStatutEnAttente); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit depense")
	}
	depense.Statut = models.DepenseStatutEnAttente
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "depense",
		EntiteID:    id,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"statut": depense.Statut}),
		Description: "soumission depense",
	})
	return depense, nil
}

// Decider approves or rejects a submitted expense, recording the decision
// and the status flip in one transaction. The submitter cannot decide
// their own expense.
func (s *DepenseService) Decider(ctx context.Context, id string, req DeciderDepenseRequest) (*models.Depense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if req.ActeurID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an approver is required")
	}
	depense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "depense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load depense")
	}
	if depense.Statut != models.DepenseStatutEnAttente {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only submitted depenses can be decided")
	}
	if depense.CreeParID != nil && *depense.CreeParID == *req.ActeurID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submitter cannot decide their own depense")
	}

	statut := models.DepenseStatutApprouvee
	if req.Decision == models.ApprobationDecisionRejetee {
		statut = models.DepenseStatutRejetee
	}
	approbation := &models.ApprobationDepense{
		DepenseID:     id,
		ApprobateurID: *req.ActeurID,
		Decision:      req.Decision,
		Commentaire:   req.Commentaire,
	}
	if err := s.repo.Decider(ctx, approbation, statut); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide depense")
	}
	depense.Statut = statut
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "depense",
		EntiteID:    id,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"statut": statut, "decision": req.Decision}),
		Description: "decision depense " + req.Decision,
	})
	return depense, nil
}

// Payer marks an approved expense as paid and charges the tied budget in
// one transaction.
func (s *DepenseService) Payer(ctx context.Context, id string, acteurID *string) (*models.Depense, error) {
	depense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "depense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load depense")
	}
	if depense.Statut != models.DepenseStatutApprouvee {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only approved depenses can be paid")
	}
	if err := s.repo.MarquerPayee(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pay depense")
	}
	depense.Statut = models.DepenseStatutPayee
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "depense",
		EntiteID:    id,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"statut": depense.Statut}),
		Description: "paiement depense",
	})
	return depense, nil
}

// Delete removes a draft or rejected expense.
func (s *DepenseService) Delete(ctx context.Context, id string, acteurID *string) error {
	depense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "depense not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load depense")
	}
	if !depense.PeutEtreSupprimee() {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "depense can no longer be deleted")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete depense")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "depense",
		EntiteID:    id,
		Description: "suppression depense",
	})
	return nil
}

// Approbations returns the decision history of an expense.
func (s *DepenseService) Approbations(ctx context.Context, id string) ([]models.ApprobationDepense, error) {
	approbations, err := s.repo.Approbations(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approbations")
	}
	return approbations, nil
}

// ListCategories returns every expense category.
func (s *DepenseService) ListCategories(ctx context.Context) ([]models.CategorieDepense, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// CreateCategorie adds an expense category. Codes are unique.
func (s *DepenseService) CreateCategorie(ctx context.Context, req CreateCategorieRequest) (*models.CategorieDepense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid categorie payload")
	}
	if _, err := s.repo.FindCategorieByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "categorie code already used")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check categorie code")
	}
	categorie := &models.CategorieDepense{
		Code:        req.Code,
		Libelle:     req.Libelle,
		Description: req.Description,
	}
	if err := s.repo.CreateCategorie(ctx, categorie); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create categorie")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "categorie_depense",
		EntiteID:    categorie.ID,
		Description: "creation categorie " + categorie.Code,
	})
	return categorie, nil
}
