package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type budgetRepository interface {
	List(ctx context.Context, filter models.BudgetFilter) ([]models.Budget, int, error)
	FindByID(ctx context.Context, id string) (*models.Budget, error)
	FindByCategorie(ctx context.Context, categorieID, anneeScolaireID string) (*models.Budget, error)
	Create(ctx context.Context, budget *models.Budget) error
	Update(ctx context.Context, budget *models.Budget) error
	SoftDelete(ctx context.Context, id string) error
}

// SaveBudgetRequest holds the payload for opening or editing an envelope.
type SaveBudgetRequest struct {
	Libelle            string          `json:"libelle" validate:"required"`
	AnneeScolaireID    string          `json:"annee_scolaire_id" validate:"required,uuid4"`
	CategorieDepenseID *string         `json:"categorie_depense_id" validate:"omitempty,uuid4"`
	MontantAlloue      decimal.Decimal `json:"montant_alloue" validate:"required"`
	ActeurID           *string         `json:"-"`
}

// BudgetService manages spending envelopes. Spending totals are maintained
// by the expense payment transactions, never recomputed here.
type BudgetService struct {
	repo      budgetRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBudgetService constructs the budget service.
func NewBudgetService(repo budgetRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *BudgetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BudgetService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns envelopes and pagination metadata.
func (s *BudgetService) List(ctx context.Context, filter models.BudgetFilter) ([]models.Budget, *models.Pagination, error) {
	budgets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list budgets")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return budgets, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one envelope.
func (s *BudgetService) Get(ctx context.Context, id string) (*models.Budget, error) {
	budget, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "budget not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load budget")
	}
	return budget, nil
}

// Create opens an envelope. One envelope per category and school year.
func (s *BudgetService) Create(ctx context.Context, req SaveBudgetRequest) (*models.Budget, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid budget payload")
	}
	if !req.MontantAlloue.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "montant alloue must be positive")
	}
	if req.CategorieDepenseID != nil {
		if _, err := s.repo.FindByCategorie(ctx, *req.CategorieDepenseID, req.AnneeScolaireID); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a budget already exists for this categorie and annee")
		} else if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing budget")
		}
	}
	budget := &models.Budget{
		Libelle:            req.Libelle,
		AnneeScolaireID:    req.AnneeScolaireID,
		CategorieDepenseID: req.CategorieDepenseID,
		MontantAlloue:      req.MontantAlloue,
		MontantDepense:     decimal.Zero,
	}
	if err := s.repo.Create(ctx, budget); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create budget")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "budget",
		EntiteID:    budget.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"libelle": budget.Libelle, "montant_alloue": budget.MontantAlloue.StringFixed(2)}),
		Description: "creation budget " + budget.Libelle,
	})
	return budget, nil
}

// Update edits an envelope. The allocation cannot drop below what is
// already spent.
func (s *BudgetService) Update(ctx context.Context, id string, req SaveBudgetRequest) (*models.Budget, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid budget payload")
	}
	budget, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "budget not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load budget")
	}
	if req.MontantAlloue.LessThan(budget.MontantDepense) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "allocation below current spending")
	}
	budget.Libelle = req.Libelle
	budget.CategorieDepenseID = req.CategorieDepenseID
	budget.MontantAlloue = req.MontantAlloue
	if err := s.repo.Update(ctx, budget); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update budget")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "budget",
		EntiteID:    budget.ID,
		Description: "modification budget " + budget.Libelle,
	})
	return budget, nil
}

// Delete removes an envelope with no recorded spending.
func (s *BudgetService) Delete(ctx context.Context, id string, acteurID *string) error {
	budget, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "budget not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load budget")
	}
	if budget.MontantDepense.IsPositive() {
		return appErrors.Clone(appErrors.ErrConflict, "budget has recorded spending")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete budget")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "budget",
		EntiteID:    id,
		Description: "suppression budget",
	})
	return nil
}
