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

type fraisRepository interface {
	ListByAnnee(ctx context.Context, anneeScolaireID string) ([]models.ConfigurationFrais, error)
	FindByID(ctx context.Context, id string) (*models.ConfigurationFrais, error)
	FindByClasse(ctx context.Context, classeID, anneeScolaireID string) (*models.ConfigurationFrais, error)
	Create(ctx context.Context, config *models.ConfigurationFrais) error
	Update(ctx context.Context, config *models.ConfigurationFrais) error
	SoftDelete(ctx context.Context, id string) error
}

// TrancheRequest is one installment of a fee plan submission.
type TrancheRequest struct {
	Libelle    string          `json:"libelle" validate:"required"`
	Montant    decimal.Decimal `json:"montant" validate:"required"`
	DateLimite time.Time       `json:"date_limite" validate:"required"`
}

// SaveFraisRequest holds the payload for a fee plan. Installment amounts
// must sum to the plan total.
type SaveFraisRequest struct {
	ClasseID        string           `json:"classe_id" validate:"required,uuid4"`
	AnneeScolaireID string           `json:"annee_scolaire_id" validate:"required,uuid4"`
	Libelle         string           `json:"libelle" validate:"required"`
	MontantTotal    decimal.Decimal  `json:"montant_total" validate:"required"`
	Tranches        []TrancheRequest `json:"tranches" validate:"required,min=1,dive"`
	ActeurID        *string          `json:"-"`
}

// FraisService manages class fee plans and their installments.
type FraisService struct {
	repo      fraisRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFraisService constructs the fee plan service.
func NewFraisService(repo fraisRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *FraisService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FraisService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// ListByAnnee returns the fee plans of a school year.
func (s *FraisService) ListByAnnee(ctx context.Context, anneeScolaireID string) ([]models.ConfigurationFrais, error) {
	configs, err := s.repo.ListByAnnee(ctx, anneeScolaireID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations frais")
	}
	return configs, nil
}

// Get returns one fee plan with its installments.
func (s *FraisService) Get(ctx context.Context, id string) (*models.ConfigurationFrais, error) {
	config, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration frais not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration frais")
	}
	return config, nil
}

// GetByClasse returns the fee plan of a class for a school year.
func (s *FraisService) GetByClasse(ctx context.Context, classeID, anneeScolaireID string) (*models.ConfigurationFrais, error) {
	config, err := s.repo.FindByClasse(ctx, classeID, anneeScolaireID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no fee plan for this classe")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration frais")
	}
	return config, nil
}

// Create registers a fee plan for a class. One plan per class and year;
// installments must sum to the total.
func (s *FraisService) Create(ctx context.Context, req SaveFraisRequest) (*models.ConfigurationFrais, error) {
	if err := s.validateFrais(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByClasse(ctx, req.ClasseID, req.AnneeScolaireID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "classe already has a fee plan for this annee")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing fee plan")
	}
	config := s.buildConfig(req)
	if err := s.repo.Create(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create configuration frais")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "configuration_frais",
		EntiteID:    config.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"classe_id": config.ClasseID, "montant_total": config.MontantTotal.StringFixed(2), "tranches": len(config.Tranches)}),
		Description: "creation plan de frais " + config.Libelle,
	})
	return config, nil
}

// Update rewrites a fee plan and its installments atomically.
func (s *FraisService) Update(ctx context.Context, id string, req SaveFraisRequest) (*models.ConfigurationFrais, error) {
	if err := s.validateFrais(req); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration frais not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration frais")
	}
	config := s.buildConfig(req)
	config.ID = existing.ID
	config.Ref = existing.Ref
	if err := s.repo.Update(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configuration frais")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "configuration_frais",
		EntiteID:    config.ID,
		Description: "modification plan de frais " + config.Libelle,
	})
	return config, nil
}

// Delete removes a fee plan.
func (s *FraisService) Delete(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "configuration frais not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete configuration frais")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "configuration_frais",
		EntiteID:    id,
		Description: "suppression plan de frais",
	})
	return nil
}

func (s *FraisService) validateFrais(req SaveFraisRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee plan payload")
	}
	if !req.MontantTotal.IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation, "montant total must be positive")
	}
	somme := decimal.Zero
	for _, t := range req.Tranches {
		if !t.Montant.IsPositive() {
			return appErrors.Clone(appErrors.ErrValidation, "tranche montant must be positive")
		}
		somme = somme.Add(t.Montant)
	}
	if !somme.Equal(req.MontantTotal) {
		return appErrors.Clone(appErrors.ErrValidation, "tranche amounts must sum to montant total")
	}
	return nil
}

func (s *FraisService) buildConfig(req SaveFraisRequest) *models.ConfigurationFrais {
	config := &models.ConfigurationFrais{
		ClasseID:        req.ClasseID,
		AnneeScolaireID: req.AnneeScolaireID,
		Libelle:         req.Libelle,
		MontantTotal:    req.MontantTotal,
	}
	for _, t := range req.Tranches {
		config.Tranches = append(config.Tranches, models.Tranche{
			Libelle:    t.Libelle,
			Montant:    t.Montant,
			DateLimite: t.DateLimite,
		})
	}
	return config
}
