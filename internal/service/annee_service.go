package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type anneeRepository interface {
	List(ctx context.Context) ([]models.AnneeScolaire, error)
	FindByID(ctx context.Context, id string) (*models.AnneeScolaire, error)
	FindActive(ctx context.Context) (*models.AnneeScolaire, error)
	Create(ctx context.Context, annee *models.AnneeScolaire) error
	Update(ctx context.Context, annee *models.AnneeScolaire) error
	SetActive(ctx context.Context, id string) error
	ListTrimestres(ctx context.Context, filter models.TrimestreFilter) ([]models.Trimestre, error)
	FindTrimestre(ctx context.Context, id string) (*models.Trimestre, error)
	CreateTrimestre(ctx context.Context, trimestre *models.Trimestre) error
	SetTrimestreActif(ctx context.Context, id string) error
}

// SaveAnneeRequest holds the payload for creating or editing a school year.
type SaveAnneeRequest struct {
	Libelle   string    `json:"libelle" validate:"required"`
	DateDebut time.Time `json:"date_debut" validate:"required"`
	DateFin   time.Time `json:"date_fin" validate:"required,gtfield=DateDebut"`
	ActeurID  *string   `json:"-"`
}

// CreateTrimestreRequest holds the payload for adding a term to a year.
type CreateTrimestreRequest struct {
	AnneeScolaireID string    `json:"annee_scolaire_id" validate:"required,uuid4"`
	Numero          int       `json:"numero" validate:"required,gte=1,lte=3"`
	Libelle         string    `json:"libelle" validate:"required"`
	DateDebut       time.Time `json:"date_debut" validate:"required"`
	DateFin         time.Time `json:"date_fin" validate:"required,gtfield=DateDebut"`
	ActeurID        *string   `json:"-"`
}

// AnneeService manages school years and their terms.
type AnneeService struct {
	repo      anneeRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnneeService constructs the school year service.
func NewAnneeService(repo anneeRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *AnneeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnneeService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns every school year.
func (s *AnneeService) List(ctx context.Context) ([]models.AnneeScolaire, error) {
	annees, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list annees")
	}
	return annees, nil
}

// Get returns one school year.
func (s *AnneeService) Get(ctx context.Context, id string) (*models.AnneeScolaire, error) {
	annee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "annee scolaire not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load annee")
	}
	return annee, nil
}

// GetActive returns the currently active school year.
func (s *AnneeService) GetActive(ctx context.Context) (*models.AnneeScolaire, error) {
	annee, err := s.repo.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active annee scolaire")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active annee")
	}
	return annee, nil
}

// Create registers a school year, inactive until activated.
func (s *AnneeService) Create(ctx context.Context, req SaveAnneeRequest) (*models.AnneeScolaire, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid annee payload")
	}
	annee := &models.AnneeScolaire{
		Libelle:   req.Libelle,
		DateDebut: req.DateDebut,
		DateFin:   req.DateFin,
	}
	if err := s.repo.Create(ctx, annee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create annee")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "annee_scolaire",
		EntiteID:    annee.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"libelle": annee.Libelle}),
		Description: "creation annee scolaire " + annee.Libelle,
	})
	return annee, nil
}

// Update edits a school year's dates and label.
func (s *AnneeService) Update(ctx context.Context, id string, req SaveAnneeRequest) (*models.AnneeScolaire, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid annee payload")
	}
	annee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "annee scolaire not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load annee")
	}
	annee.Libelle = req.Libelle
	annee.DateDebut = req.DateDebut
	annee.DateFin = req.DateFin
	if err := s.repo.Update(ctx, annee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update annee")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "annee_scolaire",
		EntiteID:    annee.ID,
		Description: "modification annee scolaire " + annee.Libelle,
	})
	return annee, nil
}

// Activate makes a year the active one, deactivating the others
// atomically.
func (s *AnneeService) Activate(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SetActive(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "annee scolaire not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate annee")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "annee_scolaire",
		EntiteID:    id,
		Description: "activation annee scolaire",
	})
	return nil
}

// ListTrimestres returns terms matching the filter.
func (s *AnneeService) ListTrimestres(ctx context.Context, filter models.TrimestreFilter) ([]models.Trimestre, error) {
	trimestres, err := s.repo.ListTrimestres(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trimestres")
	}
	return trimestres, nil
}

// CreateTrimestre adds a term to a school year. Term dates must sit inside
// the year.
func (s *AnneeService) CreateTrimestre(ctx context.Context, req CreateTrimestreRequest) (*models.Trimestre, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid trimestre payload")
	}
	annee, err := s.repo.FindByID(ctx, req.AnneeScolaireID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "annee scolaire not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load annee")
	}
	if req.DateDebut.Before(annee.DateDebut) || req.DateFin.After(annee.DateFin) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "trimestre dates outside annee scolaire")
	}
	trimestre := &models.Trimestre{
		AnneeScolaireID: req.AnneeScolaireID,
		Numero:          req.Numero,
		Libelle:         req.Libelle,
		DateDebut:       req.DateDebut,
		DateFin:         req.DateFin,
	}
	if err := s.repo.CreateTrimestre(ctx, trimestre); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create trimestre")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "trimestre",
		EntiteID:    trimestre.ID,
		Description: "creation trimestre " + trimestre.Libelle,
	})
	return trimestre, nil
}

// ActivateTrimestre makes a term the active one within its year.
func (s *AnneeService) ActivateTrimestre(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SetTrimestreActif(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "trimestre not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate trimestre")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "trimestre",
		EntiteID:    id,
		Description: "activation trimestre",
	})
	return nil
}
