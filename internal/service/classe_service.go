package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type classeRepository interface {
	List(ctx context.Context, filter models.ClasseFilter) ([]models.Classe, int, error)
	FindByID(ctx context.Context, id string) (*models.Classe, error)
	Create(ctx context.Context, classe *models.Classe) error
	Update(ctx context.Context, classe *models.Classe) error
	SoftDelete(ctx context.Context, id string) error
}

// CreateClasseRequest holds the payload for opening a class.
type CreateClasseRequest struct {
	Nom             string  `json:"nom" validate:"required"`
	Niveau          string  `json:"niveau" validate:"required"`
	Section         *string `json:"section"`
	Capacite        int     `json:"capacite" validate:"gte=0"`
	AnneeScolaireID string  `json:"annee_scolaire_id" validate:"required,uuid4"`
	TitulaireID     *string `json:"titulaire_id" validate:"omitempty,uuid4"`
	ActeurID        *string `json:"-"`
}

// UpdateClasseRequest holds the payload for editing a class.
type UpdateClasseRequest struct {
	Nom         string  `json:"nom" validate:"required"`
	Niveau      string  `json:"niveau" validate:"required"`
	Section     *string `json:"section"`
	Capacite    int     `json:"capacite" validate:"gte=0"`
	TitulaireID *string `json:"titulaire_id" validate:"omitempty,uuid4"`
	ActeurID    *string `json:"-"`
}

// ClasseService handles class use-cases.
type ClasseService struct {
	repo      classeRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClasseService constructs the class service.
func NewClasseService(repo classeRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *ClasseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClasseService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns classes and pagination metadata.
func (s *ClasseService) List(ctx context.Context, filter models.ClasseFilter) ([]models.Classe, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one class.
func (s *ClasseService) Get(ctx context.Context, id string) (*models.Classe, error) {
	classe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classe not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classe")
	}
	return classe, nil
}

// Create opens a class for a school year.
func (s *ClasseService) Create(ctx context.Context, req CreateClasseRequest) (*models.Classe, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classe payload")
	}
	classe := &models.Classe{
		Nom:             req.Nom,
		Niveau:          req.Niveau,
		Section:         req.Section,
		Capacite:        req.Capacite,
		AnneeScolaireID: req.AnneeScolaireID,
		TitulaireID:     req.TitulaireID,
	}
	if err := s.repo.Create(ctx, classe); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classe")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "classe",
		EntiteID:    classe.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"nom": classe.Nom, "niveau": classe.Niveau, "capacite": classe.Capacite}),
		Description: "creation classe " + classe.Nom,
	})
	return classe, nil
}

// Update edits a class. A capacity below the current headcount is refused.
func (s *ClasseService) Update(ctx context.Context, id string, req UpdateClasseRequest) (*models.Classe, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classe payload")
	}
	classe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classe not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classe")
	}
	if req.Capacite > 0 && req.Capacite < classe.NombreEleves {
		return nil, appErrors.Clone(appErrors.ErrConflict, "capacity below current headcount")
	}
	classe.Nom = req.Nom
	classe.Niveau = req.Niveau
	classe.Section = req.Section
	classe.Capacite = req.Capacite
	classe.TitulaireID = req.TitulaireID
	if err := s.repo.Update(ctx, classe); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classe")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "classe",
		EntiteID:    classe.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"nom": classe.Nom, "capacite": classe.Capacite}),
		Description: "modification classe " + classe.Nom,
	})
	return classe, nil
}

// Delete removes an empty class. Classes with enrolled students are
// refused.
func (s *ClasseService) Delete(ctx context.Context, id string, acteurID *string) error {
	classe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "classe not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classe")
	}
	if classe.NombreEleves > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "classe still has enrolled students")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classe")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "classe",
		EntiteID:    id,
		Description: "suppression classe " + classe.Nom,
	})
	return nil
}
