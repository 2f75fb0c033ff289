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

type professeurRepository interface {
	List(ctx context.Context, filter models.ProfesseurFilter) ([]models.Professeur, int, error)
	FindByID(ctx context.Context, id string) (*models.Professeur, error)
	Create(ctx context.Context, professeur *models.Professeur) error
	Update(ctx context.Context, professeur *models.Professeur) error
	SoftDelete(ctx context.Context, id string) error
}

// CreateProfesseurRequest holds the payload for hiring a teacher.
type CreateProfesseurRequest struct {
	Nom          string    `json:"nom" validate:"required"`
	Prenom       string    `json:"prenom" validate:"required"`
	Sexe         string    `json:"sexe" validate:"required,oneof=M F"`
	Email        *string   `json:"email" validate:"omitempty,email"`
	Telephone    *string   `json:"telephone"`
	Specialite   string    `json:"specialite" validate:"required"`
	Diplome      *string   `json:"diplome"`
	DateEmbauche time.Time `json:"date_embauche" validate:"required"`
	ActeurID     *string   `json:"-"`
}

// UpdateProfesseurRequest holds the payload for editing a teacher.
type UpdateProfesseurRequest struct {
	Nom        string  `json:"nom" validate:"required"`
	Prenom     string  `json:"prenom" validate:"required"`
	Sexe       string  `json:"sexe" validate:"required,oneof=M F"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Telephone  *string `json:"telephone"`
	Specialite string  `json:"specialite" validate:"required"`
	Diplome    *string `json:"diplome"`
	Statut     string  `json:"statut" validate:"omitempty,oneof=actif suspendu demission"`
	ActeurID   *string `json:"-"`
}

// ProfesseurService handles teacher use-cases.
type ProfesseurService struct {
	repo      professeurRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfesseurService constructs the teacher service.
func NewProfesseurService(repo professeurRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *ProfesseurService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfesseurService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns teachers and pagination metadata.
func (s *ProfesseurService) List(ctx context.Context, filter models.ProfesseurFilter) ([]models.Professeur, *models.Pagination, error) {
	professeurs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professeurs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return professeurs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one teacher.
func (s *ProfesseurService) Get(ctx context.Context, id string) (*models.Professeur, error) {
	professeur, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professeur not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professeur")
	}
	return professeur, nil
}

// Create hires a teacher. The matricule is assigned by the repository.
func (s *ProfesseurService) Create(ctx context.Context, req CreateProfesseurRequest) (*models.Professeur, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professeur payload")
	}
	professeur := &models.Professeur{
		Nom:          req.Nom,
		Prenom:       req.Prenom,
		Sexe:         req.Sexe,
		Email:        req.Email,
		Telephone:    req.Telephone,
		Specialite:   req.Specialite,
		Diplome:      req.Diplome,
		DateEmbauche: req.DateEmbauche,
		Statut:       models.ProfesseurStatutActif,
	}
	if err := s.repo.Create(ctx, professeur); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create professeur")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "professeur",
		EntiteID:    professeur.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"matricule": professeur.Matricule, "nom": professeur.NomComplet(), "specialite": professeur.Specialite}),
		Description: "embauche professeur " + professeur.Matricule,
	})
	return professeur, nil
}

// Update edits a teacher's record.
func (s *ProfesseurService) Update(ctx context.Context, id string, req UpdateProfesseurRequest) (*models.Professeur, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professeur payload")
	}
	professeur, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professeur not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professeur")
	}
	avant := models.RedigerSnapshot(map[string]interface{}{"nom": professeur.NomComplet(), "statut": professeur.Statut})

	professeur.Nom = req.Nom
	professeur.Prenom = req.Prenom
	professeur.Sexe = req.Sexe
	professeur.Email = req.Email
	professeur.Telephone = req.Telephone
	professeur.Specialite = req.Specialite
	professeur.Diplome = req.Diplome
	if req.Statut != "" {
		professeur.Statut = req.Statut
	}
	if err := s.repo.Update(ctx, professeur); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update professeur")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "professeur",
		EntiteID:    professeur.ID,
		Avant:       avant,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"nom": professeur.NomComplet(), "statut": professeur.Statut}),
		Description: "modification professeur " + professeur.Matricule,
	})
	return professeur, nil
}

// Delete soft-deletes a teacher. Payroll history stays resolvable.
func (s *ProfesseurService) Delete(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "professeur not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete professeur")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "professeur",
		EntiteID:    id,
		Description: "suppression professeur",
	})
	return nil
}
