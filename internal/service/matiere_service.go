package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type matiereRepository interface {
	List(ctx context.Context, filter models.MatiereFilter) ([]models.Matiere, int, error)
	FindByID(ctx context.Context, id string) (*models.Matiere, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, matiere *models.Matiere) error
	Update(ctx context.Context, matiere *models.Matiere) error
	SoftDelete(ctx context.Context, id string) error
}

// SaveMatiereRequest holds the payload for creating or editing a subject.
type SaveMatiereRequest struct {
	Code        string  `json:"code" validate:"required"`
	Libelle     string  `json:"libelle" validate:"required"`
	Coefficient float64 `json:"coefficient" validate:"required,gt=0"`
	Description *string `json:"description"`
	ActeurID    *string `json:"-"`
}

// MatiereService handles subject use-cases.
type MatiereService struct {
	repo      matiereRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMatiereService constructs the subject service.
func NewMatiereService(repo matiereRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *MatiereService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatiereService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns subjects and pagination metadata.
func (s *MatiereService) List(ctx context.Context, filter models.MatiereFilter) ([]models.Matiere, *models.Pagination, error) {
	matieres, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list matieres")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return matieres, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one subject.
func (s *MatiereService) Get(ctx context.Context, id string) (*models.Matiere, error) {
	matiere, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "matiere not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matiere")
	}
	return matiere, nil
}

// Create registers a subject. Codes are unique among live subjects.
func (s *MatiereService) Create(ctx context.Context, req SaveMatiereRequest) (*models.Matiere, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid matiere payload")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check matiere code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "matiere code already used")
	}
	matiere := &models.Matiere{
		Code:        req.Code,
		Libelle:     req.Libelle,
		Coefficient: req.Coefficient,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, matiere); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create matiere")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "matiere",
		EntiteID:    matiere.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"code": matiere.Code, "coefficient": matiere.Coefficient}),
		Description: "creation matiere " + matiere.Code,
	})
	return matiere, nil
}

// Update edits a subject. Changing the coefficient does not rewrite
// existing grades; they keep the coefficient captured at entry time.
func (s *MatiereService) Update(ctx context.Context, id string, req SaveMatiereRequest) (*models.Matiere, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid matiere payload")
	}
	matiere, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "matiere not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matiere")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check matiere code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "matiere code already used")
	}
	matiere.Code = req.Code
	matiere.Libelle = req.Libelle
	matiere.Coefficient = req.Coefficient
	matiere.Description = req.Description
	if err := s.repo.Update(ctx, matiere); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update matiere")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "matiere",
		EntiteID:    matiere.ID,
		Description: "modification matiere " + matiere.Code,
	})
	return matiere, nil
}

// Delete soft-deletes a subject.
func (s *MatiereService) Delete(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "matiere not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete matiere")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "matiere",
		EntiteID:    id,
		Description: "suppression matiere",
	})
	return nil
}
