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

type evaluationRepository interface {
	List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error)
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	Update(ctx context.Context, evaluation *models.Evaluation) error
	SoftDelete(ctx context.Context, id string) error
}

// SaveEvaluationRequest holds the payload for scheduling or editing an
// assessment.
type SaveEvaluationRequest struct {
	Libelle      string    `json:"libelle" validate:"required"`
	Type         string    `json:"type" validate:"required,oneof=devoir composition interrogation"`
	ClasseID     string    `json:"classe_id" validate:"required,uuid4"`
	MatiereID    string    `json:"matiere_id" validate:"required,uuid4"`
	TrimestreID  string    `json:"trimestre_id" validate:"required,uuid4"`
	ProfesseurID string    `json:"professeur_id" validate:"required,uuid4"`
	Date         time.Time `json:"date" validate:"required"`
	Bareme       float64   `json:"bareme" validate:"required,gt=0"`
	Coefficient  float64   `json:"coefficient" validate:"required,gt=0"`
	Statut       string    `json:"statut" validate:"omitempty,oneof=programmee en_cours terminee"`
	ActeurID     *string   `json:"-"`
}

// EvaluationService handles assessment use-cases.
type EvaluationService struct {
	repo      evaluationRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEvaluationService constructs the assessment service.
func NewEvaluationService(repo evaluationRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns assessments and pagination metadata.
func (s *EvaluationService) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, *models.Pagination, error) {
	evaluations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return evaluations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one assessment.
func (s *EvaluationService) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	evaluation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	return evaluation, nil
}

// Create schedules an assessment.
func (s *EvaluationService) Create(ctx context.Context, req SaveEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	statut := req.Statut
	if statut == "" {
		statut = models.EvaluationStatutProgrammee
	}
	evaluation := &models.Evaluation{
		Libelle:      req.Libelle,
		Type:         req.Type,
		ClasseID:     req.ClasseID,
		MatiereID:    req.MatiereID,
		TrimestreID:  req.TrimestreID,
		ProfesseurID: req.ProfesseurID,
		Date:         req.Date,
		Bareme:       req.Bareme,
		Coefficient:  req.Coefficient,
		Statut:       statut,
	}
	if err := s.repo.Create(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "evaluation",
		EntiteID:    evaluation.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"libelle": evaluation.Libelle, "type": evaluation.Type, "bareme": evaluation.Bareme}),
		Description: "creation evaluation " + evaluation.Libelle,
	})
	return evaluation, nil
}

// Update edits an assessment. Changing the scale after grades exist does
// not rewrite them; grades keep the scale captured at entry time.
func (s *EvaluationService) Update(ctx context.Context, id string, req SaveEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	evaluation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	evaluation.Libelle = req.Libelle
	evaluation.Type = req.Type
	evaluation.ClasseID = req.ClasseID
	evaluation.MatiereID = req.MatiereID
	evaluation.TrimestreID = req.TrimestreID
	evaluation.ProfesseurID = req.ProfesseurID
	evaluation.Date = req.Date
	evaluation.Bareme = req.Bareme
	evaluation.Coefficient = req.Coefficient
	if req.Statut != "" {
		evaluation.Statut = req.Statut
	}
	if err := s.repo.Update(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update evaluation")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "evaluation",
		EntiteID:    evaluation.ID,
		Description: "modification evaluation " + evaluation.Libelle,
	})
	return evaluation, nil
}

// Delete soft-deletes an assessment.
func (s *EvaluationService) Delete(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evaluation")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "evaluation",
		EntiteID:    id,
		Description: "suppression evaluation",
	})
	return nil
}
