package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type noteRepository interface {
	List(ctx context.Context, filter models.NoteFilter) ([]models.NoteDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Note, error)
	Create(ctx context.Context, note *models.Note) error
	Update(ctx context.Context, note *models.Note) error
	SoftDelete(ctx context.Context, id string) error
	MoyenneEleve(ctx context.Context, eleveID, matiereID, trimestreID string) (*float64, error)
}

type noteEvaluationReader interface {
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
}

type noteMatiereReader interface {
	FindByID(ctx context.Context, id string) (*models.Matiere, error)
}

// CreateNoteRequest holds the payload for entering a grade.
type CreateNoteRequest struct {
	EleveID      string   `json:"eleve_id" validate:"required,uuid4"`
	EvaluationID string   `json:"evaluation_id" validate:"required,uuid4"`
	Valeur       float64  `json:"valeur" validate:"gte=0"`
	Coefficient  *float64 `json:"coefficient" validate:"omitempty,gt=0"`
	ActeurID     *string  `json:"-"`
}

// UpdateNoteRequest holds the payload for correcting a grade.
type UpdateNoteRequest struct {
	Valeur      float64  `json:"valeur" validate:"gte=0"`
	Coefficient *float64 `json:"coefficient" validate:"omitempty,gt=0"`
	Commentaire string   `json:"commentaire"`
	ActeurID    *string  `json:"-"`
}

// ExcludeNoteRequest removes a grade from average computation.
type ExcludeNoteRequest struct {
	Motif    string  `json:"motif" validate:"required"`
	ActeurID *string `json:"-"`
}

// RattrapageRequest enters a makeup grade superseding an earlier one.
type RattrapageRequest struct {
	Valeur   float64 `json:"valeur" validate:"gte=0"`
	ActeurID *string `json:"-"`
}

// NoteService handles grade entry and lifecycle. Derived fields are
// recomputed on every write; corrections append to the grade's embedded
// modification history.
type NoteService struct {
	repo        noteRepository
	evaluations noteEvaluationReader
	matieres    noteMatiereReader
	journal     journalRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewNoteService constructs the grade service.
func NewNoteService(repo noteRepository, evaluations noteEvaluationReader, matieres noteMatiereReader, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{repo: repo, evaluations: evaluations, matieres: matieres, journal: journal, validator: validate, logger: logger}
}

// List returns grades and pagination metadata.
func (s *NoteService) List(ctx context.Context, filter models.NoteFilter) ([]models.NoteDetail, *models.Pagination, error) {
	notes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return notes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one grade.
func (s *NoteService) Get(ctx context.Context, id string) (*models.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	return note, nil
}

// Create enters a grade. Scale and default coefficient are captured from
// the assessment and subject at entry time, so later referential edits do
// not rewrite the grade.
func (s *NoteService) Create(ctx context.Context, req CreateNoteRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	evaluation, err := s.evaluations.FindByID(ctx, req.EvaluationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	if req.Valeur > evaluation.Bareme {
		return nil, appErrors.Clone(appErrors.ErrValidation, "valeur exceeds evaluation bareme")
	}
	coefficient := evaluation.Coefficient
	if req.Coefficient != nil {
		coefficient = *req.Coefficient
	} else if matiere, merr := s.matieres.FindByID(ctx, evaluation.MatiereID); merr == nil && matiere.Coefficient > 0 {
		coefficient = matiere.Coefficient
	}
	note := &models.Note{
		EleveID:      req.EleveID,
		MatiereID:    evaluation.MatiereID,
		EvaluationID: req.EvaluationID,
		Valeur:       req.Valeur,
		NoteSur:      evaluation.Bareme,
		Coefficient:  coefficient,
	}
	note.CalculerDerives()
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "note",
		EntiteID:    note.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"eleve_id": note.EleveID, "valeur": note.Valeur, "note_sur_20": note.NoteSur20}),
		Description: "saisie note",
	})
	return note, nil
}

// Update corrects a grade. Published grades are immutable; validated
// grades lose their validation on change. Value and coefficient changes
// append to the modification history.
func (s *NoteService) Update(ctx context.Context, id string, req UpdateNoteRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if note.EstPubliee {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "published note cannot be modified")
	}
	if req.Valeur > note.NoteSur {
		return nil, appErrors.Clone(appErrors.ErrValidation, "valeur exceeds note scale")
	}

	if req.Valeur != note.Valeur {
		note.HistoriqueModifications = note.HistoriqueModifications.Append("valeur",
			strconv.FormatFloat(note.Valeur, 'f', -1, 64),
			strconv.FormatFloat(req.Valeur, 'f', -1, 64),
			req.ActeurID, req.Commentaire)
		note.Valeur = req.Valeur
	}
	if req.Coefficient != nil && *req.Coefficient != note.Coefficient {
		note.HistoriqueModifications = note.HistoriqueModifications.Append("coefficient",
			strconv.FormatFloat(note.Coefficient, 'f', -1, 64),
			strconv.FormatFloat(*req.Coefficient, 'f', -1, 64),
			req.ActeurID, req.Commentaire)
		note.Coefficient = *req.Coefficient
	}
	note.CalculerDerives()
	note.EstValidee = false
	note.ValideeParID = nil
	note.ValideeLe = nil

	if err := s.repo.Update(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "note",
		EntiteID:    note.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"valeur": note.Valeur, "note_sur_20": note.NoteSur20}),
		Description: "correction note",
	})
	return note, nil
}

// Valider marks a grade as reviewed.
func (s *NoteService) Valider(ctx context.Context, id string, acteurID *string) (*models.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if note.EstValidee {
		return note, nil
	}
	now := time.Now().UTC()
	note.EstValidee = true
	note.ValideeParID = acteurID
	note.ValideeLe = &now
	if err := s.repo.Update(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate note")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "note",
		EntiteID:    note.ID,
		Description: "validation note",
	})
	return note, nil
}

// Publier makes a validated grade visible. Unvalidated grades are
// refused.
func (s *NoteService) Publier(ctx context.Context, id string, acteurID *string) (*models.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if !note.EstValidee {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "note must be validated before publication")
	}
	if note.EstPubliee {
		return note, nil
	}
	note.EstPubliee = true
	if err := s.repo.Update(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish note")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "note",
		EntiteID:    note.ID,
		Description: "publication note",
	})
	return note, nil
}

// Exclure removes a grade from average computation with a reason.
func (s *NoteService) Exclure(ctx context.Context, id string, req ExcludeNoteRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exclusion payload")
	}
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	note.ExclueMoyenne = true
	note.MotifExclusion = &req.Motif
	if err := s.repo.Update(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to exclude note")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "note",
		EntiteID:    note.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"exclue_moyenne": true, "motif": req.Motif}),
		Description: "exclusion note de la moyenne",
	})
	return note, nil
}

// Reintegrer puts an excluded grade back into average computation.
func (s *NoteService) Reintegrer(ctx context.Context, id string, acteurID *string) (*models.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	note.ExclueMoyenne = false
	note.MotifExclusion = nil
	if err := s.repo.Update(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reinstate note")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "note",
		EntiteID:    note.ID,
		Description: "reintegration note dans la moyenne",
	})
	return note, nil
}

// Rattrapage enters a makeup grade for an existing one. The original keeps
// its value but stops counting in averages; the makeup references it.
func (s *NoteService) Rattrapage(ctx context.Context, noteID string, req RattrapageRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rattrapage payload")
	}
	original, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if original.EstRattrapage() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "a makeup grade cannot itself be retaken")
	}
	if req.Valeur > original.NoteSur {
		return nil, appErrors.Clone(appErrors.ErrValidation, "valeur exceeds note scale")
	}
	rattrapage := &models.Note{
		EleveID:         original.EleveID,
		MatiereID:       original.MatiereID,
		EvaluationID:    original.EvaluationID,
		Valeur:          req.Valeur,
		NoteSur:         original.NoteSur,
		Coefficient:     original.Coefficient,
		NoteRattrapeeID: &original.ID,
	}
	rattrapage.CalculerDerives()
	if err := s.repo.Create(ctx, rattrapage); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rattrapage")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "note",
		EntiteID:    rattrapage.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"note_rattrapee_id": original.ID, "valeur": rattrapage.Valeur}),
		Description: "saisie rattrapage",
	})
	return rattrapage, nil
}

// Delete soft-deletes a grade.
func (s *NoteService) Delete(ctx context.Context, id string, acteurID *string) error {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if note.EstPubliee {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "published note cannot be deleted")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "note",
		EntiteID:    id,
		Description: "suppression note",
	})
	return nil
}

// MoyenneEleve returns a student's average in a subject for a term,
// excluding superseded and excluded grades. Nil when no grade counts.
func (s *NoteService) MoyenneEleve(ctx context.Context, eleveID, matiereID, trimestreID string) (*float64, error) {
	moyenne, err := s.repo.MoyenneEleve(ctx, eleveID, matiereID, trimestreID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute moyenne")
	}
	if moyenne != nil {
		rounded := models.Round2(*moyenne)
		return &rounded, nil
	}
	return nil, nil
}
