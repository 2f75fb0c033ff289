package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type presenceRepository interface {
	ListByClasseDate(ctx context.Context, classeID string, date time.Time) ([]models.Presence, error)
	BulkUpsert(ctx context.Context, presences []models.Presence) error
}

// PresenceLigne is one student row of a roll-call submission.
type PresenceLigne struct {
	EleveID     string  `json:"eleve_id" validate:"required,uuid4"`
	Statut      string  `json:"statut" validate:"required,oneof=present absent retard"`
	Commentaire *string `json:"commentaire"`
}

// FeuillePresenceRequest is a full roll-call sheet for a class on a date.
// Re-submitting the same sheet overwrites the previous rows.
type FeuillePresenceRequest struct {
	ClasseID     string          `json:"classe_id" validate:"required,uuid4"`
	ProfesseurID string          `json:"professeur_id" validate:"required,uuid4"`
	MatiereID    *string         `json:"matiere_id" validate:"omitempty,uuid4"`
	Date         time.Time       `json:"date" validate:"required"`
	Lignes       []PresenceLigne `json:"lignes" validate:"required,min=1,dive"`
	ActeurID     *string         `json:"-"`
}

// PresenceService handles daily roll-call sheets.
type PresenceService struct {
	repo      presenceRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPresenceService constructs the roll-call service.
func NewPresenceService(repo presenceRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *PresenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// Feuille returns the roll-call rows of a class for a date.
func (s *PresenceService) Feuille(ctx context.Context, classeID string, date time.Time) ([]models.Presence, error) {
	presences, err := s.repo.ListByClasseDate(ctx, classeID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load presence sheet")
	}
	return presences, nil
}

// Enregistrer stores a roll-call sheet. Rows for students already marked
// on that date are overwritten, so correcting a sheet is a re-submission.
func (s *PresenceService) Enregistrer(ctx context.Context, req FeuillePresenceRequest) ([]models.Presence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid presence sheet")
	}
	presences := make([]models.Presence, 0, len(req.Lignes))
	for _, ligne := range req.Lignes {
		presences = append(presences, models.Presence{
			EleveID:      ligne.EleveID,
			ClasseID:     req.ClasseID,
			MatiereID:    req.MatiereID,
			ProfesseurID: req.ProfesseurID,
			Date:         req.Date,
			Statut:       ligne.Statut,
			Commentaire:  ligne.Commentaire,
		})
	}
	if err := s.repo.BulkUpsert(ctx, presences); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store presence sheet")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "presence",
		EntiteID:    req.ClasseID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"classe_id": req.ClasseID, "date": req.Date.Format("2006-01-02"), "lignes": len(presences)}),
		Description: "appel classe",
	})
	return presences, nil
}
