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

type absenceRepository interface {
	List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, int, error)
	FindByID(ctx context.Context, id string) (*models.Absence, error)
	Create(ctx context.Context, absence *models.Absence) error
	Update(ctx context.Context, absence *models.Absence) error
	SoftDelete(ctx context.Context, id string) error
	TauxParClasse(ctx context.Context, debut, fin time.Time) ([]models.TauxAbsence, error)
}

// CreateAbsenceRequest holds the payload for recording an absence.
type CreateAbsenceRequest struct {
	EleveID      string     `json:"eleve_id" validate:"required,uuid4"`
	ClasseID     string     `json:"classe_id" validate:"required,uuid4"`
	MatiereID    *string    `json:"matiere_id" validate:"omitempty,uuid4"`
	ProfesseurID *string    `json:"professeur_id" validate:"omitempty,uuid4"`
	Type         string     `json:"type" validate:"required,oneof=absence retard sortie_anticipee"`
	Date         time.Time  `json:"date" validate:"required"`
	HeureDebut   *time.Time `json:"heure_debut"`
	HeureFin     *time.Time `json:"heure_fin"`
	Motif        *string    `json:"motif"`
	ActeurID     *string    `json:"-"`
}

// JustifierAbsenceRequest justifies or refuses an absence.
type JustifierAbsenceRequest struct {
	Motif    string  `json:"motif" validate:"required"`
	ActeurID *string `json:"-"`
}

// SanctionRequest attaches a disciplinary measure to an absence.
type SanctionRequest struct {
	Type     string  `json:"type" validate:"required"`
	Details  *string `json:"details"`
	ActeurID *string `json:"-"`
}

// AbsenceService handles absence recording and the justification workflow.
// Justification is one atomic multi-field transition so the record can
// never be half processed.
type AbsenceService struct {
	repo      absenceRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAbsenceService constructs the absence service.
func NewAbsenceService(repo absenceRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns absences and pagination metadata.
func (s *AbsenceService) List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, *models.Pagination, error) {
	absences, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return absences, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one absence.
func (s *AbsenceService) Get(ctx context.Context, id string) (*models.Absence, error) {
	absence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	return absence, nil
}

// Create records an absence in the pending state. The duration is derived
// from the time interval.
func (s *AbsenceService) Create(ctx context.Context, req CreateAbsenceRequest) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	absence := &models.Absence{
		EleveID:      req.EleveID,
		ClasseID:     req.ClasseID,
		MatiereID:    req.MatiereID,
		ProfesseurID: req.ProfesseurID,
		Type:         req.Type,
		Date:         req.Date,
		HeureDebut:   req.HeureDebut,
		HeureFin:     req.HeureFin,
		Motif:        req.Motif,
		Statut:       models.AbsenceStatutEnAttente,
	}
	absence.CalculerDuree()
	if err := s.repo.Create(ctx, absence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create absence")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "absence",
		EntiteID:    absence.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"eleve_id": absence.EleveID, "type": absence.Type, "duree_minutes": absence.DureeMinutes}),
		Description: "signalement absence",
	})
	return absence, nil
}

// Justifier accepts an absence justification. Re-justifying with the same
// reason is a no-op; a different reason on an already processed absence is
// a conflict. Status, decision, processing flag and timestamp move
// together.
func (s *AbsenceService) Justifier(ctx context.Context, id string, req JustifierAbsenceRequest) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid justification payload")
	}
	absence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	if absence.EstTraitee {
		if absence.EstJustifiee() && absence.Motif != nil && *absence.Motif == req.Motif {
			return absence, nil
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "absence already processed with a different outcome")
	}

	now := time.Now().UTC()
	decision := models.AbsenceDecisionAcceptee
	ancien := absence.Statut
	absence.Statut = models.AbsenceStatutJustifiee
	absence.Decision = &decision
	absence.EstTraitee = true
	absence.Motif = &req.Motif
	absence.JustifieeParID = req.ActeurID
	absence.JustifieeLe = &now
	absence.Historique = absence.Historique.Append("statut", ancien, absence.Statut, req.ActeurID, req.Motif)

	if err := s.repo.Update(ctx, absence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to justify absence")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "absence",
		EntiteID:    absence.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"statut": absence.Statut, "motif": req.Motif}),
		Description: "justification absence acceptee",
	})
	return absence, nil
}

// Refuser rejects an absence justification, the terminal unjustified
// state.
func (s *AbsenceService) Refuser(ctx context.Context, id string, req JustifierAbsenceRequest) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid justification payload")
	}
	absence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	if absence.EstTraitee {
		if absence.Statut == models.AbsenceStatutNonJustifiee && absence.Motif != nil && *absence.Motif == req.Motif {
			return absence, nil
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "absence already processed with a different outcome")
	}

	now := time.Now().UTC()
	decision := models.AbsenceDecisionRefusee
	ancien := absence.Statut
	absence.Statut = models.AbsenceStatutNonJustifiee
	absence.Decision = &decision
	absence.EstTraitee = true
	absence.Motif = &req.Motif
	absence.JustifieeParID = req.ActeurID
	absence.JustifieeLe = &now
	absence.Historique = absence.Historique.Append("statut", ancien, absence.Statut, req.ActeurID, req.Motif)

	if err := s.repo.Update(ctx, absence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refuse absence")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "absence",
		EntiteID:    absence.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"statut": absence.Statut, "motif": req.Motif}),
		Description: "justification absence refusee",
	})
	return absence, nil
}

// Sanctionner attaches a disciplinary measure to an absence. The
// justification workflow and the sanction are independent: a late
// arrival can be excused and still sanctioned.
func (s *AbsenceService) Sanctionner(ctx context.Context, id string, req SanctionRequest) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sanction payload")
	}
	absence, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	absence.SanctionType = &req.Type
	absence.SanctionDetails = req.Details
	absence.SanctionAppliquee = true
	absence.Historique = absence.Historique.Append("sanction", "", req.Type, req.ActeurID, "")

	if err := s.repo.Update(ctx, absence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply sanction")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "absence",
		EntiteID:    absence.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"sanction_type": req.Type}),
		Description: "application sanction",
	})
	return absence, nil
}

// Delete soft-deletes an absence record.
func (s *AbsenceService) Delete(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete absence")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "absence",
		EntiteID:    id,
		Description: "suppression absence",
	})
	return nil
}

// TauxParClasse returns per-class absence rates over a period.
func (s *AbsenceService) TauxParClasse(ctx context.Context, debut, fin time.Time) ([]models.TauxAbsence, error) {
	taux, err := s.repo.TauxParClasse(ctx, debut, fin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute absence rates")
	}
	return taux, nil
}
