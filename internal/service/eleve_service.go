package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/repository"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type eleveRepository interface {
	List(ctx context.Context, filter models.EleveFilter) ([]models.EleveDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EleveDetail, error)
	Create(ctx context.Context, eleve *models.Eleve) error
	Update(ctx context.Context, eleve *models.Eleve) error
	Transfer(ctx context.Context, id, versClasseID string) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

// CreateEleveRequest holds the payload for enrolling a student.
type CreateEleveRequest struct {
	Nom           string    `json:"nom" validate:"required"`
	Prenom        string    `json:"prenom" validate:"required"`
	Sexe          string    `json:"sexe" validate:"required,oneof=M F"`
	DateNaissance time.Time `json:"date_naissance" validate:"required"`
	LieuNaissance *string   `json:"lieu_naissance"`
	Adresse       *string   `json:"adresse"`
	Telephone     *string   `json:"telephone"`
	ClasseID      string    `json:"classe_id" validate:"required,uuid4"`
	ActeurID      *string   `json:"-"`
}

// UpdateEleveRequest holds the payload for editing a student's identity.
type UpdateEleveRequest struct {
	Nom           string    `json:"nom" validate:"required"`
	Prenom        string    `json:"prenom" validate:"required"`
	Sexe          string    `json:"sexe" validate:"required,oneof=M F"`
	DateNaissance time.Time `json:"date_naissance" validate:"required"`
	LieuNaissance *string   `json:"lieu_naissance"`
	Adresse       *string   `json:"adresse"`
	Telephone     *string   `json:"telephone"`
	Statut        string    `json:"statut" validate:"omitempty,oneof=inscrit transfere retire"`
	ActeurID      *string   `json:"-"`
}

// TransferEleveRequest moves a student to another class.
type TransferEleveRequest struct {
	VersClasseID string  `json:"vers_classe_id" validate:"required,uuid4"`
	ActeurID     *string `json:"-"`
}

// EleveService handles student use-cases.
type EleveService struct {
	repo      eleveRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEleveService constructs the student service.
func NewEleveService(repo eleveRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *EleveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EleveService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *EleveService) List(ctx context.Context, filter models.EleveFilter) ([]models.EleveDetail, *models.Pagination, error) {
	eleves, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eleves")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return eleves, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with class context.
func (s *EleveService) Get(ctx context.Context, id string) (*models.EleveDetail, error) {
	eleve, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "eleve not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load eleve")
	}
	return eleve, nil
}

// Create enrolls a student. The matricule is assigned by the repository
// inside the enrollment transaction.
func (s *EleveService) Create(ctx context.Context, req CreateEleveRequest) (*models.Eleve, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid eleve payload")
	}
	eleve := &models.Eleve{
		Nom:           req.Nom,
		Prenom:        req.Prenom,
		Sexe:          req.Sexe,
		DateNaissance: req.DateNaissance,
		LieuNaissance: req.LieuNaissance,
		Adresse:       req.Adresse,
		Telephone:     req.Telephone,
		ClasseID:      req.ClasseID,
		Statut:        models.EleveStatutInscrit,
	}
	if err := s.repo.Create(ctx, eleve); err != nil {
		if errors.Is(err, repository.ErrClassePleine) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "classe is full")
		}
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classe not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create eleve")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "eleve",
		EntiteID:    eleve.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"matricule": eleve.Matricule, "nom": eleve.NomComplet(), "classe_id": eleve.ClasseID}),
		Description: "inscription eleve " + eleve.Matricule,
	})
	return eleve, nil
}

// Update edits a student's identity fields. Class membership changes go
// through Transfer.
func (s *EleveService) Update(ctx context.Context, id string, req UpdateEleveRequest) (*models.Eleve, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid eleve payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "eleve not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load eleve")
	}
	avant := models.RedigerSnapshot(map[string]interface{}{"nom": existing.NomComplet(), "statut": existing.Statut})

	eleve := existing.Eleve
	eleve.Nom = req.Nom
	eleve.Prenom = req.Prenom
	eleve.Sexe = req.Sexe
	eleve.DateNaissance = req.DateNaissance
	eleve.LieuNaissance = req.LieuNaissance
	eleve.Adresse = req.Adresse
	eleve.Telephone = req.Telephone
	if req.Statut != "" {
		eleve.Statut = req.Statut
	}
	if err := s.repo.Update(ctx, &eleve); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update eleve")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "eleve",
		EntiteID:    eleve.ID,
		Avant:       avant,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"nom": eleve.NomComplet(), "statut": eleve.Statut}),
		Description: "modification eleve " + eleve.Matricule,
	})
	return &eleve, nil
}

// Transfer moves a student to another class atomically.
func (s *EleveService) Transfer(ctx context.Context, id string, req TransferEleveRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if err := s.repo.Transfer(ctx, id, req.VersClasseID); err != nil {
		if errors.Is(err, repository.ErrClassePleine) {
			return appErrors.Clone(appErrors.ErrConflict, "destination classe is full")
		}
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "eleve or classe not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer eleve")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "eleve",
		EntiteID:    id,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"classe_id": req.VersClasseID}),
		Description: "transfert eleve",
	})
	return nil
}

// Delete soft-deletes a student and releases the class seat.
func (s *EleveService) Delete(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "eleve not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete eleve")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "eleve",
		EntiteID:    id,
		Description: "suppression eleve",
	})
	return nil
}

// Restore reinstates a soft-deleted student into their class.
func (s *EleveService) Restore(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.Restore(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "eleve not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore eleve")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "eleve",
		EntiteID:    id,
		Description: "restauration eleve",
	})
	return nil
}
