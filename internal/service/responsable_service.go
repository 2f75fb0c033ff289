package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type responsableRepository interface {
	List(ctx context.Context, filter models.ResponsableFilter) ([]models.Responsable, int, error)
	FindByID(ctx context.Context, id string) (*models.Responsable, error)
	Create(ctx context.Context, responsable *models.Responsable) error
	Update(ctx context.Context, responsable *models.Responsable) error
	SoftDelete(ctx context.Context, id string) error
	ListByEleve(ctx context.Context, eleveID string) ([]models.ResponsableDetail, error)
	Attach(ctx context.Context, pivot *models.EleveResponsable) error
	UpdatePivot(ctx context.Context, pivot *models.EleveResponsable) error
	Detach(ctx context.Context, eleveID, responsableID string) error
	FindPivot(ctx context.Context, eleveID, responsableID string) (*models.EleveResponsable, error)
}

// SaveResponsableRequest holds the payload for creating or editing a
// guardian.
type SaveResponsableRequest struct {
	Nom        string  `json:"nom" validate:"required"`
	Prenom     string  `json:"prenom" validate:"required"`
	Profession *string `json:"profession"`
	Telephone  string  `json:"telephone" validate:"required"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Adresse    *string `json:"adresse"`
	ActeurID   *string `json:"-"`
}

// AttachResponsableRequest links a guardian to a student with relation
// attributes.
type AttachResponsableRequest struct {
	ResponsableID           string  `json:"responsable_id" validate:"required,uuid4"`
	LienParental            string  `json:"lien_parental" validate:"required,oneof=pere mere tuteur autre"`
	EstResponsableFinancier bool    `json:"est_responsable_financier"`
	EstContactUrgence       bool    `json:"est_contact_urgence"`
	AutoriseRecuperation    bool    `json:"autorise_recuperation"`
	Priorite                int     `json:"priorite" validate:"gte=0"`
	TelephoneUrgence        *string `json:"telephone_urgence"`
	ActeurID                *string `json:"-"`
}

// ResponsableService handles guardian use-cases, including the
// student/guardian relation.
type ResponsableService struct {
	repo      responsableRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResponsableService constructs the guardian service.
func NewResponsableService(repo responsableRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *ResponsableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponsableService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns guardians and pagination metadata.
func (s *ResponsableService) List(ctx context.Context, filter models.ResponsableFilter) ([]models.Responsable, *models.Pagination, error) {
	responsables, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list responsables")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return responsables, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one guardian.
func (s *ResponsableService) Get(ctx context.Context, id string) (*models.Responsable, error) {
	responsable, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "responsable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responsable")
	}
	return responsable, nil
}

// Create registers a guardian.
func (s *ResponsableService) Create(ctx context.Context, req SaveResponsableRequest) (*models.Responsable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid responsable payload")
	}
	responsable := &models.Responsable{
		Nom:        req.Nom,
		Prenom:     req.Prenom,
		Profession: req.Profession,
		Telephone:  req.Telephone,
		Email:      req.Email,
		Adresse:    req.Adresse,
	}
	if err := s.repo.Create(ctx, responsable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create responsable")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "responsable",
		EntiteID:    responsable.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"nom": responsable.Nom + " " + responsable.Prenom, "telephone": responsable.Telephone}),
		Description: "creation responsable",
	})
	return responsable, nil
}

// Update edits a guardian.
func (s *ResponsableService) Update(ctx context.Context, id string, req SaveResponsableRequest) (*models.Responsable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid responsable payload")
	}
	responsable, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "responsable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responsable")
	}
	responsable.Nom = req.Nom
	responsable.Prenom = req.Prenom
	responsable.Profession = req.Profession
	responsable.Telephone = req.Telephone
	responsable.Email = req.Email
	responsable.Adresse = req.Adresse
	if err := s.repo.Update(ctx, responsable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update responsable")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "responsable",
		EntiteID:    responsable.ID,
		Description: "modification responsable",
	})
	return responsable, nil
}

// Delete soft-deletes a guardian.
func (s *ResponsableService) Delete(ctx context.Context, id string, acteurID *string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "responsable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete responsable")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "responsable",
		EntiteID:    id,
		Description: "suppression responsable",
	})
	return nil
}

// ListByEleve returns the guardians of a student with relation attributes,
// ordered by contact priority.
func (s *ResponsableService) ListByEleve(ctx context.Context, eleveID string) ([]models.ResponsableDetail, error) {
	details, err := s.repo.ListByEleve(ctx, eleveID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eleve responsables")
	}
	return details, nil
}

// Attach links a guardian to a student. An existing link is a conflict.
func (s *ResponsableService) Attach(ctx context.Context, eleveID string, req AttachResponsableRequest) (*models.EleveResponsable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attach payload")
	}
	if _, err := s.repo.FindPivot(ctx, eleveID, req.ResponsableID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "responsable already attached to eleve")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing link")
	}
	pivot := &models.EleveResponsable{
		EleveID:                 eleveID,
		ResponsableID:           req.ResponsableID,
		LienParental:            req.LienParental,
		EstResponsableFinancier: req.EstResponsableFinancier,
		EstContactUrgence:       req.EstContactUrgence,
		AutoriseRecuperation:    req.AutoriseRecuperation,
		Priorite:                req.Priorite,
		TelephoneUrgence:        req.TelephoneUrgence,
	}
	if err := s.repo.Attach(ctx, pivot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach responsable")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "eleve_responsable",
		EntiteID:    pivot.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"eleve_id": eleveID, "responsable_id": req.ResponsableID, "lien": req.LienParental}),
		Description: "rattachement responsable",
	})
	return pivot, nil
}

// UpdateLink edits the relation attributes of an existing link.
func (s *ResponsableService) UpdateLink(ctx context.Context, eleveID string, req AttachResponsableRequest) (*models.EleveResponsable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attach payload")
	}
	pivot, err := s.repo.FindPivot(ctx, eleveID, req.ResponsableID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load link")
	}
	pivot.LienParental = req.LienParental
	pivot.EstResponsableFinancier = req.EstResponsableFinancier
	pivot.EstContactUrgence = req.EstContactUrgence
	pivot.AutoriseRecuperation = req.AutoriseRecuperation
	pivot.Priorite = req.Priorite
	pivot.TelephoneUrgence = req.TelephoneUrgence
	if err := s.repo.UpdatePivot(ctx, pivot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update link")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "eleve_responsable",
		EntiteID:    pivot.ID,
		Description: "modification lien responsable",
	})
	return pivot, nil
}

// Detach removes the link between a guardian and a student.
func (s *ResponsableService) Detach(ctx context.Context, eleveID, responsableID string, acteurID *string) error {
	if err := s.repo.Detach(ctx, eleveID, responsableID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "link not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach responsable")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "eleve_responsable",
		EntiteID:    eleveID + ":" + responsableID,
		Description: "detachement responsable",
	})
	return nil
}
