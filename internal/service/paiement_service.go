package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type paiementRepository interface {
	List(ctx context.Context, filter models.PaiementFilter) ([]models.PaiementDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Paiement, error)
	Create(ctx context.Context, paiement *models.Paiement, histo *models.HistoriquePaiement) error
	Update(ctx context.Context, paiement *models.Paiement, histo *models.HistoriquePaiement) error
	SoftDelete(ctx context.Context, id string, histo *models.HistoriquePaiement) error
	Historique(ctx context.Context, paiementID string) ([]models.HistoriquePaiement, error)
	TotalSurPeriode(ctx context.Context, debut, fin time.Time) (decimal.Decimal, error)
}

// CreatePaiementRequest holds the payload for collecting a fee payment.
type CreatePaiementRequest struct {
	EleveID         string          `json:"eleve_id" validate:"required,uuid4"`
	TrancheID       *string         `json:"tranche_id" validate:"omitempty,uuid4"`
	AnneeScolaireID string          `json:"annee_scolaire_id" validate:"required,uuid4"`
	Montant         decimal.Decimal `json:"montant" validate:"required"`
	Mode            string          `json:"mode" validate:"required,oneof=especes cheque virement mobile_money"`
	DatePaiement    *time.Time      `json:"date_paiement"`
	Commentaire     *string         `json:"commentaire"`
	ActeurID        *string         `json:"-"`
}

// UpdatePaiementRequest holds the payload for correcting a payment.
type UpdatePaiementRequest struct {
	Montant     decimal.Decimal `json:"montant" validate:"required"`
	Mode        string          `json:"mode" validate:"required,oneof=especes cheque virement mobile_money"`
	Commentaire *string         `json:"commentaire"`
	Motif       string          `json:"motif" validate:"required"`
	ActeurID    *string         `json:"-"`
}

// PaiementService handles student fee payments. Every mutation writes an
// audit trail row in the same transaction as the payment.
type PaiementService struct {
	repo      paiementRepository
	journal   journalRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaiementService constructs the fee payment service.
func NewPaiementService(repo paiementRepository, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *PaiementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaiementService{repo: repo, journal: journal, validator: validate, logger: logger}
}

// List returns payments and pagination metadata.
func (s *PaiementService) List(ctx context.Context, filter models.PaiementFilter) ([]models.PaiementDetail, *models.Pagination, error) {
	paiements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list paiements")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return paiements, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one payment.
func (s *PaiementService) Get(ctx context.Context, id string) (*models.Paiement, error) {
	paiement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paiement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paiement")
	}
	return paiement, nil
}

// Create collects a fee payment. The receipt reference is derived from the
// payment ref inside the repository transaction.
func (s *PaiementService) Create(ctx context.Context, req CreatePaiementRequest) (*models.Paiement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paiement payload")
	}
	if !req.Montant.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "montant must be positive")
	}
	paiement := &models.Paiement{
		EleveID:         req.EleveID,
		TrancheID:       req.TrancheID,
		AnneeScolaireID: req.AnneeScolaireID,
		Montant:         req.Montant,
		Mode:            req.Mode,
		Commentaire:     req.Commentaire,
		EncaissePar:     req.ActeurID,
	}
	if req.DatePaiement != nil {
		paiement.DatePaiement = *req.DatePaiement
	}
	histo := &models.HistoriquePaiement{
		Action:      models.HistoriqueActionCreation,
		Description: "encaissement " + req.Montant.StringFixed(2),
		ActeurID:    req.ActeurID,
	}
	if err := s.repo.Create(ctx, paiement, histo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create paiement")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "paiement",
		EntiteID:    paiement.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"reference": paiement.Reference, "montant": paiement.Montant.StringFixed(2), "mode": paiement.Mode}),
		Description: "encaissement " + paiement.Reference,
	})
	return paiement, nil
}

// Update corrects a payment, appending to its audit trail in the same
// transaction. A correction reason is required.
func (s *PaiementService) Update(ctx context.Context, id string, req UpdatePaiementRequest) (*models.Paiement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paiement payload")
	}
	if !req.Montant.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "montant must be positive")
	}
	paiement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paiement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paiement")
	}
	paiement.Montant = req.Montant
	paiement.Mode = req.Mode
	paiement.Commentaire = req.Commentaire
	histo := &models.HistoriquePaiement{
		Action:      models.HistoriqueActionModification,
		Description: req.Motif,
		ActeurID:    req.ActeurID,
	}
	if err := s.repo.Update(ctx, paiement, histo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update paiement")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionModification,
		Entite:      "paiement",
		EntiteID:    paiement.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"montant": paiement.Montant.StringFixed(2), "motif": req.Motif}),
		Description: "correction paiement " + paiement.Reference,
	})
	return paiement, nil
}

// Delete cancels a payment, keeping its audit trail.
func (s *PaiementService) Delete(ctx context.Context, id, motif string, acteurID *string) error {
	if motif == "" {
		return appErrors.Clone(appErrors.ErrValidation, "a cancellation reason is required")
	}
	histo := &models.HistoriquePaiement{
		Action:      models.HistoriqueActionAnnulation,
		Description: motif,
		ActeurID:    acteurID,
	}
	if err := s.repo.SoftDelete(ctx, id, histo); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "paiement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel paiement")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionSuppression,
		Entite:      "paiement",
		EntiteID:    id,
		Description: "annulation paiement",
	})
	return nil
}

// Historique returns the audit trail of a payment.
func (s *PaiementService) Historique(ctx context.Context, id string) ([]models.HistoriquePaiement, error) {
	histo, err := s.repo.Historique(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paiement history")
	}
	return histo, nil
}
