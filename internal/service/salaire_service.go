package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

// Ledger category codes for payroll-generated expenses.
const (
	CategorieCodeSalaire = "SALAIRE"
	CategorieCodeAvance  = "AVANCE_SALAIRE"
)

type salaireRepository interface {
	FindConfigActive(ctx context.Context, professeurID string) (*models.ProfSalaire, error)
	ListConfigs(ctx context.Context, professeurID string) ([]models.ProfSalaire, error)
	SetConfig(ctx context.Context, config *models.ProfSalaire) error
	ListAvances(ctx context.Context, filter models.AvanceSalaireFilter) ([]models.AvanceSalaire, int, error)
	FindAvanceByID(ctx context.Context, id string) (*models.AvanceSalaire, error)
	CreateAvance(ctx context.Context, avance *models.AvanceSalaire, depense *models.Depense) error
	MarquerAvancePayee(ctx context.Context, id string, depense *models.Depense) error
	TotalAvancesPayees(ctx context.Context, professeurID string, debut, fin time.Time) (decimal.Decimal, error)
	ListPaiements(ctx context.Context, filter models.PaiementSalaireFilter) ([]models.PaiementSalaire, int, error)
	FindPaiementByID(ctx context.Context, id string) (*models.PaiementSalaire, error)
	CreatePaiement(ctx context.Context, paiement *models.PaiementSalaire) error
	MarquerPaiementPaye(ctx context.Context, paiement *models.PaiementSalaire, depense *models.Depense) error
}

type salaireCategorieResolver interface {
	FindCategorieByCode(ctx context.Context, code string) (*models.CategorieDepense, error)
	CreateCategorie(ctx context.Context, categorie *models.CategorieDepense) error
}

// SetSalaireConfigRequest holds the payload for a compensation config.
type SetSalaireConfigRequest struct {
	ProfesseurID   string           `json:"professeur_id" validate:"required,uuid4"`
	Mode           string           `json:"mode" validate:"required,oneof=horaire fixe"`
	TauxHoraire    *decimal.Decimal `json:"taux_horaire"`
	SalaireMensuel *decimal.Decimal `json:"salaire_mensuel"`
	DateEffet      *time.Time       `json:"date_effet"`
	ActeurID       *string          `json:"-"`
}

// CreateAvanceRequest holds the payload for granting a cash advance.
type CreateAvanceRequest struct {
	ProfesseurID  string          `json:"professeur_id" validate:"required,uuid4"`
	Montant       decimal.Decimal `json:"montant" validate:"required"`
	Motif         *string         `json:"motif"`
	Date          *time.Time      `json:"date"`
	PayerAussitot bool            `json:"payer_aussitot"`
	ActeurID      *string         `json:"-"`
}

// CreatePaiementSalaireRequest holds the payload for preparing a payroll
// run for one teacher.
type CreatePaiementSalaireRequest struct {
	ProfesseurID      string           `json:"professeur_id" validate:"required,uuid4"`
	Type              string           `json:"type" validate:"required,oneof=normal avance"`
	Periode           time.Time        `json:"periode" validate:"required"`
	HeuresTravaillees *decimal.Decimal `json:"heures_travaillees"`
	Retenues          decimal.Decimal  `json:"retenues"`
	Commentaire       *string          `json:"commentaire"`
	ActeurID          *string          `json:"-"`
}

// SalaireService drives teacher compensation: configs, cash advances and
// payroll runs. Paying a run creates the matching ledger expense and, for
// normal runs, flips the period's paid advances to deducted, all in one
// repository transaction.
type SalaireService struct {
	repo       salaireRepository
	categories salaireCategorieResolver
	journal    journalRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSalaireService constructs the payroll service.
func NewSalaireService(repo salaireRepository, categories salaireCategorieResolver, journal journalRecorder, validate *validator.Validate, logger *zap.Logger) *SalaireService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalaireService{repo: repo, categories: categories, journal: journal, validator: validate, logger: logger}
}

// GetConfig returns the active compensation config of a teacher.
func (s *SalaireService) GetConfig(ctx context.Context, professeurID string) (*models.ProfSalaire, error) {
	config, err := s.repo.FindConfigActive(ctx, professeurID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active salary config for professeur")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load salary config")
	}
	return config, nil
}

// ListConfigs returns the config history of a teacher.
func (s *SalaireService) ListConfigs(ctx context.Context, professeurID string) ([]models.ProfSalaire, error) {
	configs, err := s.repo.ListConfigs(ctx, professeurID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list salary configs")
	}
	return configs, nil
}

// SetConfig activates a compensation config, deactivating the previous one
// atomically. The amount matching the mode is required.
func (s *SalaireService) SetConfig(ctx context.Context, req SetSalaireConfigRequest) (*models.ProfSalaire, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid salary config payload")
	}
	switch req.Mode {
	case models.SalaireModeHoraire:
		if req.TauxHoraire == nil || !req.TauxHoraire.IsPositive() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "taux horaire is required for the hourly mode")
		}
	case models.SalaireModeFixe:
		if req.SalaireMensuel == nil || !req.SalaireMensuel.IsPositive() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "salaire mensuel is required for the fixed mode")
		}
	}
	config := &models.ProfSalaire{
		ProfesseurID:   req.ProfesseurID,
		Mode:           req.Mode,
		TauxHoraire:    req.TauxHoraire,
		SalaireMensuel: req.SalaireMensuel,
	}
	if req.DateEffet != nil {
		config.DateEffet = *req.DateEffet
	}
	if err := s.repo.SetConfig(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set salary config")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "prof_salaire",
		EntiteID:    config.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"professeur_id": config.ProfesseurID, "mode": config.Mode}),
		Description: "configuration salaire professeur",
	})
	return config, nil
}

// ListAvances returns advances and pagination metadata.
func (s *SalaireService) ListAvances(ctx context.Context, filter models.AvanceSalaireFilter) ([]models.AvanceSalaire, *models.Pagination, error) {
	avances, total, err := s.repo.ListAvances(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list avances")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return avances, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateAvance grants a cash advance. When paid immediately, the matching
// ledger expense is recorded in the same transaction.
func (s *SalaireService) CreateAvance(ctx context.Context, req CreateAvanceRequest) (*models.AvanceSalaire, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid avance payload")
	}
	if !req.Montant.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "montant must be positive")
	}
	avance := &models.AvanceSalaire{
		ProfesseurID: req.ProfesseurID,
		Montant:      req.Montant,
		Motif:        req.Motif,
		Statut:       models.AvanceStatutEnAttente,
	}
	if req.Date != nil {
		avance.Date = *req.Date
	}
	var depense *models.Depense
	if req.PayerAussitot {
		avance.Ref = uuid.NewString()
		avance.Statut = models.AvanceStatutPayee
		var err error
		depense, err = s.avanceDepense(ctx, avance, req.ActeurID)
		if err != nil {
			return nil, err
		}
	}
	if err := s.repo.CreateAvance(ctx, avance, depense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create avance")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "avance_salaire",
		EntiteID:    avance.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"professeur_id": avance.ProfesseurID, "montant": avance.Montant.StringFixed(2), "statut": avance.Statut}),
		Description: "octroi avance salaire",
	})
	return avance, nil
}

// PayerAvance flips a pending advance to paid and writes the matching
// ledger expense atomically.
func (s *SalaireService) PayerAvance(ctx context.Context, id string, acteurID *string) (*models.AvanceSalaire, error) {
	avance, err := s.repo.FindAvanceByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "avance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load avance")
	}
	if avance.Statut != models.AvanceStatutEnAttente {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only pending avances can be paid")
	}
	depense, err := s.avanceDepense(ctx, avance, acteurID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarquerAvancePayee(ctx, id, depense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pay avance")
	}
	avance.Statut = models.AvanceStatutPayee
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "avance_salaire",
		EntiteID:    avance.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"statut": avance.Statut}),
		Description: "paiement avance salaire",
	})
	return avance, nil
}

// ListPaiements returns payroll runs and pagination metadata.
func (s *SalaireService) ListPaiements(ctx context.Context, filter models.PaiementSalaireFilter) ([]models.PaiementSalaire, *models.Pagination, error) {
	paiements, total, err := s.repo.ListPaiements(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list paiement salaires")
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

// GetPaiement returns one payroll run.
func (s *SalaireService) GetPaiement(ctx context.Context, id string) (*models.PaiementSalaire, error) {
	paiement, err := s.repo.FindPaiementByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paiement salaire not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paiement salaire")
	}
	return paiement, nil
}

// CreatePaiement prepares a payroll run. The base comes from the active
// config (hourly rate times hours, or the fixed monthly amount), deducted
// advances are the teacher's paid advances within the period's calendar
// month, and the net is floored at zero.
func (s *SalaireService) CreatePaiement(ctx context.Context, req CreatePaiementSalaireRequest) (*models.PaiementSalaire, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paiement salaire payload")
	}
	if req.Retenues.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "retenues cannot be negative")
	}
	config, err := s.repo.FindConfigActive(ctx, req.ProfesseurID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "professeur has no active salary config")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load salary config")
	}

	var base decimal.Decimal
	switch config.Mode {
	case models.SalaireModeHoraire:
		if req.HeuresTravaillees == nil || !req.HeuresTravaillees.IsPositive() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "heures travaillees required for hourly mode")
		}
		if config.TauxHoraire == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "salary config missing taux horaire")
		}
		base = config.TauxHoraire.Mul(*req.HeuresTravaillees)
	case models.SalaireModeFixe:
		if config.SalaireMensuel == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "salary config missing salaire mensuel")
		}
		base = *config.SalaireMensuel
	}

	paiement := &models.PaiementSalaire{
		ProfesseurID: req.ProfesseurID,
		Type:         req.Type,
		Periode:      req.Periode,
		SalaireBase:  base,
		Retenues:     req.Retenues,
		Commentaire:  req.Commentaire,
		Statut:       models.PaiementSalaireStatutEnAttente,
	}
	if req.Type == models.PaiementSalaireTypeNormal {
		debut, fin := paiement.PeriodeMois()
		avances, err := s.repo.TotalAvancesPayees(ctx, req.ProfesseurID, debut, fin)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum avances")
		}
		paiement.AvancesDeduites = avances
	}
	paiement.CalculerNet()

	if err := s.repo.CreatePaiement(ctx, paiement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create paiement salaire")
	}
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    req.ActeurID,
		Action:      models.JournalActionCreation,
		Entite:      "paiement_salaire",
		EntiteID:    paiement.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"professeur_id": paiement.ProfesseurID, "net_a_payer": paiement.NetAPayer.StringFixed(2), "type": paiement.Type}),
		Description: "preparation paiement salaire",
	})
	return paiement, nil
}

// Payer runs the payment cascade: the run flips to paid, the ledger
// expense is written, and for normal runs the period's paid advances flip
// to deducted, all in one repository transaction.
func (s *SalaireService) Payer(ctx context.Context, id string, acteurID *string) (*models.PaiementSalaire, error) {
	paiement, err := s.repo.FindPaiementByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paiement salaire not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paiement salaire")
	}
	if paiement.Statut != models.PaiementSalaireStatutEnAttente {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only pending paiement salaires can be paid")
	}

	code := CategorieCodeSalaire
	if paiement.Type == models.PaiementSalaireTypeAvance {
		code = CategorieCodeAvance
	}
	categorie, err := s.ensureCategorie(ctx, code)
	if err != nil {
		return nil, err
	}
	depense := &models.Depense{
		Reference:          paiement.ReferenceDepense(),
		Libelle:            "salaire " + paiement.Periode.Format("2006-01"),
		Montant:            paiement.NetAPayer,
		CategorieDepenseID: categorie.ID,
		Statut:             models.DepenseStatutPayee,
		Beneficiaire:       &paiement.ProfesseurID,
		CreeParID:          acteurID,
	}
	if err := s.repo.MarquerPaiementPaye(ctx, paiement, depense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pay salaire")
	}
	paiement.Statut = models.PaiementSalaireStatutPaye
	s.journal.Record(ctx, models.JournalEntree{
		ActeurID:    acteurID,
		Action:      models.JournalActionModification,
		Entite:      "paiement_salaire",
		EntiteID:    paiement.ID,
		Apres:       models.RedigerSnapshot(map[string]interface{}{"statut": paiement.Statut, "reference_depense": depense.Reference}),
		Description: "paiement salaire " + depense.Reference,
	})
	return paiement, nil
}

func (s *SalaireService) avanceDepense(ctx context.Context, avance *models.AvanceSalaire, acteurID *string) (*models.Depense, error) {
	categorie, err := s.ensureCategorie(ctx, CategorieCodeAvance)
	if err != nil {
		return nil, err
	}
	ref := avance.Ref
	if ref == "" {
		ref = avance.ID
	}
	return &models.Depense{
		Reference:          "AVS-" + ref,
		Libelle:            "avance salaire",
		Montant:            avance.Montant,
		CategorieDepenseID: categorie.ID,
		Statut:             models.DepenseStatutPayee,
		Beneficiaire:       &avance.ProfesseurID,
		CreeParID:          acteurID,
	}, nil
}

func (s *SalaireService) ensureCategorie(ctx context.Context, code string) (*models.CategorieDepense, error) {
	categorie, err := s.categories.FindCategorieByCode(ctx, code)
	if err == nil {
		return categorie, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve payroll categorie")
	}
	categorie = &models.CategorieDepense{Code: code, Libelle: code}
	if err := s.categories.CreateCategorie(ctx, categorie); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payroll categorie")
	}
	return categorie, nil
}
