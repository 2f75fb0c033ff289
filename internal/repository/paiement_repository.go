package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// PaiementRepository manages student payments. Every mutation writes its
// HistoriquePaiement row inside the same transaction.
type PaiementRepository struct {
	db *sqlx.DB
}

// NewPaiementRepository constructs a PaiementRepository.
func NewPaiementRepository(db *sqlx.DB) *PaiementRepository {
	return &PaiementRepository{db: db}
}

// List returns payments matching the provided filters.
func (r *PaiementRepository) List(ctx context.Context, filter models.PaiementFilter) ([]models.PaiementDetail, int, error) {
	base := "FROM paiements p JOIN eleves e ON e.id = p.eleve_id"
	args := []interface{}{}
	conditions := []string{"p.deleted_at IS NULL"}
	if filter.EleveID != "" {
		args = append(args, filter.EleveID)
		conditions = append(conditions, fmt.Sprintf("p.eleve_id = $%d", len(args)))
	}
	if filter.TrancheID != "" {
		args = append(args, filter.TrancheID)
		conditions = append(conditions, fmt.Sprintf("p.tranche_id = $%d", len(args)))
	}
	if filter.AnneeScolaireID != "" {
		args = append(args, filter.AnneeScolaireID)
		conditions = append(conditions, fmt.Sprintf("p.annee_scolaire_id = $%d", len(args)))
	}
	if filter.Mode != "" {
		args = append(args, filter.Mode)
		conditions = append(conditions, fmt.Sprintf("p.mode = $%d", len(args)))
	}
	if filter.DateDebut != nil {
		args = append(args, *filter.DateDebut)
		conditions = append(conditions, fmt.Sprintf("p.date_paiement >= $%d", len(args)))
	}
	if filter.DateFin != nil {
		args = append(args, *filter.DateFin)
		conditions = append(conditions, fmt.Sprintf("p.date_paiement < $%d", len(args)))
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT p.*, e.nom AS eleve_nom, e.prenom AS eleve_prenom, e.matricule AS eleve_matricule
        %s ORDER BY p.date_paiement DESC LIMIT %d OFFSET %d`, base, size, (page-1)*size)
	var paiements []models.PaiementDetail
	if err := r.db.SelectContext(ctx, &paiements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list paiements: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(p.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count paiements: %w", err)
	}
	return paiements, total, nil
}

// FindByID fetches a payment by ID.
func (r *PaiementRepository) FindByID(ctx context.Context, id string) (*models.Paiement, error) {
	var paiement models.Paiement
	if err := r.db.GetContext(ctx, &paiement, `SELECT * FROM paiements WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &paiement, nil
}

// Create inserts the payment and its audit trail row atomically.
func (r *PaiementRepository) Create(ctx context.Context, paiement *models.Paiement, histo *models.HistoriquePaiement) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin paiement create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if paiement.ID == "" {
		paiement.ID = uuid.NewString()
	}
	if paiement.Ref == "" {
		paiement.Ref = uuid.NewString()
	}
	if paiement.Reference == "" {
		paiement.Reference = "PAY-" + paiement.Ref
	}
	if paiement.DatePaiement.IsZero() {
		paiement.DatePaiement = now
	}
	paiement.CreatedAt = now
	paiement.UpdatedAt = now

	const insertQuery = `INSERT INTO paiements (id, ref, reference, eleve_id, tranche_id, annee_scolaire_id, montant, mode, date_paiement, commentaire, encaisse_par, created_at, updated_at)
        VALUES (:id, :ref, :reference, :eleve_id, :tranche_id, :annee_scolaire_id, :montant, :mode, :date_paiement, :commentaire, :encaisse_par, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, paiement); err != nil {
		return fmt.Errorf("insert paiement: %w", err)
	}
	if err = insertHistoriquePaiement(ctx, tx, paiement.ID, histo); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit paiement create: %w", err)
	}
	return nil
}

// Update rewrites the payment and appends its audit trail row atomically.
func (r *PaiementRepository) Update(ctx context.Context, paiement *models.Paiement, histo *models.HistoriquePaiement) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin paiement update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	paiement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE paiements SET tranche_id = :tranche_id, montant = :montant, mode = :mode, date_paiement = :date_paiement,
        commentaire = :commentaire, updated_at = :updated_at WHERE id = :id AND deleted_at IS NULL`
	if _, err = tx.NamedExecContext(ctx, query, paiement); err != nil {
		return fmt.Errorf("update paiement: %w", err)
	}
	if err = insertHistoriquePaiement(ctx, tx, paiement.ID, histo); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit paiement update: %w", err)
	}
	return nil
}

// SoftDelete timestamps the payment as deleted and appends its audit trail
// row atomically.
func (r *PaiementRepository) SoftDelete(ctx context.Context, id string, histo *models.HistoriquePaiement) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin paiement delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE paiements SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err = tx.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete paiement: %w", err)
	}
	if err = insertHistoriquePaiement(ctx, tx, id, histo); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit paiement delete: %w", err)
	}
	return nil
}

// Historique returns the audit trail of one payment, oldest first.
func (r *PaiementRepository) Historique(ctx context.Context, paiementID string) ([]models.HistoriquePaiement, error) {
	const query = `SELECT * FROM historique_paiements WHERE paiement_id = $1 ORDER BY created_at ASC`
	var historique []models.HistoriquePaiement
	if err := r.db.SelectContext(ctx, &historique, query, paiementID); err != nil {
		return nil, fmt.Errorf("list historique paiement: %w", err)
	}
	return historique, nil
}

// TotalSurPeriode sums payment amounts over a date range.
func (r *PaiementRepository) TotalSurPeriode(ctx context.Context, debut, fin time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(montant), 0) FROM paiements WHERE deleted_at IS NULL AND date_paiement >= $1 AND date_paiement < $2`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, debut, fin); err != nil {
		return decimal.Zero, fmt.Errorf("sum paiements: %w", err)
	}
	return total, nil
}

func insertHistoriquePaiement(ctx context.Context, tx *sqlx.Tx, paiementID string, histo *models.HistoriquePaiement) error {
	if histo == nil {
		return nil
	}
	if histo.ID == "" {
		histo.ID = uuid.NewString()
	}
	histo.PaiementID = paiementID
	histo.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO historique_paiements (id, paiement_id, action, description, acteur_id, created_at)
        VALUES (:id, :paiement_id, :action, :description, :acteur_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, histo); err != nil {
		return fmt.Errorf("insert historique paiement: %w", err)
	}
	return nil
}
