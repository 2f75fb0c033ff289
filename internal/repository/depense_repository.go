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

// DepenseRepository manages expenses, their approvals and categories.
type DepenseRepository struct {
	db *sqlx.DB
}

// NewDepenseRepository constructs a DepenseRepository.
func NewDepenseRepository(db *sqlx.DB) *DepenseRepository {
	return &DepenseRepository{db: db}
}

// List returns expenses matching the provided filters.
func (r *DepenseRepository) List(ctx context.Context, filter models.DepenseFilter) ([]models.Depense, int, error) {
	base := "FROM depenses d"
	args := []interface{}{}
	conditions := []string{"d.deleted_at IS NULL"}
	if filter.CategorieDepenseID != "" {
		args = append(args, filter.CategorieDepenseID)
		conditions = append(conditions, fmt.Sprintf("d.categorie_depense_id = $%d", len(args)))
	}
	if filter.BudgetID != "" {
		args = append(args, filter.BudgetID)
		conditions = append(conditions, fmt.Sprintf("d.budget_id = $%d", len(args)))
	}
	if filter.Statut != "" {
		args = append(args, filter.Statut)
		conditions = append(conditions, fmt.Sprintf("d.statut = $%d", len(args)))
	}
	if filter.DateDebut != nil {
		args = append(args, *filter.DateDebut)
		conditions = append(conditions, fmt.Sprintf("d.date_depense >= $%d", len(args)))
	}
	if filter.DateFin != nil {
		args = append(args, *filter.DateFin)
		conditions = append(conditions, fmt.Sprintf("d.date_depense < $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(d.libelle) LIKE $%d OR LOWER(d.reference) LIKE $%d)", len(args), len(args)))
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

	query := fmt.Sprintf("SELECT d.* %s ORDER BY d.date_depense DESC LIMIT %d OFFSET %d", base, size, (page-1)*size)
	var depenses []models.Depense
	if err := r.db.SelectContext(ctx, &depenses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list depenses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(d.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count depenses: %w", err)
	}
	return depenses, total, nil
}

// FindByID fetches an expense by ID.
func (r *DepenseRepository) FindByID(ctx context.Context, id string) (*models.Depense, error) {
	var depense models.Depense
	if err := r.db.GetContext(ctx, &depense, `SELECT * FROM depenses WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &depense, nil
}

// Create inserts a new expense.
func (r *DepenseRepository) Create(ctx context.Context, depense *models.Depense) error {
	if depense.ID == "" {
		depense.ID = uuid.NewString()
	}
	if depense.Ref == "" {
		depense.Ref = uuid.NewString()
	}
	if depense.Reference == "" {
		depense.Reference = "DEP-" + depense.Ref
	}
	if depense.Statut == "" {
		depense.Statut = models.DepenseStatutBrouillon
	}
	now := time.Now().UTC()
	depense.CreatedAt = now
	depense.UpdatedAt = now
	const query = `INSERT INTO depenses (id, ref, reference, libelle, montant, categorie_depense_id, budget_id, statut, date_depense, beneficiaire, justificatif, cree_par_id, payee_le, created_at, updated_at)
        VALUES (:id, :ref, :reference, :libelle, :montant, :categorie_depense_id, :budget_id, :statut, :date_depense, :beneficiaire, :justificatif, :cree_par_id, :payee_le, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, depense); err != nil {
		return fmt.Errorf("create depense: %w", err)
	}
	return nil
}

// Update modifies an editable expense.
func (r *DepenseRepository) Update(ctx context.Context, depense *models.Depense) error {
	depense.UpdatedAt = time.Now().UTC()
	const query = `UPDATE depenses SET libelle = :libelle, montant = :montant, categorie_depense_id = :categorie_depense_id,
        budget_id = :budget_id, date_depense = :date_depense, beneficiaire = :beneficiaire, justificatif = :justificatif, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, depense); err != nil {
		return fmt.Errorf("update depense: %w", err)
	}
	return nil
}

// UpdateStatut rewrites the workflow status only.
func (r *DepenseRepository) UpdateStatut(ctx context.Context, id, statut string) error {
	const query = `UPDATE depenses SET statut = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, statut, time.Now().UTC()); err != nil {
		return fmt.Errorf("update depense statut: %w", err)
	}
	return nil
}

// Decider records one approval decision and flips the expense status in a
// single transaction.
func (r *DepenseRepository) Decider(ctx context.Context, approbation *models.ApprobationDepense, statut string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin depense decision: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if approbation.ID == "" {
		approbation.ID = uuid.NewString()
	}
	approbation.CreatedAt = now
	const insertQuery = `INSERT INTO approbation_depenses (id, depense_id, approbateur_id, decision, commentaire, created_at)
        VALUES (:id, :depense_id, :approbateur_id, :decision, :commentaire, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, approbation); err != nil {
		return fmt.Errorf("insert approbation: %w", err)
	}
	const statutQuery = `UPDATE depenses SET statut = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	if _, err = tx.ExecContext(ctx, statutQuery, approbation.DepenseID, statut, now); err != nil {
		return fmt.Errorf("update depense statut: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit depense decision: %w", err)
	}
	return nil
}

// MarquerPayee flips the expense to paid and, when tied to a budget,
// increments the envelope's spent amount atomically.
func (r *DepenseRepository) MarquerPayee(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin depense payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var depense models.Depense
	if err = tx.GetContext(ctx, &depense, `SELECT * FROM depenses WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id); err != nil {
		return err
	}
	const payQuery = `UPDATE depenses SET statut = $2, payee_le = $3, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, payQuery, id, models.DepenseStatutPayee, now); err != nil {
		return fmt.Errorf("mark depense paid: %w", err)
	}
	if depense.BudgetID != nil {
		const budgetQuery = `UPDATE budgets SET montant_depense = montant_depense + $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
		if _, err = tx.ExecContext(ctx, budgetQuery, *depense.BudgetID, depense.Montant, now); err != nil {
			return fmt.Errorf("increment budget spending: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit depense payment: %w", err)
	}
	return nil
}

// SoftDelete timestamps a deletable expense as deleted.
func (r *DepenseRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE depenses SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete depense: %w", err)
	}
	return nil
}

// Approbations returns the decisions recorded on an expense.
func (r *DepenseRepository) Approbations(ctx context.Context, depenseID string) ([]models.ApprobationDepense, error) {
	const query = `SELECT * FROM approbation_depenses WHERE depense_id = $1 ORDER BY created_at ASC`
	var approbations []models.ApprobationDepense
	if err := r.db.SelectContext(ctx, &approbations, query, depenseID); err != nil {
		return nil, fmt.Errorf("list approbations: %w", err)
	}
	return approbations, nil
}

// TotalSurPeriode sums paid expense amounts over a date range.
func (r *DepenseRepository) TotalSurPeriode(ctx context.Context, debut, fin time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(montant), 0) FROM depenses WHERE deleted_at IS NULL AND statut = 'payee' AND date_depense >= $1 AND date_depense < $2`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, debut, fin); err != nil {
		return decimal.Zero, fmt.Errorf("sum depenses: %w", err)
	}
	return total, nil
}

// ListCategories returns every expense category.
func (r *DepenseRepository) ListCategories(ctx context.Context) ([]models.CategorieDepense, error) {
	var categories []models.CategorieDepense
	if err := r.db.SelectContext(ctx, &categories, `SELECT * FROM categorie_depenses WHERE deleted_at IS NULL ORDER BY libelle ASC`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindCategorieByCode fetches one expense category by its code.
func (r *DepenseRepository) FindCategorieByCode(ctx context.Context, code string) (*models.CategorieDepense, error) {
	var categorie models.CategorieDepense
	if err := r.db.GetContext(ctx, &categorie, `SELECT * FROM categorie_depenses WHERE code = $1 AND deleted_at IS NULL`, code); err != nil {
		return nil, err
	}
	return &categorie, nil
}

// CreateCategorie inserts a new expense category.
func (r *DepenseRepository) CreateCategorie(ctx context.Context, categorie *models.CategorieDepense) error {
	if categorie.ID == "" {
		categorie.ID = uuid.NewString()
	}
	if categorie.Ref == "" {
		categorie.Ref = uuid.NewString()
	}
	now := time.Now().UTC()
	categorie.CreatedAt = now
	categorie.UpdatedAt = now
	const query = `INSERT INTO categorie_depenses (id, ref, code, libelle, description, created_at, updated_at)
        VALUES (:id, :ref, :code, :libelle, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, categorie); err != nil {
		return fmt.Errorf("create categorie: %w", err)
	}
	return nil
}
