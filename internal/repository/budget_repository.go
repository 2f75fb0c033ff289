package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// BudgetRepository manages spending envelopes.
type BudgetRepository struct {
	db *sqlx.DB
}

// NewBudgetRepository constructs a BudgetRepository.
func NewBudgetRepository(db *sqlx.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// List returns budgets matching the provided filters.
func (r *BudgetRepository) List(ctx context.Context, filter models.BudgetFilter) ([]models.Budget, int, error) {
	base := "FROM budgets b WHERE b.deleted_at IS NULL"
	args := []interface{}{}
	if filter.AnneeScolaireID != "" {
		args = append(args, filter.AnneeScolaireID)
		base += fmt.Sprintf(" AND b.annee_scolaire_id = $%d", len(args))
	}
	if filter.CategorieDepenseID != "" {
		args = append(args, filter.CategorieDepenseID)
		base += fmt.Sprintf(" AND b.categorie_depense_id = $%d", len(args))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf("SELECT b.* %s ORDER BY b.libelle ASC LIMIT %d OFFSET %d", base, size, (page-1)*size)
	var budgets []models.Budget
	if err := r.db.SelectContext(ctx, &budgets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list budgets: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(b.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count budgets: %w", err)
	}
	return budgets, total, nil
}

// FindByID fetches a budget by ID.
func (r *BudgetRepository) FindByID(ctx context.Context, id string) (*models.Budget, error) {
	var budget models.Budget
	if err := r.db.GetContext(ctx, &budget, `SELECT * FROM budgets WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &budget, nil
}

// FindByCategorie returns the envelope tied to an expense category for a
// school year, if any.
func (r *BudgetRepository) FindByCategorie(ctx context.Context, categorieID, anneeScolaireID string) (*models.Budget, error) {
	const query = `SELECT * FROM budgets WHERE categorie_depense_id = $1 AND annee_scolaire_id = $2 AND deleted_at IS NULL`
	var budget models.Budget
	if err := r.db.GetContext(ctx, &budget, query, categorieID, anneeScolaireID); err != nil {
		return nil, err
	}
	return &budget, nil
}

// Create inserts a new budget envelope.
func (r *BudgetRepository) Create(ctx context.Context, budget *models.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.NewString()
	}
	if budget.Ref == "" {
		budget.Ref = uuid.NewString()
	}
	now := time.Now().UTC()
	budget.CreatedAt = now
	budget.UpdatedAt = now
	const query = `INSERT INTO budgets (id, ref, libelle, annee_scolaire_id, categorie_depense_id, montant_alloue, montant_depense, created_at, updated_at)
        VALUES (:id, :ref, :libelle, :annee_scolaire_id, :categorie_depense_id, :montant_alloue, :montant_depense, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, budget); err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

// Update modifies the envelope allocation. The spent amount is only moved
// by expense payments.
func (r *BudgetRepository) Update(ctx context.Context, budget *models.Budget) error {
	budget.UpdatedAt = time.Now().UTC()
	const query = `UPDATE budgets SET libelle = :libelle, montant_alloue = :montant_alloue, categorie_depense_id = :categorie_depense_id, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, budget); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

// SoftDelete timestamps the budget as deleted.
func (r *BudgetRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE budgets SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}
