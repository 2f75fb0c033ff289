package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// MatiereRepository manages persistence for subjects.
type MatiereRepository struct {
	db *sqlx.DB
}

// NewMatiereRepository constructs a MatiereRepository.
func NewMatiereRepository(db *sqlx.DB) *MatiereRepository {
	return &MatiereRepository{db: db}
}

// List returns subjects matching the provided filters.
func (r *MatiereRepository) List(ctx context.Context, filter models.MatiereFilter) ([]models.Matiere, int, error) {
	base := "FROM matieres m WHERE m.deleted_at IS NULL"
	args := []interface{}{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(m.libelle) LIKE $%d OR LOWER(m.code) LIKE $%d)", len(args), len(args))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}

	query := fmt.Sprintf("SELECT m.* %s ORDER BY m.libelle ASC LIMIT %d OFFSET %d", base, size, (page-1)*size)
	var matieres []models.Matiere
	if err := r.db.SelectContext(ctx, &matieres, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list matieres: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(m.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count matieres: %w", err)
	}
	return matieres, total, nil
}

// FindByID fetches a subject by ID.
func (r *MatiereRepository) FindByID(ctx context.Context, id string) (*models.Matiere, error) {
	var matiere models.Matiere
	if err := r.db.GetContext(ctx, &matiere, `SELECT * FROM matieres WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &matiere, nil
}

// ExistsByCode checks for a duplicate subject code, optionally excluding an ID.
func (r *MatiereRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM matieres WHERE code = $1 AND deleted_at IS NULL"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check matiere code: %w", err)
	}
	return true, nil
}

// Create inserts a new subject.
func (r *MatiereRepository) Create(ctx context.Context, matiere *models.Matiere) error {
	if matiere.ID == "" {
		matiere.ID = uuid.NewString()
	}
	if matiere.Ref == "" {
		matiere.Ref = uuid.NewString()
	}
	now := time.Now().UTC()
	matiere.CreatedAt = now
	matiere.UpdatedAt = now
	const query = `INSERT INTO matieres (id, ref, code, libelle, coefficient, description, created_at, updated_at)
        VALUES (:id, :ref, :code, :libelle, :coefficient, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, matiere); err != nil {
		return fmt.Errorf("create matiere: %w", err)
	}
	return nil
}

// Update modifies an existing subject.
func (r *MatiereRepository) Update(ctx context.Context, matiere *models.Matiere) error {
	matiere.UpdatedAt = time.Now().UTC()
	const query = `UPDATE matieres SET code = :code, libelle = :libelle, coefficient = :coefficient, description = :description, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, matiere); err != nil {
		return fmt.Errorf("update matiere: %w", err)
	}
	return nil
}

// SoftDelete timestamps the subject as deleted.
func (r *MatiereRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE matieres SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete matiere: %w", err)
	}
	return nil
}
