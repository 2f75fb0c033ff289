package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// ResponsableRepository manages guardians and the student/guardian pivot.
type ResponsableRepository struct {
	db *sqlx.DB
}

// NewResponsableRepository constructs a ResponsableRepository.
func NewResponsableRepository(db *sqlx.DB) *ResponsableRepository {
	return &ResponsableRepository{db: db}
}

// List returns guardians matching the provided filters.
func (r *ResponsableRepository) List(ctx context.Context, filter models.ResponsableFilter) ([]models.Responsable, int, error) {
	base := "FROM responsables r"
	args := []interface{}{}
	conditions := []string{"r.deleted_at IS NULL"}
	if filter.EleveID != "" {
		base += " JOIN eleve_responsables er ON er.responsable_id = r.id"
		conditions = append(conditions, fmt.Sprintf("er.eleve_id = $%d", len(args)+1))
		args = append(args, filter.EleveID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.nom) LIKE $%d OR LOWER(r.prenom) LIKE $%d OR r.telephone LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	query := fmt.Sprintf("SELECT r.* %s ORDER BY r.nom ASC LIMIT %d OFFSET %d", base, size, (page-1)*size)
	var responsables []models.Responsable
	if err := r.db.SelectContext(ctx, &responsables, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list responsables: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(r.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count responsables: %w", err)
	}
	return responsables, total, nil
}

// FindByID fetches a guardian by ID.
func (r *ResponsableRepository) FindByID(ctx context.Context, id string) (*models.Responsable, error) {
	const query = `SELECT * FROM responsables WHERE id = $1 AND deleted_at IS NULL`
	var responsable models.Responsable
	if err := r.db.GetContext(ctx, &responsable, query, id); err != nil {
		return nil, err
	}
	return &responsable, nil
}

// Create inserts a new guardian.
func (r *ResponsableRepository) Create(ctx context.Context, responsable *models.Responsable) error {
	if responsable.ID == "" {
		responsable.ID = uuid.NewString()
	}
	if responsable.Ref == "" {
		responsable.Ref = uuid.NewString()
	}
	now := time.Now().UTC()
	responsable.CreatedAt = now
	responsable.UpdatedAt = now
	const query = `INSERT INTO responsables (id, ref, nom, prenom, profession, telephone, email, adresse, created_at, updated_at)
        VALUES (:id, :ref, :nom, :prenom, :profession, :telephone, :email, :adresse, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, responsable); err != nil {
		return fmt.Errorf("create responsable: %w", err)
	}
	return nil
}

// Update modifies an existing guardian.
func (r *ResponsableRepository) Update(ctx context.Context, responsable *models.Responsable) error {
	responsable.UpdatedAt = time.Now().UTC()
	const query = `UPDATE responsables SET nom = :nom, prenom = :prenom, profession = :profession, telephone = :telephone,
        email = :email, adresse = :adresse, updated_at = :updated_at WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, responsable); err != nil {
		return fmt.Errorf("update responsable: %w", err)
	}
	return nil
}

// SoftDelete timestamps the guardian as deleted.
func (r *ResponsableRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE responsables SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete responsable: %w", err)
	}
	return nil
}

// ListByEleve returns a student's guardians together with pivot attributes,
// ordered by priority.
func (r *ResponsableRepository) ListByEleve(ctx context.Context, eleveID string) ([]models.ResponsableDetail, error) {
	const query = `SELECT r.id, r.ref, r.nom, r.prenom, r.profession, r.telephone, r.email, r.adresse, r.created_at, r.updated_at, r.deleted_at,
        er.id AS "pivot.id", er.eleve_id AS "pivot.eleve_id", er.responsable_id AS "pivot.responsable_id",
        er.lien_parental AS "pivot.lien_parental", er.est_responsable_financier AS "pivot.est_responsable_financier",
        er.est_contact_urgence AS "pivot.est_contact_urgence", er.autorise_recuperation AS "pivot.autorise_recuperation",
        er.priorite AS "pivot.priorite", er.telephone_urgence AS "pivot.telephone_urgence",
        er.created_at AS "pivot.created_at", er.updated_at AS "pivot.updated_at"
        FROM responsables r JOIN eleve_responsables er ON er.responsable_id = r.id
        WHERE er.eleve_id = $1 AND r.deleted_at IS NULL ORDER BY er.priorite ASC`
	var details []models.ResponsableDetail
	if err := r.db.SelectContext(ctx, &details, query, eleveID); err != nil {
		return nil, fmt.Errorf("list responsables for eleve: %w", err)
	}
	return details, nil
}

// Attach links a guardian to a student with the given pivot attributes.
func (r *ResponsableRepository) Attach(ctx context.Context, pivot *models.EleveResponsable) error {
	if pivot.ID == "" {
		pivot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pivot.CreatedAt = now
	pivot.UpdatedAt = now
	const query = `INSERT INTO eleve_responsables (id, eleve_id, responsable_id, lien_parental, est_responsable_financier, est_contact_urgence, autorise_recuperation, priorite, telephone_urgence, created_at, updated_at)
        VALUES (:id, :eleve_id, :responsable_id, :lien_parental, :est_responsable_financier, :est_contact_urgence, :autorise_recuperation, :priorite, :telephone_urgence, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pivot); err != nil {
		return fmt.Errorf("attach responsable: %w", err)
	}
	return nil
}

// UpdatePivot rewrites the pivot attributes of an existing link.
func (r *ResponsableRepository) UpdatePivot(ctx context.Context, pivot *models.EleveResponsable) error {
	pivot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE eleve_responsables SET lien_parental = :lien_parental, est_responsable_financier = :est_responsable_financier,
        est_contact_urgence = :est_contact_urgence, autorise_recuperation = :autorise_recuperation, priorite = :priorite,
        telephone_urgence = :telephone_urgence, updated_at = :updated_at
        WHERE eleve_id = :eleve_id AND responsable_id = :responsable_id`
	if _, err := r.db.NamedExecContext(ctx, query, pivot); err != nil {
		return fmt.Errorf("update pivot: %w", err)
	}
	return nil
}

// Detach removes the link between a student and a guardian.
func (r *ResponsableRepository) Detach(ctx context.Context, eleveID, responsableID string) error {
	const query = `DELETE FROM eleve_responsables WHERE eleve_id = $1 AND responsable_id = $2`
	if _, err := r.db.ExecContext(ctx, query, eleveID, responsableID); err != nil {
		return fmt.Errorf("detach responsable: %w", err)
	}
	return nil
}

// FindPivot loads one student/guardian link.
func (r *ResponsableRepository) FindPivot(ctx context.Context, eleveID, responsableID string) (*models.EleveResponsable, error) {
	const query = `SELECT * FROM eleve_responsables WHERE eleve_id = $1 AND responsable_id = $2`
	var pivot models.EleveResponsable
	if err := r.db.GetContext(ctx, &pivot, query, eleveID, responsableID); err != nil {
		return nil, err
	}
	return &pivot, nil
}
