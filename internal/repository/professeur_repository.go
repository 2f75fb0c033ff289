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

// ProfesseurRepository manages persistence for teacher records.
type ProfesseurRepository struct {
	db *sqlx.DB
}

// NewProfesseurRepository constructs a ProfesseurRepository.
func NewProfesseurRepository(db *sqlx.DB) *ProfesseurRepository {
	return &ProfesseurRepository{db: db}
}

// List returns teachers matching the provided filters.
func (r *ProfesseurRepository) List(ctx context.Context, filter models.ProfesseurFilter) ([]models.Professeur, int, error) {
	base := "FROM professeurs p"
	args := []interface{}{}
	conditions := []string{"p.deleted_at IS NULL"}
	if filter.Specialite != "" {
		conditions = append(conditions, fmt.Sprintf("p.specialite = $%d", len(args)+1))
		args = append(args, filter.Specialite)
	}
	if filter.Statut != "" {
		conditions = append(conditions, fmt.Sprintf("p.statut = $%d", len(args)+1))
		args = append(args, filter.Statut)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.nom) LIKE $%d OR LOWER(p.prenom) LIKE $%d OR LOWER(p.matricule) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"nom":        "p.nom",
		"matricule":  "p.matricule",
		"created_at": "p.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "p.nom"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf("SELECT p.* %s ORDER BY %s %s LIMIT %d OFFSET %d", base, column, order, size, (page-1)*size)
	var professeurs []models.Professeur
	if err := r.db.SelectContext(ctx, &professeurs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list professeurs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(p.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count professeurs: %w", err)
	}
	return professeurs, total, nil
}

// FindByID fetches a teacher by ID, including soft-deleted rows.
func (r *ProfesseurRepository) FindByID(ctx context.Context, id string) (*models.Professeur, error) {
	const query = `SELECT * FROM professeurs WHERE id = $1`
	var professeur models.Professeur
	if err := r.db.GetContext(ctx, &professeur, query, id); err != nil {
		return nil, err
	}
	return &professeur, nil
}

// professeurMatriculeLockKey namespaces the advisory lock guarding the
// per-year matricule sequence.
const professeurMatriculeLockKey = 4202

// Create inserts the teacher, deriving the matricule from a count of
// same-year rows under an advisory lock so simultaneous creations never
// compute the same sequence number.
func (r *ProfesseurRepository) Create(ctx context.Context, professeur *models.Professeur) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin professeur create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if professeur.ID == "" {
		professeur.ID = uuid.NewString()
	}
	if professeur.Ref == "" {
		professeur.Ref = uuid.NewString()
	}
	if professeur.Statut == "" {
		professeur.Statut = models.ProfesseurStatutActif
	}
	if professeur.Matricule == "" {
		year := now.Year()
		const lockSeqQuery = `SELECT pg_advisory_xact_lock($1, $2)`
		if _, err = tx.ExecContext(ctx, lockSeqQuery, professeurMatriculeLockKey, year); err != nil {
			return fmt.Errorf("lock matricule sequence: %w", err)
		}
		var seq int
		const seqQuery = `SELECT COUNT(*) FROM professeurs WHERE matricule LIKE $1`
		if err = tx.GetContext(ctx, &seq, seqQuery, fmt.Sprintf("PR%d-%%", year)); err != nil {
			return fmt.Errorf("count professeurs for matricule: %w", err)
		}
		professeur.Matricule = models.MatriculeProfesseur(year, seq+1)
	}
	professeur.CreatedAt = now
	professeur.UpdatedAt = now

	const insertQuery = `INSERT INTO professeurs (id, ref, matricule, nom, prenom, sexe, email, telephone, specialite, diplome, date_embauche, statut, created_at, updated_at)
        VALUES (:id, :ref, :matricule, :nom, :prenom, :sexe, :email, :telephone, :specialite, :diplome, :date_embauche, :statut, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, professeur); err != nil {
		return fmt.Errorf("insert professeur: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit professeur create: %w", err)
	}
	return nil
}

// Update modifies an existing teacher.
func (r *ProfesseurRepository) Update(ctx context.Context, professeur *models.Professeur) error {
	professeur.UpdatedAt = time.Now().UTC()
	const query = `UPDATE professeurs SET nom = :nom, prenom = :prenom, sexe = :sexe, email = :email, telephone = :telephone,
        specialite = :specialite, diplome = :diplome, date_embauche = :date_embauche, statut = :statut, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, professeur); err != nil {
		return fmt.Errorf("update professeur: %w", err)
	}
	return nil
}

// SoftDelete timestamps the teacher as deleted so payroll history stays
// resolvable.
func (r *ProfesseurRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE professeurs SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete professeur: %w", err)
	}
	return nil
}

// Count returns the number of active teachers.
func (r *ProfesseurRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(id) FROM professeurs WHERE deleted_at IS NULL`); err != nil {
		return 0, fmt.Errorf("count professeurs: %w", err)
	}
	return total, nil
}
