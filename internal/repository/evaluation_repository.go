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

// EvaluationRepository manages persistence for assessments.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs an EvaluationRepository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// List returns assessments matching the provided filters.
func (r *EvaluationRepository) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error) {
	base := "FROM evaluations ev"
	args := []interface{}{}
	conditions := []string{"ev.deleted_at IS NULL"}
	if filter.ClasseID != "" {
		args = append(args, filter.ClasseID)
		conditions = append(conditions, fmt.Sprintf("ev.classe_id = $%d", len(args)))
	}
	if filter.MatiereID != "" {
		args = append(args, filter.MatiereID)
		conditions = append(conditions, fmt.Sprintf("ev.matiere_id = $%d", len(args)))
	}
	if filter.TrimestreID != "" {
		args = append(args, filter.TrimestreID)
		conditions = append(conditions, fmt.Sprintf("ev.trimestre_id = $%d", len(args)))
	}
	if filter.ProfesseurID != "" {
		args = append(args, filter.ProfesseurID)
		conditions = append(conditions, fmt.Sprintf("ev.professeur_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("ev.type = $%d", len(args)))
	}
	if filter.Statut != "" {
		args = append(args, filter.Statut)
		conditions = append(conditions, fmt.Sprintf("ev.statut = $%d", len(args)))
	}
	if filter.DateDebut != nil {
		args = append(args, *filter.DateDebut)
		conditions = append(conditions, fmt.Sprintf("ev.date >= $%d", len(args)))
	}
	if filter.DateFin != nil {
		args = append(args, *filter.DateFin)
		conditions = append(conditions, fmt.Sprintf("ev.date < $%d", len(args)))
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

	query := fmt.Sprintf("SELECT ev.* %s ORDER BY ev.date DESC LIMIT %d OFFSET %d", base, size, (page-1)*size)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list evaluations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(ev.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count evaluations: %w", err)
	}
	return evaluations, total, nil
}

// FindByID fetches an assessment by ID.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.GetContext(ctx, &evaluation, `SELECT * FROM evaluations WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &evaluation, nil
}

// Create inserts a new assessment.
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	if evaluation.Ref == "" {
		evaluation.Ref = uuid.NewString()
	}
	if evaluation.Statut == "" {
		evaluation.Statut = models.EvaluationStatutProgrammee
	}
	now := time.Now().UTC()
	evaluation.CreatedAt = now
	evaluation.UpdatedAt = now
	const query = `INSERT INTO evaluations (id, ref, libelle, type, classe_id, matiere_id, trimestre_id, professeur_id, date, bareme, coefficient, statut, created_at, updated_at)
        VALUES (:id, :ref, :libelle, :type, :classe_id, :matiere_id, :trimestre_id, :professeur_id, :date, :bareme, :coefficient, :statut, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// Update modifies an existing assessment.
func (r *EvaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	evaluation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE evaluations SET libelle = :libelle, type = :type, date = :date, bareme = :bareme,
        coefficient = :coefficient, statut = :statut, updated_at = :updated_at WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	return nil
}

// SoftDelete timestamps the assessment as deleted.
func (r *EvaluationRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE evaluations SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	return nil
}
