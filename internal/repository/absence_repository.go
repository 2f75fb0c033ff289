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

// AbsenceRepository manages persistence for absence records.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs an AbsenceRepository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// List returns absences matching the provided filters.
func (r *AbsenceRepository) List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, int, error) {
	base := "FROM absences a"
	args := []interface{}{}
	conditions := []string{"a.deleted_at IS NULL"}
	if filter.EleveID != "" {
		args = append(args, filter.EleveID)
		conditions = append(conditions, fmt.Sprintf("a.eleve_id = $%d", len(args)))
	}
	if filter.ClasseID != "" {
		args = append(args, filter.ClasseID)
		conditions = append(conditions, fmt.Sprintf("a.classe_id = $%d", len(args)))
	}
	if filter.MatiereID != "" {
		args = append(args, filter.MatiereID)
		conditions = append(conditions, fmt.Sprintf("a.matiere_id = $%d", len(args)))
	}
	if filter.ProfesseurID != "" {
		args = append(args, filter.ProfesseurID)
		conditions = append(conditions, fmt.Sprintf("a.professeur_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("a.type = $%d", len(args)))
	}
	if filter.Statut != "" {
		args = append(args, filter.Statut)
		conditions = append(conditions, fmt.Sprintf("a.statut = $%d", len(args)))
	}
	if filter.DateDebut != nil {
		args = append(args, *filter.DateDebut)
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)))
	}
	if filter.DateFin != nil {
		args = append(args, *filter.DateFin)
		conditions = append(conditions, fmt.Sprintf("a.date < $%d", len(args)))
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

	query := fmt.Sprintf("SELECT a.* %s ORDER BY a.date DESC LIMIT %d OFFSET %d", base, size, (page-1)*size)
	var absences []models.Absence
	if err := r.db.SelectContext(ctx, &absences, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list absences: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(a.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count absences: %w", err)
	}
	return absences, total, nil
}

// FindByID fetches an absence by ID.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.Absence, error) {
	var absence models.Absence
	if err := r.db.GetContext(ctx, &absence, `SELECT * FROM absences WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &absence, nil
}

// Create inserts a new absence with its duration already computed.
func (r *AbsenceRepository) Create(ctx context.Context, absence *models.Absence) error {
	if absence.ID == "" {
		absence.ID = uuid.NewString()
	}
	if absence.Ref == "" {
		absence.Ref = uuid.NewString()
	}
	if absence.Statut == "" {
		absence.Statut = models.AbsenceStatutEnAttente
	}
	now := time.Now().UTC()
	absence.CreatedAt = now
	absence.UpdatedAt = now
	const query = `INSERT INTO absences (id, ref, eleve_id, classe_id, matiere_id, professeur_id, type, date, heure_debut, heure_fin, duree_minutes,
        statut, decision, est_traitee, motif, justifiee_par_id, justifiee_le, sanction_type, sanction_details, sanction_appliquee, historique, created_at, updated_at)
        VALUES (:id, :ref, :eleve_id, :classe_id, :matiere_id, :professeur_id, :type, :date, :heure_debut, :heure_fin, :duree_minutes,
        :statut, :decision, :est_traitee, :motif, :justifiee_par_id, :justifiee_le, :sanction_type, :sanction_details, :sanction_appliquee, :historique, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	return nil
}

// Update rewrites the absence row, state machine fields and history
// included.
func (r *AbsenceRepository) Update(ctx context.Context, absence *models.Absence) error {
	absence.UpdatedAt = time.Now().UTC()
	const query = `UPDATE absences SET type = :type, date = :date, heure_debut = :heure_debut, heure_fin = :heure_fin, duree_minutes = :duree_minutes,
        statut = :statut, decision = :decision, est_traitee = :est_traitee, motif = :motif, justifiee_par_id = :justifiee_par_id, justifiee_le = :justifiee_le,
        sanction_type = :sanction_type, sanction_details = :sanction_details, sanction_appliquee = :sanction_appliquee, historique = :historique, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("update absence: %w", err)
	}
	return nil
}

// SoftDelete timestamps the absence as deleted.
func (r *AbsenceRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE absences SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete absence: %w", err)
	}
	return nil
}

// TauxParClasse aggregates absence counts per class over a date range for
// the dashboard.
func (r *AbsenceRepository) TauxParClasse(ctx context.Context, debut, fin time.Time) ([]models.TauxAbsence, error) {
	const query = `SELECT c.id AS classe_id, c.nom AS classe_nom,
        COUNT(a.id) AS nombre_absences,
        COUNT(a.id) FILTER (WHERE a.statut = 'justifiée') AS nombre_justifiees,
        CASE WHEN c.nombre_eleves > 0 THEN COUNT(a.id)::float / c.nombre_eleves ELSE 0 END AS taux
        FROM classes c LEFT JOIN absences a ON a.classe_id = c.id AND a.deleted_at IS NULL AND a.date >= $1 AND a.date < $2
        WHERE c.deleted_at IS NULL GROUP BY c.id, c.nom, c.nombre_eleves ORDER BY c.nom ASC`
	var taux []models.TauxAbsence
	if err := r.db.SelectContext(ctx, &taux, query, debut, fin); err != nil {
		return nil, fmt.Errorf("aggregate absences: %w", err)
	}
	return taux, nil
}
