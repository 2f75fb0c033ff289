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

// NoteRepository manages persistence for grade entries.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs a NoteRepository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// List returns grades matching the provided filters.
func (r *NoteRepository) List(ctx context.Context, filter models.NoteFilter) ([]models.NoteDetail, int, error) {
	base := `FROM notes n
        JOIN eleves e ON e.id = n.eleve_id
        JOIN matieres m ON m.id = n.matiere_id
        JOIN evaluations ev ON ev.id = n.evaluation_id`
	args := []interface{}{}
	conditions := []string{"n.deleted_at IS NULL"}
	if filter.EleveID != "" {
		args = append(args, filter.EleveID)
		conditions = append(conditions, fmt.Sprintf("n.eleve_id = $%d", len(args)))
	}
	if filter.MatiereID != "" {
		args = append(args, filter.MatiereID)
		conditions = append(conditions, fmt.Sprintf("n.matiere_id = $%d", len(args)))
	}
	if filter.EvaluationID != "" {
		args = append(args, filter.EvaluationID)
		conditions = append(conditions, fmt.Sprintf("n.evaluation_id = $%d", len(args)))
	}
	if filter.ClasseID != "" {
		args = append(args, filter.ClasseID)
		conditions = append(conditions, fmt.Sprintf("ev.classe_id = $%d", len(args)))
	}
	if filter.TrimestreID != "" {
		args = append(args, filter.TrimestreID)
		conditions = append(conditions, fmt.Sprintf("ev.trimestre_id = $%d", len(args)))
	}
	if filter.EstValidee != nil {
		args = append(args, *filter.EstValidee)
		conditions = append(conditions, fmt.Sprintf("n.est_validee = $%d", len(args)))
	}
	if filter.EstPubliee != nil {
		args = append(args, *filter.EstPubliee)
		conditions = append(conditions, fmt.Sprintf("n.est_publiee = $%d", len(args)))
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}

	query := fmt.Sprintf(`SELECT n.*, e.nom AS eleve_nom, e.prenom AS eleve_prenom, m.libelle AS matiere_libelle
        %s ORDER BY n.created_at DESC LIMIT %d OFFSET %d`, base, size, (page-1)*size)
	var notes []models.NoteDetail
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(n.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}
	return notes, total, nil
}

// FindByID fetches a grade by ID.
func (r *NoteRepository) FindByID(ctx context.Context, id string) (*models.Note, error) {
	var note models.Note
	if err := r.db.GetContext(ctx, &note, `SELECT * FROM notes WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &note, nil
}

// Create inserts a new grade with its derived columns already computed.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.Ref == "" {
		note.Ref = uuid.NewString()
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now
	const query = `INSERT INTO notes (id, ref, eleve_id, matiere_id, evaluation_id, valeur, note_sur, coefficient, note_sur_20, note_avec_coefficient, appreciation,
        est_validee, validee_par_id, validee_le, est_publiee, exclue_moyenne, motif_exclusion, note_rattrapee_id, historique_modifications, created_at, updated_at)
        VALUES (:id, :ref, :eleve_id, :matiere_id, :evaluation_id, :valeur, :note_sur, :coefficient, :note_sur_20, :note_avec_coefficient, :appreciation,
        :est_validee, :validee_par_id, :validee_le, :est_publiee, :exclue_moyenne, :motif_exclusion, :note_rattrapee_id, :historique_modifications, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// Update rewrites the grade row, derived columns and history included.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notes SET valeur = :valeur, note_sur = :note_sur, coefficient = :coefficient,
        note_sur_20 = :note_sur_20, note_avec_coefficient = :note_avec_coefficient, appreciation = :appreciation,
        est_validee = :est_validee, validee_par_id = :validee_par_id, validee_le = :validee_le, est_publiee = :est_publiee,
        exclue_moyenne = :exclue_moyenne, motif_exclusion = :motif_exclusion, note_rattrapee_id = :note_rattrapee_id,
        historique_modifications = :historique_modifications, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// SoftDelete timestamps the grade as deleted.
func (r *NoteRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE notes SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// MoyenneEleve computes a student's weighted average over validated,
// non-excluded grades for a subject and term. Grades superseded by a
// rattrapage are excluded in favour of the superseding entry.
func (r *NoteRepository) MoyenneEleve(ctx context.Context, eleveID, matiereID, trimestreID string) (*float64, error) {
	const query = `SELECT SUM(n.note_sur_20 * n.coefficient) / NULLIF(SUM(n.coefficient), 0)
        FROM notes n JOIN evaluations ev ON ev.id = n.evaluation_id
        WHERE n.eleve_id = $1 AND n.matiere_id = $2 AND ev.trimestre_id = $3
          AND n.deleted_at IS NULL AND n.est_validee = true AND n.exclue_moyenne = false
          AND NOT EXISTS (SELECT 1 FROM notes r WHERE r.note_rattrapee_id = n.id AND r.deleted_at IS NULL)`
	var moyenne *float64
	if err := r.db.GetContext(ctx, &moyenne, query, eleveID, matiereID, trimestreID); err != nil {
		return nil, fmt.Errorf("compute moyenne: %w", err)
	}
	return moyenne, nil
}
