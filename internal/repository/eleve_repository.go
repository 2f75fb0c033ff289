package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// ErrClassePleine is returned when an enrollment or transfer would exceed
// the class capacity.
var ErrClassePleine = errors.New("classe pleine")

// EleveRepository manages persistence for student records. Every operation
// that changes class membership adjusts the owning class headcount in the
// same transaction.
type EleveRepository struct {
	db *sqlx.DB
}

// NewEleveRepository constructs an EleveRepository.
func NewEleveRepository(db *sqlx.DB) *EleveRepository {
	return &EleveRepository{db: db}
}

// List returns students matching the provided filters.
func (r *EleveRepository) List(ctx context.Context, filter models.EleveFilter) ([]models.EleveDetail, int, error) {
	base := "FROM eleves e LEFT JOIN classes c ON c.id = e.classe_id"
	args := []interface{}{}
	conditions := []string{"1=1"}
	if !filter.AvecSupprimes {
		conditions = append(conditions, "e.deleted_at IS NULL")
	}
	if filter.ClasseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.classe_id = $%d", len(args)+1))
		args = append(args, filter.ClasseID)
	}
	if filter.Statut != "" {
		conditions = append(conditions, fmt.Sprintf("e.statut = $%d", len(args)+1))
		args = append(args, filter.Statut)
	}
	if filter.Sexe != "" {
		conditions = append(conditions, fmt.Sprintf("e.sexe = $%d", len(args)+1))
		args = append(args, filter.Sexe)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(e.nom) LIKE $%d OR LOWER(e.prenom) LIKE $%d OR LOWER(e.matricule) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"nom":        "e.nom",
		"matricule":  "e.matricule",
		"created_at": "e.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.*, c.nom AS classe_nom, c.niveau AS classe_niveau
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var eleves []models.EleveDetail
	if err := r.db.SelectContext(ctx, &eleves, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list eleves: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(e.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count eleves: %w", err)
	}
	return eleves, total, nil
}

// FindByID fetches a student detail by ID, including soft-deleted rows.
func (r *EleveRepository) FindByID(ctx context.Context, id string) (*models.EleveDetail, error) {
	const query = `SELECT e.*, c.nom AS classe_nom, c.niveau AS classe_niveau
        FROM eleves e LEFT JOIN classes c ON c.id = e.classe_id WHERE e.id = $1`
	var detail models.EleveDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// eleveMatriculeLockKey namespaces the advisory lock guarding the
// per-year matricule sequence. The classe row lock is not enough:
// concurrent creations into different classes would read the same count.
const eleveMatriculeLockKey = 4201

// Create inserts the student inside one transaction: the class row is
// locked for the capacity check and headcount increment, and the year
// sequence is derived from a count of same-year rows under an advisory
// lock so concurrent creations never compute the same matricule.
func (r *EleveRepository) Create(ctx context.Context, eleve *models.Eleve) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin eleve create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacite, effectif int
	const lockQuery = `SELECT capacite, nombre_eleves FROM classes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	if err = tx.QueryRowxContext(ctx, lockQuery, eleve.ClasseID).Scan(&capacite, &effectif); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock classe: %w", err)
	}
	if capacite > 0 && effectif >= capacite {
		err = ErrClassePleine
		return err
	}

	now := time.Now().UTC()
	if eleve.ID == "" {
		eleve.ID = uuid.NewString()
	}
	if eleve.Ref == "" {
		eleve.Ref = uuid.NewString()
	}
	if eleve.Statut == "" {
		eleve.Statut = models.EleveStatutInscrit
	}
	if eleve.DateInscription.IsZero() {
		eleve.DateInscription = now
	}
	if eleve.Matricule == "" {
		year := now.Year()
		const lockSeqQuery = `SELECT pg_advisory_xact_lock($1, $2)`
		if _, err = tx.ExecContext(ctx, lockSeqQuery, eleveMatriculeLockKey, year); err != nil {
			return fmt.Errorf("lock matricule sequence: %w", err)
		}
		var seq int
		const seqQuery = `SELECT COUNT(*) FROM eleves WHERE matricule LIKE $1`
		if err = tx.GetContext(ctx, &seq, seqQuery, fmt.Sprintf("EL%d-%%", year)); err != nil {
			return fmt.Errorf("count eleves for matricule: %w", err)
		}
		eleve.Matricule = models.MatriculeEleve(year, seq+1)
	}
	eleve.CreatedAt = now
	eleve.UpdatedAt = now

	const insertQuery = `INSERT INTO eleves (id, ref, matricule, nom, prenom, sexe, date_naissance, lieu_naissance, adresse, telephone, classe_id, statut, date_inscription, created_at, updated_at)
        VALUES (:id, :ref, :matricule, :nom, :prenom, :sexe, :date_naissance, :lieu_naissance, :adresse, :telephone, :classe_id, :statut, :date_inscription, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, eleve); err != nil {
		return fmt.Errorf("insert eleve: %w", err)
	}

	const counterQuery = `UPDATE classes SET nombre_eleves = nombre_eleves + 1, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, counterQuery, eleve.ClasseID, now); err != nil {
		return fmt.Errorf("increment classe headcount: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit eleve create: %w", err)
	}
	return nil
}

// Update modifies identity fields of an existing student. Class membership
// changes go through Transfer instead.
func (r *EleveRepository) Update(ctx context.Context, eleve *models.Eleve) error {
	eleve.UpdatedAt = time.Now().UTC()
	const query = `UPDATE eleves SET nom = :nom, prenom = :prenom, sexe = :sexe, date_naissance = :date_naissance,
        lieu_naissance = :lieu_naissance, adresse = :adresse, telephone = :telephone, statut = :statut, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, eleve); err != nil {
		return fmt.Errorf("update eleve: %w", err)
	}
	return nil
}

// Transfer moves the student to another class, decrementing the previous
// class headcount and incrementing the new one atomically.
func (r *EleveRepository) Transfer(ctx context.Context, id, versClasseID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin eleve transfer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var depuisClasseID string
	const lockQuery = `SELECT classe_id FROM eleves WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	if err = tx.GetContext(ctx, &depuisClasseID, lockQuery, id); err != nil {
		return err
	}
	if depuisClasseID == versClasseID {
		return tx.Commit()
	}

	var capacite, effectif int
	const classeQuery = `SELECT capacite, nombre_eleves FROM classes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	if err = tx.QueryRowxContext(ctx, classeQuery, versClasseID).Scan(&capacite, &effectif); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock destination classe: %w", err)
	}
	if capacite > 0 && effectif >= capacite {
		err = ErrClassePleine
		return err
	}

	now := time.Now().UTC()
	const moveQuery = `UPDATE eleves SET classe_id = $2, statut = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, moveQuery, id, versClasseID, models.EleveStatutInscrit, now); err != nil {
		return fmt.Errorf("move eleve: %w", err)
	}
	const decQuery = `UPDATE classes SET nombre_eleves = nombre_eleves - 1, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, decQuery, depuisClasseID, now); err != nil {
		return fmt.Errorf("decrement previous classe: %w", err)
	}
	const incQuery = `UPDATE classes SET nombre_eleves = nombre_eleves + 1, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, incQuery, versClasseID, now); err != nil {
		return fmt.Errorf("increment new classe: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit eleve transfer: %w", err)
	}
	return nil
}

// SoftDelete timestamps the student as deleted and decrements the class
// headcount. Historical grades and payments keep resolving against the row.
func (r *EleveRepository) SoftDelete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin eleve delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var classeID string
	const markQuery = `UPDATE eleves SET deleted_at = $2, statut = $3, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL RETURNING classe_id`
	if err = tx.GetContext(ctx, &classeID, markQuery, id, now, models.EleveStatutRetire); err != nil {
		return err
	}
	const decQuery = `UPDATE classes SET nombre_eleves = nombre_eleves - 1, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, decQuery, classeID, now); err != nil {
		return fmt.Errorf("decrement classe headcount: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit eleve delete: %w", err)
	}
	return nil
}

// Restore clears the deletion timestamp and re-increments the class
// headcount.
func (r *EleveRepository) Restore(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin eleve restore: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var classeID string
	const markQuery = `UPDATE eleves SET deleted_at = NULL, statut = $3, updated_at = $2 WHERE id = $1 AND deleted_at IS NOT NULL RETURNING classe_id`
	if err = tx.GetContext(ctx, &classeID, markQuery, id, now, models.EleveStatutInscrit); err != nil {
		return err
	}
	const incQuery = `UPDATE classes SET nombre_eleves = nombre_eleves + 1, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, incQuery, classeID, now); err != nil {
		return fmt.Errorf("increment classe headcount: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit eleve restore: %w", err)
	}
	return nil
}
