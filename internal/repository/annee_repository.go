package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// AnneeRepository manages school years and their terms.
type AnneeRepository struct {
	db *sqlx.DB
}

// NewAnneeRepository constructs an AnneeRepository.
func NewAnneeRepository(db *sqlx.DB) *AnneeRepository {
	return &AnneeRepository{db: db}
}

// List returns all school years, most recent first.
func (r *AnneeRepository) List(ctx context.Context) ([]models.AnneeScolaire, error) {
	var annees []models.AnneeScolaire
	const query = `SELECT * FROM annees_scolaires WHERE deleted_at IS NULL ORDER BY date_debut DESC`
	if err := r.db.SelectContext(ctx, &annees, query); err != nil {
		return nil, fmt.Errorf("list annees: %w", err)
	}
	return annees, nil
}

// FindByID fetches a school year by ID.
func (r *AnneeRepository) FindByID(ctx context.Context, id string) (*models.AnneeScolaire, error) {
	var annee models.AnneeScolaire
	if err := r.db.GetContext(ctx, &annee, `SELECT * FROM annees_scolaires WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &annee, nil
}

// FindActive returns the single active school year.
func (r *AnneeRepository) FindActive(ctx context.Context) (*models.AnneeScolaire, error) {
	var annee models.AnneeScolaire
	if err := r.db.GetContext(ctx, &annee, `SELECT * FROM annees_scolaires WHERE est_active = true AND deleted_at IS NULL`); err != nil {
		return nil, err
	}
	return &annee, nil
}

// Create inserts a new school year.
func (r *AnneeRepository) Create(ctx context.Context, annee *models.AnneeScolaire) error {
	if annee.ID == "" {
		annee.ID = uuid.NewString()
	}
	if annee.Ref == "" {
		annee.Ref = uuid.NewString()
	}
	now := time.Now().UTC()
	annee.CreatedAt = now
	annee.UpdatedAt = now
	const query = `INSERT INTO annees_scolaires (id, ref, libelle, date_debut, date_fin, est_active, created_at, updated_at)
        VALUES (:id, :ref, :libelle, :date_debut, :date_fin, :est_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, annee); err != nil {
		return fmt.Errorf("create annee: %w", err)
	}
	return nil
}

// Update modifies an existing school year.
func (r *AnneeRepository) Update(ctx context.Context, annee *models.AnneeScolaire) error {
	annee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE annees_scolaires SET libelle = :libelle, date_debut = :date_debut, date_fin = :date_fin, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, annee); err != nil {
		return fmt.Errorf("update annee: %w", err)
	}
	return nil
}

// SetActive activates the given school year and deactivates every other in
// a single transaction so exactly one stays active.
func (r *AnneeRepository) SetActive(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin annee activation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE annees_scolaires SET est_active = false, updated_at = $1 WHERE est_active = true`, now); err != nil {
		return fmt.Errorf("deactivate annees: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE annees_scolaires SET est_active = true, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, now)
	if err != nil {
		return fmt.Errorf("activate annee: %w", err)
	}
	if affected, aerr := res.RowsAffected(); aerr == nil && affected == 0 {
		err = fmt.Errorf("annee %s not found", id)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit annee activation: %w", err)
	}
	return nil
}

// ListTrimestres returns terms matching the filter ordered by number.
func (r *AnneeRepository) ListTrimestres(ctx context.Context, filter models.TrimestreFilter) ([]models.Trimestre, error) {
	query := `SELECT * FROM trimestres WHERE deleted_at IS NULL`
	args := []interface{}{}
	if filter.AnneeScolaireID != "" {
		args = append(args, filter.AnneeScolaireID)
		query += fmt.Sprintf(" AND annee_scolaire_id = $%d", len(args))
	}
	if filter.EstActif != nil {
		args = append(args, *filter.EstActif)
		query += fmt.Sprintf(" AND est_actif = $%d", len(args))
	}
	query += " ORDER BY numero ASC"
	var trimestres []models.Trimestre
	if err := r.db.SelectContext(ctx, &trimestres, query, args...); err != nil {
		return nil, fmt.Errorf("list trimestres: %w", err)
	}
	return trimestres, nil
}

// FindTrimestre fetches a term by ID.
func (r *AnneeRepository) FindTrimestre(ctx context.Context, id string) (*models.Trimestre, error) {
	var trimestre models.Trimestre
	if err := r.db.GetContext(ctx, &trimestre, `SELECT * FROM trimestres WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &trimestre, nil
}

// CreateTrimestre inserts a new term.
func (r *AnneeRepository) CreateTrimestre(ctx context.Context, trimestre *models.Trimestre) error {
	if trimestre.ID == "" {
		trimestre.ID = uuid.NewString()
	}
	if trimestre.Ref == "" {
		trimestre.Ref = uuid.NewString()
	}
	now := time.Now().UTC()
	trimestre.CreatedAt = now
	trimestre.UpdatedAt = now
	const query = `INSERT INTO trimestres (id, ref, annee_scolaire_id, numero, libelle, date_debut, date_fin, est_actif, created_at, updated_at)
        VALUES (:id, :ref, :annee_scolaire_id, :numero, :libelle, :date_debut, :date_fin, :est_actif, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, trimestre); err != nil {
		return fmt.Errorf("create trimestre: %w", err)
	}
	return nil
}

// SetTrimestreActif activates one term of a school year and deactivates its
// siblings in a single transaction.
func (r *AnneeRepository) SetTrimestreActif(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trimestre activation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var anneeID string
	if err = tx.GetContext(ctx, &anneeID, `SELECT annee_scolaire_id FROM trimestres WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id); err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE trimestres SET est_actif = false, updated_at = $2 WHERE annee_scolaire_id = $1 AND est_actif = true`, anneeID, now); err != nil {
		return fmt.Errorf("deactivate trimestres: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE trimestres SET est_actif = true, updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return fmt.Errorf("activate trimestre: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit trimestre activation: %w", err)
	}
	return nil
}
