package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// FraisRepository manages fee plans and their installments.
type FraisRepository struct {
	db *sqlx.DB
}

// NewFraisRepository constructs a FraisRepository.
func NewFraisRepository(db *sqlx.DB) *FraisRepository {
	return &FraisRepository{db: db}
}

// ListByAnnee returns every fee plan of a school year with installments
// attached.
func (r *FraisRepository) ListByAnnee(ctx context.Context, anneeScolaireID string) ([]models.ConfigurationFrais, error) {
	const query = `SELECT * FROM configuration_frais WHERE annee_scolaire_id = $1 AND deleted_at IS NULL ORDER BY libelle`
	var configs []models.ConfigurationFrais
	if err := r.db.SelectContext(ctx, &configs, query, anneeScolaireID); err != nil {
		return nil, fmt.Errorf("list configurations frais: %w", err)
	}
	for i := range configs {
		tranches, err := r.listTranches(ctx, configs[i].ID)
		if err != nil {
			return nil, err
		}
		configs[i].Tranches = tranches
	}
	return configs, nil
}

// FindByID fetches a fee plan with its installments.
func (r *FraisRepository) FindByID(ctx context.Context, id string) (*models.ConfigurationFrais, error) {
	var config models.ConfigurationFrais
	if err := r.db.GetContext(ctx, &config, `SELECT * FROM configuration_frais WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	tranches, err := r.listTranches(ctx, id)
	if err != nil {
		return nil, err
	}
	config.Tranches = tranches
	return &config, nil
}

// FindByClasse fetches the fee plan of a class for a school year.
func (r *FraisRepository) FindByClasse(ctx context.Context, classeID, anneeScolaireID string) (*models.ConfigurationFrais, error) {
	const query = `SELECT * FROM configuration_frais WHERE classe_id = $1 AND annee_scolaire_id = $2 AND deleted_at IS NULL`
	var config models.ConfigurationFrais
	if err := r.db.GetContext(ctx, &config, query, classeID, anneeScolaireID); err != nil {
		return nil, err
	}
	tranches, err := r.listTranches(ctx, config.ID)
	if err != nil {
		return nil, err
	}
	config.Tranches = tranches
	return &config, nil
}

// Create inserts the fee plan and its installments in one transaction.
func (r *FraisRepository) Create(ctx context.Context, config *models.ConfigurationFrais) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin frais create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.Ref == "" {
		config.Ref = uuid.NewString()
	}
	config.NombreTranches = len(config.Tranches)
	config.CreatedAt = now
	config.UpdatedAt = now
	const insertQuery = `INSERT INTO configuration_frais (id, ref, classe_id, annee_scolaire_id, libelle, montant_total, nombre_tranches, created_at, updated_at)
        VALUES (:id, :ref, :classe_id, :annee_scolaire_id, :libelle, :montant_total, :nombre_tranches, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, config); err != nil {
		return fmt.Errorf("insert configuration frais: %w", err)
	}

	const trancheQuery = `INSERT INTO tranches (id, ref, configuration_frais_id, numero, libelle, montant, date_limite, created_at, updated_at)
        VALUES (:id, :ref, :configuration_frais_id, :numero, :libelle, :montant, :date_limite, :created_at, :updated_at)`
	for i := range config.Tranches {
		t := &config.Tranches[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Ref == "" {
			t.Ref = uuid.NewString()
		}
		t.ConfigurationFraisID = config.ID
		t.Numero = i + 1
		t.CreatedAt = now
		t.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, trancheQuery, t); err != nil {
			return fmt.Errorf("insert tranche %d: %w", t.Numero, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit frais create: %w", err)
	}
	return nil
}

// Update replaces the fee plan's header and installments atomically.
// Installments are rewritten wholesale; payment records reference tranches
// by number, not ID, so the swap is safe.
func (r *FraisRepository) Update(ctx context.Context, config *models.ConfigurationFrais) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin frais update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	config.NombreTranches = len(config.Tranches)
	config.UpdatedAt = now
	const updateQuery = `UPDATE configuration_frais SET libelle = :libelle, montant_total = :montant_total, nombre_tranches = :nombre_tranches, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err = tx.NamedExecContext(ctx, updateQuery, config); err != nil {
		return fmt.Errorf("update configuration frais: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM tranches WHERE configuration_frais_id = $1`, config.ID); err != nil {
		return fmt.Errorf("clear tranches: %w", err)
	}
	const trancheQuery = `INSERT INTO tranches (id, ref, configuration_frais_id, numero, libelle, montant, date_limite, created_at, updated_at)
        VALUES (:id, :ref, :configuration_frais_id, :numero, :libelle, :montant, :date_limite, :created_at, :updated_at)`
	for i := range config.Tranches {
		t := &config.Tranches[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Ref == "" {
			t.Ref = uuid.NewString()
		}
		t.ConfigurationFraisID = config.ID
		t.Numero = i + 1
		t.CreatedAt = now
		t.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, trancheQuery, t); err != nil {
			return fmt.Errorf("insert tranche %d: %w", t.Numero, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit frais update: %w", err)
	}
	return nil
}

// SoftDelete marks the fee plan deleted.
func (r *FraisRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE configuration_frais SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete configuration frais: %w", err)
	}
	return nil
}

func (r *FraisRepository) listTranches(ctx context.Context, configID string) ([]models.Tranche, error) {
	const query = `SELECT * FROM tranches WHERE configuration_frais_id = $1 ORDER BY numero`
	var tranches []models.Tranche
	if err := r.db.SelectContext(ctx, &tranches, query, configID); err != nil {
		return nil, fmt.Errorf("list tranches: %w", err)
	}
	return tranches, nil
}
