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

// ClasseRepository manages persistence for class records.
type ClasseRepository struct {
	db *sqlx.DB
}

// NewClasseRepository constructs a ClasseRepository.
func NewClasseRepository(db *sqlx.DB) *ClasseRepository {
	return &ClasseRepository{db: db}
}

// List returns classes matching the provided filters.
func (r *ClasseRepository) List(ctx context.Context, filter models.ClasseFilter) ([]models.Classe, int, error) {
	base := "FROM classes c"
	args := []interface{}{}
	conditions := []string{"c.deleted_at IS NULL"}
	if filter.Niveau != "" {
		conditions = append(conditions, fmt.Sprintf("c.niveau = $%d", len(args)+1))
		args = append(args, filter.Niveau)
	}
	if filter.AnneeScolaireID != "" {
		conditions = append(conditions, fmt.Sprintf("c.annee_scolaire_id = $%d", len(args)+1))
		args = append(args, filter.AnneeScolaireID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.nom) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"nom":           "c.nom",
		"niveau":        "c.niveau",
		"nombre_eleves": "c.nombre_eleves",
		"created_at":    "c.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "c.nom"
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

	query := fmt.Sprintf("SELECT c.* %s ORDER BY %s %s LIMIT %d OFFSET %d", base, column, order, size, (page-1)*size)
	var classes []models.Classe
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(c.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class by ID.
func (r *ClasseRepository) FindByID(ctx context.Context, id string) (*models.Classe, error) {
	const query = `SELECT * FROM classes WHERE id = $1 AND deleted_at IS NULL`
	var classe models.Classe
	if err := r.db.GetContext(ctx, &classe, query, id); err != nil {
		return nil, err
	}
	return &classe, nil
}

// Create inserts a new class with a zero headcount.
func (r *ClasseRepository) Create(ctx context.Context, classe *models.Classe) error {
	if classe.ID == "" {
		classe.ID = uuid.NewString()
	}
	if classe.Ref == "" {
		classe.Ref = uuid.NewString()
	}
	now := time.Now().UTC()
	classe.NombreEleves = 0
	classe.CreatedAt = now
	classe.UpdatedAt = now
	const query = `INSERT INTO classes (id, ref, nom, niveau, section, capacite, nombre_eleves, annee_scolaire_id, titulaire_id, created_at, updated_at)
        VALUES (:id, :ref, :nom, :niveau, :section, :capacite, :nombre_eleves, :annee_scolaire_id, :titulaire_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classe); err != nil {
		return fmt.Errorf("create classe: %w", err)
	}
	return nil
}

// Update modifies an existing class. The headcount column is deliberately
// not touched here.
func (r *ClasseRepository) Update(ctx context.Context, classe *models.Classe) error {
	classe.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET nom = :nom, niveau = :niveau, section = :section, capacite = :capacite,
        annee_scolaire_id = :annee_scolaire_id, titulaire_id = :titulaire_id, updated_at = :updated_at
        WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, classe); err != nil {
		return fmt.Errorf("update classe: %w", err)
	}
	return nil
}

// SoftDelete marks an empty class as deleted.
func (r *ClasseRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE classes SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL AND nombre_eleves = 0`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete classe: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("classe %s not empty or not found", id)
	}
	return nil
}

// Effectifs returns per-class headcounts for the dashboard.
func (r *ClasseRepository) Effectifs(ctx context.Context, anneeScolaireID string) ([]models.EffectifClasse, error) {
	const query = `SELECT c.id AS classe_id, c.nom AS classe_nom, c.nombre_eleves, c.capacite
        FROM classes c WHERE c.annee_scolaire_id = $1 AND c.deleted_at IS NULL ORDER BY c.nom ASC`
	var effectifs []models.EffectifClasse
	if err := r.db.SelectContext(ctx, &effectifs, query, anneeScolaireID); err != nil {
		return nil, fmt.Errorf("list effectifs: %w", err)
	}
	return effectifs, nil
}
