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

// JournalRepository persists audit entries. Entries are append-only.
type JournalRepository struct {
	db *sqlx.DB
}

// NewJournalRepository constructs a JournalRepository.
func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Create appends an audit entry.
func (r *JournalRepository) Create(ctx context.Context, entree *models.JournalEntree) error {
	if entree.ID == "" {
		entree.ID = uuid.NewString()
	}
	if entree.CreatedAt.IsZero() {
		entree.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO journal_entrees (id, acteur_id, action, entite, entite_id, avant, apres, description, ip_address, user_agent, created_at)
        VALUES (:id, :acteur_id, :action, :entite, :entite_id, :avant, :apres, :description, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entree); err != nil {
		return fmt.Errorf("create journal entry: %w", err)
	}
	return nil
}

// List returns audit entries matching the provided filters, newest first.
func (r *JournalRepository) List(ctx context.Context, filter models.JournalFilter) ([]models.JournalEntree, int, error) {
	base := "FROM journal_entrees j"
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.ActeurID != "" {
		args = append(args, filter.ActeurID)
		conditions = append(conditions, fmt.Sprintf("j.acteur_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("j.action = $%d", len(args)))
	}
	if filter.Entite != "" {
		args = append(args, filter.Entite)
		conditions = append(conditions, fmt.Sprintf("j.entite = $%d", len(args)))
	}
	if filter.EntiteID != "" {
		args = append(args, filter.EntiteID)
		conditions = append(conditions, fmt.Sprintf("j.entite_id = $%d", len(args)))
	}
	if filter.DateDebut != nil {
		args = append(args, *filter.DateDebut)
		conditions = append(conditions, fmt.Sprintf("j.created_at >= $%d", len(args)))
	}
	if filter.DateFin != nil {
		args = append(args, *filter.DateFin)
		conditions = append(conditions, fmt.Sprintf("j.created_at < $%d", len(args)))
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}

	query := fmt.Sprintf("SELECT j.* %s ORDER BY j.created_at DESC LIMIT %d OFFSET %d", base, size, (page-1)*size)
	var entrees []models.JournalEntree
	if err := r.db.SelectContext(ctx, &entrees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list journal entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(j.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count journal entries: %w", err)
	}
	return entrees, total, nil
}

// HistoriqueEntite returns the full audit trail of one entity instance.
func (r *JournalRepository) HistoriqueEntite(ctx context.Context, entite, entiteID string) ([]models.JournalEntree, error) {
	const query = `SELECT * FROM journal_entrees WHERE entite = $1 AND entite_id = $2 ORDER BY created_at DESC`
	var entrees []models.JournalEntree
	if err := r.db.SelectContext(ctx, &entrees, query, entite, entiteID); err != nil {
		return nil, fmt.Errorf("entity journal: %w", err)
	}
	return entrees, nil
}

// Purge removes entries older than the retention horizon.
func (r *JournalRepository) Purge(ctx context.Context, avant time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journal_entrees WHERE created_at < $1`, avant)
	if err != nil {
		return 0, fmt.Errorf("purge journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge journal count: %w", err)
	}
	return n, nil
}
