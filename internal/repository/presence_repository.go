package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// PresenceRepository manages daily roll-call sheets.
type PresenceRepository struct {
	db *sqlx.DB
}

// NewPresenceRepository constructs a PresenceRepository.
func NewPresenceRepository(db *sqlx.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// ListByClasseDate returns the roll-call sheet of a class for a given day.
func (r *PresenceRepository) ListByClasseDate(ctx context.Context, classeID string, date time.Time) ([]models.Presence, error) {
	const query = `SELECT * FROM presences WHERE classe_id = $1 AND date = $2 ORDER BY created_at ASC`
	var presences []models.Presence
	if err := r.db.SelectContext(ctx, &presences, query, classeID, date); err != nil {
		return nil, fmt.Errorf("list presences: %w", err)
	}
	return presences, nil
}

// BulkUpsert saves a full roll-call sheet in one transaction, replacing any
// existing row for the same student and day.
func (r *PresenceRepository) BulkUpsert(ctx context.Context, presences []models.Presence) (err error) {
	if len(presences) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin presences upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `INSERT INTO presences (id, ref, eleve_id, classe_id, matiere_id, professeur_id, date, statut, commentaire, created_at, updated_at)
        VALUES (:id, :ref, :eleve_id, :classe_id, :matiere_id, :professeur_id, :date, :statut, :commentaire, :created_at, :updated_at)
        ON CONFLICT (eleve_id, date, matiere_id) DO UPDATE SET statut = EXCLUDED.statut, commentaire = EXCLUDED.commentaire, updated_at = EXCLUDED.updated_at`
	for i := range presences {
		if presences[i].ID == "" {
			presences[i].ID = uuid.NewString()
		}
		if presences[i].Ref == "" {
			presences[i].Ref = uuid.NewString()
		}
		if presences[i].CreatedAt.IsZero() {
			presences[i].CreatedAt = now
		}
		presences[i].UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, query, presences[i]); err != nil {
			return fmt.Errorf("upsert presence: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit presences upsert: %w", err)
	}
	return nil
}
