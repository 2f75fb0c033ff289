package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// StatsRepository runs the aggregate queries behind the dashboard.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// CountEleves returns the number of active students.
func (r *StatsRepository) CountEleves(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(id) FROM eleves WHERE deleted_at IS NULL`); err != nil {
		return 0, fmt.Errorf("count eleves: %w", err)
	}
	return total, nil
}

// CountProfesseurs returns the number of active teachers.
func (r *StatsRepository) CountProfesseurs(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(id) FROM professeurs WHERE deleted_at IS NULL`); err != nil {
		return 0, fmt.Errorf("count professeurs: %w", err)
	}
	return total, nil
}

// ResumeFinancier aggregates money flows over a date range.
func (r *StatsRepository) ResumeFinancier(ctx context.Context, debut, fin time.Time) (*models.ResumeFinancier, error) {
	const query = `SELECT
        (SELECT COALESCE(SUM(montant), 0) FROM paiements WHERE deleted_at IS NULL AND date_paiement >= $1 AND date_paiement < $2) AS total_paiements,
        (SELECT COALESCE(SUM(montant), 0) FROM depenses WHERE deleted_at IS NULL AND statut = 'payee' AND date_depense >= $1 AND date_depense < $2) AS total_depenses,
        (SELECT COALESCE(SUM(net_a_payer), 0) FROM paiement_salaires WHERE deleted_at IS NULL AND statut = 'paye' AND periode >= $1 AND periode < $2) AS total_salaires,
        (SELECT COALESCE(SUM(montant), 0) FROM avance_salaires WHERE deleted_at IS NULL AND statut IN ('payee', 'deduite') AND date >= $1 AND date < $2) AS total_avances`
	var resume models.ResumeFinancier
	if err := r.db.GetContext(ctx, &resume, query, debut, fin); err != nil {
		return nil, fmt.Errorf("financial summary: %w", err)
	}
	return &resume, nil
}
