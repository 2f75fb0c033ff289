package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/ecole-adm-api/internal/models"
)

// SalaireRepository manages teacher compensation configs, cash advances and
// payroll runs. The status cascades (advance paid → expense, payroll paid →
// expense + advance deduction) each run inside one transaction so a failed
// step leaves nothing half applied.
type SalaireRepository struct {
	db *sqlx.DB
}

// NewSalaireRepository constructs a SalaireRepository.
func NewSalaireRepository(db *sqlx.DB) *SalaireRepository {
	return &SalaireRepository{db: db}
}

// FindConfigActive returns the teacher's active compensation config.
func (r *SalaireRepository) FindConfigActive(ctx context.Context, professeurID string) (*models.ProfSalaire, error) {
	const query = `SELECT * FROM prof_salaires WHERE professeur_id = $1 AND est_actif = true`
	var config models.ProfSalaire
	if err := r.db.GetContext(ctx, &config, query, professeurID); err != nil {
		return nil, err
	}
	return &config, nil
}

// ListConfigs returns every compensation config of a teacher, newest first.
func (r *SalaireRepository) ListConfigs(ctx context.Context, professeurID string) ([]models.ProfSalaire, error) {
	const query = `SELECT * FROM prof_salaires WHERE professeur_id = $1 ORDER BY date_effet DESC`
	var configs []models.ProfSalaire
	if err := r.db.SelectContext(ctx, &configs, query, professeurID); err != nil {
		return nil, fmt.Errorf("list prof salaires: %w", err)
	}
	return configs, nil
}

// SetConfig activates a new compensation config and deactivates the
// previous active one for the teacher in a single transaction, keeping the
// one-active-config invariant.
func (r *SalaireRepository) SetConfig(ctx context.Context, config *models.ProfSalaire) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin salaire config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const deactivateQuery = `UPDATE prof_salaires SET est_actif = false, updated_at = $2 WHERE professeur_id = $1 AND est_actif = true`
	if _, err = tx.ExecContext(ctx, deactivateQuery, config.ProfesseurID, now); err != nil {
		return fmt.Errorf("deactivate previous config: %w", err)
	}

	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.Ref == "" {
		config.Ref = uuid.NewString()
	}
	config.EstActif = true
	if config.DateEffet.IsZero() {
		config.DateEffet = now
	}
	config.CreatedAt = now
	config.UpdatedAt = now
	const insertQuery = `INSERT INTO prof_salaires (id, ref, professeur_id, mode, taux_horaire, salaire_mensuel, est_actif, date_effet, created_at, updated_at)
        VALUES (:id, :ref, :professeur_id, :mode, :taux_horaire, :salaire_mensuel, :est_actif, :date_effet, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, config); err != nil {
		return fmt.Errorf("insert salaire config: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit salaire config: %w", err)
	}
	return nil
}

// ListAvances returns cash advances matching the provided filters.
func (r *SalaireRepository) ListAvances(ctx context.Context, filter models.AvanceSalaireFilter) ([]models.AvanceSalaire, int, error) {
	base := "FROM avance_salaires a"
	args := []interface{}{}
	conditions := []string{"a.deleted_at IS NULL"}
	if filter.ProfesseurID != "" {
		args = append(args, filter.ProfesseurID)
		conditions = append(conditions, fmt.Sprintf("a.professeur_id = $%d", len(args)))
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
	var avances []models.AvanceSalaire
	if err := r.db.SelectContext(ctx, &avances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list avances: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(a.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count avances: %w", err)
	}
	return avances, total, nil
}

// FindAvanceByID fetches a cash advance by ID.
func (r *SalaireRepository) FindAvanceByID(ctx context.Context, id string) (*models.AvanceSalaire, error) {
	var avance models.AvanceSalaire
	if err := r.db.GetContext(ctx, &avance, `SELECT * FROM avance_salaires WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &avance, nil
}

// CreateAvance inserts the advance. When it arrives already paid, the
// matching ledger expense is created in the same transaction.
func (r *SalaireRepository) CreateAvance(ctx context.Context, avance *models.AvanceSalaire, depense *models.Depense) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin avance create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if avance.ID == "" {
		avance.ID = uuid.NewString()
	}
	if avance.Ref == "" {
		avance.Ref = uuid.NewString()
	}
	if avance.Statut == "" {
		avance.Statut = models.AvanceStatutEnAttente
	}
	if avance.Date.IsZero() {
		avance.Date = now
	}
	avance.CreatedAt = now
	avance.UpdatedAt = now
	const insertQuery = `INSERT INTO avance_salaires (id, ref, professeur_id, montant, motif, date, statut, created_at, updated_at)
        VALUES (:id, :ref, :professeur_id, :montant, :motif, :date, :statut, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, avance); err != nil {
		return fmt.Errorf("insert avance: %w", err)
	}

	if avance.Statut == models.AvanceStatutPayee && depense != nil {
		if err = insertDepenseTx(ctx, tx, depense); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit avance create: %w", err)
	}
	return nil
}

// MarquerAvancePayee flips an advance to paid and creates the matching
// ledger expense atomically.
func (r *SalaireRepository) MarquerAvancePayee(ctx context.Context, id string, depense *models.Depense) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin avance payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const payQuery = `UPDATE avance_salaires SET statut = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL AND statut = $4`
	res, err := tx.ExecContext(ctx, payQuery, id, models.AvanceStatutPayee, now, models.AvanceStatutEnAttente)
	if err != nil {
		return fmt.Errorf("mark avance paid: %w", err)
	}
	if affected, aerr := res.RowsAffected(); aerr == nil && affected == 0 {
		err = fmt.Errorf("avance %s not pending", id)
		return err
	}
	if depense != nil {
		if err = insertDepenseTx(ctx, tx, depense); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit avance payment: %w", err)
	}
	return nil
}

// TotalAvancesPayees sums the teacher's paid advances inside a period,
// the amount a payroll run will deduct.
func (r *SalaireRepository) TotalAvancesPayees(ctx context.Context, professeurID string, debut, fin time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(montant), 0) FROM avance_salaires
        WHERE professeur_id = $1 AND statut = $2 AND date >= $3 AND date < $4 AND deleted_at IS NULL`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, professeurID, models.AvanceStatutPayee, debut, fin); err != nil {
		return decimal.Zero, fmt.Errorf("sum avances: %w", err)
	}
	return total, nil
}

// ListPaiements returns payroll runs matching the provided filters.
func (r *SalaireRepository) ListPaiements(ctx context.Context, filter models.PaiementSalaireFilter) ([]models.PaiementSalaire, int, error) {
	base := "FROM paiement_salaires p"
	args := []interface{}{}
	conditions := []string{"p.deleted_at IS NULL"}
	if filter.ProfesseurID != "" {
		args = append(args, filter.ProfesseurID)
		conditions = append(conditions, fmt.Sprintf("p.professeur_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("p.type = $%d", len(args)))
	}
	if filter.Statut != "" {
		args = append(args, filter.Statut)
		conditions = append(conditions, fmt.Sprintf("p.statut = $%d", len(args)))
	}
	if filter.Periode != nil {
		debut := time.Date(filter.Periode.Year(), filter.Periode.Month(), 1, 0, 0, 0, 0, time.UTC)
		args = append(args, debut)
		conditions = append(conditions, fmt.Sprintf("p.periode >= $%d", len(args)))
		args = append(args, debut.AddDate(0, 1, 0))
		conditions = append(conditions, fmt.Sprintf("p.periode < $%d", len(args)))
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

	query := fmt.Sprintf("SELECT p.* %s ORDER BY p.periode DESC LIMIT %d OFFSET %d", base, size, (page-1)*size)
	var paiements []models.PaiementSalaire
	if err := r.db.SelectContext(ctx, &paiements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list paiement salaires: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(p.id) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count paiement salaires: %w", err)
	}
	return paiements, total, nil
}

// FindPaiementByID fetches a payroll run by ID.
func (r *SalaireRepository) FindPaiementByID(ctx context.Context, id string) (*models.PaiementSalaire, error) {
	var paiement models.PaiementSalaire
	if err := r.db.GetContext(ctx, &paiement, `SELECT * FROM paiement_salaires WHERE id = $1 AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &paiement, nil
}

// CreatePaiement inserts a payroll run with its net figure already
// computed.
func (r *SalaireRepository) CreatePaiement(ctx context.Context, paiement *models.PaiementSalaire) error {
	if paiement.ID == "" {
		paiement.ID = uuid.NewString()
	}
	if paiement.Ref == "" {
		paiement.Ref = uuid.NewString()
	}
	if paiement.Statut == "" {
		paiement.Statut = models.PaiementSalaireStatutEnAttente
	}
	now := time.Now().UTC()
	paiement.CreatedAt = now
	paiement.UpdatedAt = now
	const query = `INSERT INTO paiement_salaires (id, ref, professeur_id, type, periode, salaire_base, avances_deduites, retenues, net_a_payer, statut, paye_le, commentaire, created_at, updated_at)
        VALUES (:id, :ref, :professeur_id, :type, :periode, :salaire_base, :avances_deduites, :retenues, :net_a_payer, :statut, :paye_le, :commentaire, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, paiement); err != nil {
		return fmt.Errorf("create paiement salaire: %w", err)
	}
	return nil
}

// MarquerPaiementPaye runs the payment cascade in one transaction: the run
// flips to paid, the ledger expense is inserted, and for normal runs every
// paid advance of the teacher within the calendar month of the period is
// flipped to deducted.
func (r *SalaireRepository) MarquerPaiementPaye(ctx context.Context, paiement *models.PaiementSalaire, depense *models.Depense) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin salaire payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const payQuery = `UPDATE paiement_salaires SET statut = $2, paye_le = $3, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL AND statut = $4`
	res, err := tx.ExecContext(ctx, payQuery, paiement.ID, models.PaiementSalaireStatutPaye, now, models.PaiementSalaireStatutEnAttente)
	if err != nil {
		return fmt.Errorf("mark salaire paid: %w", err)
	}
	if affected, aerr := res.RowsAffected(); aerr == nil && affected == 0 {
		err = fmt.Errorf("paiement salaire %s not pending", paiement.ID)
		return err
	}

	if depense != nil {
		if err = insertDepenseTx(ctx, tx, depense); err != nil {
			return err
		}
	}

	if paiement.Type == models.PaiementSalaireTypeNormal {
		debut, fin := paiement.PeriodeMois()
		const deduireQuery = `UPDATE avance_salaires SET statut = $2, updated_at = $3
            WHERE professeur_id = $1 AND statut = $4 AND date >= $5 AND date < $6 AND deleted_at IS NULL`
		if _, err = tx.ExecContext(ctx, deduireQuery, paiement.ProfesseurID, models.AvanceStatutDeduite, now, models.AvanceStatutPayee, debut, fin); err != nil {
			return fmt.Errorf("deduct avances: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit salaire payment: %w", err)
	}
	return nil
}

// TotalSalairesPayes sums paid payroll nets over a date range.
func (r *SalaireRepository) TotalSalairesPayes(ctx context.Context, debut, fin time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(net_a_payer), 0) FROM paiement_salaires
        WHERE deleted_at IS NULL AND statut = 'paye' AND periode >= $1 AND periode < $2`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, debut, fin); err != nil {
		return decimal.Zero, fmt.Errorf("sum salaires: %w", err)
	}
	return total, nil
}

func insertDepenseTx(ctx context.Context, tx *sqlx.Tx, depense *models.Depense) error {
	now := time.Now().UTC()
	if depense.ID == "" {
		depense.ID = uuid.NewString()
	}
	if depense.Ref == "" {
		depense.Ref = uuid.NewString()
	}
	if depense.Statut == "" {
		depense.Statut = models.DepenseStatutPayee
	}
	if depense.DateDepense.IsZero() {
		depense.DateDepense = now
	}
	if depense.Statut == models.DepenseStatutPayee && depense.PayeeLe == nil {
		depense.PayeeLe = &now
	}
	depense.CreatedAt = now
	depense.UpdatedAt = now
	const query = `INSERT INTO depenses (id, ref, reference, libelle, montant, categorie_depense_id, budget_id, statut, date_depense, beneficiaire, justificatif, cree_par_id, payee_le, created_at, updated_at)
        VALUES (:id, :ref, :reference, :libelle, :montant, :categorie_depense_id, :budget_id, :statut, :date_depense, :beneficiaire, :justificatif, :cree_par_id, :payee_le, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, depense); err != nil {
		return fmt.Errorf("insert ledger depense: %w", err)
	}
	if depense.BudgetID != nil {
		const budgetQuery = `UPDATE budgets SET montant_depense = montant_depense + $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
		if _, err := tx.ExecContext(ctx, budgetQuery, *depense.BudgetID, depense.Montant, now); err != nil {
			return fmt.Errorf("increment budget spending: %w", err)
		}
	}
	return nil
}
