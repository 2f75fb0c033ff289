package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payroll modes and statuses.
const (
	SalaireModeHoraire = "horaire"
	SalaireModeFixe    = "fixe"

	AvanceStatutEnAttente = "en_attente"
	AvanceStatutPayee     = "payee"
	AvanceStatutDeduite   = "deduite"

	PaiementSalaireTypeNormal = "normal"
	PaiementSalaireTypeAvance = "avance"

	PaiementSalaireStatutEnAttente = "en_attente"
	PaiementSalaireStatutPaye      = "paye"
	PaiementSalaireStatutAnnule    = "annule"
)

// ProfSalaire is a teacher compensation configuration. At most one active
// configuration exists per teacher; activating a new one deactivates the
// previous in the same transaction.
type ProfSalaire struct {
	ID             string           `db:"id" json:"id"`
	Ref            string           `db:"ref" json:"ref"`
	ProfesseurID   string           `db:"professeur_id" json:"professeur_id"`
	Mode           string           `db:"mode" json:"mode"`
	TauxHoraire    *decimal.Decimal `db:"taux_horaire" json:"taux_horaire,omitempty"`
	SalaireMensuel *decimal.Decimal `db:"salaire_mensuel" json:"salaire_mensuel,omitempty"`
	EstActif       bool             `db:"est_actif" json:"est_actif"`
	DateEffet      time.Time        `db:"date_effet" json:"date_effet"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AvanceSalaire is a cash advance to a teacher. Marking it paid creates a
// matching expense (reference AVS-<ref>).
type AvanceSalaire struct {
	ID           string          `db:"id" json:"id"`
	Ref          string          `db:"ref" json:"ref"`
	ProfesseurID string          `db:"professeur_id" json:"professeur_id"`
	Montant      decimal.Decimal `db:"montant" json:"montant"`
	Motif        *string         `db:"motif" json:"motif,omitempty"`
	Date         time.Time       `db:"date" json:"date"`
	Statut       string          `db:"statut" json:"statut"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// PaiementSalaire is one payroll run line for a teacher. NetAPayer is
// recomputed whenever the amounts change and never goes negative. Marking
// it paid creates the ledger expense (SAL-<ref> or AVS-<ref>) and, for
// normal runs, flips the teacher's paid advances inside the pay period to
// deducted, all in a single transaction.
type PaiementSalaire struct {
	ID              string          `db:"id" json:"id"`
	Ref             string          `db:"ref" json:"ref"`
	ProfesseurID    string          `db:"professeur_id" json:"professeur_id"`
	Type            string          `db:"type" json:"type"`
	Periode         time.Time       `db:"periode" json:"periode"`
	SalaireBase     decimal.Decimal `db:"salaire_base" json:"salaire_base"`
	AvancesDeduites decimal.Decimal `db:"avances_deduites" json:"avances_deduites"`
	Retenues        decimal.Decimal `db:"retenues" json:"retenues"`
	NetAPayer       decimal.Decimal `db:"net_a_payer" json:"net_a_payer"`
	Statut          string          `db:"statut" json:"statut"`
	PayeLe          *time.Time      `db:"paye_le" json:"paye_le,omitempty"`
	Commentaire     *string         `db:"commentaire" json:"commentaire,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// CalculerNet recomputes the net payable figure, floored at zero.
func (p *PaiementSalaire) CalculerNet() {
	net := p.SalaireBase.Sub(p.AvancesDeduites).Sub(p.Retenues)
	if net.IsNegative() {
		net = decimal.Zero
	}
	p.NetAPayer = net
}

// PeriodeMois returns the closed-open calendar month interval covering the
// pay period, used to match deductible advances.
func (p PaiementSalaire) PeriodeMois() (debut, fin time.Time) {
	debut = time.Date(p.Periode.Year(), p.Periode.Month(), 1, 0, 0, 0, 0, p.Periode.Location())
	fin = debut.AddDate(0, 1, 0)
	return debut, fin
}

// ReferenceDepense builds the deterministic ledger reference for the
// expense created when the salary payment is marked paid.
func (p PaiementSalaire) ReferenceDepense() string {
	if p.Type == PaiementSalaireTypeAvance {
		return "AVS-" + p.Ref
	}
	return "SAL-" + p.Ref
}

// AvanceSalaireFilter scopes advance listings.
type AvanceSalaireFilter struct {
	ProfesseurID string
	Statut       string
	DateDebut    *time.Time
	DateFin      *time.Time
	Page         int
	PageSize     int
}

// PaiementSalaireFilter scopes payroll listings.
type PaiementSalaireFilter struct {
	ProfesseurID string
	Type         string
	Statut       string
	Periode      *time.Time
	Page         int
	PageSize     int
}
