package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment modes and audit actions.
const (
	PaiementModeEspeces  = "especes"
	PaiementModeCheque   = "cheque"
	PaiementModeVirement = "virement"
	PaiementModeMobile   = "mobile_money"

	HistoriqueActionCreation     = "creation"
	HistoriqueActionModification = "modification"
	HistoriqueActionSuppression  = "suppression"
	HistoriqueActionAnnulation   = "annulation"
)

// Paiement is a student fee payment. Every create, update or delete writes
// a HistoriquePaiement row in the same transaction.
type Paiement struct {
	ID              string          `db:"id" json:"id"`
	Ref             string          `db:"ref" json:"ref"`
	Reference       string          `db:"reference" json:"reference"`
	EleveID         string          `db:"eleve_id" json:"eleve_id"`
	TrancheID       *string         `db:"tranche_id" json:"tranche_id,omitempty"`
	AnneeScolaireID string          `db:"annee_scolaire_id" json:"annee_scolaire_id"`
	Montant         decimal.Decimal `db:"montant" json:"montant"`
	Mode            string          `db:"mode" json:"mode"`
	DatePaiement    time.Time       `db:"date_paiement" json:"date_paiement"`
	Commentaire     *string         `db:"commentaire" json:"commentaire,omitempty"`
	EncaissePar     *string         `db:"encaisse_par" json:"encaisse_par,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// HistoriquePaiement is the audit trail row written alongside every payment
// mutation.
type HistoriquePaiement struct {
	ID          string    `db:"id" json:"id"`
	PaiementID  string    `db:"paiement_id" json:"paiement_id"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	ActeurID    *string   `db:"acteur_id" json:"acteur_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PaiementFilter scopes payment listings.
type PaiementFilter struct {
	EleveID         string
	TrancheID       string
	AnneeScolaireID string
	Mode            string
	DateDebut       *time.Time
	DateFin         *time.Time
	Page            int
	PageSize        int
}

// PaiementDetail carries a payment with student context.
type PaiementDetail struct {
	Paiement
	EleveNom       *string `db:"eleve_nom" json:"eleve_nom,omitempty"`
	ElevePrenom    *string `db:"eleve_prenom" json:"eleve_prenom,omitempty"`
	EleveMatricule *string `db:"eleve_matricule" json:"eleve_matricule,omitempty"`
}
