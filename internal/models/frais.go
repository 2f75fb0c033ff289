package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfigurationFrais defines the fee plan applied to a class for a school
// year, split into scheduled installments (tranches).
type ConfigurationFrais struct {
	ID              string          `db:"id" json:"id"`
	Ref             string          `db:"ref" json:"ref"`
	ClasseID        string          `db:"classe_id" json:"classe_id"`
	AnneeScolaireID string          `db:"annee_scolaire_id" json:"annee_scolaire_id"`
	Libelle         string          `db:"libelle" json:"libelle"`
	MontantTotal    decimal.Decimal `db:"montant_total" json:"montant_total"`
	NombreTranches  int             `db:"nombre_tranches" json:"nombre_tranches"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
	Tranches        []Tranche       `json:"tranches,omitempty"`
}

// Tranche is one scheduled installment of a fee plan.
type Tranche struct {
	ID                   string          `db:"id" json:"id"`
	Ref                  string          `db:"ref" json:"ref"`
	ConfigurationFraisID string          `db:"configuration_frais_id" json:"configuration_frais_id"`
	Numero               int             `db:"numero" json:"numero"`
	Libelle              string          `db:"libelle" json:"libelle"`
	Montant              decimal.Decimal `db:"montant" json:"montant"`
	DateLimite           time.Time       `db:"date_limite" json:"date_limite"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// EstEchue reports whether the installment deadline has passed.
func (t Tranche) EstEchue(now time.Time) bool {
	return now.After(t.DateLimite)
}
