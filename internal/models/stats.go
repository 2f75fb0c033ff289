package models

import "github.com/shopspring/decimal"

// EffectifClasse summarises one class headcount for the dashboard.
type EffectifClasse struct {
	ClasseID     string `db:"classe_id" json:"classe_id"`
	ClasseNom    string `db:"classe_nom" json:"classe_nom"`
	NombreEleves int    `db:"nombre_eleves" json:"nombre_eleves"`
	Capacite     int    `db:"capacite" json:"capacite"`
}

// ResumeFinancier aggregates money flows for a school year.
type ResumeFinancier struct {
	TotalPaiements decimal.Decimal `db:"total_paiements" json:"total_paiements"`
	TotalDepenses  decimal.Decimal `db:"total_depenses" json:"total_depenses"`
	TotalSalaires  decimal.Decimal `db:"total_salaires" json:"total_salaires"`
	TotalAvances   decimal.Decimal `db:"total_avances" json:"total_avances"`
}

// TauxAbsence summarises absence counts for a class over a period.
type TauxAbsence struct {
	ClasseID         string  `db:"classe_id" json:"classe_id"`
	ClasseNom        string  `db:"classe_nom" json:"classe_nom"`
	NombreAbsences   int     `db:"nombre_absences" json:"nombre_absences"`
	NombreJustifiees int     `db:"nombre_justifiees" json:"nombre_justifiees"`
	Taux             float64 `db:"taux" json:"taux"`
}

// TableauDeBord is the cached dashboard payload.
type TableauDeBord struct {
	AnneeScolaireID  string           `json:"annee_scolaire_id"`
	TotalEleves      int              `json:"total_eleves"`
	TotalProfesseurs int              `json:"total_professeurs"`
	Effectifs        []EffectifClasse `json:"effectifs"`
	Finances         ResumeFinancier  `json:"finances"`
	Absences         []TauxAbsence    `json:"absences"`
}
