package models

import "time"

// Teacher employment statuses.
const (
	ProfesseurStatutActif     = "actif"
	ProfesseurStatutSuspendu  = "suspendu"
	ProfesseurStatutDemission = "demission"
)

// Professeur is a teacher on the payroll.
type Professeur struct {
	ID           string     `db:"id" json:"id"`
	Ref          string     `db:"ref" json:"ref"`
	Matricule    string     `db:"matricule" json:"matricule"`
	Nom          string     `db:"nom" json:"nom"`
	Prenom       string     `db:"prenom" json:"prenom"`
	Sexe         string     `db:"sexe" json:"sexe"`
	Email        *string    `db:"email" json:"email,omitempty"`
	Telephone    *string    `db:"telephone" json:"telephone,omitempty"`
	Specialite   string     `db:"specialite" json:"specialite"`
	Diplome      *string    `db:"diplome" json:"diplome,omitempty"`
	DateEmbauche time.Time  `db:"date_embauche" json:"date_embauche"`
	Statut       string     `db:"statut" json:"statut"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// NomComplet concatenates last and first names for display.
func (p Professeur) NomComplet() string {
	return p.Nom + " " + p.Prenom
}

// ProfesseurFilter scopes teacher listings.
type ProfesseurFilter struct {
	Search     string
	Specialite string
	Statut     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
