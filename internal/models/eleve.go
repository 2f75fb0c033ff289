package models

import (
	"fmt"
	"time"
)

// Student enrollment statuses.
const (
	EleveStatutInscrit   = "inscrit"
	EleveStatutTransfere = "transfere"
	EleveStatutRetire    = "retire"
)

// Eleve is a registered student. Soft-deleted rows keep their matricule so
// historical grades and payments stay resolvable.
type Eleve struct {
	ID              string     `db:"id" json:"id"`
	Ref             string     `db:"ref" json:"ref"`
	Matricule       string     `db:"matricule" json:"matricule"`
	Nom             string     `db:"nom" json:"nom"`
	Prenom          string     `db:"prenom" json:"prenom"`
	Sexe            string     `db:"sexe" json:"sexe"`
	DateNaissance   time.Time  `db:"date_naissance" json:"date_naissance"`
	LieuNaissance   *string    `db:"lieu_naissance" json:"lieu_naissance,omitempty"`
	Adresse         *string    `db:"adresse" json:"adresse,omitempty"`
	Telephone       *string    `db:"telephone" json:"telephone,omitempty"`
	ClasseID        string     `db:"classe_id" json:"classe_id"`
	Statut          string     `db:"statut" json:"statut"`
	DateInscription time.Time  `db:"date_inscription" json:"date_inscription"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// NomComplet concatenates last and first names for display.
func (e Eleve) NomComplet() string {
	return e.Nom + " " + e.Prenom
}

// MatriculeEleve builds the student enrollment code, e.g. EL2025-0005.
func MatriculeEleve(year int, seq int) string {
	return fmt.Sprintf("EL%d-%04d", year, seq)
}

// MatriculeProfesseur builds the teacher enrollment code, e.g. PR2025-0012.
func MatriculeProfesseur(year int, seq int) string {
	return fmt.Sprintf("PR%d-%04d", year, seq)
}

// EleveFilter scopes student listings.
type EleveFilter struct {
	Search        string
	ClasseID      string
	Statut        string
	Sexe          string
	AvecSupprimes bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// EleveDetail carries a student together with class context.
type EleveDetail struct {
	Eleve
	ClasseNom    *string `db:"classe_nom" json:"classe_nom,omitempty"`
	ClasseNiveau *string `db:"classe_niveau" json:"classe_niveau,omitempty"`
}
