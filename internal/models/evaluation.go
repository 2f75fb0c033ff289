package models

import "time"

// Evaluation kinds and statuses.
const (
	EvaluationTypeDevoir        = "devoir"
	EvaluationTypeComposition   = "composition"
	EvaluationTypeInterrogation = "interrogation"

	EvaluationStatutProgrammee = "programmee"
	EvaluationStatutEnCours    = "en_cours"
	EvaluationStatutTerminee   = "terminee"
)

// Evaluation is a scheduled assessment for a class and subject.
type Evaluation struct {
	ID           string     `db:"id" json:"id"`
	Ref          string     `db:"ref" json:"ref"`
	Libelle      string     `db:"libelle" json:"libelle"`
	Type         string     `db:"type" json:"type"`
	ClasseID     string     `db:"classe_id" json:"classe_id"`
	MatiereID    string     `db:"matiere_id" json:"matiere_id"`
	TrimestreID  string     `db:"trimestre_id" json:"trimestre_id"`
	ProfesseurID string     `db:"professeur_id" json:"professeur_id"`
	Date         time.Time  `db:"date" json:"date"`
	Bareme       float64    `db:"bareme" json:"bareme"`
	Coefficient  float64    `db:"coefficient" json:"coefficient"`
	Statut       string     `db:"statut" json:"statut"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// EvaluationFilter scopes assessment listings.
type EvaluationFilter struct {
	ClasseID     string
	MatiereID    string
	TrimestreID  string
	ProfesseurID string
	Type         string
	Statut       string
	DateDebut    *time.Time
	DateFin      *time.Time
	Page         int
	PageSize     int
}
