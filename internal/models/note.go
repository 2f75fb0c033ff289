package models

import (
	"math"
	"time"
)

// Note is a grade entry for one student on one evaluation. Derived fields
// (NoteSur20, NoteAvecCoefficient, Appreciation) are recomputed before every
// persistence of Valeur, NoteSur or Coefficient; changes to Valeur or
// Coefficient additionally append to the embedded modification history.
type Note struct {
	ID                      string     `db:"id" json:"id"`
	Ref                     string     `db:"ref" json:"ref"`
	EleveID                 string     `db:"eleve_id" json:"eleve_id"`
	MatiereID               string     `db:"matiere_id" json:"matiere_id"`
	EvaluationID            string     `db:"evaluation_id" json:"evaluation_id"`
	Valeur                  float64    `db:"valeur" json:"valeur"`
	NoteSur                 float64    `db:"note_sur" json:"note_sur"`
	Coefficient             float64    `db:"coefficient" json:"coefficient"`
	NoteSur20               float64    `db:"note_sur_20" json:"note_sur_20"`
	NoteAvecCoefficient     float64    `db:"note_avec_coefficient" json:"note_avec_coefficient"`
	Appreciation            string     `db:"appreciation" json:"appreciation"`
	EstValidee              bool       `db:"est_validee" json:"est_validee"`
	ValideeParID            *string    `db:"validee_par_id" json:"validee_par_id,omitempty"`
	ValideeLe               *time.Time `db:"validee_le" json:"validee_le,omitempty"`
	EstPubliee              bool       `db:"est_publiee" json:"est_publiee"`
	ExclueMoyenne           bool       `db:"exclue_moyenne" json:"exclue_moyenne"`
	MotifExclusion          *string    `db:"motif_exclusion" json:"motif_exclusion,omitempty"`
	NoteRattrapeeID         *string    `db:"note_rattrapee_id" json:"note_rattrapee_id,omitempty"`
	HistoriqueModifications Historique `db:"historique_modifications" json:"historique_modifications"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt               *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculerDerives recomputes the percentage-scale conversion, the weighted
// value and the appreciation bucket from the raw score.
func (n *Note) CalculerDerives() {
	if n.NoteSur <= 0 {
		n.NoteSur = 20
	}
	n.NoteSur20 = Round2(n.Valeur / n.NoteSur * 20)
	n.NoteAvecCoefficient = Round2(n.Valeur * n.Coefficient)
	n.Appreciation = Appreciation(n.NoteSur20)
}

// Appreciation buckets a score on a 20-point scale into its qualitative
// label.
func Appreciation(noteSur20 float64) string {
	switch {
	case noteSur20 >= 16:
		return "Excellent"
	case noteSur20 >= 14:
		return "Très Bien"
	case noteSur20 >= 12:
		return "Bien"
	case noteSur20 >= 10:
		return "Assez Bien"
	case noteSur20 >= 8:
		return "Passable"
	case noteSur20 >= 6:
		return "Insuffisant"
	default:
		return "Très Faible"
	}
}

// EstRattrapage reports whether this grade supersedes another one.
func (n Note) EstRattrapage() bool {
	return n.NoteRattrapeeID != nil && *n.NoteRattrapeeID != ""
}

// CompteDansMoyenne reports whether the grade participates in averages.
func (n Note) CompteDansMoyenne() bool {
	return !n.ExclueMoyenne
}

// CouleurAppreciation maps the appreciation to a UI colour tag.
func (n Note) CouleurAppreciation() string {
	switch {
	case n.NoteSur20 >= 14:
		return "green"
	case n.NoteSur20 >= 10:
		return "blue"
	case n.NoteSur20 >= 8:
		return "orange"
	default:
		return "red"
	}
}

// NoteFilter scopes grade listings.
type NoteFilter struct {
	EleveID      string
	MatiereID    string
	EvaluationID string
	ClasseID     string
	TrimestreID  string
	EstValidee   *bool
	EstPubliee   *bool
	Page         int
	PageSize     int
}

// NoteDetail carries a grade with student and subject context.
type NoteDetail struct {
	Note
	EleveNom       *string `db:"eleve_nom" json:"eleve_nom,omitempty"`
	ElevePrenom    *string `db:"eleve_prenom" json:"eleve_prenom,omitempty"`
	MatiereLibelle *string `db:"matiere_libelle" json:"matiere_libelle,omitempty"`
}
