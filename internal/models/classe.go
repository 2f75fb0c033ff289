package models

import "time"

// Classe is a class group. NombreEleves mirrors the count of non-deleted
// students enrolled; it is maintained by every membership mutation, never
// recomputed from a query.
type Classe struct {
	ID              string     `db:"id" json:"id"`
	Ref             string     `db:"ref" json:"ref"`
	Nom             string     `db:"nom" json:"nom"`
	Niveau          string     `db:"niveau" json:"niveau"`
	Section         *string    `db:"section" json:"section,omitempty"`
	Capacite        int        `db:"capacite" json:"capacite"`
	NombreEleves    int        `db:"nombre_eleves" json:"nombre_eleves"`
	AnneeScolaireID string     `db:"annee_scolaire_id" json:"annee_scolaire_id"`
	TitulaireID     *string    `db:"titulaire_id" json:"titulaire_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// EstPleine reports whether the class reached its configured capacity.
func (c Classe) EstPleine() bool {
	return c.Capacite > 0 && c.NombreEleves >= c.Capacite
}

// PlacesRestantes returns the remaining seats, never negative.
func (c Classe) PlacesRestantes() int {
	if c.Capacite <= 0 {
		return 0
	}
	if rest := c.Capacite - c.NombreEleves; rest > 0 {
		return rest
	}
	return 0
}

// ClasseFilter scopes class listings.
type ClasseFilter struct {
	Niveau          string
	AnneeScolaireID string
	Search          string
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
