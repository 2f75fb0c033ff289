package models

import "time"

// Matiere is a taught subject with its weighting coefficient.
type Matiere struct {
	ID          string     `db:"id" json:"id"`
	Ref         string     `db:"ref" json:"ref"`
	Code        string     `db:"code" json:"code"`
	Libelle     string     `db:"libelle" json:"libelle"`
	Coefficient float64    `db:"coefficient" json:"coefficient"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// MatiereFilter scopes subject listings.
type MatiereFilter struct {
	Search   string
	Page     int
	PageSize int
}
