package models

import "time"

// AnneeScolaire represents a school year (e.g. 2025-2026).
type AnneeScolaire struct {
	ID        string     `db:"id" json:"id"`
	Ref       string     `db:"ref" json:"ref"`
	Libelle   string     `db:"libelle" json:"libelle"`
	DateDebut time.Time  `db:"date_debut" json:"date_debut"`
	DateFin   time.Time  `db:"date_fin" json:"date_fin"`
	EstActive bool       `db:"est_active" json:"est_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Trimestre is an academic term, one of typically three per school year.
type Trimestre struct {
	ID              string     `db:"id" json:"id"`
	Ref             string     `db:"ref" json:"ref"`
	AnneeScolaireID string     `db:"annee_scolaire_id" json:"annee_scolaire_id"`
	Numero          int        `db:"numero" json:"numero"`
	Libelle         string     `db:"libelle" json:"libelle"`
	DateDebut       time.Time  `db:"date_debut" json:"date_debut"`
	DateFin         time.Time  `db:"date_fin" json:"date_fin"`
	EstActif        bool       `db:"est_actif" json:"est_actif"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// TrimestreFilter scopes term listings.
type TrimestreFilter struct {
	AnneeScolaireID string
	EstActif        *bool
}
