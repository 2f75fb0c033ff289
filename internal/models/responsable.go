package models

import "time"

// Parental link kinds carried on the student/guardian pivot.
const (
	LienPere   = "pere"
	LienMere   = "mere"
	LienTuteur = "tuteur"
	LienAutre  = "autre"
)

// Responsable is a student guardian.
type Responsable struct {
	ID         string     `db:"id" json:"id"`
	Ref        string     `db:"ref" json:"ref"`
	Nom        string     `db:"nom" json:"nom"`
	Prenom     string     `db:"prenom" json:"prenom"`
	Profession *string    `db:"profession" json:"profession,omitempty"`
	Telephone  string     `db:"telephone" json:"telephone"`
	Email      *string    `db:"email" json:"email,omitempty"`
	Adresse    *string    `db:"adresse" json:"adresse,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// EleveResponsable is the student/guardian pivot. It carries business
// attributes of the relation and has its own identity, it is not a pure
// join row.
type EleveResponsable struct {
	ID                      string    `db:"id" json:"id"`
	EleveID                 string    `db:"eleve_id" json:"eleve_id"`
	ResponsableID           string    `db:"responsable_id" json:"responsable_id"`
	LienParental            string    `db:"lien_parental" json:"lien_parental"`
	EstResponsableFinancier bool      `db:"est_responsable_financier" json:"est_responsable_financier"`
	EstContactUrgence       bool      `db:"est_contact_urgence" json:"est_contact_urgence"`
	AutoriseRecuperation    bool      `db:"autorise_recuperation" json:"autorise_recuperation"`
	Priorite                int       `db:"priorite" json:"priorite"`
	TelephoneUrgence        *string   `db:"telephone_urgence" json:"telephone_urgence,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// ResponsableDetail carries a guardian together with its pivot attributes
// for a given student.
type ResponsableDetail struct {
	Responsable
	Pivot EleveResponsable `json:"pivot"`
}

// ResponsableFilter scopes guardian listings.
type ResponsableFilter struct {
	Search   string
	EleveID  string
	Page     int
	PageSize int
}
