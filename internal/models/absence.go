package models

import "time"

// Absence kinds, statuses and decisions.
const (
	AbsenceTypeAbsence         = "absence"
	AbsenceTypeRetard          = "retard"
	AbsenceTypeSortieAnticipee = "sortie_anticipee"

	AbsenceStatutEnAttente    = "en_attente"
	AbsenceStatutJustifiee    = "justifiée"
	AbsenceStatutNonJustifiee = "non_justifiée"

	AbsenceDecisionAcceptee = "acceptée"
	AbsenceDecisionRefusee  = "refusée"
)

// Absence records a student absence, lateness or early leave. Justification
// is a single atomic multi-field transition: statut, decision, est_traitee
// and the justification timestamp always change together so the record can
// never be half justified.
type Absence struct {
	ID                string     `db:"id" json:"id"`
	Ref               string     `db:"ref" json:"ref"`
	EleveID           string     `db:"eleve_id" json:"eleve_id"`
	ClasseID          string     `db:"classe_id" json:"classe_id"`
	MatiereID         *string    `db:"matiere_id" json:"matiere_id,omitempty"`
	ProfesseurID      *string    `db:"professeur_id" json:"professeur_id,omitempty"`
	Type              string     `db:"type" json:"type"`
	Date              time.Time  `db:"date" json:"date"`
	HeureDebut        *time.Time `db:"heure_debut" json:"heure_debut,omitempty"`
	HeureFin          *time.Time `db:"heure_fin" json:"heure_fin,omitempty"`
	DureeMinutes      int        `db:"duree_minutes" json:"duree_minutes"`
	Statut            string     `db:"statut" json:"statut"`
	Decision          *string    `db:"decision" json:"decision,omitempty"`
	EstTraitee        bool       `db:"est_traitee" json:"est_traitee"`
	Motif             *string    `db:"motif" json:"motif,omitempty"`
	JustifieeParID    *string    `db:"justifiee_par_id" json:"justifiee_par_id,omitempty"`
	JustifieeLe       *time.Time `db:"justifiee_le" json:"justifiee_le,omitempty"`
	SanctionType      *string    `db:"sanction_type" json:"sanction_type,omitempty"`
	SanctionDetails   *string    `db:"sanction_details" json:"sanction_details,omitempty"`
	SanctionAppliquee bool       `db:"sanction_appliquee" json:"sanction_appliquee"`
	Historique        Historique `db:"historique" json:"historique"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// CalculerDuree recomputes the duration in minutes from the start and end
// times. A missing or inverted interval resets the duration to zero.
func (a *Absence) CalculerDuree() {
	if a.HeureDebut == nil || a.HeureFin == nil {
		a.DureeMinutes = 0
		return
	}
	d := a.HeureFin.Sub(*a.HeureDebut)
	if d <= 0 {
		a.DureeMinutes = 0
		return
	}
	a.DureeMinutes = int(d.Minutes())
}

// EstJustifiee reports whether the absence reached the justified terminal
// state.
func (a Absence) EstJustifiee() bool {
	return a.Statut == AbsenceStatutJustifiee
}

// CouleurStatut maps the status to a UI colour tag.
func (a Absence) CouleurStatut() string {
	switch a.Statut {
	case AbsenceStatutJustifiee:
		return "green"
	case AbsenceStatutNonJustifiee:
		return "red"
	default:
		return "orange"
	}
}

// AbsenceFilter scopes absence listings.
type AbsenceFilter struct {
	EleveID      string
	ClasseID     string
	MatiereID    string
	ProfesseurID string
	Type         string
	Statut       string
	DateDebut    *time.Time
	DateFin      *time.Time
	Page         int
	PageSize     int
}

// Presence statuses for roll-call sheets.
const (
	PresenceStatutPresent = "present"
	PresenceStatutAbsent  = "absent"
	PresenceStatutRetard  = "retard"
)

// Presence is one roll-call row for a student on a given day.
type Presence struct {
	ID           string    `db:"id" json:"id"`
	Ref          string    `db:"ref" json:"ref"`
	EleveID      string    `db:"eleve_id" json:"eleve_id"`
	ClasseID     string    `db:"classe_id" json:"classe_id"`
	MatiereID    *string   `db:"matiere_id" json:"matiere_id,omitempty"`
	ProfesseurID string    `db:"professeur_id" json:"professeur_id"`
	Date         time.Time `db:"date" json:"date"`
	Statut       string    `db:"statut" json:"statut"`
	Commentaire  *string   `db:"commentaire" json:"commentaire,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PresenceFilter scopes roll-call listings.
type PresenceFilter struct {
	ClasseID string
	EleveID  string
	Date     *time.Time
	Statut   string
	Page     int
	PageSize int
}
