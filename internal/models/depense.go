package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense statuses and approval decisions.
const (
	DepenseStatutBrouillon = "brouillon"
	DepenseStatutEnAttente = "en_attente"
	DepenseStatutApprouvee = "approuvee"
	DepenseStatutRejetee   = "rejetee"
	DepenseStatutPayee     = "payee"

	ApprobationDecisionApprouvee = "approuvee"
	ApprobationDecisionRejetee   = "rejetee"
)

// CategorieDepense groups expenses for reporting and budgeting.
type CategorieDepense struct {
	ID          string     `db:"id" json:"id"`
	Ref         string     `db:"ref" json:"ref"`
	Code        string     `db:"code" json:"code"`
	Libelle     string     `db:"libelle" json:"libelle"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Depense is an expense moving through a draft → submitted → decided → paid
// workflow. Editability and deletability depend on the current status.
type Depense struct {
	ID                 string          `db:"id" json:"id"`
	Ref                string          `db:"ref" json:"ref"`
	Reference          string          `db:"reference" json:"reference"`
	Libelle            string          `db:"libelle" json:"libelle"`
	Montant            decimal.Decimal `db:"montant" json:"montant"`
	CategorieDepenseID string          `db:"categorie_depense_id" json:"categorie_depense_id"`
	BudgetID           *string         `db:"budget_id" json:"budget_id,omitempty"`
	Statut             string          `db:"statut" json:"statut"`
	DateDepense        time.Time       `db:"date_depense" json:"date_depense"`
	Beneficiaire       *string         `db:"beneficiaire" json:"beneficiaire,omitempty"`
	Justificatif       *string         `db:"justificatif" json:"justificatif,omitempty"`
	CreeParID          *string         `db:"cree_par_id" json:"cree_par_id,omitempty"`
	PayeeLe            *time.Time      `db:"payee_le" json:"payee_le,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt          *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// PeutEtreModifiee reports whether the expense may still be edited.
func (d Depense) PeutEtreModifiee() bool {
	return d.Statut == DepenseStatutBrouillon || d.Statut == DepenseStatutEnAttente
}

// PeutEtreSupprimee reports whether the expense may be removed.
func (d Depense) PeutEtreSupprimee() bool {
	return d.Statut == DepenseStatutBrouillon || d.Statut == DepenseStatutRejetee
}

// CouleurStatut maps the workflow status to a UI colour tag.
func (d Depense) CouleurStatut() string {
	switch d.Statut {
	case DepenseStatutPayee:
		return "green"
	case DepenseStatutApprouvee:
		return "blue"
	case DepenseStatutRejetee:
		return "red"
	case DepenseStatutEnAttente:
		return "orange"
	default:
		return "grey"
	}
}

// ApprobationDepense records one approval decision on an expense.
type ApprobationDepense struct {
	ID            string    `db:"id" json:"id"`
	DepenseID     string    `db:"depense_id" json:"depense_id"`
	ApprobateurID string    `db:"approbateur_id" json:"approbateur_id"`
	Decision      string    `db:"decision" json:"decision"`
	Commentaire   *string   `db:"commentaire" json:"commentaire,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Budget is a spending envelope. MontantDepense is maintained by atomic
// increments when tied expenses are paid.
type Budget struct {
	ID                 string          `db:"id" json:"id"`
	Ref                string          `db:"ref" json:"ref"`
	Libelle            string          `db:"libelle" json:"libelle"`
	AnneeScolaireID    string          `db:"annee_scolaire_id" json:"annee_scolaire_id"`
	CategorieDepenseID *string         `db:"categorie_depense_id" json:"categorie_depense_id,omitempty"`
	MontantAlloue      decimal.Decimal `db:"montant_alloue" json:"montant_alloue"`
	MontantDepense     decimal.Decimal `db:"montant_depense" json:"montant_depense"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt          *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// MontantRestant returns the remaining envelope, negative when overspent.
func (b Budget) MontantRestant() decimal.Decimal {
	return b.MontantAlloue.Sub(b.MontantDepense)
}

// EstDepasse reports whether spending exceeded the allocation.
func (b Budget) EstDepasse() bool {
	return b.MontantDepense.GreaterThan(b.MontantAlloue)
}

// DepenseFilter scopes expense listings.
type DepenseFilter struct {
	CategorieDepenseID string
	BudgetID           string
	Statut             string
	DateDebut          *time.Time
	DateFin            *time.Time
	Search             string
	Page               int
	PageSize           int
}

// BudgetFilter scopes budget listings.
type BudgetFilter struct {
	AnneeScolaireID    string
	CategorieDepenseID string
	Page               int
	PageSize           int
}
