package models

import (
	"encoding/json"
	"time"
)

// Journal actions.
const (
	JournalActionCreation     = "creation"
	JournalActionModification = "modification"
	JournalActionSuppression  = "suppression"
	JournalActionConnexion    = "connexion"
	JournalActionDeconnexion  = "deconnexion"
)

// MasqueChampSensible replaces redacted values in journal snapshots.
const MasqueChampSensible = "********"

// champsSensibles are never stored in cleartext in journal snapshots.
var champsSensibles = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"mot_de_passe":  {},
	"token":         {},
	"refresh_token": {},
}

// JournalEntree is one audit row. The affected entity is referenced
// polymorphically through its kind and id.
type JournalEntree struct {
	ID          string          `db:"id" json:"id"`
	ActeurID    *string         `db:"acteur_id" json:"acteur_id,omitempty"`
	Action      string          `db:"action" json:"action"`
	Entite      string          `db:"entite" json:"entite"`
	EntiteID    string          `db:"entite_id" json:"entite_id"`
	Avant       json.RawMessage `db:"avant" json:"avant,omitempty"`
	Apres       json.RawMessage `db:"apres" json:"apres,omitempty"`
	Description string          `db:"description" json:"description"`
	IPAddress   string          `db:"ip_address" json:"ip_address"`
	UserAgent   string          `db:"user_agent" json:"user_agent"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// JournalFilter scopes audit listings.
type JournalFilter struct {
	ActeurID  string
	Action    string
	Entite    string
	EntiteID  string
	DateDebut *time.Time
	DateFin   *time.Time
	Page      int
	PageSize  int
}

// RedigerSnapshot serialises an attribute map for the journal, masking
// sensitive fields first. A nil map yields nil.
func RedigerSnapshot(valeurs map[string]interface{}) json.RawMessage {
	if valeurs == nil {
		return nil
	}
	masque := make(map[string]interface{}, len(valeurs))
	for champ, valeur := range valeurs {
		if _, sensible := champsSensibles[champ]; sensible {
			masque[champ] = MasqueChampSensible
			continue
		}
		masque[champ] = valeur
	}
	raw, err := json.Marshal(masque)
	if err != nil {
		return nil
	}
	return raw
}
