package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// HistoriqueEntree is a single entry of an entity's embedded change history.
type HistoriqueEntree struct {
	Champ          string    `json:"champ"`
	AncienneValeur string    `json:"ancienne_valeur"`
	NouvelleValeur string    `json:"nouvelle_valeur"`
	ModifieParID   *string   `json:"modifie_par_id,omitempty"`
	ModifieLe      time.Time `json:"modifie_le"`
	Commentaire    string    `json:"commentaire,omitempty"`
}

// Historique is an append-only JSON column holding HistoriqueEntree values.
type Historique []HistoriqueEntree

// Value serialises the history for storage in a JSON column.
func (h Historique) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

// Scan deserialises the history from its JSON column.
func (h *Historique) Scan(src interface{}) error {
	if src == nil {
		*h = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported history column type %T", src)
	}
	if len(raw) == 0 {
		*h = nil
		return nil
	}
	return json.Unmarshal(raw, h)
}

// Append records a field change, returning the extended history.
func (h Historique) Append(champ, ancienne, nouvelle string, acteurID *string, commentaire string) Historique {
	return append(h, HistoriqueEntree{
		Champ:          champ,
		AncienneValeur: ancienne,
		NouvelleValeur: nouvelle,
		ModifieParID:   acteurID,
		ModifieLe:      time.Now().UTC(),
		Commentaire:    commentaire,
	})
}
