package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/service"
	"github.com/noah-isme/ecole-adm-api/pkg/response"
)

// JournalHandler exposes audit trail endpoints.
type JournalHandler struct {
	journal *service.JournalService
}

// NewJournalHandler constructs JournalHandler.
func NewJournalHandler(journal *service.JournalService) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// List godoc
// @Summary List audit entries
// @Tags Journal
// @Produce json
// @Param acteur_id query string false "Actor ID"
// @Param action query string false "Action"
// @Param entite query string false "Entity name"
// @Param entite_id query string false "Entity ID"
// @Param date_debut query string false "Start date (YYYY-MM-DD)"
// @Param date_fin query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /journal [get]
func (h *JournalHandler) List(c *gin.Context) {
	filter := models.JournalFilter{
		ActeurID:  strings.TrimSpace(c.Query("acteur_id")),
		Action:    strings.TrimSpace(c.Query("action")),
		Entite:    strings.TrimSpace(c.Query("entite")),
		EntiteID:  strings.TrimSpace(c.Query("entite_id")),
		DateDebut: queryDate(c, "date_debut"),
		DateFin:   queryDate(c, "date_fin"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 20),
	}
	entries, pagination, err := h.journal.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Historique godoc
// @Summary Full audit history of one entity
// @Tags Journal
// @Produce json
// @Param entite path string true "Entity name"
// @Param id path string true "Entity ID"
// @Success 200 {object} response.Envelope
// @Router /journal/{entite}/{id} [get]
func (h *JournalHandler) Historique(c *gin.Context) {
	entries, err := h.journal.HistoriqueEntite(c.Request.Context(), c.Param("entite"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
