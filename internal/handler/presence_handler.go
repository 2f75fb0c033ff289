package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecole-adm-api/internal/middleware"
	"github.com/noah-isme/ecole-adm-api/internal/service"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
	"github.com/noah-isme/ecole-adm-api/pkg/response"
)

// PresenceHandler exposes roll-call endpoints.
type PresenceHandler struct {
	presences *service.PresenceService
}

// NewPresenceHandler constructs PresenceHandler.
func NewPresenceHandler(presences *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presences: presences}
}

// Feuille godoc
// @Summary Roll-call sheet for a class and date
// @Tags Presences
// @Produce json
// @Param classe_id query string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /presences [get]
func (h *PresenceHandler) Feuille(c *gin.Context) {
	classeID := strings.TrimSpace(c.Query("classe_id"))
	date := queryDate(c, "date")
	if classeID == "" || date == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classe_id and date are required"))
		return
	}
	presences, err := h.presences.Feuille(c.Request.Context(), classeID, *date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, presences, nil)
}

// Enregistrer godoc
// @Summary Record roll-call sheet
// @Tags Presences
// @Accept json
// @Produce json
// @Param payload body service.FeuillePresenceRequest true "Roll-call payload"
// @Success 201 {object} response.Envelope
// @Router /presences [post]
func (h *PresenceHandler) Enregistrer(c *gin.Context) {
	var req service.FeuillePresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	presences, err := h.presences.Enregistrer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, presences)
}
