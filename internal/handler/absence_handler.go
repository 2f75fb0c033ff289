package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecole-adm-api/internal/middleware"
	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/service"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
	"github.com/noah-isme/ecole-adm-api/pkg/response"
)

// AbsenceHandler exposes absence endpoints.
type AbsenceHandler struct {
	absences *service.AbsenceService
}

// NewAbsenceHandler constructs AbsenceHandler.
func NewAbsenceHandler(absences *service.AbsenceService) *AbsenceHandler {
	return &AbsenceHandler{absences: absences}
}

// List godoc
// @Summary List absences
// @Tags Absences
// @Produce json
// @Param eleve_id query string false "Student ID"
// @Param classe_id query string false "Class ID"
// @Param matiere_id query string false "Subject ID"
// @Param professeur_id query string false "Teacher ID"
// @Param type query string false "Absence type"
// @Param statut query string false "Status"
// @Param date_debut query string false "Start date (YYYY-MM-DD)"
// @Param date_fin query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	filter := models.AbsenceFilter{
		EleveID:      strings.TrimSpace(c.Query("eleve_id")),
		ClasseID:     strings.TrimSpace(c.Query("classe_id")),
		MatiereID:    strings.TrimSpace(c.Query("matiere_id")),
		ProfesseurID: strings.TrimSpace(c.Query("professeur_id")),
		Type:         strings.TrimSpace(c.Query("type")),
		Statut:       strings.TrimSpace(c.Query("statut")),
		DateDebut:    queryDate(c, "date_debut"),
		DateFin:      queryDate(c, "date_fin"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "limit", 20),
	}
	absences, pagination, err := h.absences.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absences, pagination)
}

// Get godoc
// @Summary Get absence detail
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Router /absences/{id} [get]
func (h *AbsenceHandler) Get(c *gin.Context) {
	absence, err := h.absences.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absence, nil)
}

// Create godoc
// @Summary Record absence
// @Tags Absences
// @Accept json
// @Produce json
// @Param payload body service.CreateAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /absences [post]
func (h *AbsenceHandler) Create(c *gin.Context) {
	var req service.CreateAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	absence, err := h.absences.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, absence)
}

// Justifier godoc
// @Summary Accept absence justification
// @Tags Absences
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body service.JustifierAbsenceRequest true "Justification"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/justification [post]
func (h *AbsenceHandler) Justifier(c *gin.Context) {
	var req service.JustifierAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	absence, err := h.absences.Justifier(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absence, nil)
}

// Refuser godoc
// @Summary Reject absence justification
// @Tags Absences
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body service.JustifierAbsenceRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/refus [post]
func (h *AbsenceHandler) Refuser(c *gin.Context) {
	var req service.JustifierAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	absence, err := h.absences.Refuser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absence, nil)
}

// Sanctionner godoc
// @Summary Attach sanction to absence
// @Tags Absences
// @Accept json
// @Produce json
// @Param id path string true "Absence ID"
// @Param payload body service.SanctionRequest true "Sanction payload"
// @Success 200 {object} response.Envelope
// @Router /absences/{id}/sanction [post]
func (h *AbsenceHandler) Sanctionner(c *gin.Context) {
	var req service.SanctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	absence, err := h.absences.Sanctionner(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absence, nil)
}

// Delete godoc
// @Summary Delete absence
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 204
// @Router /absences/{id} [delete]
func (h *AbsenceHandler) Delete(c *gin.Context) {
	if err := h.absences.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Taux godoc
// @Summary Absence rate per class over a period
// @Tags Absences
// @Produce json
// @Param date_debut query string true "Start date (YYYY-MM-DD)"
// @Param date_fin query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /absences/taux [get]
func (h *AbsenceHandler) Taux(c *gin.Context) {
	debut := queryDate(c, "date_debut")
	fin := queryDate(c, "date_fin")
	if fin == nil {
		now := time.Now()
		fin = &now
	}
	if debut == nil {
		d := fin.AddDate(0, -1, 0)
		debut = &d
	}
	taux, err := h.absences.TauxParClasse(c.Request.Context(), *debut, *fin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, taux, nil)
}
