package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecole-adm-api/internal/middleware"
	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/service"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
	"github.com/noah-isme/ecole-adm-api/pkg/response"
)

// EvaluationHandler exposes evaluation endpoints.
type EvaluationHandler struct {
	evaluations *service.EvaluationService
}

// NewEvaluationHandler constructs EvaluationHandler.
func NewEvaluationHandler(evaluations *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations}
}

// List godoc
// @Summary List evaluations
// @Tags Evaluations
// @Produce json
// @Param classe_id query string false "Class ID"
// @Param matiere_id query string false "Subject ID"
// @Param trimestre_id query string false "Term ID"
// @Param professeur_id query string false "Teacher ID"
// @Param type query string false "Evaluation type"
// @Param statut query string false "Status"
// @Param date_debut query string false "Start date (YYYY-MM-DD)"
// @Param date_fin query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /evaluations [get]
func (h *EvaluationHandler) List(c *gin.Context) {
	filter := models.EvaluationFilter{
		ClasseID:     strings.TrimSpace(c.Query("classe_id")),
		MatiereID:    strings.TrimSpace(c.Query("matiere_id")),
		TrimestreID:  strings.TrimSpace(c.Query("trimestre_id")),
		ProfesseurID: strings.TrimSpace(c.Query("professeur_id")),
		Type:         strings.TrimSpace(c.Query("type")),
		Statut:       strings.TrimSpace(c.Query("statut")),
		DateDebut:    queryDate(c, "date_debut"),
		DateFin:      queryDate(c, "date_fin"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "limit", 20),
	}
	evaluations, pagination, err := h.evaluations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, pagination)
}

// Get godoc
// @Summary Get evaluation detail
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id} [get]
func (h *EvaluationHandler) Get(c *gin.Context) {
	evaluation, err := h.evaluations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Create godoc
// @Summary Create evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param payload body service.SaveEvaluationRequest true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Router /evaluations [post]
func (h *EvaluationHandler) Create(c *gin.Context) {
	var req service.SaveEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	evaluation, err := h.evaluations.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, evaluation)
}

// Update godoc
// @Summary Update evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body service.SaveEvaluationRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id} [put]
func (h *EvaluationHandler) Update(c *gin.Context) {
	var req service.SaveEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	evaluation, err := h.evaluations.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Delete godoc
// @Summary Delete evaluation
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 204
// @Router /evaluations/{id} [delete]
func (h *EvaluationHandler) Delete(c *gin.Context) {
	if err := h.evaluations.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
