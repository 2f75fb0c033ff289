package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecole-adm-api/internal/middleware"
	"github.com/noah-isme/ecole-adm-api/internal/models"
	"github.com/noah-isme/ecole-adm-api/internal/service"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
	"github.com/noah-isme/ecole-adm-api/pkg/response"
)

// AnneeHandler exposes school year and term endpoints.
type AnneeHandler struct {
	annees *service.AnneeService
}

// NewAnneeHandler constructs AnneeHandler.
func NewAnneeHandler(annees *service.AnneeService) *AnneeHandler {
	return &AnneeHandler{annees: annees}
}

// List godoc
// @Summary List school years
// @Tags Annees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /annees [get]
func (h *AnneeHandler) List(c *gin.Context) {
	annees, err := h.annees.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, annees, nil)
}

// GetActive godoc
// @Summary Get the active school year
// @Tags Annees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /annees/active [get]
func (h *AnneeHandler) GetActive(c *gin.Context) {
	annee, err := h.annees.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, annee, nil)
}

// Get godoc
// @Summary Get school year detail
// @Tags Annees
// @Produce json
// @Param id path string true "School year ID"
// @Success 200 {object} response.Envelope
// @Router /annees/{id} [get]
func (h *AnneeHandler) Get(c *gin.Context) {
	annee, err := h.annees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, annee, nil)
}

// Create godoc
// @Summary Create school year
// @Tags Annees
// @Accept json
// @Produce json
// @Param payload body service.SaveAnneeRequest true "School year payload"
// @Success 201 {object} response.Envelope
// @Router /annees [post]
func (h *AnneeHandler) Create(c *gin.Context) {
	var req service.SaveAnneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	annee, err := h.annees.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, annee)
}

// Update godoc
// @Summary Update school year
// @Tags Annees
// @Accept json
// @Produce json
// @Param id path string true "School year ID"
// @Param payload body service.SaveAnneeRequest true "School year payload"
// @Success 200 {object} response.Envelope
// @Router /annees/{id} [put]
func (h *AnneeHandler) Update(c *gin.Context) {
	var req service.SaveAnneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	annee, err := h.annees.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, annee, nil)
}

// Activate godoc
// @Summary Activate a school year
// @Tags Annees
// @Produce json
// @Param id path string true "School year ID"
// @Success 204
// @Router /annees/{id}/activation [post]
func (h *AnneeHandler) Activate(c *gin.Context) {
	if err := h.annees.Activate(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTrimestres godoc
// @Summary List terms
// @Tags Annees
// @Produce json
// @Param annee_scolaire_id query string false "Filter by school year"
// @Param actif query bool false "Filter by active flag"
// @Success 200 {object} response.Envelope
// @Router /trimestres [get]
func (h *AnneeHandler) ListTrimestres(c *gin.Context) {
	filter := models.TrimestreFilter{
		AnneeScolaireID: c.Query("annee_scolaire_id"),
		EstActif:        queryBool(c, "actif"),
	}
	trimestres, err := h.annees.ListTrimestres(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trimestres, nil)
}

// CreateTrimestre godoc
// @Summary Create term
// @Tags Annees
// @Accept json
// @Produce json
// @Param payload body service.CreateTrimestreRequest true "Term payload"
// @Success 201 {object} response.Envelope
// @Router /trimestres [post]
func (h *AnneeHandler) CreateTrimestre(c *gin.Context) {
	var req service.CreateTrimestreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	trimestre, err := h.annees.CreateTrimestre(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, trimestre)
}

// ActivateTrimestre godoc
// @Summary Activate a term
// @Tags Annees
// @Produce json
// @Param id path string true "Term ID"
// @Success 204
// @Router /trimestres/{id}/activation [post]
func (h *AnneeHandler) ActivateTrimestre(c *gin.Context) {
	if err := h.annees.ActivateTrimestre(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
