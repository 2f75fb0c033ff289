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

// ProfesseurHandler exposes teacher endpoints.
type ProfesseurHandler struct {
	professeurs *service.ProfesseurService
}

// NewProfesseurHandler constructs ProfesseurHandler.
func NewProfesseurHandler(professeurs *service.ProfesseurService) *ProfesseurHandler {
	return &ProfesseurHandler{professeurs: professeurs}
}

// List godoc
// @Summary List teachers
// @Tags Professeurs
// @Produce json
// @Param search query string false "Search by name or matricule"
// @Param specialite query string false "Filter by speciality"
// @Param statut query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professeurs [get]
func (h *ProfesseurHandler) List(c *gin.Context) {
	filter := models.ProfesseurFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Specialite: c.Query("specialite"),
		Statut:     c.Query("statut"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "limit", 20),
		SortBy:     c.Query("sort"),
		SortOrder:  c.Query("order"),
	}

	professeurs, pagination, err := h.professeurs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professeurs, pagination)
}

// Get godoc
// @Summary Get teacher detail
// @Tags Professeurs
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /professeurs/{id} [get]
func (h *ProfesseurHandler) Get(c *gin.Context) {
	professeur, err := h.professeurs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professeur, nil)
}

// Create godoc
// @Summary Create teacher
// @Tags Professeurs
// @Accept json
// @Produce json
// @Param payload body service.CreateProfesseurRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /professeurs [post]
func (h *ProfesseurHandler) Create(c *gin.Context) {
	var req service.CreateProfesseurRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	professeur, err := h.professeurs.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, professeur)
}

// Update godoc
// @Summary Update teacher
// @Tags Professeurs
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.UpdateProfesseurRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Router /professeurs/{id} [put]
func (h *ProfesseurHandler) Update(c *gin.Context) {
	var req service.UpdateProfesseurRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	professeur, err := h.professeurs.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professeur, nil)
}

// Delete godoc
// @Summary Soft-delete teacher
// @Tags Professeurs
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 204
// @Router /professeurs/{id} [delete]
func (h *ProfesseurHandler) Delete(c *gin.Context) {
	if err := h.professeurs.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
