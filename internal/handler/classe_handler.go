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

// ClasseHandler exposes class endpoints.
type ClasseHandler struct {
	classes *service.ClasseService
}

// NewClasseHandler constructs ClasseHandler.
func NewClasseHandler(classes *service.ClasseService) *ClasseHandler {
	return &ClasseHandler{classes: classes}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param niveau query string false "Filter by level"
// @Param annee_scolaire_id query string false "Filter by school year"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClasseHandler) List(c *gin.Context) {
	filter := models.ClasseFilter{
		Niveau:          c.Query("niveau"),
		AnneeScolaireID: c.Query("annee_scolaire_id"),
		Search:          strings.TrimSpace(c.Query("search")),
		Page:            queryInt(c, "page", 1),
		PageSize:        queryInt(c, "limit", 20),
		SortBy:          c.Query("sort"),
		SortOrder:       c.Query("order"),
	}

	classes, pagination, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class detail
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClasseHandler) Get(c *gin.Context) {
	classe, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classe, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClasseRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClasseHandler) Create(c *gin.Context) {
	var req service.CreateClasseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	classe, err := h.classes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classe)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.UpdateClasseRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClasseHandler) Update(c *gin.Context) {
	var req service.UpdateClasseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	classe, err := h.classes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classe, nil)
}

// Delete godoc
// @Summary Delete class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 204
// @Router /classes/{id} [delete]
func (h *ClasseHandler) Delete(c *gin.Context) {
	if err := h.classes.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
