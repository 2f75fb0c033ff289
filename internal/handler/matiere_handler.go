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

// MatiereHandler exposes subject endpoints.
type MatiereHandler struct {
	matieres *service.MatiereService
}

// NewMatiereHandler constructs MatiereHandler.
func NewMatiereHandler(matieres *service.MatiereService) *MatiereHandler {
	return &MatiereHandler{matieres: matieres}
}

// List godoc
// @Summary List subjects
// @Tags Matieres
// @Produce json
// @Param search query string false "Search by code or label"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /matieres [get]
func (h *MatiereHandler) List(c *gin.Context) {
	filter := models.MatiereFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", 20),
	}
	matieres, pagination, err := h.matieres.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matieres, pagination)
}

// Get godoc
// @Summary Get subject detail
// @Tags Matieres
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /matieres/{id} [get]
func (h *MatiereHandler) Get(c *gin.Context) {
	matiere, err := h.matieres.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matiere, nil)
}

// Create godoc
// @Summary Create subject
// @Tags Matieres
// @Accept json
// @Produce json
// @Param payload body service.SaveMatiereRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /matieres [post]
func (h *MatiereHandler) Create(c *gin.Context) {
	var req service.SaveMatiereRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	matiere, err := h.matieres.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, matiere)
}

// Update godoc
// @Summary Update subject
// @Tags Matieres
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.SaveMatiereRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Router /matieres/{id} [put]
func (h *MatiereHandler) Update(c *gin.Context) {
	var req service.SaveMatiereRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	matiere, err := h.matieres.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matiere, nil)
}

// Delete godoc
// @Summary Soft-delete subject
// @Tags Matieres
// @Produce json
// @Param id path string true "Subject ID"
// @Success 204
// @Router /matieres/{id} [delete]
func (h *MatiereHandler) Delete(c *gin.Context) {
	if err := h.matieres.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
