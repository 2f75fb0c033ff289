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

// FraisHandler exposes fee configuration endpoints.
type FraisHandler struct {
	frais *service.FraisService
}

// NewFraisHandler constructs FraisHandler.
func NewFraisHandler(frais *service.FraisService) *FraisHandler {
	return &FraisHandler{frais: frais}
}

// List godoc
// @Summary List fee configurations for a school year
// @Tags Frais
// @Produce json
// @Param annee_scolaire_id query string true "School year ID"
// @Success 200 {object} response.Envelope
// @Router /frais [get]
func (h *FraisHandler) List(c *gin.Context) {
	anneeID := strings.TrimSpace(c.Query("annee_scolaire_id"))
	if anneeID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "annee_scolaire_id is required"))
		return
	}
	configs, err := h.frais.ListByAnnee(c.Request.Context(), anneeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// Get godoc
// @Summary Get fee configuration detail
// @Tags Frais
// @Produce json
// @Param id path string true "Fee configuration ID"
// @Success 200 {object} response.Envelope
// @Router /frais/{id} [get]
func (h *FraisHandler) Get(c *gin.Context) {
	config, err := h.frais.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// GetByClasse godoc
// @Summary Fee configuration applicable to a class
// @Tags Frais
// @Produce json
// @Param classeId path string true "Class ID"
// @Param annee_scolaire_id query string false "School year ID (defaults to active year)"
// @Success 200 {object} response.Envelope
// @Router /classes/{classeId}/frais [get]
func (h *FraisHandler) GetByClasse(c *gin.Context) {
	config, err := h.frais.GetByClasse(c.Request.Context(), c.Param("classeId"), strings.TrimSpace(c.Query("annee_scolaire_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// Create godoc
// @Summary Create fee configuration
// @Tags Frais
// @Accept json
// @Produce json
// @Param payload body service.SaveFraisRequest true "Fee configuration payload"
// @Success 201 {object} response.Envelope
// @Router /frais [post]
func (h *FraisHandler) Create(c *gin.Context) {
	var req service.SaveFraisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	config, err := h.frais.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, config)
}

// Update godoc
// @Summary Update fee configuration
// @Tags Frais
// @Accept json
// @Produce json
// @Param id path string true "Fee configuration ID"
// @Param payload body service.SaveFraisRequest true "Fee configuration payload"
// @Success 200 {object} response.Envelope
// @Router /frais/{id} [put]
func (h *FraisHandler) Update(c *gin.Context) {
	var req service.SaveFraisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	config, err := h.frais.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// Delete godoc
// @Summary Delete fee configuration
// @Tags Frais
// @Produce json
// @Param id path string true "Fee configuration ID"
// @Success 204
// @Router /frais/{id} [delete]
func (h *FraisHandler) Delete(c *gin.Context) {
	if err := h.frais.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
