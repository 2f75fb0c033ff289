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

// EleveHandler exposes student endpoints.
type EleveHandler struct {
	eleves *service.EleveService
}

// NewEleveHandler constructs EleveHandler.
func NewEleveHandler(eleves *service.EleveService) *EleveHandler {
	return &EleveHandler{eleves: eleves}
}

// List godoc
// @Summary List students
// @Tags Eleves
// @Produce json
// @Param search query string false "Search by name or matricule"
// @Param classe_id query string false "Filter by class"
// @Param statut query string false "Filter by status"
// @Param avec_supprimes query bool false "Include soft-deleted rows"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /eleves [get]
func (h *EleveHandler) List(c *gin.Context) {
	filter := models.EleveFilter{
		Search:        strings.TrimSpace(c.Query("search")),
		ClasseID:      c.Query("classe_id"),
		Statut:        c.Query("statut"),
		Sexe:          c.Query("sexe"),
		AvecSupprimes: c.Query("avec_supprimes") == "true",
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "limit", 20),
		SortBy:        c.Query("sort"),
		SortOrder:     c.Query("order"),
	}

	eleves, pagination, err := h.eleves.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eleves, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Eleves
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /eleves/{id} [get]
func (h *EleveHandler) Get(c *gin.Context) {
	eleve, err := h.eleves.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eleve, nil)
}

// Create godoc
// @Summary Enroll a student
// @Tags Eleves
// @Accept json
// @Produce json
// @Param payload body service.CreateEleveRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /eleves [post]
func (h *EleveHandler) Create(c *gin.Context) {
	var req service.CreateEleveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	eleve, err := h.eleves.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, eleve)
}

// Update godoc
// @Summary Update student
// @Tags Eleves
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateEleveRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /eleves/{id} [put]
func (h *EleveHandler) Update(c *gin.Context) {
	var req service.UpdateEleveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	eleve, err := h.eleves.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eleve, nil)
}

// Transfer godoc
// @Summary Transfer student to another class
// @Tags Eleves
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.TransferEleveRequest true "Transfer payload"
// @Success 204
// @Router /eleves/{id}/transfert [post]
func (h *EleveHandler) Transfer(c *gin.Context) {
	var req service.TransferEleveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	if err := h.eleves.Transfer(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Soft-delete student
// @Tags Eleves
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Router /eleves/{id} [delete]
func (h *EleveHandler) Delete(c *gin.Context) {
	if err := h.eleves.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore a soft-deleted student
// @Tags Eleves
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Router /eleves/{id}/restauration [post]
func (h *EleveHandler) Restore(c *gin.Context) {
	if err := h.eleves.Restore(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
