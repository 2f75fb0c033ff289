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

// PaiementHandler exposes tuition payment endpoints.
type PaiementHandler struct {
	paiements *service.PaiementService
}

// NewPaiementHandler constructs PaiementHandler.
func NewPaiementHandler(paiements *service.PaiementService) *PaiementHandler {
	return &PaiementHandler{paiements: paiements}
}

// List godoc
// @Summary List tuition payments
// @Tags Paiements
// @Produce json
// @Param eleve_id query string false "Student ID"
// @Param tranche_id query string false "Installment ID"
// @Param annee_scolaire_id query string false "School year ID"
// @Param mode query string false "Payment mode"
// @Param date_debut query string false "Start date (YYYY-MM-DD)"
// @Param date_fin query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /paiements [get]
func (h *PaiementHandler) List(c *gin.Context) {
	filter := models.PaiementFilter{
		EleveID:         strings.TrimSpace(c.Query("eleve_id")),
		TrancheID:       strings.TrimSpace(c.Query("tranche_id")),
		AnneeScolaireID: strings.TrimSpace(c.Query("annee_scolaire_id")),
		Mode:            strings.TrimSpace(c.Query("mode")),
		DateDebut:       queryDate(c, "date_debut"),
		DateFin:         queryDate(c, "date_fin"),
		Page:            queryInt(c, "page", 1),
		PageSize:        queryInt(c, "limit", 20),
	}
	paiements, pagination, err := h.paiements.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paiements, pagination)
}

// Get godoc
// @Summary Get payment detail
// @Tags Paiements
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /paiements/{id} [get]
func (h *PaiementHandler) Get(c *gin.Context) {
	paiement, err := h.paiements.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paiement, nil)
}

// Create godoc
// @Summary Record tuition payment
// @Tags Paiements
// @Accept json
// @Produce json
// @Param payload body service.CreatePaiementRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /paiements [post]
func (h *PaiementHandler) Create(c *gin.Context) {
	var req service.CreatePaiementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	paiement, err := h.paiements.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, paiement)
}

// Update godoc
// @Summary Correct tuition payment
// @Tags Paiements
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.UpdatePaiementRequest true "Correction payload with reason"
// @Success 200 {object} response.Envelope
// @Router /paiements/{id} [put]
func (h *PaiementHandler) Update(c *gin.Context) {
	var req service.UpdatePaiementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	paiement, err := h.paiements.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paiement, nil)
}

// Delete godoc
// @Summary Cancel tuition payment
// @Tags Paiements
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body object true "Cancellation reason"
// @Success 204
// @Router /paiements/{id} [delete]
func (h *PaiementHandler) Delete(c *gin.Context) {
	var payload struct {
		Motif string `json:"motif" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "motif is required"))
		return
	}
	if err := h.paiements.Delete(c.Request.Context(), c.Param("id"), payload.Motif, middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Historique godoc
// @Summary Payment correction history
// @Tags Paiements
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /paiements/{id}/historique [get]
func (h *PaiementHandler) Historique(c *gin.Context) {
	historique, err := h.paiements.Historique(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, historique, nil)
}
