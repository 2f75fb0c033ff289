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

// SalaireHandler exposes payroll endpoints.
type SalaireHandler struct {
	salaires *service.SalaireService
}

// NewSalaireHandler constructs SalaireHandler.
func NewSalaireHandler(salaires *service.SalaireService) *SalaireHandler {
	return &SalaireHandler{salaires: salaires}
}

// queryMonth parses a YYYY-MM query parameter.
func queryMonth(c *gin.Context, key string) *time.Time {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01", raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// GetConfig godoc
// @Summary Current salary configuration of a teacher
// @Tags Salaires
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /professeurs/{id}/salaire [get]
func (h *SalaireHandler) GetConfig(c *gin.Context) {
	config, err := h.salaires.GetConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// ListConfigs godoc
// @Summary Salary configuration history of a teacher
// @Tags Salaires
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /professeurs/{id}/salaire/historique [get]
func (h *SalaireHandler) ListConfigs(c *gin.Context) {
	configs, err := h.salaires.ListConfigs(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// SetConfig godoc
// @Summary Set salary configuration for a teacher
// @Tags Salaires
// @Accept json
// @Produce json
// @Param payload body service.SetSalaireConfigRequest true "Salary configuration payload"
// @Success 201 {object} response.Envelope
// @Router /salaires/configs [post]
func (h *SalaireHandler) SetConfig(c *gin.Context) {
	var req service.SetSalaireConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	config, err := h.salaires.SetConfig(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, config)
}

// ListAvances godoc
// @Summary List salary advances
// @Tags Salaires
// @Produce json
// @Param professeur_id query string false "Teacher ID"
// @Param statut query string false "Status"
// @Param date_debut query string false "Start date (YYYY-MM-DD)"
// @Param date_fin query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /salaires/avances [get]
func (h *SalaireHandler) ListAvances(c *gin.Context) {
	filter := models.AvanceSalaireFilter{
		ProfesseurID: strings.TrimSpace(c.Query("professeur_id")),
		Statut:       strings.TrimSpace(c.Query("statut")),
		DateDebut:    queryDate(c, "date_debut"),
		DateFin:      queryDate(c, "date_fin"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "limit", 20),
	}
	avances, pagination, err := h.salaires.ListAvances(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avances, pagination)
}

// CreateAvance godoc
// @Summary Grant salary advance
// @Tags Salaires
// @Accept json
// @Produce json
// @Param payload body service.CreateAvanceRequest true "Advance payload"
// @Success 201 {object} response.Envelope
// @Router /salaires/avances [post]
func (h *SalaireHandler) CreateAvance(c *gin.Context) {
	var req service.CreateAvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	avance, err := h.salaires.CreateAvance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, avance)
}

// PayerAvance godoc
// @Summary Mark salary advance as disbursed
// @Tags Salaires
// @Produce json
// @Param id path string true "Advance ID"
// @Success 200 {object} response.Envelope
// @Router /salaires/avances/{id}/paiement [post]
func (h *SalaireHandler) PayerAvance(c *gin.Context) {
	avance, err := h.salaires.PayerAvance(c.Request.Context(), c.Param("id"), middleware.ActeurID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avance, nil)
}

// ListPaiements godoc
// @Summary List salary payments
// @Tags Salaires
// @Produce json
// @Param professeur_id query string false "Teacher ID"
// @Param type query string false "Payment type"
// @Param statut query string false "Status"
// @Param periode query string false "Month (YYYY-MM)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /salaires/paiements [get]
func (h *SalaireHandler) ListPaiements(c *gin.Context) {
	filter := models.PaiementSalaireFilter{
		ProfesseurID: strings.TrimSpace(c.Query("professeur_id")),
		Type:         strings.TrimSpace(c.Query("type")),
		Statut:       strings.TrimSpace(c.Query("statut")),
		Periode:      queryMonth(c, "periode"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "limit", 20),
	}
	paiements, pagination, err := h.salaires.ListPaiements(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paiements, pagination)
}

// GetPaiement godoc
// @Summary Get salary payment detail
// @Tags Salaires
// @Produce json
// @Param id path string true "Salary payment ID"
// @Success 200 {object} response.Envelope
// @Router /salaires/paiements/{id} [get]
func (h *SalaireHandler) GetPaiement(c *gin.Context) {
	paiement, err := h.salaires.GetPaiement(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paiement, nil)
}

// CreatePaiement godoc
// @Summary Prepare salary payment for a period
// @Tags Salaires
// @Accept json
// @Produce json
// @Param payload body service.CreatePaiementSalaireRequest true "Salary payment payload"
// @Success 201 {object} response.Envelope
// @Router /salaires/paiements [post]
func (h *SalaireHandler) CreatePaiement(c *gin.Context) {
	var req service.CreatePaiementSalaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	paiement, err := h.salaires.CreatePaiement(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, paiement)
}

// Payer godoc
// @Summary Mark salary payment as paid
// @Tags Salaires
// @Produce json
// @Param id path string true "Salary payment ID"
// @Success 200 {object} response.Envelope
// @Router /salaires/paiements/{id}/paiement [post]
func (h *SalaireHandler) Payer(c *gin.Context) {
	paiement, err := h.salaires.Payer(c.Request.Context(), c.Param("id"), middleware.ActeurID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, paiement, nil)
}
