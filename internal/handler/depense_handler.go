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

// DepenseHandler exposes expense endpoints.
type DepenseHandler struct {
	depenses *service.DepenseService
}

// NewDepenseHandler constructs DepenseHandler.
func NewDepenseHandler(depenses *service.DepenseService) *DepenseHandler {
	return &DepenseHandler{depenses: depenses}
}

// List godoc
// @Summary List expenses
// @Tags Depenses
// @Produce json
// @Param categorie_id query string false "Category ID"
// @Param budget_id query string false "Budget ID"
// @Param statut query string false "Status"
// @Param date_debut query string false "Start date (YYYY-MM-DD)"
// @Param date_fin query string false "End date (YYYY-MM-DD)"
// @Param search query string false "Search in label or reference"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /depenses [get]
func (h *DepenseHandler) List(c *gin.Context) {
	filter := models.DepenseFilter{
		CategorieDepenseID: strings.TrimSpace(c.Query("categorie_id")),
		BudgetID:           strings.TrimSpace(c.Query("budget_id")),
		Statut:             strings.TrimSpace(c.Query("statut")),
		DateDebut:          queryDate(c, "date_debut"),
		DateFin:            queryDate(c, "date_fin"),
		Search:             strings.TrimSpace(c.Query("search")),
		Page:               queryInt(c, "page", 1),
		PageSize:           queryInt(c, "limit", 20),
	}
	depenses, pagination, err := h.depenses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, depenses, pagination)
}

// Get godoc
// @Summary Get expense detail
// @Tags Depenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} response.Envelope
// @Router /depenses/{id} [get]
func (h *DepenseHandler) Get(c *gin.Context) {
	depense, err := h.depenses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, depense, nil)
}

// Create godoc
// @Summary Create expense draft
// @Tags Depenses
// @Accept json
// @Produce json
// @Param payload body service.SaveDepenseRequest true "Expense payload"
// @Success 201 {object} response.Envelope
// @Router /depenses [post]
func (h *DepenseHandler) Create(c *gin.Context) {
	var req service.SaveDepenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	depense, err := h.depenses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, depense)
}

// Update godoc
// @Summary Update expense draft
// @Tags Depenses
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param payload body service.SaveDepenseRequest true "Expense payload"
// @Success 200 {object} response.Envelope
// @Router /depenses/{id} [put]
func (h *DepenseHandler) Update(c *gin.Context) {
	var req service.SaveDepenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	depense, err := h.depenses.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, depense, nil)
}

// Soumettre godoc
// @Summary Submit expense for approval
// @Tags Depenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} response.Envelope
// @Router /depenses/{id}/soumission [post]
func (h *DepenseHandler) Soumettre(c *gin.Context) {
	depense, err := h.depenses.Soumettre(c.Request.Context(), c.Param("id"), middleware.ActeurID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, depense, nil)
}

// Decider godoc
// @Summary Approve or reject expense
// @Tags Depenses
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param payload body service.DeciderDepenseRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /depenses/{id}/decision [post]
func (h *DepenseHandler) Decider(c *gin.Context) {
	var req service.DeciderDepenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	depense, err := h.depenses.Decider(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, depense, nil)
}

// Payer godoc
// @Summary Mark approved expense as paid
// @Tags Depenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} response.Envelope
// @Router /depenses/{id}/paiement [post]
func (h *DepenseHandler) Payer(c *gin.Context) {
	depense, err := h.depenses.Payer(c.Request.Context(), c.Param("id"), middleware.ActeurID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, depense, nil)
}

// Delete godoc
// @Summary Delete expense draft
// @Tags Depenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 204
// @Router /depenses/{id} [delete]
func (h *DepenseHandler) Delete(c *gin.Context) {
	if err := h.depenses.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approbations godoc
// @Summary Expense approval trail
// @Tags Depenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} response.Envelope
// @Router /depenses/{id}/approbations [get]
func (h *DepenseHandler) Approbations(c *gin.Context) {
	approbations, err := h.depenses.Approbations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, approbations, nil)
}

// ListCategories godoc
// @Summary List expense categories
// @Tags Depenses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /depenses/categories [get]
func (h *DepenseHandler) ListCategories(c *gin.Context) {
	categories, err := h.depenses.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// CreateCategorie godoc
// @Summary Create expense category
// @Tags Depenses
// @Accept json
// @Produce json
// @Param payload body service.CreateCategorieRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /depenses/categories [post]
func (h *DepenseHandler) CreateCategorie(c *gin.Context) {
	var req service.CreateCategorieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	categorie, err := h.depenses.CreateCategorie(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, categorie)
}
