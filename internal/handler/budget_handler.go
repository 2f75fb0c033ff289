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

// BudgetHandler exposes budget endpoints.
type BudgetHandler struct {
	budgets *service.BudgetService
}

// NewBudgetHandler constructs BudgetHandler.
func NewBudgetHandler(budgets *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgets: budgets}
}

// List godoc
// @Summary List budget lines
// @Tags Budgets
// @Produce json
// @Param annee_scolaire_id query string false "School year ID"
// @Param categorie_id query string false "Category ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	filter := models.BudgetFilter{
		AnneeScolaireID:    strings.TrimSpace(c.Query("annee_scolaire_id")),
		CategorieDepenseID: strings.TrimSpace(c.Query("categorie_id")),
		Page:               queryInt(c, "page", 1),
		PageSize:           queryInt(c, "limit", 20),
	}
	budgets, pagination, err := h.budgets.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, budgets, pagination)
}

// Get godoc
// @Summary Get budget line detail
// @Tags Budgets
// @Produce json
// @Param id path string true "Budget ID"
// @Success 200 {object} response.Envelope
// @Router /budgets/{id} [get]
func (h *BudgetHandler) Get(c *gin.Context) {
	budget, err := h.budgets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, budget, nil)
}

// Create godoc
// @Summary Create budget line
// @Tags Budgets
// @Accept json
// @Produce json
// @Param payload body service.SaveBudgetRequest true "Budget payload"
// @Success 201 {object} response.Envelope
// @Router /budgets [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	var req service.SaveBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	budget, err := h.budgets.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, budget)
}

// Update godoc
// @Summary Update budget line
// @Tags Budgets
// @Accept json
// @Produce json
// @Param id path string true "Budget ID"
// @Param payload body service.SaveBudgetRequest true "Budget payload"
// @Success 200 {object} response.Envelope
// @Router /budgets/{id} [put]
func (h *BudgetHandler) Update(c *gin.Context) {
	var req service.SaveBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	budget, err := h.budgets.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, budget, nil)
}

// Delete godoc
// @Summary Delete budget line
// @Tags Budgets
// @Produce json
// @Param id path string true "Budget ID"
// @Success 204
// @Router /budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	if err := h.budgets.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
