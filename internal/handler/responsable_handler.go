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

// ResponsableHandler exposes guardian endpoints.
type ResponsableHandler struct {
	responsables *service.ResponsableService
}

// NewResponsableHandler constructs ResponsableHandler.
func NewResponsableHandler(responsables *service.ResponsableService) *ResponsableHandler {
	return &ResponsableHandler{responsables: responsables}
}

// List godoc
// @Summary List guardians
// @Tags Responsables
// @Produce json
// @Param search query string false "Search by name or phone"
// @Param eleve_id query string false "Filter by linked student"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /responsables [get]
func (h *ResponsableHandler) List(c *gin.Context) {
	filter := models.ResponsableFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		EleveID:  c.Query("eleve_id"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", 20),
	}

	responsables, pagination, err := h.responsables.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, responsables, pagination)
}

// Get godoc
// @Summary Get guardian detail
// @Tags Responsables
// @Produce json
// @Param id path string true "Guardian ID"
// @Success 200 {object} response.Envelope
// @Router /responsables/{id} [get]
func (h *ResponsableHandler) Get(c *gin.Context) {
	responsable, err := h.responsables.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, responsable, nil)
}

// Create godoc
// @Summary Create guardian
// @Tags Responsables
// @Accept json
// @Produce json
// @Param payload body service.SaveResponsableRequest true "Guardian payload"
// @Success 201 {object} response.Envelope
// @Router /responsables [post]
func (h *ResponsableHandler) Create(c *gin.Context) {
	var req service.SaveResponsableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	responsable, err := h.responsables.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, responsable)
}

// Update godoc
// @Summary Update guardian
// @Tags Responsables
// @Accept json
// @Produce json
// @Param id path string true "Guardian ID"
// @Param payload body service.SaveResponsableRequest true "Guardian payload"
// @Success 200 {object} response.Envelope
// @Router /responsables/{id} [put]
func (h *ResponsableHandler) Update(c *gin.Context) {
	var req service.SaveResponsableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	responsable, err := h.responsables.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, responsable, nil)
}

// Delete godoc
// @Summary Soft-delete guardian
// @Tags Responsables
// @Produce json
// @Param id path string true "Guardian ID"
// @Success 204
// @Router /responsables/{id} [delete]
func (h *ResponsableHandler) Delete(c *gin.Context) {
	if err := h.responsables.Delete(c.Request.Context(), c.Param("id"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByEleve godoc
// @Summary List guardians of a student
// @Tags Responsables
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /eleves/{id}/responsables [get]
func (h *ResponsableHandler) ListByEleve(c *gin.Context) {
	responsables, err := h.responsables.ListByEleve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, responsables, nil)
}

// Attach godoc
// @Summary Attach a guardian to a student
// @Tags Responsables
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.AttachResponsableRequest true "Link payload"
// @Success 201 {object} response.Envelope
// @Router /eleves/{id}/responsables [post]
func (h *ResponsableHandler) Attach(c *gin.Context) {
	var req service.AttachResponsableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	lien, err := h.responsables.Attach(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lien)
}

// UpdateLink godoc
// @Summary Update a guardian link
// @Tags Responsables
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.AttachResponsableRequest true "Link payload"
// @Success 200 {object} response.Envelope
// @Router /eleves/{id}/responsables [put]
func (h *ResponsableHandler) UpdateLink(c *gin.Context) {
	var req service.AttachResponsableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActeurID = middleware.ActeurID(c)
	lien, err := h.responsables.UpdateLink(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lien, nil)
}

// Detach godoc
// @Summary Detach a guardian from a student
// @Tags Responsables
// @Produce json
// @Param id path string true "Student ID"
// @Param responsableId path string true "Guardian ID"
// @Success 204
// @Router /eleves/{id}/responsables/{responsableId} [delete]
func (h *ResponsableHandler) Detach(c *gin.Context) {
	if err := h.responsables.Detach(c.Request.Context(), c.Param("id"), c.Param("responsableId"), middleware.ActeurID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
