package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ecole-adm-api/internal/service"
	"github.com/noah-isme/ecole-adm-api/pkg/response"
)

// DashboardHandler exposes the administrative dashboard.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Resume godoc
// @Summary Dashboard summary
// @Tags Dashboard
// @Produce json
// @Param annee_scolaire_id query string false "School year ID (defaults to active year)"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Resume(c *gin.Context) {
	tableau, cacheHit, err := h.dashboard.Resume(c.Request.Context(), strings.TrimSpace(c.Query("annee_scolaire_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tableau, nil, map[string]interface{}{"cache": cacheHit})
}

// InvalidateCache godoc
// @Summary Drop cached dashboard summaries
// @Tags Dashboard
// @Produce json
// @Success 204
// @Router /dashboard/cache [delete]
func (h *DashboardHandler) InvalidateCache(c *gin.Context) {
	h.dashboard.InvalidateCache(c.Request.Context())
	response.NoContent(c)
}
