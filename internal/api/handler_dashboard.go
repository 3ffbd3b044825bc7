package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"truck-inspection-backend/internal/dashboard"
)

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Load(c.Request.Context()))
}

// GetDashboardChart handles GET /api/dashboard/chart.svg.
func (h *Handler) GetDashboardChart(c *gin.Context) {
	summary := h.dashboard.Load(c.Request.Context())

	var buf bytes.Buffer
	if err := dashboard.RenderChart(&buf, summary); err != nil {
		if errors.Is(err, dashboard.ErrNoData) {
			notFound(c, dashboard.NoDataMessage)
			return
		}
		h.logger.Errorw("failed to render dashboard chart", "err", err)
		abortWithError(c, http.StatusInternalServerError, "failed to render chart")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}
