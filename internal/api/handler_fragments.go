package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const htmlContentType = "text/html; charset=utf-8"

// GetNav handles GET /fragments/nav.
func (h *Handler) GetNav(c *gin.Context) {
	body, err := h.fragments.Nav(c.Query("page"))
	if err != nil {
		h.logger.Warnw("navigation fragment unavailable", "err", err)
		notFound(c, "Navigation could not be loaded.")
		return
	}
	c.Data(http.StatusOK, htmlContentType, body)
}

// GetFooter handles GET /fragments/footer.
func (h *Handler) GetFooter(c *gin.Context) {
	body, err := h.fragments.Footer()
	if err != nil {
		h.logger.Warnw("footer fragment unavailable", "err", err)
		notFound(c, "Footer could not be loaded.")
		return
	}
	c.Data(http.StatusOK, htmlContentType, body)
}
