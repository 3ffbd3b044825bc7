package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"truck-inspection-backend/config"
	"truck-inspection-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.Default()

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, 10*time.Minute)
	rateLimiter := mw.RateLimiter(limiter)

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	caching := mw.Cache(cache.New(cacheTTL, 2*cacheTTL), cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/trucks", caching, h.ListTrucks)
		api.GET("/trucks/:id/checklist", caching, h.GetChecklist)

		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DeleteSession)
		api.PUT("/sessions/:id/truck", h.SelectTruck)
		api.PUT("/sessions/:id/inspector", h.SetInspector)
		api.POST("/sessions/:id/items/toggle", h.ToggleItem)
		api.PUT("/sessions/:id/items/notes", h.SetNotes)
		api.POST("/sessions/:id/select-all", h.SelectAll)
		api.POST("/sessions/:id/submit", h.Submit)
		api.GET("/sessions/:id/export.pdf", h.ExportPDF)

		api.GET("/dashboard", h.GetDashboard)
		api.GET("/dashboard/chart.svg", h.GetDashboardChart)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	frags := r.Group("/fragments")
	{
		frags.GET("/nav", h.GetNav)
		frags.GET("/footer", h.GetFooter)
	}

	if cfg.StaticDir != "" {
		r.Static("/pages", cfg.StaticDir)
	}

	return r
}
