package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"truck-inspection-backend/internal/catalog"
	"truck-inspection-backend/internal/checklist"
	"truck-inspection-backend/internal/dashboard"
	"truck-inspection-backend/internal/export"
	"truck-inspection-backend/internal/fragments"
	"truck-inspection-backend/internal/store"
)

// Deps are the components the HTTP handlers serve.
type Deps struct {
	Catalog   *catalog.Catalog
	Sessions  *checklist.Manager
	Dashboard *dashboard.Service
	Exporter  *export.Exporter
	Fragments *fragments.Loader
	// Subscriptions is nil when defect alerts are unavailable.
	Subscriptions store.Subscriptions
	WebPush       *webpush.Options
	Logger        *zap.SugaredLogger
	Clock         func() time.Time
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	catalog   *catalog.Catalog
	sessions  *checklist.Manager
	dashboard *dashboard.Service
	exporter  *export.Exporter
	fragments *fragments.Loader
	subs      store.Subscriptions
	webpush   *webpush.Options
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		catalog:   d.Catalog,
		sessions:  d.Sessions,
		dashboard: d.Dashboard,
		exporter:  d.Exporter,
		fragments: d.Fragments,
		subs:      d.Subscriptions,
		webpush:   d.WebPush,
		logger:    d.Logger,
		now:       d.Clock,
	}
	if h.logger == nil {
		h.logger = zap.NewNop().Sugar()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func notFound(c *gin.Context, msg string) {
	abortWithError(c, http.StatusNotFound, msg)
}
