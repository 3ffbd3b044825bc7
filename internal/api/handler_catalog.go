package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zeebo/xxh3"

	"truck-inspection-backend/internal/catalog"
)

// etag returns a strong validator for a response body.
func etag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
}

// writeJSONWithETag writes v as JSON, answering 304 when the client already
// holds the same body.
func writeJSONWithETag(c *gin.Context, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "failed to encode response")
		return
	}
	tag := etag(body)
	c.Header("ETag", tag)
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// ListTrucks handles GET /api/trucks.
func (h *Handler) ListTrucks(c *gin.Context) {
	trucks, err := h.catalog.Trucks(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to load truck registry", "err", err)
		abortWithError(c, http.StatusBadGateway, fmt.Sprintf("Error loading trucks: %v", err))
		return
	}
	writeJSONWithETag(c, trucks)
}

// GetChecklist handles GET /api/trucks/:id/checklist.
func (h *Handler) GetChecklist(c *gin.Context) {
	truckID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid truck ID")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.catalog.Truck(ctx, truckID); err != nil {
		if errors.Is(err, catalog.ErrUnknownTruck) {
			notFound(c, err.Error())
			return
		}
		h.logger.Errorw("failed to load truck registry", "err", err)
		abortWithError(c, http.StatusBadGateway, fmt.Sprintf("Error loading trucks: %v", err))
		return
	}

	def, err := h.catalog.Definition(ctx, truckID)
	if err != nil {
		h.logger.Errorw("checklist load error", "truck", truckID, "err", err)
		msg := fmt.Sprintf("Error loading checklist: %v. Make sure the truck JSON file exists.", err)
		if errors.Is(err, catalog.ErrNotFound) {
			notFound(c, msg)
			return
		}
		abortWithError(c, http.StatusBadGateway, msg)
		return
	}
	writeJSONWithETag(c, def)
}
