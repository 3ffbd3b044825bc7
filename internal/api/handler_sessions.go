package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"truck-inspection-backend/internal/checklist"
	"truck-inspection-backend/internal/export"
)

type selectTruckRequest struct {
	TruckID int64 `json:"truck_id" binding:"required"`
}

type itemRequest struct {
	Section string `json:"section" binding:"required"`
	Item    string `json:"item" binding:"required"`
}

type notesRequest struct {
	Section string `json:"section" binding:"required"`
	Item    string `json:"item" binding:"required"`
	Notes   string `json:"notes"`
}

type inspectorRequest struct {
	Inspector string `json:"inspector"`
}

type submitRequest struct {
	Inspector string `json:"inspector"`
}

func (h *Handler) session(c *gin.Context) (*checklist.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		notFound(c, err.Error())
		return nil, false
	}
	return sess, true
}

func (h *Handler) itemFailed(c *gin.Context, err error) {
	var itemErr *checklist.ItemError
	if errors.As(err, &itemErr) {
		notFound(c, err.Error())
		return
	}
	abortWithError(c, http.StatusInternalServerError, err.Error())
}

// CreateSession handles POST /api/sessions.
func (h *Handler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create(c.Request.Context())
	c.JSON(http.StatusCreated, sess.Snapshot())
}

// GetSession handles GET /api/sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// DeleteSession handles DELETE /api/sessions/:id.
func (h *Handler) DeleteSession(c *gin.Context) {
	h.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// SelectTruck handles PUT /api/sessions/:id/truck.
func (h *Handler) SelectTruck(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req selectTruckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := sess.SelectTruck(c.Request.Context(), req.TruckID); err != nil {
		if errors.Is(err, checklist.ErrUnknownTruck) {
			notFound(c, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// ToggleItem handles POST /api/sessions/:id/items/toggle.
func (h *Handler) ToggleItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	item, err := sess.Toggle(req.Section, req.Item)
	if err != nil {
		h.itemFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// SetNotes handles PUT /api/sessions/:id/items/notes.
func (h *Handler) SetNotes(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	item, err := sess.SetNotes(req.Section, req.Item, req.Notes)
	if err != nil {
		h.itemFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// SetInspector handles PUT /api/sessions/:id/inspector. The name is kept as
// typed; it is trimmed and checked only on submit.
func (h *Handler) SetInspector(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req inspectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	sess.SetInspector(req.Inspector)
	c.JSON(http.StatusOK, sess.Snapshot())
}

// SelectAll handles POST /api/sessions/:id/select-all.
func (h *Handler) SelectAll(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sess.SelectAll()
	c.JSON(http.StatusOK, sess.Snapshot())
}

// Submit handles POST /api/sessions/:id/submit.
func (h *Handler) Submit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request")
		return
	}

	rec, err := sess.Submit(c.Request.Context(), req.Inspector)
	if err != nil {
		var verr *checklist.ValidationError
		switch {
		case errors.As(err, &verr):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
		case errors.Is(err, checklist.ErrSaveFailed):
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to save inspection.",
				"session": sess.Snapshot(),
			})
		default:
			abortWithError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Inspection submitted successfully!",
		"record":  rec,
		"session": sess.Snapshot(),
	})
}

// ExportPDF handles GET /api/sessions/:id/export.pdf.
func (h *Handler) ExportPDF(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	snap := sess.Snapshot()

	var buf bytes.Buffer
	if err := h.exporter.Render(&buf, snap, h.now()); err != nil {
		h.logger.Errorw("failed to render inspection document", "session", snap.ID, "err", err)
		abortWithError(c, http.StatusInternalServerError, "failed to render document")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(snap)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
