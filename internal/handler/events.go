package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hackattend/internal/directory"
	"hackattend/internal/model"
)

func (h *Handler) listEvents(c *gin.Context) {
	status := model.EventStatus(c.Query("status"))
	switch status {
	case "", model.EventActive, model.EventCompleted:
	default:
		h.respondError(c, model.Validation("Invalid event status"))
		return
	}
	c.JSON(http.StatusOK, h.dir.ListEvents(c.Request.Context(), status))
}

func (h *Handler) createEvent(c *gin.Context) {
	var in directory.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c)
		return
	}
	e, err := h.dir.CreateEvent(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) updateEvent(c *gin.Context) {
	var p directory.EventPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c)
		return
	}
	e, err := h.dir.UpdateEvent(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) toggleEvent(c *gin.Context) {
	e, err := h.dir.ToggleEventStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) deleteEvent(c *gin.Context) {
	if err := h.dir.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

func (h *Handler) report(c *gin.Context) {
	rep, err := h.dir.GenerateReport(c.Request.Context(), directory.ReportKind(c.Param("kind")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) dashboardStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.dir.DashboardStats(c.Request.Context()))
}
