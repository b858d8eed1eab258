package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hackattend/internal/attendance"
	"hackattend/internal/auth"
	"hackattend/internal/model"
)

// maxFrameBytes caps uploaded scan frames.
const maxFrameBytes = 4 << 20

func (h *Handler) listAttendance(c *gin.Context) {
	ctx := c.Request.Context()
	eventID, studentID := c.Query("eventId"), c.Query("studentId")
	var recs []model.AttendanceRecord
	if eventID != "" {
		recs = h.att.ListForEvent(ctx, eventID)
	} else {
		recs = h.att.List(ctx)
	}
	if studentID != "" {
		filtered := []model.AttendanceRecord{}
		for _, r := range recs {
			if r.StudentID == studentID {
				filtered = append(filtered, r)
			}
		}
		recs = filtered
	}
	c.JSON(http.StatusOK, recs)
}

type recordRequest struct {
	EventID   string `json:"eventId"`
	StudentID string `json:"studentId"`
	Payload   string `json:"payload"`
}

func (h *Handler) recordAttendance(c *gin.Context) {
	h.record(c, attendance.SourceAPI, func(r recordRequest) string { return r.StudentID })
}

func (h *Handler) scanAttendance(c *gin.Context) {
	h.record(c, attendance.SourceScan, func(r recordRequest) string { return r.Payload })
}

func (h *Handler) manualAttendance(c *gin.Context) {
	h.record(c, attendance.SourceManual, func(r recordRequest) string { return r.StudentID })
}

func (h *Handler) record(c *gin.Context, source attendance.Source, identifier func(recordRequest) string) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	rec, err := h.att.Record(c.Request.Context(), req.EventID, identifier(req), source)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) scanImage(c *gin.Context) {
	file, _, err := c.Request.FormFile("frame")
	if err != nil {
		h.respondError(c, model.Validation("frame field required"))
		return
	}
	defer file.Close()
	frame, err := io.ReadAll(io.LimitReader(file, maxFrameBytes+1))
	if err != nil {
		h.respondError(c, model.Validation("Could not read image"))
		return
	}
	if len(frame) > maxFrameBytes {
		h.respondError(c, model.Validation("Image too large"))
		return
	}
	rec, err := h.att.RecordImage(c.Request.Context(), c.PostForm("eventId"), frame)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) removeAttendance(c *gin.Context) {
	if err := h.att.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance deleted"})
}

func (h *Handler) me(c *gin.Context) {
	u, _ := auth.CurrentUser(c)
	fresh, err := h.dir.GetUser(c.Request.Context(), u.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fresh)
}

func (h *Handler) myAttendance(c *gin.Context) {
	u, _ := auth.CurrentUser(c)
	c.JSON(http.StatusOK, h.att.ListForStudent(c.Request.Context(), u.ID))
}

func (h *Handler) mySummary(c *gin.Context) {
	u, _ := auth.CurrentUser(c)
	c.JSON(http.StatusOK, h.att.Summary(c.Request.Context(), u.ID))
}
