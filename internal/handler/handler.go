// Package handler exposes the REST API and HTML pages over gin.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hackattend/internal/attendance"
	"hackattend/internal/auth"
	"hackattend/internal/directory"
	"hackattend/internal/model"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the session cookie.
type Options struct {
	CookieSecure bool
	SessionTTL   time.Duration
}

// Handler holds the services behind the routes.
type Handler struct {
	auth  *auth.Service
	dir   *directory.Service
	att   *attendance.Service
	store Pinger
	opts  Options
	log   *zap.SugaredLogger
}

func New(authSvc *auth.Service, dir *directory.Service, att *attendance.Service, store Pinger, opts Options, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	return &Handler{auth: authSvc, dir: dir, att: att, store: store, opts: opts, log: log}
}

// Register mounts every API route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.health)

	api := r.Group("/api")
	signedIn := h.auth.RequireRole()
	admin := h.auth.RequireRole(model.RoleAdmin)

	a := api.Group("/auth")
	a.POST("/login", h.login)
	a.POST("/signup", h.signup)
	a.POST("/logout", h.logout)
	a.GET("/session", signedIn, h.currentSession)

	users := api.Group("/users", signedIn)
	users.GET("", admin, h.listUsers)
	users.GET("/:id", h.getUser)
	users.PUT("/:id", h.updateProfile)
	users.PUT("/:id/photo", h.setPhoto)
	users.DELETE("/:id", admin, h.deleteUser)
	users.POST("/:id/verify", admin, h.verifyUser)
	users.PUT("/:id/role", admin, h.changeRole)

	events := api.Group("/events", signedIn)
	events.GET("", h.listEvents)
	events.POST("", admin, h.createEvent)
	events.PUT("/:id", admin, h.updateEvent)
	events.POST("/:id/toggle", admin, h.toggleEvent)
	events.DELETE("/:id", admin, h.deleteEvent)

	att := api.Group("/attendance", admin)
	att.GET("", h.listAttendance)
	att.POST("", h.recordAttendance)
	att.POST("/scan", h.scanAttendance)
	att.POST("/manual", h.manualAttendance)
	att.POST("/scan-image", h.scanImage)
	att.DELETE("/:id", h.removeAttendance)

	me := api.Group("/me", signedIn)
	me.GET("", h.me)
	me.GET("/attendance", h.myAttendance)
	me.GET("/summary", h.mySummary)

	api.GET("/reports/:kind", admin, h.report)
	api.GET("/stats/dashboard", admin, h.dashboardStats)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Warnw("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": true})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindAuth:
		return http.StatusUnauthorized
	case model.KindForbidden, model.KindNotVerified:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindDuplicate, model.KindPrecondition:
		return http.StatusConflict
	case model.KindNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw("request failed", "path", c.FullPath(), "err", err)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": model.Message(err, "Internal server error")})
}

func (h *Handler) badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
}

// selfOrAdmin lets admins act on anyone and other users only on themselves.
func selfOrAdmin(c *gin.Context, id string) bool {
	u, ok := auth.CurrentUser(c)
	if !ok {
		return false
	}
	return u.Role == model.RoleAdmin || u.ID == id
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
}
