package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"hackattend/internal/model"
	"hackattend/internal/session"
)

// RegisterPages serves the HTML front end from dir behind the page gates. It
// does nothing when dir does not exist.
func (h *Handler) RegisterPages(r gin.IRouter, dir string) bool {
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		h.log.Infow("frontend directory not found, serving API only", "dir", dir)
		return false
	}
	page := func(name string) gin.HandlerFunc {
		path := filepath.Join(dir, name)
		return func(c *gin.Context) { c.File(path) }
	}

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, session.LoginPath) })
	r.GET(session.LoginPath, h.auth.LoginPage(), page("login.html"))
	r.GET("/signup", h.auth.LoginPage(), page("signup.html"))
	r.GET(session.AdminPath, h.auth.Page(model.RoleAdmin), page("admin.html"))
	r.GET(session.DashboardPath, h.auth.Page(model.RoleStudent), page("dashboard.html"))
	r.Static("/static", filepath.Join(dir, "static"))
	return true
}
