package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hackattend/internal/auth"
	"hackattend/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setCookie(c, res.Token.Value, int(h.opts.SessionTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"user":     res.User,
		"token":    res.Token.Value,
		"redirect": session.Landing(res.User.Role),
	})
}

type signupRequest struct {
	StudentID       string `json:"student_id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	u, err := h.auth.Signup(c.Request.Context(), auth.SignupInput{
		StudentID:       req.StudentID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful! Please wait for admin verification.",
		"user":    u,
	})
}

// logout ends the caller's session if there is one. It always succeeds.
func (h *Handler) logout(c *gin.Context) {
	if _, sid, err := h.auth.Authenticate(c.Request.Context(), auth.TokenFromRequest(c)); err == nil {
		if err := h.auth.Logout(c.Request.Context(), sid); err != nil {
			h.log.Warnw("logout failed", "err", err)
		}
	}
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) currentSession(c *gin.Context) {
	u, _ := auth.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"user": u, "redirect": session.Landing(u.Role)})
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, value, maxAge, "/", "", h.opts.CookieSecure, true)
}
