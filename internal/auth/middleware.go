package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hackattend/internal/model"
	"hackattend/internal/session"
)

// CookieName is the cookie that carries the session token for browser clients.
const CookieName = "session"

const (
	ctxUser      = "user"
	ctxSessionID = "sid"
)

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) > len("bearer ") && strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

// RequireRole rejects requests without a live session (401) or whose session
// role is not one of roles (403). With no roles, any signed-in user passes.
func (s *Service) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, sid, err := s.Authenticate(c.Request.Context(), TokenFromRequest(c))
		if err != nil {
			status := http.StatusUnauthorized
			if model.KindOf(err) != model.KindAuth {
				status = http.StatusInternalServerError
				s.log.Errorw("authenticate failed", "err", err)
			}
			c.AbortWithStatusJSON(status, gin.H{"error": model.Message(err, "Not signed in")})
			return
		}
		if !allowed(u, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Set(ctxUser, *u)
		c.Set(ctxSessionID, sid)
		c.Next()
	}
}

func allowed(u *model.User, roles []model.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if session.Check(u, r) == session.Allow {
			return true
		}
	}
	return false
}

// Page gates an HTML page: no session redirects to login, a session with the
// wrong role is cleared and redirected to login.
func (s *Service) Page(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, sid, err := s.Authenticate(c.Request.Context(), TokenFromRequest(c))
		if err != nil {
			u = nil
		}
		switch session.Check(u, role) {
		case session.Allow:
			c.Set(ctxUser, *u)
			c.Set(ctxSessionID, sid)
			c.Next()
		case session.Absent:
			c.Redirect(http.StatusFound, session.LoginPath)
			c.Abort()
		case session.Mismatch:
			_ = s.sessions.Clear(c.Request.Context(), sid)
			c.SetCookie(CookieName, "", -1, "/", "", false, true)
			c.Redirect(http.StatusFound, session.LoginPath)
			c.Abort()
		}
	}
}

// LoginPage sends clients that already hold a session to their dashboard.
func (s *Service) LoginPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, _, err := s.Authenticate(c.Request.Context(), TokenFromRequest(c))
		if err == nil && u != nil {
			c.Redirect(http.StatusFound, session.Landing(u.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the snapshot placed by RequireRole or Page.
func CurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return model.User{}, false
	}
	u, ok := v.(model.User)
	return u, ok
}

// SessionID returns the session id placed by RequireRole or Page.
func SessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}
