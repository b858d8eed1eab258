package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hackattend/internal/auth"
	"hackattend/internal/directory"
	"hackattend/internal/model"
)

func (h *Handler) listUsers(c *gin.Context) {
	filter, err := directory.ParseUserFilter(c.Query("filter"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.dir.ListUsers(c.Request.Context(), filter, c.Query("q")))
}

func (h *Handler) getUser(c *gin.Context) {
	id := c.Param("id")
	if !selfOrAdmin(c, id) {
		forbidden(c)
		return
	}
	u, err := h.dir.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) updateProfile(c *gin.Context) {
	id := c.Param("id")
	if !selfOrAdmin(c, id) {
		forbidden(c)
		return
	}
	var in directory.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c)
		return
	}
	u, err := h.dir.UpdateProfile(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type photoRequest struct {
	Data string `json:"data"`
}

func (h *Handler) setPhoto(c *gin.Context) {
	id := c.Param("id")
	if !selfOrAdmin(c, id) {
		forbidden(c)
		return
	}
	var req photoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	u, err := h.dir.SetProfilePhoto(c.Request.Context(), id, req.Data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("id")
	if me, _ := auth.CurrentUser(c); me.ID == id {
		h.respondError(c, model.Precondition("You cannot delete your own account"))
		return
	}
	if err := h.dir.DeleteUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (h *Handler) verifyUser(c *gin.Context) {
	u, err := h.dir.VerifyStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) changeRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		h.respondError(c, model.Validation("Invalid role"))
		return
	}
	u, err := h.dir.ChangeRole(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
