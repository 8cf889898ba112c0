package handlers

import (
	"puceats-api/catalog"
	"puceats-api/models"
	"puceats-api/resp"

	"github.com/gin-gonic/gin"
)

// AdminGetAllUsers returns all users (admin only)
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.Accounts.List(c.Request.Context(), models.UserRole(c.Query("role")))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"count": len(users), "users": users})
}

// AdminAdoptOrphans assigns ownerless legacy establishments to the caller
func (h *Handler) AdminAdoptOrphans(c *gin.Context) {
	n, err := h.Registry.AdoptOrphans(c.Request.Context(), principal(c).UserID)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"adopted": n})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req catalog.CategoryInput
	if !bind(c, &req) {
		return
	}
	cat, err := h.Catalog.CreateCategory(c.Request.Context(), req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, cat)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req catalog.CategoryUpdate
	if !bind(c, &req) {
		return
	}
	cat, err := h.Catalog.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, cat)
}

// DeleteCategory removes a category; its dishes stay, uncategorized
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		resp.Error(c, err)
		return
	}
	resp.NoContent(c)
}
