package handlers

import (
	"puceats-api/catalog"
	"puceats-api/resp"

	"github.com/gin-gonic/gin"
)

// CreateEstablishmentRequest adds an establishment to an existing account.
// Every establishment costs one invitation token.
type CreateEstablishmentRequest struct {
	Token string `json:"token"`
	catalog.EstablishmentInput
}

// ListMyEstablishments returns the caller's establishments
func (h *Handler) ListMyEstablishments(c *gin.Context) {
	list, err := h.Registry.ListOwned(c.Request.Context(), principal(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"count": len(list), "establishments": list})
}

func (h *Handler) CreateEstablishment(c *gin.Context) {
	var req CreateEstablishmentRequest
	if !bind(c, &req) {
		return
	}
	est, err := h.Registry.CreateEstablishment(c.Request.Context(), principal(c), req.Token, req.EstablishmentInput)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, est)
}

func (h *Handler) UpdateEstablishment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req catalog.EstablishmentUpdate
	if !bind(c, &req) {
		return
	}
	est, err := h.Registry.EditEstablishment(c.Request.Context(), principal(c), id, req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, est)
}

func (h *Handler) DeleteEstablishment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Registry.DeleteEstablishment(c.Request.Context(), principal(c), id); err != nil {
		resp.Error(c, err)
		return
	}
	resp.NoContent(c)
}
