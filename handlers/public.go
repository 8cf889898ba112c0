package handlers

import (
	"puceats-api/directory"
	"puceats-api/models"
	"puceats-api/resp"
	"puceats-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListEstablishments returns all establishments (public)
func (h *Handler) ListEstablishments(c *gin.Context) {
	f := directory.Filter{
		Type:    models.EstablishmentType(c.Query("type")),
		Cuisine: models.CuisineType(c.Query("cuisine")),
		Search:  c.Query("search"),
	}
	list, err := h.Directory.List(c.Request.Context(), f)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"count": len(list), "establishments": list})
}

// ListByType returns the establishments of one type with their dishes
func (h *Handler) ListByType(c *gin.Context) {
	list, err := h.Directory.ListByType(c.Request.Context(), models.EstablishmentType(c.Param("type")))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"count": len(list), "establishments": list})
}

// GetEstablishment returns one establishment with its dishes
func (h *Handler) GetEstablishment(c *gin.Context) {
	est, err := h.Directory.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, est)
}

func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"count": len(cats), "categories": cats})
}

// DishesByCategory returns available dishes of a category across establishments
func (h *Handler) DishesByCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	dishes, err := h.Directory.DishesByCategory(c.Request.Context(), id)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"count": len(dishes), "dishes": dishes})
}

// GetTokenLifecycle returns the token state machine for informational purposes
func (h *Handler) GetTokenLifecycle(c *gin.Context) {
	states := []models.TokenStatus{models.TokenAvailable, models.TokenUsed, models.TokenExpired}
	terminal := make([]models.TokenStatus, 0, len(states))
	for _, st := range states {
		if statemachine.IsTerminal(st) {
			terminal = append(terminal, st)
		}
	}
	resp.OK(c, gin.H{
		"states":      states,
		"terminal":    terminal,
		"transitions": statemachine.GetAllTransitions(),
	})
}
