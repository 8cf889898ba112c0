package handlers

import (
	"strconv"

	"puceats-api/catalog"
	"puceats-api/resp"

	"github.com/gin-gonic/gin"
)

// dishFilter reads ?category=&vegan=&vegetarian=&gluten_free=&available=
func dishFilter(c *gin.Context) catalog.DishFilter {
	f := catalog.DishFilter{
		Vegan:      boolQuery(c, "vegan"),
		Vegetarian: boolQuery(c, "vegetarian"),
		GlutenFree: boolQuery(c, "gluten_free"),
	}
	if v := c.Query("category"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			cid := uint(id)
			f.CategoryID = &cid
		}
	}
	if avail := boolQuery(c, "available"); avail != nil && *avail {
		f.AvailableOnly = true
	}
	return f
}

// ListMyDishes lists every dish of an owned establishment, unavailable ones
// included.
func (h *Handler) ListMyDishes(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Registry.AuthorizeMutation(ctx, principal(c), id); err != nil {
		resp.Error(c, err)
		return
	}
	dishes, err := h.Catalog.ListDishes(ctx, id, dishFilter(c))
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"count": len(dishes), "dishes": dishes})
}

func (h *Handler) AddDish(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req catalog.DishInput
	if !bind(c, &req) {
		return
	}
	dish, err := h.Catalog.AddDish(c.Request.Context(), principal(c), id, req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, dish)
}

func (h *Handler) UpdateDish(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req catalog.DishUpdate
	if !bind(c, &req) {
		return
	}
	dish, err := h.Catalog.EditDish(c.Request.Context(), principal(c), id, req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, dish)
}

func (h *Handler) DeleteDish(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.DeleteDish(c.Request.Context(), principal(c), id); err != nil {
		resp.Error(c, err)
		return
	}
	resp.NoContent(c)
}
