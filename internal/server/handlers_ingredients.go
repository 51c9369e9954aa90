package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/macrolab/macrolog/internal/ingredients"
)

type ingredientCreatePayload struct {
	Name          string  `json:"name"`
	DefaultAmount float64 `json:"default_amount"`
	DefaultUnit   string  `json:"default_unit"`
	Calories      int     `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	CarbsG        float64 `json:"carbs_g"`
	FatsG         float64 `json:"fats_g"`
	SodiumMg      int     `json:"sodium_mg"`
}

type ingredientUpdatePayload struct {
	Name          *string  `json:"name"`
	DefaultAmount *float64 `json:"default_amount"`
	DefaultUnit   *string  `json:"default_unit"`
	Calories      *int     `json:"calories"`
	ProteinG      *float64 `json:"protein_g"`
	CarbsG        *float64 `json:"carbs_g"`
	FatsG         *float64 `json:"fats_g"`
	SodiumMg      *int     `json:"sodium_mg"`
}

func (h *httpHandler) handleIngredientCreate(c *gin.Context) {
	var payload ingredientCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.ingredients.Create(c.Request.Context(), ingredients.CreateParams{
		Name:          payload.Name,
		DefaultAmount: payload.DefaultAmount,
		DefaultUnit:   payload.DefaultUnit,
		Calories:      payload.Calories,
		ProteinG:      payload.ProteinG,
		CarbsG:        payload.CarbsG,
		FatsG:         payload.FatsG,
		SodiumMg:      payload.SodiumMg,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// handleIngredientList serves both the full listing and ?q= substring search.
func (h *httpHandler) handleIngredientList(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query != "" {
		matches, err := h.ingredients.Search(c.Request.Context(), query)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, matches)
		return
	}

	listing, err := h.ingredients.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *httpHandler) handleIngredientGet(c *gin.Context) {
	ingredientID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	ingredient, err := h.ingredients.Get(c.Request.Context(), ingredientID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

func (h *httpHandler) handleIngredientUpdate(c *gin.Context) {
	ingredientID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var payload ingredientUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.ingredients.Update(c.Request.Context(), ingredientID, ingredients.UpdateParams{
		Name:          payload.Name,
		DefaultAmount: payload.DefaultAmount,
		DefaultUnit:   payload.DefaultUnit,
		Calories:      payload.Calories,
		ProteinG:      payload.ProteinG,
		CarbsG:        payload.CarbsG,
		FatsG:         payload.FatsG,
		SodiumMg:      payload.SodiumMg,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleIngredientDelete(c *gin.Context) {
	ingredientID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.ingredients.Delete(c.Request.Context(), ingredientID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
