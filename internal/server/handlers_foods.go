package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/macrolab/macrolog/internal/foodlog"
)

type foodCreatePayload struct {
	Date         string  `json:"date"`
	Marker       string  `json:"marker"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Unit         string  `json:"unit"`
	Calories     int     `json:"calories"`
	ProteinG     float64 `json:"protein_g"`
	CarbsG       float64 `json:"carbs_g"`
	FatsG        float64 `json:"fats_g"`
	SodiumMg     int     `json:"sodium_mg"`
	IngredientID *uint   `json:"ingredient_id"`
}

type foodFromRecipePayload struct {
	RecipeID uint    `json:"recipe_id"`
	Date     string  `json:"date"`
	Marker   string  `json:"marker"`
	Scale    float64 `json:"scale"`
}

type foodUpdatePayload struct {
	Date     *string  `json:"date"`
	Marker   *string  `json:"marker"`
	Name     *string  `json:"name"`
	Amount   *float64 `json:"amount"`
	Unit     *string  `json:"unit"`
	Calories *int     `json:"calories"`
	ProteinG *float64 `json:"protein_g"`
	CarbsG   *float64 `json:"carbs_g"`
	FatsG    *float64 `json:"fats_g"`
	SodiumMg *int     `json:"sodium_mg"`
}

func (h *httpHandler) handleFoodCreate(c *gin.Context) {
	var payload foodCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	entry, err := h.foods.CreateDirect(c.Request.Context(), foodlog.CreateParams{
		Date:         payload.Date,
		Marker:       payload.Marker,
		Name:         payload.Name,
		Amount:       payload.Amount,
		Unit:         payload.Unit,
		Calories:     payload.Calories,
		ProteinG:     payload.ProteinG,
		CarbsG:       payload.CarbsG,
		FatsG:        payload.FatsG,
		SodiumMg:     payload.SodiumMg,
		IngredientID: payload.IngredientID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *httpHandler) handleFoodCreateFromRecipe(c *gin.Context) {
	var payload foodFromRecipePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	entries, err := h.foods.CreateFromRecipe(c.Request.Context(), foodlog.FromRecipeParams{
		RecipeID: payload.RecipeID,
		Date:     payload.Date,
		Marker:   payload.Marker,
		Scale:    payload.Scale,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entries": entries})
}

func (h *httpHandler) handleFoodList(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	marker := strings.TrimSpace(c.Query("marker"))

	entries, err := h.foods.ListByDate(c.Request.Context(), date, marker)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *httpHandler) handleFoodUpdate(c *gin.Context) {
	entryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var payload foodUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	entry, err := h.foods.Update(c.Request.Context(), entryID, foodlog.UpdateParams{
		Date:     payload.Date,
		Marker:   payload.Marker,
		Name:     payload.Name,
		Amount:   payload.Amount,
		Unit:     payload.Unit,
		Calories: payload.Calories,
		ProteinG: payload.ProteinG,
		CarbsG:   payload.CarbsG,
		FatsG:    payload.FatsG,
		SodiumMg: payload.SodiumMg,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *httpHandler) handleFoodDelete(c *gin.Context) {
	entryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.foods.Delete(c.Request.Context(), entryID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleFoodBulkDelete clears a whole date, or just one marker on it when
// ?marker= is present. Both forms are idempotent and report the row count.
func (h *httpHandler) handleFoodBulkDelete(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	marker := strings.TrimSpace(c.Query("marker"))

	var (
		deleted int64
		err     error
	)
	if marker != "" {
		deleted, err = h.foods.DeleteByMarker(c.Request.Context(), date, marker)
	} else {
		deleted, err = h.foods.ClearByDate(c.Request.Context(), date)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
