package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macrolab/macrolog/internal/recipes"
)

type recipeItemPayload struct {
	IngredientID uint    `json:"ingredient_id"`
	Amount       float64 `json:"amount"`
	Unit         string  `json:"unit"`
}

type recipeCreatePayload struct {
	Name  string              `json:"name"`
	Items []recipeItemPayload `json:"items"`
}

type recipeRenamePayload struct {
	Name string `json:"name"`
}

type recipeItemUpdatePayload struct {
	IngredientID *uint    `json:"ingredient_id"`
	Amount       *float64 `json:"amount"`
	Unit         *string  `json:"unit"`
}

func (h *httpHandler) handleRecipeCreate(c *gin.Context) {
	var payload recipeCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	items := make([]recipes.ItemParams, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, recipes.ItemParams{
			IngredientID: item.IngredientID,
			Amount:       item.Amount,
			Unit:         item.Unit,
		})
	}

	created, err := h.recipes.Create(c.Request.Context(), recipes.CreateParams{
		Name:  payload.Name,
		Items: items,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleRecipeList(c *gin.Context) {
	listing, err := h.recipes.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *httpHandler) handleRecipeGet(c *gin.Context) {
	recipeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.recipes.Get(c.Request.Context(), recipeID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *httpHandler) handleRecipeRename(c *gin.Context) {
	recipeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var payload recipeRenamePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	detail, err := h.recipes.Rename(c.Request.Context(), recipeID, payload.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *httpHandler) handleRecipeDelete(c *gin.Context) {
	recipeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), recipeID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRecipeItemAdd(c *gin.Context) {
	recipeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var payload recipeItemPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	detail, err := h.recipes.AddItem(c.Request.Context(), recipeID, recipes.ItemParams{
		IngredientID: payload.IngredientID,
		Amount:       payload.Amount,
		Unit:         payload.Unit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *httpHandler) handleRecipeItemUpdate(c *gin.Context) {
	recipeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "itemID")
	if !ok {
		return
	}

	var payload recipeItemUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	detail, err := h.recipes.UpdateItem(c.Request.Context(), recipeID, itemID, recipes.ItemUpdateParams{
		IngredientID: payload.IngredientID,
		Amount:       payload.Amount,
		Unit:         payload.Unit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *httpHandler) handleRecipeItemRemove(c *gin.Context) {
	recipeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "itemID")
	if !ok {
		return
	}

	detail, err := h.recipes.RemoveItem(c.Request.Context(), recipeID, itemID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
