package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/macrolab/macrolog/internal/profile"
)

type profileUpdatePayload struct {
	Birthdate    *string  `json:"birthdate"`
	HeightInches *float64 `json:"height_inches"`
	Timezone     *string  `json:"timezone"`
	CaloriesMin  *int     `json:"calories_min"`
	CaloriesMax  *int     `json:"calories_max"`
	ProteinMinG  *int     `json:"protein_min_g"`
	ProteinMaxG  *int     `json:"protein_max_g"`
	CarbsMinG    *int     `json:"carbs_min_g"`
	CarbsMaxG    *int     `json:"carbs_max_g"`
	FatsMinG     *int     `json:"fats_min_g"`
	FatsMaxG     *int     `json:"fats_max_g"`
	SodiumMaxMg  *int     `json:"sodium_max_mg"`
}

func (h *httpHandler) handleProfileGet(c *gin.Context) {
	current, err := h.profile.Get(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, current)
}

func (h *httpHandler) handleProfileUpdate(c *gin.Context) {
	var payload profileUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.profile.Update(c.Request.Context(), profile.UpdateParams{
		Birthdate:    payload.Birthdate,
		HeightInches: payload.HeightInches,
		Timezone:     payload.Timezone,
		CaloriesMin:  payload.CaloriesMin,
		CaloriesMax:  payload.CaloriesMax,
		ProteinMinG:  payload.ProteinMinG,
		ProteinMaxG:  payload.ProteinMaxG,
		CarbsMinG:    payload.CarbsMinG,
		CarbsMaxG:    payload.CarbsMaxG,
		FatsMinG:     payload.FatsMinG,
		FatsMaxG:     payload.FatsMaxG,
		SodiumMaxMg:  payload.SodiumMaxMg,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
