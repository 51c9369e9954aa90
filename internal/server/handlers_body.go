package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/macrolab/macrolog/internal/body"
)

type bodyCreatePayload struct {
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	WeightLbs *float64 `json:"weight_lbs"`
	WaistCm   *float64 `json:"waist_cm"`
	Source    string   `json:"source"`
}

type bodyUpdatePayload struct {
	Date      *string  `json:"date"`
	Time      *string  `json:"time"`
	WeightLbs *float64 `json:"weight_lbs"`
	WaistCm   *float64 `json:"waist_cm"`
}

func (h *httpHandler) handleBodyCreate(c *gin.Context) {
	var payload bodyCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	measurement, err := h.body.Create(c.Request.Context(), body.CreateParams{
		Date:      payload.Date,
		Time:      payload.Time,
		WeightLbs: payload.WeightLbs,
		WaistCm:   payload.WaistCm,
		Source:    payload.Source,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, measurement)
}

// handleBodyList serves a single day via ?date= or an inclusive window via
// ?start=&end=.
func (h *httpHandler) handleBodyList(c *gin.Context) {
	start := strings.TrimSpace(c.Query("start"))
	end := strings.TrimSpace(c.Query("end"))
	if start != "" || end != "" {
		measurements, err := h.body.Range(c.Request.Context(), start, end)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, measurements)
		return
	}

	measurements, err := h.body.ListByDate(c.Request.Context(), strings.TrimSpace(c.Query("date")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, measurements)
}

func (h *httpHandler) handleBodyLatest(c *gin.Context) {
	measurement, err := h.body.Latest(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, measurement)
}

func (h *httpHandler) handleBodyGet(c *gin.Context) {
	measurementID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	measurement, err := h.body.Get(c.Request.Context(), measurementID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, measurement)
}

func (h *httpHandler) handleBodyUpdate(c *gin.Context) {
	measurementID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var payload bodyUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	measurement, err := h.body.Update(c.Request.Context(), measurementID, body.UpdateParams{
		Date:      payload.Date,
		Time:      payload.Time,
		WeightLbs: payload.WeightLbs,
		WaistCm:   payload.WaistCm,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, measurement)
}

func (h *httpHandler) handleBodyDelete(c *gin.Context) {
	measurementID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.body.Delete(c.Request.Context(), measurementID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
