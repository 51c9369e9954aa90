package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/macrolab/macrolog/internal/exercise"
	"go.uber.org/zap"
)

const defaultExerciseDays = 7

type exerciseCreatePayload struct {
	Date            string         `json:"date"`
	ExerciseType    string         `json:"exercise_type"`
	DurationMinutes int            `json:"duration_minutes"`
	Details         map[string]any `json:"details"`
}

type exerciseUpdatePayload struct {
	Date            *string        `json:"date"`
	ExerciseType    *string        `json:"exercise_type"`
	DurationMinutes *int           `json:"duration_minutes"`
	Details         map[string]any `json:"details"`
}

type exerciseResponsePayload struct {
	exercise.Entry
	Details map[string]any `json:"details,omitempty"`
}

// exerciseResponse re-attaches the decoded opaque details to the entry.
func (h *httpHandler) exerciseResponse(entry exercise.Entry) exerciseResponsePayload {
	details, err := entry.Details()
	if err != nil {
		h.logger.Warn("stored exercise details are not valid json", zap.Uint("entry_id", entry.ID))
		details = nil
	}
	return exerciseResponsePayload{Entry: entry, Details: details}
}

func (h *httpHandler) exerciseResponses(entries []exercise.Entry) []exerciseResponsePayload {
	responses := make([]exerciseResponsePayload, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, h.exerciseResponse(entry))
	}
	return responses
}

func (h *httpHandler) handleExerciseCreate(c *gin.Context) {
	var payload exerciseCreatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	entry, err := h.exercise.Create(c.Request.Context(), exercise.CreateParams{
		Date:            payload.Date,
		ExerciseType:    payload.ExerciseType,
		DurationMinutes: payload.DurationMinutes,
		Details:         payload.Details,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.exerciseResponse(entry))
}

// handleExerciseList serves one day via ?date= or a trailing window via
// ?days=, defaulting to the last week.
func (h *httpHandler) handleExerciseList(c *gin.Context) {
	if date := strings.TrimSpace(c.Query("date")); date != "" {
		entries, err := h.exercise.ListByDate(c.Request.Context(), date)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, h.exerciseResponses(entries))
		return
	}

	days := defaultExerciseDays
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		days = parsed
	}

	entries, err := h.exercise.Recent(c.Request.Context(), days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.exerciseResponses(entries))
}

func (h *httpHandler) handleExerciseGet(c *gin.Context) {
	entryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	entry, err := h.exercise.Get(c.Request.Context(), entryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.exerciseResponse(entry))
}

func (h *httpHandler) handleExerciseUpdate(c *gin.Context) {
	entryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var payload exerciseUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	entry, err := h.exercise.Update(c.Request.Context(), entryID, exercise.UpdateParams{
		Date:            payload.Date,
		ExerciseType:    payload.ExerciseType,
		DurationMinutes: payload.DurationMinutes,
		Details:         payload.Details,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.exerciseResponse(entry))
}

func (h *httpHandler) handleExerciseDelete(c *gin.Context) {
	entryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.exercise.Delete(c.Request.Context(), entryID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
