package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macrolab/macrolog/internal/dates"
)

const (
	defaultHistoryLimit = 30
	defaultHistoryDays  = 7
)

func (h *httpHandler) handleMacrosToday(c *gin.Context) {
	report, err := h.macros.Today(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *httpHandler) handleMacrosRemaining(c *gin.Context) {
	report, err := h.macros.Remaining(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleMacrosHistory serves GET /macros/history?start=&end=&limit=&offset=.
// Omitted bounds default to the trailing week ending today.
func (h *httpHandler) handleMacrosHistory(c *gin.Context) {
	start := strings.TrimSpace(c.Query("start"))
	end := strings.TrimSpace(c.Query("end"))
	if start == "" && end == "" {
		start, end = h.defaultHistoryRange(c)
	}

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		limit = parsed
	}

	offset := 0
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		offset = parsed
	}

	page, err := h.macros.History(c.Request.Context(), start, end, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *httpHandler) defaultHistoryRange(c *gin.Context) (string, string) {
	today, err := h.macros.CurrentDate(c.Request.Context())
	if err != nil {
		return "", ""
	}
	parsed, err := time.Parse(dates.Layout, today)
	if err != nil {
		return "", ""
	}
	start := parsed.AddDate(0, 0, -(defaultHistoryDays - 1)).Format(dates.Layout)
	return start, today
}
