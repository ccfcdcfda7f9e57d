package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/labelit-api/internal/constants"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/middleware"
	"github.com/yukikurage/labelit-api/internal/services"
)

// StatsHandler serves the dashboard aggregates.
type StatsHandler struct {
	statsService *services.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// Statistics returns community totals.
func (h *StatsHandler) Statistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.statsService.Statistics(c.Request.Context()))
}

// UserStatistics returns the authenticated user's contribution totals.
func (h *StatsHandler) UserStatistics(c *gin.Context) {
	username, exists := middleware.GetUsername(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	c.JSON(http.StatusOK, h.statsService.UserStatistics(c.Request.Context(), username))
}

// CategoryStatistics returns image counts per category with localized names.
func (h *StatsHandler) CategoryStatistics(c *gin.Context) {
	lang := middleware.GetLanguage(c)
	counts := h.statsService.CategoryStatistics(c.Request.Context())

	type categoryCount struct {
		Category    string `json:"category"`
		DisplayName string `json:"display_name"`
		Count       int64  `json:"count"`
	}
	result := make([]categoryCount, len(counts))
	for i, group := range counts {
		result[i] = categoryCount{
			Category:    group.Name,
			DisplayName: i18n.CategoryName(lang, group.Name),
			Count:       group.Count,
		}
	}
	c.JSON(http.StatusOK, gin.H{"categories": result})
}

// LanguageStatistics returns label counts per language.
func (h *StatsHandler) LanguageStatistics(c *gin.Context) {
	counts := h.statsService.LanguageStatistics(c.Request.Context())

	type languageCount struct {
		Language string `json:"language"`
		Count    int64  `json:"count"`
	}
	result := make([]languageCount, len(counts))
	for i, group := range counts {
		result[i] = languageCount{Language: group.Name, Count: group.Count}
	}
	c.JSON(http.StatusOK, gin.H{"languages": result})
}

// ActivityTimeline returns daily uploads over ?days= (default 30).
func (h *StatsHandler) ActivityTimeline(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(constants.DefaultTimelineDays)))
	if err != nil || days < 1 || days > constants.MaxTimelineDays {
		apierrors.BadRequest(c, "days must be between 1 and 365")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"days":     days,
		"timeline": h.statsService.ActivityTimeline(c.Request.Context(), days),
	})
}
