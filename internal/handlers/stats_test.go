package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/repository"
	"github.com/yukikurage/labelit-api/internal/services"
)

func TestStatsHandler_Statistics(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.request(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var overview repository.Overview
	decode(t, w, &overview)
	assert.Equal(t, repository.Overview{}, overview)

	s.signIn("alice123")
	cat := s.upload("Cat", models.CategoryAnimals)
	s.upload("Pizza", models.CategoryFood)
	require.True(t, s.labelService.AddLabel(context.Background(), cat.ID, "बिल्ली", "hi", "alice123"))
	require.True(t, s.labelService.AddLabel(context.Background(), cat.ID, "cat", "en", "alice123"))

	w = s.request(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &overview)
	assert.EqualValues(t, 2, overview.TotalImages)
	assert.EqualValues(t, 2, overview.TotalLabels)
	assert.EqualValues(t, 1, overview.TotalUsers)
	assert.EqualValues(t, 2, overview.LanguagesUsed)
	assert.InDelta(t, 2.0, overview.AvgLabelsPerImage, 1e-9)
	assert.EqualValues(t, 2, overview.RecentImages)
	assert.EqualValues(t, 2, overview.RecentLabels)
}

func TestStatsHandler_UserStatistics(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.signIn("alice123")
	cat := s.upload("Cat", models.CategoryAnimals)
	require.True(t, s.labelService.AddLabel(context.Background(), cat.ID, "बिल्ली", "hi", "alice123"))

	w := s.request(http.MethodGet, "/api/stats/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary repository.UserSummary
	decode(t, w, &summary)
	assert.EqualValues(t, 1, summary.ImagesUploaded)
	assert.EqualValues(t, 1, summary.LabelsAdded)
	assert.EqualValues(t, 1, summary.LanguagesContributed)
	assert.EqualValues(t, 1, summary.CategoriesContributed)
	assert.EqualValues(t, 15, summary.TotalPoints)
	assert.EqualValues(t, 1, summary.UserRank)
}

func TestStatsHandler_GroupStatistics(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.signIn("alice123")
	cat := s.upload("Cat", models.CategoryAnimals)
	s.upload("Dog", models.CategoryAnimals)
	s.upload("Pizza", models.CategoryFood)
	require.True(t, s.labelService.AddLabel(context.Background(), cat.ID, "बिल्ली", "hi", "alice123"))

	w := s.request(http.MethodGet, "/api/stats/categories?lang=hi", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var categories struct {
		Categories []struct {
			Category    string `json:"category"`
			DisplayName string `json:"display_name"`
			Count       int64  `json:"count"`
		} `json:"categories"`
	}
	decode(t, w, &categories)
	require.Len(t, categories.Categories, 2)
	assert.Equal(t, "Animals", categories.Categories[0].Category)
	assert.Equal(t, "जानवर", categories.Categories[0].DisplayName)
	assert.EqualValues(t, 2, categories.Categories[0].Count)
	assert.Equal(t, "Food", categories.Categories[1].Category)

	w = s.request(http.MethodGet, "/api/stats/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var languages struct {
		Languages []struct {
			Language string `json:"language"`
			Count    int64  `json:"count"`
		} `json:"languages"`
	}
	decode(t, w, &languages)
	require.Len(t, languages.Languages, 1)
	assert.Equal(t, "hi", languages.Languages[0].Language)
	assert.EqualValues(t, 1, languages.Languages[0].Count)
}

func TestStatsHandler_ActivityTimeline(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.signIn("alice123")
	s.upload("Cat", models.CategoryAnimals)
	s.upload("Dog", models.CategoryAnimals)

	w := s.request(http.MethodGet, "/api/stats/timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Days     int                      `json:"days"`
		Timeline []services.TimelinePoint `json:"timeline"`
	}
	decode(t, w, &body)
	assert.Equal(t, 30, body.Days)
	require.Len(t, body.Timeline, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), body.Timeline[0].Date)
	assert.EqualValues(t, 2, body.Timeline[0].Uploads)

	for _, days := range []string{"0", "366", "week"} {
		w = s.request(http.MethodGet, "/api/stats/timeline?days="+days, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, days)
	}
}
