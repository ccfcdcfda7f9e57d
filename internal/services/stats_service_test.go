package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/repository"
)

func TestStatistics_ZeroOnEmptyDatabase(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, repository.Overview{}, env.stats.Statistics(context.Background()))
	assert.Equal(t, []repository.GroupCount{}, env.stats.CategoryStatistics(context.Background()))
	assert.Equal(t, []TimelinePoint{}, env.stats.ActivityTimeline(context.Background(), 30))
}

func TestStatistics_ZeroOnQueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	stats := NewStatsService(repository.NewStatsRepository(db), nil)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `images`").WillReturnError(errors.New("database is down"))
	mock.ExpectQuery("SELECT language AS name").WillReturnError(errors.New("database is down"))

	assert.Equal(t, repository.Overview{}, stats.Statistics(context.Background()))
	languages := stats.LanguageStatistics(context.Background())
	assert.NotNil(t, languages)
	assert.Empty(t, languages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatistics_CachedUntilWrite(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "alice123")
	ctx := context.Background()

	id := addImage(t, env, "Cat", models.CategoryAnimals, "alice123")
	first := env.stats.Statistics(ctx)
	assert.Equal(t, int64(1), first.TotalImages)
	assert.Equal(t, int64(1), first.RecentImages)

	// A write that bypasses the services is not seen until the cache is invalidated.
	require.NoError(t, env.db.Omit("Uploader").Create(&models.Image{
		ID:         "33333333-3333-3333-3333-333333333333",
		Title:      "Direct",
		Category:   models.CategoryFood,
		ImagePath:  "images/direct.jpg",
		UploadedBy: "alice123",
		UploadedAt: time.Now().UTC(),
	}).Error)
	assert.Equal(t, int64(1), env.stats.Statistics(ctx).TotalImages)

	require.True(t, env.label.AddLabel(ctx, id, "cat", "en", "alice123"))
	refreshed := env.stats.Statistics(ctx)
	assert.Equal(t, int64(2), refreshed.TotalImages)
	assert.Equal(t, int64(1), refreshed.TotalLabels)
	assert.Equal(t, int64(1), refreshed.LanguagesUsed)
	assert.Equal(t, 1.0, refreshed.AvgLabelsPerImage)
}

func TestCategoryAndLanguageStatistics(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "alice123")
	ctx := context.Background()

	cat := addImage(t, env, "Cat", models.CategoryAnimals, "alice123")
	addImage(t, env, "Dog", models.CategoryAnimals, "alice123")
	addImage(t, env, "Pizza", models.CategoryFood, "alice123")
	require.True(t, env.label.AddLabel(ctx, cat, "cat", "en", "alice123"))
	require.True(t, env.label.AddLabel(ctx, cat, "पूसी", "hi", "alice123"))
	require.True(t, env.label.AddLabel(ctx, cat, "बिल्ली", "hi", "alice123"))

	assert.Equal(t, []repository.GroupCount{
		{Name: "Animals", Count: 2},
		{Name: "Food", Count: 1},
	}, env.stats.CategoryStatistics(ctx))

	assert.Equal(t, []repository.GroupCount{
		{Name: "hi", Count: 2},
		{Name: "en", Count: 1},
	}, env.stats.LanguageStatistics(ctx))
}

func TestActivityTimeline(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "alice123")
	ctx := context.Background()

	now := time.Now().UTC()
	insert := func(id string, at time.Time) {
		require.NoError(t, env.db.Omit("Uploader").Create(&models.Image{
			ID:         id,
			Title:      id,
			Category:   models.CategoryNature,
			ImagePath:  "images/" + id + ".jpg",
			UploadedBy: "alice123",
			UploadedAt: at,
		}).Error)
	}
	insert("a", now.AddDate(0, 0, -3))
	insert("b", now.AddDate(0, 0, -3).Add(time.Second))
	insert("c", now.AddDate(0, 0, -1))
	insert("d", now.AddDate(0, 0, -40))

	points := env.stats.ActivityTimeline(ctx, 30)
	require.Len(t, points, 2)
	assert.Equal(t, TimelinePoint{Date: now.AddDate(0, 0, -3).Format("2006-01-02"), Uploads: 2}, points[0])
	assert.Equal(t, TimelinePoint{Date: now.AddDate(0, 0, -1).Format("2006-01-02"), Uploads: 1}, points[1])

	assert.Len(t, env.stats.ActivityTimeline(ctx, 0), 2)
	assert.Len(t, env.stats.ActivityTimeline(ctx, 1000), 3)
}

func TestBucketByDay(t *testing.T) {
	day := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	ist := time.FixedZone("IST", 5*60*60+30*60)

	points := bucketByDay([]time.Time{
		day,
		day.Add(20 * time.Minute),
		day.Add(40 * time.Minute),
		// Bucketed by UTC date whatever the zone.
		day.Add(45 * time.Minute).In(ist),
	})
	assert.Equal(t, []TimelinePoint{
		{Date: "2026-03-01", Uploads: 2},
		{Date: "2026-03-02", Uploads: 2},
	}, points)

	assert.Equal(t, []TimelinePoint{}, bucketByDay(nil))
}
