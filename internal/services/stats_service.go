package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/labelit-api/internal/cache"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/repository"
)

// TimelinePoint is the number of uploads on one UTC day.
type TimelinePoint struct {
	Date    string `json:"date"`
	Uploads int64  `json:"uploads"`
}

// StatsService serves dashboard aggregates through the statistics cache.
// Failures are logged and yield zero values.
type StatsService struct {
	statsRepo repository.StatsRepository
	cache     *cache.Cache
	now       func() time.Time
}

// NewStatsService creates a new StatsService. c may be nil to disable caching.
func NewStatsService(statsRepo repository.StatsRepository, c *cache.Cache) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		cache:     c,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Statistics returns community totals with recent counts over the last seven days.
func (s *StatsService) Statistics(ctx context.Context) repository.Overview {
	overview, err := cache.GetOrLoad(s.cache, "statistics", func() (repository.Overview, error) {
		return s.statsRepo.Overview(ctx, s.now().Add(-constants.RecentWindow))
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to compute statistics")
		return repository.Overview{}
	}
	return overview
}

// UserStatistics returns one user's contribution totals and rank.
func (s *StatsService) UserStatistics(ctx context.Context, username string) repository.UserSummary {
	summary, err := cache.GetOrLoad(s.cache, "user:"+username, func() (repository.UserSummary, error) {
		return s.statsRepo.UserSummary(ctx, username)
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("username", username).Msg("failed to compute user statistics")
		return repository.UserSummary{}
	}
	return summary
}

// CategoryStatistics counts images per category, largest first.
func (s *StatsService) CategoryStatistics(ctx context.Context) []repository.GroupCount {
	return s.groupCounts(ctx, "categories", s.statsRepo.CountByCategory)
}

// LanguageStatistics counts labels per language, largest first.
func (s *StatsService) LanguageStatistics(ctx context.Context) []repository.GroupCount {
	return s.groupCounts(ctx, "languages", s.statsRepo.CountByLanguage)
}

func (s *StatsService) groupCounts(ctx context.Context, key string, load func(context.Context) ([]repository.GroupCount, error)) []repository.GroupCount {
	counts, err := cache.GetOrLoad(s.cache, key, func() ([]repository.GroupCount, error) {
		counts, err := load(ctx)
		if counts == nil {
			counts = []repository.GroupCount{}
		}
		return counts, err
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("group", key).Msg("failed to compute group counts")
		return []repository.GroupCount{}
	}
	return counts
}

// ActivityTimeline returns daily upload counts over the trailing window in
// ascending date order. Days without uploads are omitted.
func (s *StatsService) ActivityTimeline(ctx context.Context, days int) []TimelinePoint {
	if days <= 0 {
		days = constants.DefaultTimelineDays
	}
	if days > constants.MaxTimelineDays {
		days = constants.MaxTimelineDays
	}

	key := fmt.Sprintf("timeline:%d", days)
	points, err := cache.GetOrLoad(s.cache, key, func() ([]TimelinePoint, error) {
		times, err := s.statsRepo.UploadTimes(ctx, s.now().AddDate(0, 0, -days))
		if err != nil {
			return nil, err
		}
		return bucketByDay(times), nil
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int("days", days).Msg("failed to compute activity timeline")
		return []TimelinePoint{}
	}
	return points
}

// bucketByDay expects times in ascending order.
func bucketByDay(times []time.Time) []TimelinePoint {
	points := []TimelinePoint{}
	for _, t := range times {
		date := t.UTC().Format("2006-01-02")
		if n := len(points); n > 0 && points[n-1].Date == date {
			points[n-1].Uploads++
			continue
		}
		points = append(points, TimelinePoint{Date: date, Uploads: 1})
	}
	return points
}
