package services

import (
	"context"
	"time"

	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/metrics"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/reqctx"
	"github.com/yukikurage/labelit-api/internal/repository"
	"gorm.io/datatypes"
)

// Event describes one analytics entry. Empty identifiers are stored as NULL.
type Event struct {
	Type     string
	Username string
	ImageID  string
	LabelID  uint64
	Metadata map[string]interface{}
}

// ActivityRecorder appends analytics events and points to the ledger. Failures
// are logged and never reach the caller.
type ActivityRecorder struct {
	repo repository.ActivityRepository
	now  func() time.Time
}

// NewActivityRecorder creates a new ActivityRecorder.
func NewActivityRecorder(repo repository.ActivityRepository) *ActivityRecorder {
	return &ActivityRecorder{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// LogEvent stores an analytics event stamped with the caller's IP and user agent.
func (r *ActivityRecorder) LogEvent(ctx context.Context, event Event) {
	row := &models.AnalyticsEvent{
		EventType: event.Type,
		UserID:    optional(event.Username),
		ImageID:   optional(event.ImageID),
		Timestamp: r.now(),
	}
	if event.LabelID != 0 {
		id := event.LabelID
		row.LabelID = &id
	}
	if len(event.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(event.Metadata)
	}
	if info, ok := reqctx.FromContext(ctx); ok {
		row.IPAddress = optional(info.ClientIP)
		row.UserAgent = optional(info.UserAgent)
	}

	if err := r.repo.LogEvent(ctx, row); err != nil {
		metrics.EventsLogged.WithLabelValues(event.Type, "error").Inc()
		logging.Ctx(ctx).Error().Err(err).Str("event_type", event.Type).Msg("failed to log analytics event")
		return
	}
	metrics.EventsLogged.WithLabelValues(event.Type, "ok").Inc()
}

// Award credits points to a user.
func (r *ActivityRecorder) Award(ctx context.Context, username, activityType, description string, points int) {
	activity := &models.UserActivity{
		UserID:       username,
		ActivityType: activityType,
		Description:  description,
		PointsEarned: points,
		Timestamp:    r.now(),
	}
	if err := r.repo.Record(ctx, activity); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("username", username).
			Str("activity_type", activityType).
			Msg("failed to record user activity")
		return
	}
	metrics.PointsAwarded.WithLabelValues(activityType).Add(float64(points))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
