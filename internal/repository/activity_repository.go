package repository

import (
	"context"

	"github.com/yukikurage/labelit-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormActivityRepository is a GORM implementation of ActivityRepository
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

// LogEvent appends an analytics event
func (r *GormActivityRepository) LogEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// Record appends a points-bearing activity
func (r *GormActivityRepository) Record(ctx context.Context, activity *models.UserActivity) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(activity).Error
}
