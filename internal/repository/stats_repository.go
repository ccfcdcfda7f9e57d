package repository

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/yukikurage/labelit-api/internal/models"
	"gorm.io/gorm"
)

// GormStatsRepository is a GORM implementation of StatsRepository
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &GormStatsRepository{db: db}
}

// Overview computes community totals
func (r *GormStatsRepository) Overview(ctx context.Context, since time.Time) (Overview, error) {
	db := r.db.WithContext(ctx)
	var o Overview

	if err := db.Model(&models.Image{}).Count(&o.TotalImages).Error; err != nil {
		return Overview{}, err
	}
	if err := db.Model(&models.Label{}).Count(&o.TotalLabels).Error; err != nil {
		return Overview{}, err
	}
	if err := db.Model(&models.User{}).Where("is_active = ?", true).Count(&o.TotalUsers).Error; err != nil {
		return Overview{}, err
	}
	if err := db.Model(&models.Label{}).Distinct("language").Count(&o.LanguagesUsed).Error; err != nil {
		return Overview{}, err
	}

	var avg sql.NullFloat64
	err := db.Model(&models.Image{}).
		Select("AVG(label_count)").
		Where("label_count > ?", 0).
		Row().Scan(&avg)
	if err != nil {
		return Overview{}, err
	}
	if avg.Valid {
		o.AvgLabelsPerImage = math.Round(avg.Float64*100) / 100
	}

	if err := db.Model(&models.Image{}).Where("uploaded_at >= ?", since).Count(&o.RecentImages).Error; err != nil {
		return Overview{}, err
	}
	if err := db.Model(&models.Label{}).Where("added_at >= ?", since).Count(&o.RecentLabels).Error; err != nil {
		return Overview{}, err
	}

	return o, nil
}

// UserSummary computes totals and rank for one user
func (r *GormStatsRepository) UserSummary(ctx context.Context, username string) (UserSummary, error) {
	db := r.db.WithContext(ctx)
	var s UserSummary

	if err := db.Model(&models.Image{}).Where("uploaded_by = ?", username).Count(&s.ImagesUploaded).Error; err != nil {
		return UserSummary{}, err
	}
	if err := db.Model(&models.Label{}).Where("added_by = ?", username).Count(&s.LabelsAdded).Error; err != nil {
		return UserSummary{}, err
	}
	err := db.Model(&models.Label{}).
		Where("added_by = ?", username).
		Distinct("language").
		Count(&s.LanguagesContributed).Error
	if err != nil {
		return UserSummary{}, err
	}
	err = db.Model(&models.Image{}).
		Where("uploaded_by = ?", username).
		Distinct("category").
		Count(&s.CategoriesContributed).Error
	if err != nil {
		return UserSummary{}, err
	}

	err = db.Model(&models.UserActivity{}).
		Select("COALESCE(SUM(points_earned), 0)").
		Where("user_id = ?", username).
		Row().Scan(&s.TotalPoints)
	if err != nil {
		return UserSummary{}, err
	}

	// Rank is 1 + the number of users with a strictly higher total.
	ahead := r.db.Model(&models.UserActivity{}).
		Select("user_id").
		Group("user_id").
		Having("SUM(points_earned) > ?", s.TotalPoints)
	var higher int64
	if err := db.Table("(?) AS ranked", ahead).Count(&higher).Error; err != nil {
		return UserSummary{}, err
	}
	s.UserRank = higher + 1

	return s, nil
}

// CountByCategory counts images per category
func (r *GormStatsRepository) CountByCategory(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Select("category AS name, COUNT(*) AS total").
		Group("category").
		Order("total DESC").
		Order("name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByLanguage counts labels per language
func (r *GormStatsRepository) CountByLanguage(ctx context.Context) ([]GroupCount, error) {
	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&models.Label{}).
		Select("language AS name, COUNT(*) AS total").
		Group("language").
		Order("total DESC").
		Order("name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UploadTimes returns upload timestamps since the given instant
func (r *GormStatsRepository) UploadTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("uploaded_at >= ?", since).
		Order("uploaded_at ASC").
		Pluck("uploaded_at", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}
