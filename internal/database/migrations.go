package database

import (
	"fmt"
	"strings"

	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/models"
	"gorm.io/gorm"
)

type index struct {
	model   interface{}
	table   string
	name    string
	columns []string
}

var indexes = []index{
	// Feed filters and ordering
	{&models.Image{}, "images", "idx_images_category", []string{"category"}},
	{&models.Image{}, "images", "idx_images_uploaded_by", []string{"uploaded_by"}},
	{&models.Image{}, "images", "idx_images_uploaded_at", []string{"uploaded_at"}},
	{&models.Image{}, "images", "idx_images_location", []string{"latitude", "longitude"}},

	{&models.Label{}, "labels", "idx_labels_image_id", []string{"image_id"}},
	{&models.Label{}, "labels", "idx_labels_language", []string{"language"}},
	{&models.Label{}, "labels", "idx_labels_added_by", []string{"added_by"}},

	{&models.AnalyticsEvent{}, "analytics", "idx_analytics_timestamp", []string{"timestamp"}},
	{&models.AnalyticsEvent{}, "analytics", "idx_analytics_event_type", []string{"event_type"}},

	{&models.UserActivity{}, "user_activities", "idx_user_activities_user_id", []string{"user_id"}},
}

// AddIndexes creates the secondary indexes that are missing.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		quoted := make([]string, len(idx.columns))
		for i, column := range idx.columns {
			quoted[i] = db.Statement.Quote(column)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			db.Statement.Quote(idx.name),
			db.Statement.Quote(idx.table),
			strings.Join(quoted, ", "),
		)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		logging.Debug().Str("index", idx.name).Str("table", idx.table).Msg("created index")
	}

	return nil
}
