package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/labelit-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrReplaceLabel is returned when removing the previous label for the key fails.
	ErrReplaceLabel = errors.New("label repository: replace label failed")
	// ErrCreateLabel is returned when inserting the label fails.
	ErrCreateLabel = errors.New("label repository: create label failed")
	// ErrUpdateLabelCount is returned when the image's label_count cannot be refreshed.
	ErrUpdateLabelCount = errors.New("label repository: update label count failed")
	// ErrImageNotFound is returned when the label's image does not exist.
	ErrImageNotFound = errors.New("label repository: image not found")
	// ErrUnknownContributor is returned when the contributor is not a registered user.
	ErrUnknownContributor = errors.New("label repository: unknown contributor")
)

// GormLabelRepository is a GORM implementation of LabelRepository
type GormLabelRepository struct {
	db *gorm.DB
}

// NewLabelRepository creates a new LabelRepository
func NewLabelRepository(db *gorm.DB) LabelRepository {
	return &GormLabelRepository{db: db}
}

// Upsert replaces the (image, text, language) row and refreshes images.label_count.
// The replacement row gets a new ID and timestamp.
func (r *GormLabelRepository) Upsert(ctx context.Context, label *models.Label) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var images int64
		if err := tx.Model(&models.Image{}).Where("id = ?", label.ImageID).Count(&images).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateLabel, err)
		}
		if images == 0 {
			return ErrImageNotFound
		}

		err := tx.Where("image_id = ? AND text = ? AND language = ?", label.ImageID, label.Text, label.Language).
			Delete(&models.Label{}).Error
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReplaceLabel, err)
		}

		if err := tx.Omit(clause.Associations).Create(label).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrUnknownContributor
			}
			return fmt.Errorf("%w: %v", ErrCreateLabel, err)
		}

		err = tx.Model(&models.Image{}).
			Where("id = ?", label.ImageID).
			UpdateColumn("label_count", gorm.Expr("(SELECT COUNT(*) FROM labels WHERE labels.image_id = ?)", label.ImageID)).Error
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUpdateLabelCount, err)
		}

		return nil
	})
}

// ListByImage returns labels newest first
func (r *GormLabelRepository) ListByImage(ctx context.Context, imageID string) ([]models.Label, error) {
	var labels []models.Label
	err := r.db.WithContext(ctx).
		Where("image_id = ?", imageID).
		Order("added_at DESC").
		Order("id DESC").
		Find(&labels).Error
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// ListForExport joins labels with their image titles
func (r *GormLabelRepository) ListForExport(ctx context.Context) ([]LabelExport, error) {
	var rows []LabelExport
	err := r.db.WithContext(ctx).
		Model(&models.Label{}).
		Select("labels.id, labels.image_id, images.title AS image_title, labels.text, labels.language, labels.added_by, labels.added_at, labels.is_verified").
		Joins("JOIN images ON images.id = labels.image_id").
		Order("labels.added_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
