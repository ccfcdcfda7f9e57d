package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/yukikurage/labelit-api/internal/database"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormImageRepository is a GORM implementation of ImageRepository
type GormImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &GormImageRepository{db: db}
}

// Create inserts the image without touching the uploader row
func (r *GormImageRepository) Create(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(image).Error
}

// FindByID finds an image by ID
func (r *GormImageRepository) FindByID(ctx context.Context, id string) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *GormImageRepository) filtered(ctx context.Context, filter ImageFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Image{})

	if filter.Category != "" {
		query = query.Where("images.category = ?", filter.Category)
	}

	if filter.Language != "" {
		languageSubQuery := r.db.Model(&models.Label{}).
			Select("1").
			Where("labels.image_id = images.id").
			Where("labels.language = ?", filter.Language)
		query = query.Where("EXISTS (?)", languageSubQuery)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		labelSubQuery := r.db.Model(&models.Label{}).
			Select("1").
			Where("labels.image_id = images.id").
			Where("LOWER(labels.text) LIKE ?", pattern)
		query = query.Where(
			"(LOWER(images.title) LIKE ? OR LOWER(images.description) LIKE ? OR EXISTS (?))",
			pattern, pattern, labelSubQuery,
		)
	}

	return query
}

// Query returns matching images newest first with label annotations
func (r *GormImageRepository) Query(ctx context.Context, filter ImageFilter) ([]ImageSummary, error) {
	query := r.filtered(ctx, filter).Scopes(database.NewestFirst("images.uploaded_at"))
	if filter.Limit > 0 {
		query = query.Scopes(database.Paginate(utils.PaginationParams{
			Limit:  filter.Limit,
			Offset: filter.Offset,
		}))
	}

	var images []models.Image
	if err := query.Find(&images).Error; err != nil {
		return nil, err
	}

	summaries := make([]ImageSummary, len(images))
	if len(images) == 0 {
		return summaries, nil
	}

	ids := make([]string, len(images))
	for i, image := range images {
		ids[i] = image.ID
	}

	// Annotations cover every label of the image, not only those matching the language filter.
	var rows []struct {
		ImageID  string
		Language string
		Total    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Label{}).
		Select("image_id, language, COUNT(*) AS total").
		Where("image_id IN ?", ids).
		Group("image_id, language").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, len(images))
	languages := make(map[string][]string, len(images))
	for _, row := range rows {
		totals[row.ImageID] += row.Total
		languages[row.ImageID] = append(languages[row.ImageID], row.Language)
	}

	for i, image := range images {
		langs := languages[image.ID]
		if langs == nil {
			langs = []string{}
		}
		sort.Strings(langs)
		summaries[i] = ImageSummary{
			Image:       image,
			TotalLabels: totals[image.ID],
			Languages:   langs,
		}
	}
	return summaries, nil
}

// Count returns the number of images matching filter
func (r *GormImageRepository) Count(ctx context.Context, filter ImageFilter) (int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// IncrementViewCount bumps view_count atomically
func (r *GormImageRepository) IncrementViewCount(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// List returns every image newest first
func (r *GormImageRepository) List(ctx context.Context) ([]models.Image, error) {
	var images []models.Image
	if err := r.db.WithContext(ctx).Scopes(database.NewestFirst("uploaded_at")).Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}
