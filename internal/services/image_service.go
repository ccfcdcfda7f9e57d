package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/labelit-api/internal/cache"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/geolocation"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/repository"
	"github.com/yukikurage/labelit-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrImageNotFound      = errors.New("image not found")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrFailedToSaveImage  = errors.New("failed to save image")
	ErrIncompleteLocation = errors.New("latitude and longitude must be provided together")
)

// ImageService handles image metadata and the feed.
type ImageService struct {
	imageRepo repository.ImageRepository
	activity  *ActivityRecorder
	stats     *cache.Cache
	now       func() time.Time
}

// NewImageService creates a new ImageService. stats may be nil.
func NewImageService(imageRepo repository.ImageRepository, activity *ActivityRecorder, stats *cache.Cache) *ImageService {
	return &ImageService{
		imageRepo: imageRepo,
		activity:  activity,
		stats:     stats,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ImageLocation is the optional position of an upload.
type ImageLocation struct {
	Latitude  float64
	Longitude float64
	City      string
	Country   string
	Method    string
}

// AddImageInput represents the metadata stored for an uploaded file. ID is
// generated when empty.
type AddImageInput struct {
	ID          string
	Title       string
	Description string
	Category    models.Category
	ImagePath   string
	UploadedBy  string
	Location    *ImageLocation
	FileSize    int64
	Width       int
	Height      int
	Checksum    string
}

// AddImage stores image metadata and returns the new image ID. Unlike the
// other mutations, write failures are returned to the caller.
func (s *ImageService) AddImage(ctx context.Context, input AddImageInput) (string, error) {
	title, err := utils.ValidateText(input.Title, "Title", 1, 255)
	if err != nil {
		return "", err
	}
	if !input.Category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, input.Category)
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	image := &models.Image{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		ImagePath:   input.ImagePath,
		UploadedBy:  input.UploadedBy,
		UploadedAt:  s.now(),
		FileSize:    input.FileSize,
		ImageWidth:  input.Width,
		ImageHeight: input.Height,
	}

	if loc := input.Location; loc != nil {
		if err := geolocation.ValidateCoordinates(loc.Latitude, loc.Longitude); err != nil {
			return "", err
		}
		lat, lon := loc.Latitude, loc.Longitude
		image.Latitude = &lat
		image.Longitude = &lon
		image.City = optional(loc.City)
		image.Country = optional(loc.Country)
		image.LocationMethod = optional(loc.Method)
	}

	if err := s.imageRepo.Create(ctx, image); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("uploaded_by", input.UploadedBy).Msg("failed to insert image")
		return "", fmt.Errorf("%w: %v", ErrFailedToSaveImage, err)
	}

	metadata := map[string]interface{}{
		"image_id":     image.ID,
		"category":     string(image.Category),
		"has_location": image.HasLocation(),
		"file_size":    image.FileSize,
	}
	if input.Checksum != "" {
		metadata["sha256"] = input.Checksum
	}
	s.activity.LogEvent(ctx, Event{
		Type:     models.EventImageUploaded,
		Username: image.UploadedBy,
		ImageID:  image.ID,
		Metadata: metadata,
	})
	s.activity.Award(ctx, image.UploadedBy, models.ActivityImageUpload,
		"Uploaded image: "+image.Title, constants.PointsImageUpload)

	if s.stats != nil {
		s.stats.Invalidate()
	}

	return image.ID, nil
}

// QueryImages returns the images matching filter, newest first. Failures are
// logged and yield an empty result.
func (s *ImageService) QueryImages(ctx context.Context, filter repository.ImageFilter) []repository.ImageSummary {
	images, err := s.imageRepo.Query(ctx, filter)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to query images")
		return []repository.ImageSummary{}
	}
	return images
}

// FeedPage is one page of the image feed.
type FeedPage struct {
	Images []repository.ImageSummary
	Total  int64
}

// Feed pages through at most FeedCandidateLimit matching images.
func (s *ImageService) Feed(ctx context.Context, filter repository.ImageFilter, params utils.PaginationParams) FeedPage {
	total, err := s.imageRepo.Count(ctx, filter)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to count images")
		return FeedPage{Images: []repository.ImageSummary{}}
	}
	if total > constants.FeedCandidateLimit {
		total = constants.FeedCandidateLimit
	}

	if int64(params.Offset) >= total {
		return FeedPage{Images: []repository.ImageSummary{}, Total: total}
	}

	limit := params.Limit
	if remaining := int(total) - params.Offset; limit > remaining {
		limit = remaining
	}
	filter.Limit = limit
	filter.Offset = params.Offset

	return FeedPage{Images: s.QueryImages(ctx, filter), Total: total}
}

// GetImage returns an image by ID.
func (s *ImageService) GetImage(ctx context.Context, id string) (*models.Image, error) {
	image, err := s.imageRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to find image: %w", err)
	}
	return image, nil
}

// RecordView bumps the image's view counter.
func (s *ImageService) RecordView(ctx context.Context, id string) {
	if err := s.imageRepo.IncrementViewCount(ctx, id); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("image_id", id).Msg("failed to increment view count")
	}
}
