package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/labelit-api/internal/cache"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/repository"
	"github.com/yukikurage/labelit-api/internal/utils"
)

// ErrInvalidLabel is returned by ValidateLabel for unusable text or language.
var ErrInvalidLabel = errors.New("invalid label")

// LabelService handles label submission and listing.
type LabelService struct {
	labelRepo repository.LabelRepository
	activity  *ActivityRecorder
	stats     *cache.Cache
	now       func() time.Time
}

// NewLabelService creates a new LabelService. stats may be nil.
func NewLabelService(labelRepo repository.LabelRepository, activity *ActivityRecorder, stats *cache.Cache) *LabelService {
	return &LabelService{
		labelRepo: labelRepo,
		activity:  activity,
		stats:     stats,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ValidateLabel trims text and checks it and the language code.
func ValidateLabel(text, language string) (string, error) {
	text, err := utils.ValidateText(text, "Label", 1, constants.MaxTextLength)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLabel, err)
	}
	if !i18n.IsSupported(language) {
		return "", fmt.Errorf("%w: unsupported language %q", ErrInvalidLabel, language)
	}
	return text, nil
}

// AddLabel inserts or replaces the (image, text, language) label, refreshes the
// image's label count and credits the contributor. It reports false on any
// failure.
func (s *LabelService) AddLabel(ctx context.Context, imageID, text, language, contributor string) bool {
	logger := logging.Ctx(ctx)

	text, err := ValidateLabel(text, language)
	if err != nil {
		logger.Warn().Err(err).Str("image_id", imageID).Msg("rejected label")
		return false
	}

	label := &models.Label{
		ImageID:         imageID,
		Text:            text,
		Language:        language,
		AddedBy:         contributor,
		AddedAt:         s.now(),
		ConfidenceScore: 1,
	}
	if err := s.labelRepo.Upsert(ctx, label); err != nil {
		logger.Error().Err(err).Str("image_id", imageID).Str("language", language).Msg("failed to add label")
		return false
	}

	s.activity.LogEvent(ctx, Event{
		Type:     models.EventLabelAdded,
		Username: contributor,
		ImageID:  imageID,
		LabelID:  label.ID,
		Metadata: map[string]interface{}{
			"image_id":    imageID,
			"language":    language,
			"text_length": utf8.RuneCountInString(text),
		},
	})
	s.activity.Award(ctx, contributor, models.ActivityLabelAdd,
		"Added label: "+utils.TruncateRunes(text, constants.ActivityTextLength)+"...", constants.PointsLabelAdd)

	if s.stats != nil {
		s.stats.Invalidate()
	}
	return true
}

// GetLabels returns an image's labels newest first, or an empty slice on failure.
func (s *LabelService) GetLabels(ctx context.Context, imageID string) []models.Label {
	labels, err := s.labelRepo.ListByImage(ctx, imageID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("image_id", imageID).Msg("failed to list labels")
		return []models.Label{}
	}
	if labels == nil {
		return []models.Label{}
	}
	return labels
}
