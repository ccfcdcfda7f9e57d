package repository

import (
	"context"
	"time"

	"github.com/yukikurage/labelit-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByUsername finds a user by username regardless of status
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindActiveByUsername finds a user that has not been deactivated
	FindActiveByUsername(ctx context.Context, username string) (*models.User, error)

	// UpdateLastLogin stamps a successful login
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error

	// UpdateProfile applies column updates to a user
	UpdateProfile(ctx context.Context, username string, updates map[string]interface{}) error

	// Deactivate marks a user inactive
	Deactivate(ctx context.Context, username string) error

	// List returns every user ordered by creation time
	List(ctx context.Context) ([]models.User, error)
}

// ImageRepository defines the interface for image data access
type ImageRepository interface {
	// Create inserts a new image row
	Create(ctx context.Context, image *models.Image) error

	// FindByID finds an image by ID
	FindByID(ctx context.Context, id string) (*models.Image, error)

	// Query returns images matching filter, newest first, annotated with label data
	Query(ctx context.Context, filter ImageFilter) ([]ImageSummary, error)

	// Count returns how many images match filter, ignoring limit and offset
	Count(ctx context.Context, filter ImageFilter) (int64, error)

	// IncrementViewCount bumps view_count by one
	IncrementViewCount(ctx context.Context, id string) error

	// List returns every image newest first
	List(ctx context.Context) ([]models.Image, error)
}

// ImageFilter holds filtering options for querying images. Empty fields do not filter.
type ImageFilter struct {
	Category string
	Language string
	Search   string
	Limit    int
	Offset   int
}

// ImageSummary is an image with its live label count and languages.
type ImageSummary struct {
	models.Image
	TotalLabels int64    `json:"total_labels"`
	Languages   []string `json:"languages"`
}

// LabelRepository defines the interface for label data access
type LabelRepository interface {
	// Upsert replaces any label with the same image, text and language, then
	// recomputes the image's label_count in the same transaction
	Upsert(ctx context.Context, label *models.Label) error

	// ListByImage returns an image's labels newest first
	ListByImage(ctx context.Context, imageID string) ([]models.Label, error)

	// ListForExport returns every label joined with its image title
	ListForExport(ctx context.Context) ([]LabelExport, error)
}

// LabelExport is a label row with the title of its image.
type LabelExport struct {
	ID         uint64
	ImageID    string
	ImageTitle string
	Text       string
	Language   string
	AddedBy    string
	AddedAt    time.Time
	IsVerified bool
}

// ActivityRepository defines the interface for the event log and points ledger
type ActivityRepository interface {
	// LogEvent appends an analytics event
	LogEvent(ctx context.Context, event *models.AnalyticsEvent) error

	// Record appends a points-bearing activity
	Record(ctx context.Context, activity *models.UserActivity) error
}

// StatsRepository defines the aggregate queries behind the dashboards
type StatsRepository interface {
	// Overview computes community totals; recent counts include rows at or after since
	Overview(ctx context.Context, since time.Time) (Overview, error)

	// UserSummary computes one user's contribution totals and rank
	UserSummary(ctx context.Context, username string) (UserSummary, error)

	// CountByCategory counts images per category, largest first
	CountByCategory(ctx context.Context) ([]GroupCount, error)

	// CountByLanguage counts labels per language, largest first
	CountByLanguage(ctx context.Context) ([]GroupCount, error)

	// UploadTimes returns upload timestamps at or after since
	UploadTimes(ctx context.Context, since time.Time) ([]time.Time, error)
}

// Overview holds community-wide totals.
type Overview struct {
	TotalImages       int64   `json:"total_images"`
	TotalLabels       int64   `json:"total_labels"`
	TotalUsers        int64   `json:"total_users"`
	LanguagesUsed     int64   `json:"languages_used"`
	AvgLabelsPerImage float64 `json:"avg_labels_per_image"`
	RecentImages      int64   `json:"recent_images"`
	RecentLabels      int64   `json:"recent_labels"`
}

// UserSummary holds one user's contribution totals.
type UserSummary struct {
	ImagesUploaded        int64 `json:"images_uploaded"`
	LabelsAdded           int64 `json:"labels_added"`
	LanguagesContributed  int64 `json:"languages_contributed"`
	CategoriesContributed int64 `json:"categories_contributed"`
	TotalPoints           int64 `json:"total_points"`
	UserRank              int64 `json:"user_rank"`
}

// GroupCount is one bucket of a GROUP BY count.
type GroupCount struct {
	Name  string `json:"name"`
	Count int64  `gorm:"column:total" json:"count"`
}
