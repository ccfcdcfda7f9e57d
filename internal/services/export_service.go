package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/metrics"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/repository"
	"github.com/yukikurage/labelit-api/internal/storage"
	"github.com/yukikurage/labelit-api/internal/utils"
)

// Export formats
const (
	FormatSpreadsheet = "xlsx"
	FormatArchive     = "zip"
)

const timeLayout = "2006-01-02 15:04:05"

// ExportService builds bulk downloads of the dataset.
type ExportService struct {
	userRepo  repository.UserRepository
	imageRepo repository.ImageRepository
	labelRepo repository.LabelRepository
	stats     *StatsService
	files     storage.FileStore
	activity  *ActivityRecorder
}

// NewExportService creates a new ExportService.
func NewExportService(
	userRepo repository.UserRepository,
	imageRepo repository.ImageRepository,
	labelRepo repository.LabelRepository,
	stats *StatsService,
	files storage.FileStore,
	activity *ActivityRecorder,
) *ExportService {
	return &ExportService{
		userRepo:  userRepo,
		imageRepo: imageRepo,
		labelRepo: labelRepo,
		stats:     stats,
		files:     files,
		activity:  activity,
	}
}

// ExportSpreadsheet returns an xlsx workbook with Users, Images, Labels and
// Statistics sheets, or nil on failure. Password hashes are never exported.
func (s *ExportService) ExportSpreadsheet(ctx context.Context, requestedBy string) []byte {
	data, err := s.buildSpreadsheet(ctx)
	if err != nil {
		metrics.Exports.WithLabelValues(FormatSpreadsheet, "error").Inc()
		logging.Ctx(ctx).Error().Err(err).Msg("failed to export spreadsheet")
		return nil
	}
	metrics.Exports.WithLabelValues(FormatSpreadsheet, "ok").Inc()
	s.logExport(ctx, requestedBy, FormatSpreadsheet, len(data))
	return data
}

func (s *ExportService) buildSpreadsheet(ctx context.Context) ([]byte, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	images, err := s.imageRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	labels, err := s.labelRepo.ListForExport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	overview := s.stats.Statistics(ctx)

	f := excelize.NewFile()
	defer f.Close()

	userRows := make([][]interface{}, 0, len(users))
	for _, u := range users {
		userRows = append(userRows, []interface{}{
			u.Username, u.PreferredLanguage, deref(u.FullName), deref(u.Email),
			u.CreatedAt.Format(timeLayout), lastLogin(u), u.IsActive,
		})
	}

	imageRows := make([][]interface{}, 0, len(images))
	for _, img := range images {
		imageRows = append(imageRows, []interface{}{
			img.ID, img.Title, img.Description, string(img.Category), img.UploadedBy,
			img.UploadedAt.Format(timeLayout), derefFloat(img.Latitude), derefFloat(img.Longitude),
			deref(img.City), deref(img.Country), img.FileSize, img.ImageWidth, img.ImageHeight, img.LabelCount,
		})
	}

	labelRows := make([][]interface{}, 0, len(labels))
	for _, l := range labels {
		labelRows = append(labelRows, []interface{}{
			l.ID, l.ImageID, l.Text, l.Language, l.AddedBy, l.AddedAt.Format(timeLayout), l.IsVerified, l.ImageTitle,
		})
	}

	sheets := []struct {
		name   string
		header []interface{}
		rows   [][]interface{}
	}{
		{
			name:   "Users",
			header: []interface{}{"username", "preferred_language", "full_name", "email", "created_at", "last_login", "is_active"},
			rows:   userRows,
		},
		{
			name: "Images",
			header: []interface{}{
				"id", "title", "description", "category", "uploaded_by", "uploaded_at", "latitude", "longitude",
				"city", "country", "file_size", "image_width", "image_height", "label_count",
			},
			rows: imageRows,
		},
		{
			name:   "Labels",
			header: []interface{}{"id", "image_id", "text", "language", "added_by", "added_at", "is_verified", "image_title"},
			rows:   labelRows,
		},
		{
			name: "Statistics",
			header: []interface{}{
				"total_images", "total_labels", "total_users", "languages_used",
				"avg_labels_per_image", "recent_images", "recent_labels",
			},
			rows: [][]interface{}{{
				overview.TotalImages, overview.TotalLabels, overview.TotalUsers, overview.LanguagesUsed,
				overview.AvgLabelsPerImage, overview.RecentImages, overview.RecentLabels,
			}},
		},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return nil, fmt.Errorf("failed to name sheet %s: %w", sheet.name, err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet.name, err)
		}

		if err := writeRow(f, sheet.name, 1, sheet.header); err != nil {
			return nil, err
		}
		for j, row := range sheet.rows {
			if err := writeRow(f, sheet.name, j+2, row); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// ExportArchive returns a zip of every stored image laid out as
// category/uploader/title.ext, or nil on failure. Images whose file is gone
// are skipped.
func (s *ExportService) ExportArchive(ctx context.Context, requestedBy string) []byte {
	data, err := s.buildArchive(ctx)
	if err != nil {
		metrics.Exports.WithLabelValues(FormatArchive, "error").Inc()
		logging.Ctx(ctx).Error().Err(err).Msg("failed to export image archive")
		return nil
	}
	metrics.Exports.WithLabelValues(FormatArchive, "ok").Inc()
	s.logExport(ctx, requestedBy, FormatArchive, len(data))
	return data
}

func (s *ExportService) buildArchive(ctx context.Context) ([]byte, error) {
	logger := logging.Ctx(ctx)

	images, err := s.imageRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]int)

	for _, img := range images {
		if img.ImagePath == "" {
			continue
		}
		exists, err := s.files.Exists(ctx, img.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", img.ImagePath, err)
		}
		if !exists {
			logger.Debug().Str("image_id", img.ID).Str("path", img.ImagePath).Msg("skipping missing image file")
			continue
		}

		name := archiveName(img, used)
		if err := s.addToArchive(ctx, zw, img.ImagePath, name); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ExportService) addToArchive(ctx context.Context, zw *zip.Writer, key, name string) error {
	src, err := s.files.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy %s: %w", key, err)
	}
	return nil
}

// archiveName builds category/uploader/title.ext, numbering repeated names.
func archiveName(img models.Image, used map[string]int) string {
	title := utils.TruncateRunes(utils.SanitizeFilename(img.Title), constants.ArchiveTitleLength)
	base := path.Join(utils.SanitizeFilename(string(img.Category)), utils.SanitizeFilename(img.UploadedBy), title)
	ext := strings.ToLower(path.Ext(img.ImagePath))

	name := base + ext
	if n := used[name]; n > 0 {
		used[name] = n + 1
		return base + "_" + strconv.Itoa(n+1) + ext
	}
	used[name] = 1
	return name
}

func (s *ExportService) logExport(ctx context.Context, username, format string, size int) {
	s.activity.LogEvent(ctx, Event{
		Type:     models.EventDataExported,
		Username: username,
		Metadata: map[string]interface{}{
			"format": format,
			"size":   size,
		},
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func lastLogin(u models.User) string {
	if u.LastLogin == nil {
		return ""
	}
	return u.LastLogin.Format(timeLayout)
}
