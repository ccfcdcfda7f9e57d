package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/dto"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/geolocation"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/imageproc"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/metrics"
	"github.com/yukikurage/labelit-api/internal/middleware"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/repository"
	"github.com/yukikurage/labelit-api/internal/services"
	"github.com/yukikurage/labelit-api/internal/storage"
	"github.com/yukikurage/labelit-api/internal/utils"
)

const defaultThumbnailSize = 300

// ImageHandler serves the feed, uploads and image files.
type ImageHandler struct {
	imageService *services.ImageService
	labelService *services.LabelService
	files        storage.FileStore
	geo          *geolocation.Service
}

// NewImageHandler creates a new ImageHandler. geo may be nil.
func NewImageHandler(
	imageService *services.ImageService,
	labelService *services.LabelService,
	files storage.FileStore,
	geo *geolocation.Service,
) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		labelService: labelService,
		files:        files,
		geo:          geo,
	}
}

// ListImages returns one page of the feed filtered by category, language and search text.
func (h *ImageHandler) ListImages(c *gin.Context) {
	filter := repository.ImageFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Language: strings.TrimSpace(c.Query("language")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if filter.Category != "" && !models.Category(filter.Category).Valid() {
		apierrors.BadRequest(c, "Invalid category")
		return
	}
	if filter.Language != "" && !i18n.IsSupported(filter.Language) {
		apierrors.BadRequest(c, "Unsupported language")
		return
	}

	params := utils.GetPaginationParams(c)
	page := h.imageService.Feed(c.Request.Context(), filter, params)

	lang := middleware.GetLanguage(c)
	items := make([]dto.ImageListItemDTO, len(page.Images))
	for i, summary := range page.Images {
		items[i] = dto.ToImageListItemDTO(summary, i18n.CategoryName(lang, string(summary.Category)))
	}

	c.JSON(http.StatusOK, dto.ImageListResponse{
		Images:     items,
		Pagination: utils.NewPaginationResponse(params, page.Total),
	})
}

// uploadForm holds the text fields of an image upload. Location fields are
// read separately by uploadLocation.
type uploadForm struct {
	Title       string `form:"title" binding:"required"`
	Description string `form:"description"`
	Category    string `form:"category" binding:"required,category"`
}

// UploadImage validates, compresses and stores a multipart upload.
func (h *ImageHandler) UploadImage(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.Ctx(ctx)

	username, exists := middleware.GetUsername(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxUploadSize+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(c, imageproc.ErrFileTooLarge.Error())
			return
		}
		apierrors.BadRequest(c, "An image file is required")
		return
	}
	if fileHeader.Size > constants.MaxUploadSize {
		apierrors.FileTooLarge(c, imageproc.ErrFileTooLarge.Error())
		return
	}

	data, err := readFormFile(fileHeader)
	if err != nil {
		apierrors.BadRequest(c, "Failed to read uploaded file")
		return
	}

	info, err := imageproc.Validate(data, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, imageproc.ErrFileTooLarge) {
			apierrors.FileTooLarge(c, err.Error())
			return
		}
		apierrors.InvalidImage(c, err.Error())
		return
	}

	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}
	title, err := utils.ValidateText(form.Title, "Title", 1, 255)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	category := models.Category(strings.TrimSpace(form.Category))

	location, err := h.uploadLocation(c)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	result, err := imageproc.Compress(data, info.Format)
	if err != nil {
		logger.Warn().Err(err).Msg("image compression failed, storing original")
		result = imageproc.Original(data, info)
	}

	id := uuid.NewString()
	path, err := h.files.Save(ctx, storage.ImageKey(id, result.Ext), bytes.NewReader(result.Data), int64(len(result.Data)), result.ContentType)
	if err != nil {
		logger.Error().Err(err).Msg("failed to store image file")
		apierrors.InternalError(c, "Failed to store image")
		return
	}
	metrics.UploadBytes.Observe(float64(len(result.Data)))

	_, err = h.imageService.AddImage(ctx, services.AddImageInput{
		ID:          id,
		Title:       title,
		Description: form.Description,
		Category:    category,
		ImagePath:   path,
		UploadedBy:  username,
		Location:    location,
		FileSize:    int64(len(result.Data)),
		Width:       result.Width,
		Height:      result.Height,
		Checksum:    utils.FileHash(result.Data),
	})
	if err != nil {
		if delErr := h.files.Delete(ctx, path); delErr != nil {
			logger.Warn().Err(delErr).Str("path", path).Msg("failed to remove orphaned image file")
		}
		if errors.Is(err, services.ErrFailedToSaveImage) {
			apierrors.InternalError(c, "Failed to save image")
			return
		}
		apierrors.BadRequest(c, err.Error())
		return
	}

	image, err := h.imageService.GetImage(ctx, id)
	if err != nil {
		logger.Error().Err(err).Str("image_id", id).Msg("failed to reload uploaded image")
		apierrors.InternalError(c, "")
		return
	}

	lang := middleware.GetLanguage(c)
	c.JSON(http.StatusCreated, dto.UploadResponse{
		ID:    id,
		Image: dto.ToImageDTO(*image, i18n.CategoryName(lang, string(image.Category))),
	})
}

// uploadLocation reads optional coordinates from the form. Explicit
// coordinates win; use_ip_location=true falls back to the caller's IP
// location, and a failed lookup simply leaves the image without one.
func (h *ImageHandler) uploadLocation(c *gin.Context) (*services.ImageLocation, error) {
	latRaw := strings.TrimSpace(c.PostForm("latitude"))
	lonRaw := strings.TrimSpace(c.PostForm("longitude"))

	if latRaw != "" || lonRaw != "" {
		if latRaw == "" || lonRaw == "" {
			return nil, services.ErrIncompleteLocation
		}
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lon, lonErr := strconv.ParseFloat(lonRaw, 64)
		if latErr != nil || lonErr != nil {
			return nil, fmt.Errorf("%w: not a number", geolocation.ErrInvalidCoordinates)
		}
		if err := geolocation.ValidateCoordinates(lat, lon); err != nil {
			return nil, err
		}

		location := &services.ImageLocation{
			Latitude:  lat,
			Longitude: lon,
			City:      strings.TrimSpace(c.PostForm("city")),
			Country:   strings.TrimSpace(c.PostForm("country")),
			Method:    models.LocationMethodManual,
		}
		if location.City == "" && location.Country == "" && h.geo != nil {
			if resolved, err := h.geo.Manual(c.Request.Context(), lat, lon); err == nil {
				location.City = resolved.City
				location.Country = resolved.Country
			}
		}
		return location, nil
	}

	if useIP, _ := strconv.ParseBool(c.PostForm("use_ip_location")); useIP {
		resolved, ok := ipLocation(c, h.geo)
		if !ok {
			return nil, nil
		}
		return &services.ImageLocation{
			Latitude:  resolved.Latitude,
			Longitude: resolved.Longitude,
			City:      resolved.City,
			Country:   resolved.Country,
			Method:    models.LocationMethodIP,
		}, nil
	}

	return nil, nil
}

// GetImage returns an image with its labels and counts the view.
func (h *ImageHandler) GetImage(c *gin.Context) {
	image, ok := middleware.GetImage(c)
	if !ok {
		apierrors.NotFound(c, "Image not found")
		return
	}

	ctx := c.Request.Context()
	h.imageService.RecordView(ctx, image.ID)
	image.ViewCount++

	lang := middleware.GetLanguage(c)
	c.JSON(http.StatusOK, dto.ImageDetailResponse{
		Image:  dto.ToImageDTO(*image, i18n.CategoryName(lang, string(image.Category))),
		Labels: dto.ToLabelDTOs(h.labelService.GetLabels(ctx, image.ID)),
	})
}

// GetImageFile streams the stored image.
func (h *ImageHandler) GetImageFile(c *gin.Context) {
	data, ok := h.readStored(c)
	if !ok {
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

// GetThumbnail renders a JPEG preview no larger than ?size= pixels.
func (h *ImageHandler) GetThumbnail(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultThumbnailSize)))
	if err != nil || size < constants.MinImageDimension || size > constants.MaxCompressedDimension {
		apierrors.BadRequest(c, "Invalid thumbnail size")
		return
	}

	data, ok := h.readStored(c)
	if !ok {
		return
	}
	thumb, err := imageproc.Thumbnail(data, size)
	if err != nil {
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to render thumbnail")
		apierrors.InternalError(c, "Failed to render thumbnail")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", thumb)
}

func (h *ImageHandler) readStored(c *gin.Context) ([]byte, bool) {
	image, ok := middleware.GetImage(c)
	if !ok {
		apierrors.NotFound(c, "Image not found")
		return nil, false
	}

	ctx := c.Request.Context()
	exists, err := h.files.Exists(ctx, image.ImagePath)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("path", image.ImagePath).Msg("failed to stat image file")
		apierrors.InternalError(c, "")
		return nil, false
	}
	if !exists {
		apierrors.NotFound(c, "Image file not found")
		return nil, false
	}

	rc, err := h.files.Open(ctx, image.ImagePath)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("path", image.ImagePath).Msg("failed to open image file")
		apierrors.InternalError(c, "")
		return nil, false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("path", image.ImagePath).Msg("failed to read image file")
		apierrors.InternalError(c, "")
		return nil, false
	}
	return data, true
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, constants.MaxUploadSize+1))
}
