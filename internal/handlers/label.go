package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/labelit-api/internal/dto"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/middleware"
	"github.com/yukikurage/labelit-api/internal/services"
)

// LabelHandler serves label listing, submission and suggestions.
type LabelHandler struct {
	labelService *services.LabelService
	aiService    *services.AIService
}

// NewLabelHandler creates a new LabelHandler. aiService may be nil.
func NewLabelHandler(labelService *services.LabelService, aiService *services.AIService) *LabelHandler {
	return &LabelHandler{
		labelService: labelService,
		aiService:    aiService,
	}
}

// ListLabels returns the image's labels newest first.
func (h *LabelHandler) ListLabels(c *gin.Context) {
	image, ok := middleware.GetImage(c)
	if !ok {
		apierrors.NotFound(c, "Image not found")
		return
	}

	labels := h.labelService.GetLabels(c.Request.Context(), image.ID)
	c.JSON(http.StatusOK, gin.H{
		"labels": dto.ToLabelDTOs(labels),
	})
}

// AddLabel attaches a label to the image, replacing an identical one.
func (h *LabelHandler) AddLabel(c *gin.Context) {
	username, exists := middleware.GetUsername(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	image, ok := middleware.GetImage(c)
	if !ok {
		apierrors.NotFound(c, "Image not found")
		return
	}

	var req dto.AddLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if _, err := services.ValidateLabel(req.Text, req.Language); err != nil {
		apierrors.BadRequest(c, strings.TrimPrefix(err.Error(), services.ErrInvalidLabel.Error()+": "))
		return
	}

	ctx := c.Request.Context()
	if !h.labelService.AddLabel(ctx, image.ID, req.Text, req.Language, username) {
		apierrors.InternalError(c, "Failed to add label")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"labels": dto.ToLabelDTOs(h.labelService.GetLabels(ctx, image.ID)),
	})
}

// SuggestLabels proposes new labels in ?lang= using the configured model.
func (h *LabelHandler) SuggestLabels(c *gin.Context) {
	if !h.aiService.Enabled() {
		apierrors.ServiceUnavailable(c, "Label suggestions are not configured")
		return
	}
	image, ok := middleware.GetImage(c)
	if !ok {
		apierrors.NotFound(c, "Image not found")
		return
	}

	lang := middleware.GetLanguage(c)
	if requested := c.Query("lang"); requested != "" {
		if !i18n.IsSupported(requested) {
			apierrors.BadRequest(c, "Unsupported language")
			return
		}
		lang = requested
	}

	ctx := c.Request.Context()
	suggestions, err := h.aiService.SuggestLabels(ctx, image, h.labelService.GetLabels(ctx, image.ID), lang)
	if err != nil {
		if errors.Is(err, services.ErrAIUnavailable) {
			apierrors.ServiceUnavailable(c, "Label suggestions are not configured")
			return
		}
		logging.Ctx(ctx).Error().Err(err).Str("image_id", image.ID).Msg("label suggestion failed")
		apierrors.ServiceUnavailable(c, "Failed to generate suggestions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"language":    lang,
		"suggestions": suggestions,
	})
}
