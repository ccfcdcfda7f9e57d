package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/labelit-api/internal/constants"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/services"
)

// RequireImage loads the image named by the :id parameter
func RequireImage(imageService *services.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, err := imageService.GetImage(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, services.ErrImageNotFound) {
				apierrors.NotFound(c, "Image not found")
				return
			}
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to load image")
			apierrors.InternalError(c, "")
			return
		}

		c.Set(constants.ContextKeyImage, image)
		c.Next()
	}
}

// GetImage retrieves the image loaded by RequireImage
func GetImage(c *gin.Context) (*models.Image, bool) {
	value, exists := c.Get(constants.ContextKeyImage)
	if !exists {
		return nil, false
	}
	image, ok := value.(*models.Image)
	return image, ok
}
