package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/yukikurage/labelit-api/internal/constants"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/geolocation"
	"github.com/yukikurage/labelit-api/internal/logging"
)

// LocationHandler exposes the geolocation helpers.
type LocationHandler struct {
	geo *geolocation.Service
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(geo *geolocation.Service) *LocationHandler {
	return &LocationHandler{
		geo: geo,
	}
}

type coordinatesRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// GetIPLocation returns the caller's approximate location, cached in the session.
func (h *LocationHandler) GetIPLocation(c *gin.Context) {
	location, ok := ipLocation(c, h.geo)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "location": location})
}

// ForgetIPLocation drops the cached IP location so the next lookup is fresh.
func (h *LocationHandler) ForgetIPLocation(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(constants.SessionKeyLocation)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to update session")
		return
	}
	c.Status(http.StatusNoContent)
}

// ReverseGeocode resolves coordinates to an address.
func (h *LocationHandler) ReverseGeocode(c *gin.Context) {
	var req coordinatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	address, err := h.geo.ReverseGeocode(c.Request.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		if errors.Is(err, geolocation.ErrInvalidCoordinates) {
			apierrors.BadRequest(c, err.Error())
			return
		}
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("reverse geocoding failed")
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "address": address})
}

// ManualLocation validates user-entered coordinates.
func (h *LocationHandler) ManualLocation(c *gin.Context) {
	var req coordinatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	location, err := h.geo.Manual(c.Request.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "location": location})
}

// ipLocation returns the session's cached IP location or looks it up and
// caches a successful result.
func ipLocation(c *gin.Context, geo *geolocation.Service) (*geolocation.Location, bool) {
	session := sessions.Default(c)
	if raw, ok := session.Get(constants.SessionKeyLocation).(string); ok && raw != "" {
		var cached geolocation.Location
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, true
		}
	}

	if geo == nil {
		return nil, false
	}
	location, ok := geo.IPLocation(c.Request.Context(), c.ClientIP())
	if !ok {
		return nil, false
	}

	if raw, err := json.Marshal(location); err == nil {
		session.Set(constants.SessionKeyLocation, string(raw))
		if err := session.Save(); err != nil {
			logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("failed to cache location in session")
		}
	}
	return location, true
}
