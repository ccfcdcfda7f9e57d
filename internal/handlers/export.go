package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/labelit-api/internal/errors"
	"github.com/yukikurage/labelit-api/internal/middleware"
	"github.com/yukikurage/labelit-api/internal/services"
	"github.com/yukikurage/labelit-api/internal/utils"
)

const (
	spreadsheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	archiveContentType     = "application/zip"
)

// ExportHandler serves bulk downloads.
type ExportHandler struct {
	exportService *services.ExportService
	now           func() time.Time
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		now:           time.Now,
	}
}

// ExportSpreadsheet downloads every user, image and label as an xlsx workbook.
func (h *ExportHandler) ExportSpreadsheet(c *gin.Context) {
	username, _ := middleware.GetUsername(c)
	data := h.exportService.ExportSpreadsheet(c.Request.Context(), username)
	if data == nil {
		apierrors.InternalError(c, "Failed to export data")
		return
	}
	h.attach(c, utils.ExportFilename("export", services.FormatSpreadsheet, h.now()), spreadsheetContentType, data)
}

// ExportArchive downloads every stored image as a zip.
func (h *ExportHandler) ExportArchive(c *gin.Context) {
	username, _ := middleware.GetUsername(c)
	data := h.exportService.ExportArchive(c.Request.Context(), username)
	if data == nil {
		apierrors.InternalError(c, "Failed to create image archive")
		return
	}
	h.attach(c, utils.ExportFilename("images", services.FormatArchive, h.now()), archiveContentType, data)
}

func (h *ExportHandler) attach(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}
