package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/middleware"
	"github.com/yukikurage/labelit-api/internal/models"
)

// ListLanguages returns the supported languages with native names.
func ListLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":   i18n.DefaultLanguage,
		"languages": i18n.Languages(),
	})
}

// Translations returns the UI string table for the request language.
func Translations(c *gin.Context) {
	lang := middleware.GetLanguage(c)
	c.JSON(http.StatusOK, gin.H{
		"language":     lang,
		"translations": i18n.Table(lang),
	})
}

// ListCategories returns every category with its localized name.
func ListCategories(c *gin.Context) {
	lang := middleware.GetLanguage(c)

	type category struct {
		Value       models.Category `json:"value"`
		DisplayName string          `json:"display_name"`
	}
	result := make([]category, len(models.Categories))
	for i, value := range models.Categories {
		result[i] = category{Value: value, DisplayName: i18n.CategoryName(lang, string(value))}
	}
	c.JSON(http.StatusOK, gin.H{
		"language":   lang,
		"categories": result,
	})
}
