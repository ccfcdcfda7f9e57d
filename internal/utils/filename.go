package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yukikurage/labelit-api/internal/constants"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
	underscoreRun       = regexp.MustCompile(`_+`)
)

// SanitizeFilename strips path separators and reserved characters, collapses
// whitespace into underscores and caps the result at MaxFilenameLength runes,
// keeping the extension.
func SanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = underscoreRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_.")
	if name == "" {
		return "untitled"
	}

	if len([]rune(name)) > constants.MaxFilenameLength {
		ext := filepath.Ext(name)
		base := TruncateRunes(strings.TrimSuffix(name, ext), constants.MaxFilenameLength-len([]rune(ext)))
		name = base + ext
	}
	return name
}

// ExportFilename returns names like labelit_export_20260102_150405.xlsx.
func ExportFilename(kind, ext string, at time.Time) string {
	return fmt.Sprintf("labelit_%s_%s.%s", kind, at.Format("20060102_150405"), ext)
}
