// Package i18n holds the supported label languages and the UI string tables.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when a key or language has no translation.
const DefaultLanguage = "en"

// Language describes one supported language.
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Native string `json:"native"`
}

var languages = []Language{
	{Code: "en", Name: "English", Native: "English"},
	{Code: "hi", Name: "Hindi", Native: "हिन्दी"},
	{Code: "te", Name: "Telugu", Native: "తెలుగు"},
	{Code: "ta", Name: "Tamil", Native: "தமிழ்"},
	{Code: "bn", Name: "Bengali", Native: "বাংলা"},
	{Code: "gu", Name: "Gujarati", Native: "ગુજરાતી"},
	{Code: "mr", Name: "Marathi", Native: "मराठी"},
	{Code: "kn", Name: "Kannada", Native: "ಕನ್ನಡ"},
	{Code: "ml", Name: "Malayalam", Native: "മലയാളം"},
	{Code: "pa", Name: "Punjabi", Native: "ਪੰਜਾਬੀ"},
	{Code: "or", Name: "Odia", Native: "ଓଡିଆ"},
	{Code: "as", Name: "Assamese", Native: "অসমীয়া"},
	{Code: "ur", Name: "Urdu", Native: "اردو"},
	{Code: "sa", Name: "Sanskrit", Native: "संस्कृत"},
}

//go:embed locales/*.yaml
var localeFiles embed.FS

var (
	loadOnce sync.Once
	tables   map[string]map[string]string
	loadErr  error

	matcher = newMatcher()
)

func newMatcher() language.Matcher {
	tags := make([]language.Tag, len(languages))
	for i, lang := range languages {
		tags[i] = language.Make(lang.Code)
	}
	return language.NewMatcher(tags)
}

func load() {
	tables = make(map[string]map[string]string)
	entries, err := localeFiles.ReadDir("locales")
	if err != nil {
		loadErr = fmt.Errorf("failed to read locales: %w", err)
		return
	}
	for _, entry := range entries {
		data, err := localeFiles.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			loadErr = fmt.Errorf("failed to read %s: %w", entry.Name(), err)
			return
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(data, &table); err != nil {
			loadErr = fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
			return
		}
		tables[strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))] = table
	}
}

func translations() map[string]map[string]string {
	loadOnce.Do(load)
	return tables
}

// LoadError reports a failure to parse the embedded string tables.
func LoadError() error {
	loadOnce.Do(load)
	return loadErr
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// IsSupported reports whether code is a supported language code.
func IsSupported(code string) bool {
	for _, lang := range languages {
		if lang.Code == code {
			return true
		}
	}
	return false
}

// T translates key, falling back to English and then to the humanized key.
func T(lang, key string) string {
	all := translations()
	if value, ok := all[lang][key]; ok {
		return value
	}
	if value, ok := all[DefaultLanguage][key]; ok {
		return value
	}
	return Humanize(key)
}

// Table returns every English key translated into lang.
func Table(lang string) map[string]string {
	all := translations()
	out := make(map[string]string, len(all[DefaultLanguage]))
	for key, value := range all[DefaultLanguage] {
		out[key] = value
	}
	for key, value := range all[lang] {
		out[key] = value
	}
	return out
}

// CategoryName translates a category such as "Animals".
func CategoryName(lang, category string) string {
	return T(lang, "category_"+strings.ToLower(category))
}

// Humanize turns snake_case keys into title case words.
func Humanize(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return languages[index].Code
}
