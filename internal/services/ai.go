package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/labelit-api/internal/i18n"
	"github.com/yukikurage/labelit-api/internal/models"
)

const maxSuggestions = 5

// ErrAIUnavailable is returned when no OpenAI key is configured.
var ErrAIUnavailable = errors.New("label suggestions are not configured")

// AIService proposes labels with an OpenAI chat model.
type AIService struct {
	client *openai.Client
	model  string
}

// NewAIService returns nil when apiKey is empty. baseURL overrides the
// OpenAI endpoint when set.
func NewAIService(apiKey, model, baseURL string) *AIService {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Enabled reports whether suggestions can be requested.
func (s *AIService) Enabled() bool {
	return s != nil && s.client != nil
}

// SuggestLabels asks the model for short labels in language that are not
// already attached to the image.
func (s *AIService) SuggestLabels(ctx context.Context, image *models.Image, existing []models.Label, language string) ([]string, error) {
	if !s.Enabled() {
		return nil, ErrAIUnavailable
	}

	known := make(map[string]bool, len(existing))
	var listed []string
	for _, label := range existing {
		key := strings.ToLower(label.Text)
		if !known[key] {
			known[key] = true
			listed = append(listed, fmt.Sprintf("%s (%s)", label.Text, label.Language))
		}
	}

	languageName := language
	for _, lang := range i18n.Languages() {
		if lang.Code == language {
			languageName = lang.Name
			break
		}
	}

	prompt := fmt.Sprintf(`You help people label images for a multilingual dataset.

Image title: %s
Category: %s
Description: %s
Existing labels: %s

Suggest up to %d short labels (one to three words each) in %s that describe the image and are not already listed.
Write them in the native script of %s.
Return only a JSON array of strings, for example ["label one", "label two"].`,
		image.Title, image.Category, image.Description, strings.Join(listed, ", "),
		maxSuggestions, languageName, languageName)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "`\n ")

	var raw []string
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	suggestions := make([]string, 0, len(raw))
	for _, text := range raw {
		text, err := ValidateLabel(text, language)
		if err != nil || known[strings.ToLower(text)] {
			continue
		}
		known[strings.ToLower(text)] = true
		suggestions = append(suggestions, text)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions, nil
}
