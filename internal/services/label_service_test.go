package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/labelit-api/internal/models"
)

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		language string
		want     string
		wantErr  bool
	}{
		{"trims", "  cat  ", "en", "cat", false},
		{"devanagari", "बिल्ली", "hi", "बिल्ली", false},
		{"empty", "   ", "en", "", true},
		{"too long", strings.Repeat("a", 101), "en", "", true},
		{"hundred runes", strings.Repeat("क", 100), "hi", strings.Repeat("क", 100), false},
		{"script", "<script>alert(1)</script>", "en", "", true},
		{"unsupported language", "chat", "fr", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateLabel(tt.text, tt.language)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLabel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddLabel_ReplacesSameKey(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "alice123")
	registerUser(t, env, "bob")
	ctx := context.Background()

	id := addImage(t, env, "Cat", models.CategoryAnimals, "alice123")

	require.True(t, env.label.AddLabel(ctx, id, "cat", "en", "alice123"))
	require.True(t, env.label.AddLabel(ctx, id, " cat ", "en", "bob"))
	require.True(t, env.label.AddLabel(ctx, id, "Cat", "en", "bob"))

	labels := env.label.GetLabels(ctx, id)
	require.Len(t, labels, 2)
	assert.Equal(t, "bob", labels[0].AddedBy)
	assert.Equal(t, "bob", labels[1].AddedBy)

	image, err := env.image.GetImage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), image.LabelCount)
}

func TestAddLabel_Failures(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "alice123")
	ctx := context.Background()

	id := addImage(t, env, "Cat", models.CategoryAnimals, "alice123")

	assert.False(t, env.label.AddLabel(ctx, id, "", "en", "alice123"))
	assert.False(t, env.label.AddLabel(ctx, id, "cat", "fr", "alice123"))
	assert.False(t, env.label.AddLabel(ctx, "missing", "cat", "en", "alice123"))
	assert.False(t, env.label.AddLabel(ctx, id, "cat", "en", "ghost"))

	assert.Empty(t, env.label.GetLabels(ctx, id))

	var events int64
	require.NoError(t, env.db.Model(&models.AnalyticsEvent{}).Where("event_type = ?", models.EventLabelAdded).Count(&events).Error)
	assert.Zero(t, events)
}

func TestAddLabel_LogsEvent(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "alice123")
	ctx := context.Background()

	id := addImage(t, env, "Cat", models.CategoryAnimals, "alice123")
	require.True(t, env.label.AddLabel(ctx, id, "बिल्ली", "hi", "alice123"))

	var event models.AnalyticsEvent
	require.NoError(t, env.db.Where("event_type = ?", models.EventLabelAdded).First(&event).Error)
	require.NotNil(t, event.LabelID)
	require.NotNil(t, event.ImageID)
	assert.Equal(t, id, *event.ImageID)
	assert.Equal(t, "hi", event.Metadata["language"])
	assert.Equal(t, json.Number("6"), event.Metadata["text_length"])
}

func TestGetLabels_UnknownImage(t *testing.T) {
	env := newTestEnv(t)

	labels := env.label.GetLabels(context.Background(), "missing")
	assert.NotNil(t, labels)
	assert.Empty(t, labels)
}
