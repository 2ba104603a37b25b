package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/retrieval"
)

func TestAssemblePrompt(t *testing.T) {
	t.Run("no sources yields a plain system prompt", func(t *testing.T) {
		messages := assemblePrompt(nil, nil, "hello")

		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].Role)
		assert.NotContains(t, messages[0].Content, "excerpts")
		assert.Equal(t, "user", messages[1].Role)
		assert.Equal(t, "hello", messages[1].Content)
	})

	t.Run("sources are numbered in the system prompt", func(t *testing.T) {
		sources := []retrieval.Result{
			{Title: "Handbook", Text: "Always rotate keys."},
			{Title: "Runbook", Text: "Page the on-call first."},
		}

		messages := assemblePrompt(sources, nil, "what do I do?")

		system := messages[0].Content
		assert.Contains(t, system, "[1] Handbook")
		assert.Contains(t, system, "Always rotate keys.")
		assert.Contains(t, system, "[2] Runbook")
		assert.Contains(t, system, "Page the on-call first.")
	})

	t.Run("history sits between system prompt and new message", func(t *testing.T) {
		history := []models.Message{
			{Role: models.MessageRoleUser, Content: "first question"},
			{Role: models.MessageRoleAssistant, Content: "first answer"},
		}

		messages := assemblePrompt(nil, history, "follow-up")

		require.Len(t, messages, 4)
		assert.Equal(t, "system", messages[0].Role)
		assert.Equal(t, "first question", messages[1].Content)
		assert.Equal(t, "first answer", messages[2].Content)
		assert.Equal(t, "follow-up", messages[3].Content)
		assert.Equal(t, "user", messages[3].Role)
	})
}
