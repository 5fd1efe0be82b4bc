package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDesignRequest(t *testing.T) {
	tests := []struct {
		message string
		design  bool
	}{
		{"Create a landing page for my bakery", true},
		{"please BUILD me a portfolio website", true},
		{"add a pricing section with three cards", true},
		{"fix the navbar spacing", true},
		{"make it responsive on mobile", true},
		{"change the hero background color", true},
		{"what do you think of my idea?", false},
		{"hello there", false},
		{"thanks, that looks great!", false},
		{"tell me more", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.design, IsDesignRequest(tt.message))
		})
	}
}

func TestBuildDesignMessages(t *testing.T) {
	history := []PromptMessage{
		{Role: "user", Content: "create a page"},
		{Role: "assistant", Content: "done"},
		{Role: "user", Content: "make it blue"},
	}

	messages := BuildDesignMessages(history)
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, DesignSystemPrompt, messages[0].Content)
	assert.Equal(t, history, messages[1:])
}

func TestBuildConversationMessages(t *testing.T) {
	history := []PromptMessage{{Role: "user", Content: "hi"}}

	messages := BuildConversationMessages(history)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, ConversationSystemPrompt, messages[0].Content)
	assert.Equal(t, history[0], messages[1])
}
