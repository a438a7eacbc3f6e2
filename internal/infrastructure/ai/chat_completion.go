package ai

import (
	"encoding/json"
	"strings"

	"github.com/heldhq/held/internal/domain"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// chatCompletionResponse covers the OpenAI-compatible shape and the Llama
// API's completion_message variant. Content fields stay raw because providers
// return strings, objects or arrays of parts.
type chatCompletionResponse struct {
	CompletionMessage *struct {
		Content json.RawMessage `json:"content"`
	} `json:"completion_message"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// FirstMessage returns the text of the first choice.
func (c chatCompletionResponse) FirstMessage() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return extractText(c.Choices[0].Message.Content)
}

// CompletionText returns completion_message content, falling back to the first choice.
func (c chatCompletionResponse) CompletionText() string {
	if c.CompletionMessage != nil {
		if text := extractText(c.CompletionMessage.Content); text != "" {
			return text
		}
	}
	return c.FirstMessage()
}

func toChatMessages(turns []domain.Turn) []chatMessage {
	out := make([]chatMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, chatMessage{Role: strings.ToLower(t.Role), Content: t.Content})
	}
	return out
}

// extractText flattens a content value: a string, an object with text or
// content, or an array of such parts.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return textOf(value)
}

func textOf(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]interface{}:
		if s, ok := v["text"].(string); ok && s != "" {
			return s
		}
		if s, ok := v["content"].(string); ok {
			return s
		}
		return ""
	case []interface{}:
		var b strings.Builder
		for _, part := range v {
			b.WriteString(textOf(part))
		}
		return b.String()
	default:
		return ""
	}
}
